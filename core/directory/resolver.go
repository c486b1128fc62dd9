// Package directory derives the views of the student directory from the record store,
// falling back to the bundled sample data when the store is empty or refuses the read.
package directory

import "github.com/trezcool/studentdir/core"

// Source tells where the items of a Resolution come from.
type Source string

const (
	SourceNone     Source = "none"
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

// Notice is shown alongside a view, without blocking it.
type Notice string

const (
	NoticeNone             Notice = ""
	NoticePermissionDenied Notice = "permission_denied"
	NoticeSearchRequired   Notice = "search_required"
)

// Message is the human readable text of the notice.
func (n Notice) Message() string {
	switch n {
	case NoticePermissionDenied:
		return "Could not load live student data. You may not have the required permissions. Showing sample data instead."
	case NoticeSearchRequired:
		return "Search for a student by name to see results."
	default:
		return ""
	}
}

// Live is the state of a live query: still loading, succeeded, or failed.
// Items may be set while Loading when a previous result is being refreshed.
type Live[T any] struct {
	Items   []T
	Loading bool
	Err     error
}

// Resolution is the single list a view renders.
type Resolution[T any] struct {
	Items   []T
	Source  Source
	Notice  Notice
	Pending bool
	// Err is set when the live query failed for another reason than access.
	Err error
}

// Resolve merges a live result with the fallback dataset:
//   - loading with nothing yet: empty and pending, never the fallback
//   - at least one live item: the live items
//   - no item, or access denied: a copy of the fallback, with a notice when access was denied
//
// Other errors are returned in Resolution.Err.
func Resolve[T any](live Live[T], fallback []T) Resolution[T] {
	switch {
	case len(live.Items) > 0:
		return Resolution[T]{Items: live.Items, Source: SourceLive, Pending: live.Loading}
	case live.Loading:
		return Resolution[T]{Items: []T{}, Source: SourceNone, Pending: true}
	case live.Err != nil && !core.IsPermissionDenied(live.Err):
		return Resolution[T]{Items: []T{}, Source: SourceNone, Err: live.Err}
	}

	res := Resolution[T]{Items: append(make([]T, 0, len(fallback)), fallback...), Source: SourceFallback}
	if live.Err != nil {
		res.Notice = NoticePermissionDenied
	}
	return res
}

// SearchRequired is the resolution of a restricted caller who has not searched yet: no query is made.
func SearchRequired[T any]() Resolution[T] {
	return Resolution[T]{Items: []T{}, Source: SourceNone, Notice: NoticeSearchRequired}
}
