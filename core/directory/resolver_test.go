package directory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/studentdir/core"
)

func TestResolve(t *testing.T) {
	fallback := []string{"sample-1", "sample-2"}
	denied := core.NewPermissionError("list students")
	broken := errors.New("connection reset")

	tests := []struct {
		name string
		live Live[string]
		want Resolution[string]
	}{
		{
			name: "loading without items never shows the fallback",
			live: Live[string]{Loading: true},
			want: Resolution[string]{Items: []string{}, Source: SourceNone, Pending: true},
		},
		{
			name: "live items win",
			live: Live[string]{Items: []string{"live"}},
			want: Resolution[string]{Items: []string{"live"}, Source: SourceLive},
		},
		{
			name: "live items win while loading more",
			live: Live[string]{Items: []string{"live"}, Loading: true},
			want: Resolution[string]{Items: []string{"live"}, Source: SourceLive, Pending: true},
		},
		{
			name: "empty result falls back without notice",
			live: Live[string]{Items: []string{}},
			want: Resolution[string]{Items: fallback, Source: SourceFallback},
		},
		{
			name: "access denied falls back with notice",
			live: Live[string]{Err: denied},
			want: Resolution[string]{Items: fallback, Source: SourceFallback, Notice: NoticePermissionDenied},
		},
		{
			name: "other errors are not absorbed",
			live: Live[string]{Err: broken},
			want: Resolution[string]{Items: []string{}, Source: SourceNone, Err: broken},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.live, fallback))
		})
	}
}

func TestResolve_copiesFallback(t *testing.T) {
	fallback := []string{"b", "a"}
	res := Resolve(Live[string]{}, fallback)
	res.Items[0] = "changed"
	assert.Equal(t, []string{"b", "a"}, fallback)
}

func TestSearchRequired(t *testing.T) {
	res := SearchRequired[string]()
	assert.Empty(t, res.Items)
	assert.NotNil(t, res.Items)
	assert.Equal(t, SourceNone, res.Source)
	assert.Equal(t, NoticeSearchRequired, res.Notice)
	assert.False(t, res.Pending)
}

func TestNotice_Message(t *testing.T) {
	assert.Contains(t, NoticePermissionDenied.Message(), "You may not have the required permissions. Showing sample data instead.")
	assert.NotEmpty(t, NoticeSearchRequired.Message())
	assert.Empty(t, NoticeNone.Message())
}
