package directory

import (
	"context"

	"github.com/trezcool/studentdir/core/student"
)

// QueryFunc runs a live query.
type QueryFunc[T any] func(ctx context.Context) ([]T, error)

// Subscription keeps a live query up to date with the record store.
//
// It first emits a Live that is loading with no items, then the result of the query.
// Every change of the store re-runs the query, emitting the previous items while loading.
type Subscription[T any] struct {
	results chan Live[T]
	replace chan QueryFunc[T]
	done    chan struct{}
	cancel  context.CancelFunc
}

// Subscribe starts running query until ctx is done or the subscription is closed.
func Subscribe[T any](ctx context.Context, feed *student.Feed, query QueryFunc[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription[T]{
		results: make(chan Live[T]),
		replace: make(chan QueryFunc[T]),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	revisions, unsubscribe := feed.Subscribe()
	go func() {
		defer close(sub.done)
		defer close(sub.results)
		defer unsubscribe()
		sub.loop(ctx, revisions, query)
	}()
	return sub
}

// Results is closed when the subscription ends.
func (sub *Subscription[T]) Results() <-chan Live[T] {
	return sub.results
}

// Replace supersedes the current query: results of the previous one are never emitted after this returns.
func (sub *Subscription[T]) Replace(query QueryFunc[T]) {
	select {
	case sub.replace <- query:
	case <-sub.done:
	}
}

// Close stops the subscription and waits for it to end.
func (sub *Subscription[T]) Close() {
	sub.cancel()
	<-sub.done
}

type outcome[T any] struct {
	generation uint64
	items      []T
	err        error
}

func (sub *Subscription[T]) loop(ctx context.Context, revisions <-chan uint64, query QueryFunc[T]) {
	outcomes := make(chan outcome[T])
	var (
		generation uint64
		last       []T
		cancelRun  = func() {}
	)
	defer func() { cancelRun() }()

	run := func() {
		cancelRun()
		generation++
		gen := generation
		runCtx, cancel := context.WithCancel(ctx)
		cancelRun = cancel
		go func(q QueryFunc[T]) {
			items, err := q(runCtx)
			select {
			case outcomes <- outcome[T]{generation: gen, items: items, err: err}:
			case <-runCtx.Done():
			}
		}(query)
	}
	// emit also accepts replacements so a consumer may call Replace instead of reading.
	emit := func(live Live[T]) bool {
		for {
			select {
			case sub.results <- live:
				return true
			case query = <-sub.replace:
				last = nil
				run()
				live = Live[T]{Loading: true}
			case <-ctx.Done():
				return false
			}
		}
	}

	if !emit(Live[T]{Loading: true}) {
		return
	}
	run()
	for {
		select {
		case <-ctx.Done():
			return
		case query = <-sub.replace:
			last = nil
			run()
			if !emit(Live[T]{Loading: true}) {
				return
			}
		case <-revisions:
			run()
			if !emit(Live[T]{Items: last, Loading: true}) {
				return
			}
		case out := <-outcomes:
			if out.generation != generation {
				continue // superseded
			}
			if out.err == nil {
				last = out.items
			}
			if !emit(Live[T]{Items: out.items, Err: out.err}) {
				return
			}
		}
	}
}
