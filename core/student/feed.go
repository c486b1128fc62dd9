package student

import "sync"

// Feed tells subscribers that the record store changed.
// Each change bumps a revision; subscribers only ever see the latest one.
type Feed struct {
	mu     sync.Mutex
	rev    uint64
	nextID int
	subs   map[int]chan uint64
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan uint64)}
}

// Revision returns the current revision.
func (f *Feed) Revision() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rev
}

// Publish bumps the revision and notifies every subscriber without blocking.
func (f *Feed) Publish() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rev++
	for _, ch := range f.subs {
		select {
		case ch <- f.rev:
		default:
			// drop the stale revision the subscriber has not read yet
			select {
			case <-ch:
			default:
			}
			ch <- f.rev
		}
	}
	return f.rev
}

// Subscribe returns a channel of revisions and a func to stop receiving them.
func (f *Feed) Subscribe() (<-chan uint64, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	ch := make(chan uint64, 1)
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}
