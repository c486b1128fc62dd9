package directory

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemo(t *testing.T) {
	m := newMemo(2)
	var computed int
	compute := func(v string) func() interface{} {
		return func() interface{} {
			computed++
			return v
		}
	}

	assert.Equal(t, "a", m.do("a", true, compute("a")))
	assert.Equal(t, "a", m.do("a", true, compute("other")))
	assert.Equal(t, 1, computed)

	assert.Equal(t, "fresh", m.do("a", false, compute("fresh")), "not cacheable: computed and not stored")
	assert.Equal(t, "a", m.do("a", true, compute("other")))
	assert.Equal(t, 2, computed)

	m.do("b", true, compute("b"))
	m.do("c", true, compute("c"))
	assert.Equal(t, 2, m.len())
	assert.Equal(t, "a2", m.do("a", true, compute("a2")), "the oldest entry is evicted first")
}

func TestMemo_mergesConcurrentComputations(t *testing.T) {
	m := newMemo(0)
	var computed int32
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v := m.do("key", true, func() interface{} {
				atomic.AddInt32(&computed, 1)
				return 42
			})
			assert.Equal(t, 42, v)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&computed), "cached after the first computation")
}
