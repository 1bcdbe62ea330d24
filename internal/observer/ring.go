package observer

import (
	"sync"

	"github.com/vizier-sh/vizier/internal/schema"
)

// eventRing is a thread-safe circular buffer for filesystem events pending
// between polls. When a poll is slow to arrive the buffer wraps and the
// oldest events are dropped, so memory stays bounded no matter how busy the
// watched subtree gets.
type eventRing struct {
	mu     sync.Mutex
	buffer []schema.FSEvent
	size   int
	head   int
	count  int
}

const defaultEventRingSize = 4096

func newEventRing(size int) *eventRing {
	if size <= 0 {
		size = defaultEventRingSize
	}
	return &eventRing{
		buffer: make([]schema.FSEvent, size),
		size:   size,
	}
}

func (r *eventRing) push(event schema.FSEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer[r.head] = event
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// drain returns all buffered events oldest-first and empties the ring.
func (r *eventRing) drain() []schema.FSEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return nil
	}

	result := make([]schema.FSEvent, r.count)
	if r.count < r.size {
		copy(result, r.buffer[:r.count])
	} else {
		copy(result, r.buffer[r.head:])
		copy(result[r.size-r.head:], r.buffer[:r.head])
	}

	r.head = 0
	r.count = 0
	return result
}

func (r *eventRing) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
