package page

import (
	"context"
	"sync"
)

// coalescer implements the send-coalescing state machine of spec.md
// §4.5: exactly one send may be in flight at a time; any Schedule()
// calls that arrive while one is in flight (or already queued) collapse
// into a single follow-up send once the current one settles.
type coalescer struct {
	mu       sync.Mutex
	inFlight bool
	queued   bool
	pending  bool

	send func(ctx context.Context) error
}

func newCoalescer(send func(ctx context.Context) error) *coalescer {
	return &coalescer{send: send}
}

// Schedule marks a send as wanted. If nothing is in flight and nothing
// is already queued, it kicks off process() on a fresh goroutine
// (spec.md's "0-delay timer").
func (c *coalescer) Schedule() {
	c.mu.Lock()
	c.pending = true
	if c.inFlight || c.queued {
		c.mu.Unlock()
		return
	}
	c.queued = true
	c.mu.Unlock()

	go c.process()
}

func (c *coalescer) process() {
	c.mu.Lock()
	c.queued = false
	c.pending = false
	c.inFlight = true
	c.mu.Unlock()

	_ = c.send(context.Background())

	c.mu.Lock()
	c.inFlight = false
	again := c.pending
	c.mu.Unlock()

	if again {
		c.Schedule()
	}
}
