package page

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCoalescerCollapsesBurst is scenario 4 from spec.md §8: three render
// updates within 1ms collapse into exactly two sends, the first carrying
// whatever was current when it started and the last carrying the final
// value.
func TestCoalescerCollapsesBurst(t *testing.T) {
	var mu sync.Mutex
	var sent []string
	var current string

	release := make(chan struct{})
	first := true

	c := newCoalescer(func(ctx context.Context) error {
		mu.Lock()
		v := current
		mu.Unlock()

		if first {
			first = false
			<-release // hold the first send in flight so B arrives while busy
		}

		mu.Lock()
		sent = append(sent, v)
		mu.Unlock()
		return nil
	})

	mu.Lock()
	current = "A"
	mu.Unlock()
	c.Schedule()

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.inFlight
	}, time.Second, time.Millisecond)

	mu.Lock()
	current = "B"
	mu.Unlock()
	c.Schedule()

	mu.Lock()
	current = "C"
	mu.Unlock()
	c.Schedule()

	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sent) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"A", "C"}, sent)
}
