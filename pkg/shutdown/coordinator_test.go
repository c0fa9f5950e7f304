package shutdown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSession struct {
	safeDelay    time.Duration
	safeCalled   chan struct{}
	immediate    chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{safeCalled: make(chan struct{}, 1), immediate: make(chan struct{}, 1)}
}

func (f *fakeSession) SafelyClose(ctx context.Context) error {
	f.safeCalled <- struct{}{}
	select {
	case <-time.After(f.safeDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSession) ImmediatelyClose() error {
	f.immediate <- struct{}{}
	return nil
}

func TestDrainCompletesWithinTimeout(t *testing.T) {
	sess := newFakeSession()
	c := New(sess, nil, time.Second)
	c.Drain()

	select {
	case <-sess.safeCalled:
	default:
		t.Fatal("SafelyClose was not called")
	}
	select {
	case <-sess.immediate:
		t.Fatal("ImmediatelyClose should not fire when SafelyClose finishes in time")
	default:
	}
}

func TestDrainForcesImmediateCloseOnHardTimeout(t *testing.T) {
	sess := newFakeSession()
	sess.safeDelay = time.Second
	c := New(sess, nil, 20*time.Millisecond)
	c.Drain()

	select {
	case <-sess.immediate:
	case <-time.After(time.Second):
		t.Fatal("ImmediatelyClose was never called after hard timeout")
	}
}

func TestListenAndDrainOnSignalContext(t *testing.T) {
	sess := newFakeSession()
	c := New(sess, nil, time.Second)
	ctx := c.Listen()
	assert.NotNil(t, ctx)

	// Simulate an external cancellation (what signal.NotifyContext would
	// do on SIGINT/SIGTERM) by stopping and draining directly.
	c.Stop()
	c.Drain()

	select {
	case <-sess.safeCalled:
	case <-time.After(time.Second):
		t.Fatal("SafelyClose was not called")
	}
}
