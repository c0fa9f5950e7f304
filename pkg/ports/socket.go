package ports

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by Socket.Send/Ping when there is no live
// connection to operate on. Callers distinguish this from a timed-out
// call with errors.Is, per spec.md §4.9's "only TIMEOUT retries" rule.
var ErrNotConnected = errors.New("socket not connected")

// MessageHandler is invoked once per fully-reassembled inbound frame.
type MessageHandler func(data []byte)

// CloseHandler is invoked when the socket transitions to closed, whether
// intentionally or not.
type CloseHandler func(code int, reason string)

// Socket is the framed, ping-checked duplex byte pipe of spec.md §4.1.
// Implementations must guarantee Send only returns after every chunk of a
// large payload has been acked by the peer.
type Socket interface {
	// Connect opens the underlying connection. Fails with ErrTimeout after
	// the configured connect timeout.
	Connect(ctx context.Context) error

	// Send transmits data (chunking internally if needed) and waits for
	// the peer's ack. Fails with ErrTimeout or ErrNotConnected.
	Send(ctx context.Context, data []byte) error

	// Ping performs a liveness round trip. Fails with ErrTimeout.
	Ping(ctx context.Context) error

	// Close tears down the connection immediately.
	Close() error

	// InstanceID is stable across reconnects for this logical host.
	InstanceID() string

	// OnMessage/OnClose register the socket's event callbacks. Must be
	// called before Connect.
	OnMessage(h MessageHandler)
	OnClose(h CloseHandler)
}
