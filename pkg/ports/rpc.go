package ports

import "context"

// InboundHandler answers an RPC call the peer made on us. The input has
// been schema-validated before the handler runs; the returned value is
// JSON-encoded and sent back without schema validation.
type InboundHandler func(ctx context.Context, input []byte) (any, error)

// SendOptions configures a single RPC send.
type SendOptions struct {
	// TimeoutFactor scales the base send timeout, used by the outer
	// retry loop (spec.md §4.9) to widen the window on each attempt.
	TimeoutFactor int
}

// RPCClient is the duplex RPC layer of spec.md §4.2: two symmetric method
// dictionaries, correlated by ids internal to the layer.
type RPCClient interface {
	// Send performs a schema-validated round trip and returns the raw
	// JSON output.
	Send(ctx context.Context, method string, input any, opts SendOptions) ([]byte, error)

	// SetSocket rebinds the client to a new socket after reconnect,
	// atomically, without touching promises already in flight (those
	// have already failed, per spec.md §4.2).
	SetSocket(sock Socket)

	// RegisterHandler installs the handler for an inbound method call.
	// The method name is not checked against the known methods, and
	// registering a method again replaces its handler.
	RegisterHandler(method string, h InboundHandler)
}
