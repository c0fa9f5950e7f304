package txn

import (
	"context"

	"github.com/chronicals/sdk/pkg/ports"
)

// ioHost is the subset of Manager an ioClient needs: send the outbound
// render instruction and block for the matching inbound IO_RESPONSE.
type ioHost interface {
	sendIOCall(ctx context.Context, transactionID, instruction string) error
	awaitIOResponse(ctx context.Context, transactionID string) (string, error)
	registerInlineAction(transactionID, key string)
}

// ioClient implements ports.IOClient for a single transaction, per
// spec.md §4.4 step 4.
type ioClient struct {
	host          ioHost
	transactionID string
}

var _ ports.IOClient = (*ioClient)(nil)

func newIOClient(host ioHost, transactionID string) *ioClient {
	return &ioClient{host: host, transactionID: transactionID}
}

// Send serializes and dispatches a render instruction, then blocks until
// the matching IO_RESPONSE arrives (or the transaction is canceled or
// closed), per spec.md §4.4 step 4 and §5's cancellation semantics.
func (c *ioClient) Send(ctx context.Context, renderInstruction string) (string, error) {
	if err := c.host.sendIOCall(ctx, c.transactionID, renderInstruction); err != nil {
		return "", err
	}
	return c.host.awaitIOResponse(ctx, c.transactionID)
}

// Group returns an IOClient scoped to the same transaction. The core
// treats grouped I/O identically to top-level I/O; sequencing within a
// group is the caller's (handler-authoring layer's) responsibility.
func (c *ioClient) Group() ports.IOClient {
	return c
}

// RegisterInlineAction preserves the hook named in spec.md §9 Open
// Question (d) without exercising it.
func (c *ioClient) RegisterInlineAction(key string) {
	c.host.registerInlineAction(c.transactionID, key)
}
