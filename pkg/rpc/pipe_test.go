package rpc

import (
	"context"

	"github.com/chronicals/sdk/pkg/ports"
)

// pipeSocket is an in-memory ports.Socket used by tests to connect two
// Clients back to back without a real network hop.
type pipeSocket struct {
	peer      *pipeSocket
	onMessage ports.MessageHandler
	onClose   ports.CloseHandler
}

func newPipe() (*pipeSocket, *pipeSocket) {
	a := &pipeSocket{}
	b := &pipeSocket{}
	a.peer = b
	b.peer = a
	return a, b
}

func (p *pipeSocket) Connect(ctx context.Context) error { return nil }

func (p *pipeSocket) Send(ctx context.Context, data []byte) error {
	if p.peer != nil && p.peer.onMessage != nil {
		go p.peer.onMessage(append([]byte(nil), data...))
	}
	return nil
}

func (p *pipeSocket) Ping(ctx context.Context) error { return nil }
func (p *pipeSocket) Close() error                   { return nil }
func (p *pipeSocket) InstanceID() string             { return "pipe" }
func (p *pipeSocket) OnMessage(h ports.MessageHandler) { p.onMessage = h }
func (p *pipeSocket) OnClose(h ports.CloseHandler)     { p.onClose = h }

var _ ports.Socket = (*pipeSocket)(nil)
