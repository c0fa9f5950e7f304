// Package rpc implements the duplex RPC layer of spec.md §4.2: a single
// WebSocket Socket multiplexes both host-initiated calls (SEND_IO_CALL,
// SEND_PAGE, ...) and orchestrator-initiated calls (START_TRANSACTION,
// IO_RESPONSE, ...), correlated by message id rather than by
// request/response pairing on separate channels.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	hostsdk "github.com/chronicals/sdk/pkg/hosterr"
	"github.com/chronicals/sdk/pkg/ports"
)

// envelope is the wire message exchanged over the transport Socket, one
// level above the chunking Frame. A message with a non-empty Method is a
// call (either direction); a message with an empty Method and a matching
// ID is that call's response.
type envelope struct {
	ID     string          `json:"id"`
	Method string          `json:"method,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  *errorPayload   `json:"error,omitempty"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Client implements ports.RPCClient on top of a ports.Socket, mapping
// SCHEMA_INVALID and METHOD_UNKNOWN failures onto *hostsdk.Error per
// spec.md §7.
type Client struct {
	baseTimeout time.Duration
	schemas     *SchemaSet

	mu       sync.Mutex
	socket   ports.Socket
	inflight map[string]chan envelope
	handlers map[string]ports.InboundHandler
}

// NewClient builds a Client. baseTimeout is the unmultiplied per-call
// timeout; ports.SendOptions.TimeoutFactor scales it per spec.md §4.9.
func NewClient(baseTimeout time.Duration, schemas *SchemaSet) *Client {
	if baseTimeout <= 0 {
		baseTimeout = 10 * time.Second
	}
	if schemas == nil {
		schemas = NewSchemaSet()
	}
	return &Client{
		baseTimeout: baseTimeout,
		schemas:     schemas,
		inflight:    map[string]chan envelope{},
		handlers:    map[string]ports.InboundHandler{},
	}
}

var _ ports.RPCClient = (*Client)(nil)

// SetSocket atomically rebinds the Client to a new Socket, e.g. after a
// reconnect. The previous socket's onMessage hook is left dangling but
// harmless since the old connection is closed.
func (c *Client) SetSocket(sock ports.Socket) {
	c.mu.Lock()
	c.socket = sock
	c.mu.Unlock()
	sock.OnMessage(c.handleMessage)
}

// RegisterHandler installs the handler invoked for inbound calls to
// method. Registering the same method twice replaces the handler.
func (c *Client) RegisterHandler(method string, h ports.InboundHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[method] = h
}

func (c *Client) currentSocket() ports.Socket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socket
}

// Send issues an outbound call and blocks for its response, per
// spec.md §4.2/§4.9. The timeout is baseTimeout * opts.TimeoutFactor
// (a factor of zero is treated as 1).
func (c *Client) Send(ctx context.Context, method string, input any, opts ports.SendOptions) ([]byte, error) {
	sock := c.currentSocket()
	if sock == nil {
		return nil, hostsdk.NewError(hostsdk.ErrNotConnected, "no socket bound", nil)
	}

	data, err := json.Marshal(input)
	if err != nil {
		return nil, hostsdk.NewError(hostsdk.ErrSchemaInvalid, "encoding request", err)
	}

	id := uuid.NewString()
	respCh := make(chan envelope, 1)
	c.mu.Lock()
	c.inflight[id] = respCh
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inflight, id)
		c.mu.Unlock()
	}()

	msg := envelope{ID: id, Method: method, Data: data}
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, hostsdk.NewError(hostsdk.ErrSchemaInvalid, "encoding envelope", err)
	}

	factor := opts.TimeoutFactor
	if factor <= 0 {
		factor = 1
	}
	sendCtx, cancel := context.WithTimeout(ctx, c.baseTimeout*time.Duration(factor))
	defer cancel()

	if err := sock.Send(sendCtx, raw); err != nil {
		if errors.Is(err, ports.ErrNotConnected) {
			return nil, hostsdk.NewError(hostsdk.ErrNotConnected, "sending "+method, err)
		}
		return nil, hostsdk.NewError(hostsdk.ErrTimeout, "sending "+method, err)
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, hostsdk.NewError(hostsdk.ErrorKind(resp.Error.Kind), resp.Error.Message, nil)
		}
		if err := c.schemas.Validate(method+".output", resp.Data); err != nil {
			return nil, err
		}
		return resp.Data, nil
	case <-sendCtx.Done():
		return nil, hostsdk.NewError(hostsdk.ErrTimeout, "waiting for "+method+" response", sendCtx.Err())
	}
}

// handleMessage is wired as the Socket's OnMessage hook. It routes
// responses back to their waiting Send call and dispatches inbound
// method calls to registered handlers.
func (c *Client) handleMessage(raw []byte) {
	var msg envelope
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	if msg.Method == "" {
		c.mu.Lock()
		ch, ok := c.inflight[msg.ID]
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
		return
	}

	c.mu.Lock()
	handler := c.handlers[msg.Method]
	c.mu.Unlock()

	if handler == nil {
		c.reply(msg.ID, nil, hostsdk.NewError(hostsdk.ErrMethodUnknown, msg.Method, nil))
		return
	}

	if err := c.schemas.Validate(msg.Method+".input", msg.Data); err != nil {
		c.reply(msg.ID, nil, err)
		return
	}

	result, err := handler(context.Background(), msg.Data)
	if err != nil {
		c.reply(msg.ID, nil, err)
		return
	}
	c.reply(msg.ID, result, nil)
}

func (c *Client) reply(id string, result any, callErr error) {
	sock := c.currentSocket()
	if sock == nil {
		return
	}

	resp := envelope{ID: id}
	if callErr != nil {
		resp.Error = &errorPayload{Kind: string(kindOf(callErr)), Message: callErr.Error()}
	} else if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			resp.Error = &errorPayload{Kind: string(hostsdk.ErrFatal), Message: err.Error()}
		} else {
			resp.Data = data
		}
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.baseTimeout)
	defer cancel()
	_ = sock.Send(ctx, raw)
}

func kindOf(err error) hostsdk.ErrorKind {
	var e *hostsdk.Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return hostsdk.ErrFatal
}
