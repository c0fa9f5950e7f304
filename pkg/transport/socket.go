package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/chronicals/sdk/pkg/ports"
)

// Config configures a Socket's timeouts and endpoint, per spec.md §6/§8.
type Config struct {
	Endpoint       string
	APIKey         string
	InstanceID     string
	ConnectTimeout time.Duration
	SendTimeout    time.Duration
	PingTimeout    time.Duration
	MaxChunkBytes  int
}

func (c *Config) applyDefaults() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 5 * time.Second
	}
	if c.InstanceID == "" {
		c.InstanceID = uuid.NewString()
	}
}

// Socket implements ports.Socket over a gorilla/websocket connection.
type Socket struct {
	cfg Config

	mu       sync.Mutex
	conn     *websocket.Conn
	closed   bool
	pending  map[string]chan error
	assembly *reassembler

	onMessage ports.MessageHandler
	onClose   ports.CloseHandler

	pongCh chan struct{}

	writeMu sync.Mutex
}

// New creates a Socket in the given configuration. Call Connect to open it.
func New(cfg Config) *Socket {
	cfg.applyDefaults()
	return &Socket{
		cfg:      cfg,
		pending:  map[string]chan error{},
		assembly: newReassembler(),
		pongCh:   make(chan struct{}, 1),
	}
}

var _ ports.Socket = (*Socket)(nil)

func (s *Socket) InstanceID() string { return s.cfg.InstanceID }

func (s *Socket) OnMessage(h ports.MessageHandler) { s.onMessage = h }
func (s *Socket) OnClose(h ports.CloseHandler)     { s.onClose = h }

// Connect opens the WebSocket, sending x-instance-id and x-api-key headers
// per spec.md §6, and starts the inbound read pump.
func (s *Socket) Connect(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	header := http.Header{}
	header.Set("x-instance-id", s.cfg.InstanceID)
	if s.cfg.APIKey != "" {
		header.Set("x-api-key", s.cfg.APIKey)
	}

	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(connectCtx, s.cfg.Endpoint, header)
	if err != nil {
		return &timeoutOrErr{err: err}
	}

	conn.SetPongHandler(func(string) error {
		select {
		case s.pongCh <- struct{}{}:
		default:
		}
		return nil
	})

	s.mu.Lock()
	s.conn = conn
	s.closed = false
	s.mu.Unlock()

	go s.readPump()
	return nil
}

// timeoutOrErr wraps a dial or write error that is not a "not connected"
// condition (see ports.ErrNotConnected); the rpc layer maps it onto
// hostsdk.ErrTimeout.
type timeoutOrErr struct{ err error }

func (t *timeoutOrErr) Error() string { return t.err.Error() }
func (t *timeoutOrErr) Unwrap() error { return t.err }

func (s *Socket) readPump() {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			code := websocket.CloseAbnormalClosure
			if ce, ok := err.(*websocket.CloseError); ok {
				code = ce.Code
			}
			s.mu.Lock()
			s.closed = true
			s.mu.Unlock()
			if s.onClose != nil {
				s.onClose(code, err.Error())
			}
			return
		}

		frame, err := decodeFrame(raw)
		if err != nil {
			continue
		}

		switch frame.Kind {
		case FrameAck:
			s.mu.Lock()
			ch, ok := s.pending[frame.ID]
			s.mu.Unlock()
			if ok {
				select {
				case ch <- nil:
				default:
				}
			}
		case FrameData:
			full, done := s.assembly.Add(frame)
			if !done {
				continue
			}
			s.sendAck(frame.ID)
			if s.onMessage != nil {
				s.onMessage(full)
			}
		}
	}
}

func (s *Socket) sendAck(id string) {
	ack := Frame{ID: id, Kind: FrameAck}
	b, err := encodeFrame(ack)
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		_ = conn.WriteMessage(websocket.TextMessage, b)
	}
}

// Send chunks data if needed and blocks until the first ACK frame carrying
// the message id arrives, per spec.md §4.1; later ACKs for the same id are
// dropped. This Socket's own receive side sends one ACK per message, only
// after every chunk of it has been reassembled.
func (s *Socket) Send(ctx context.Context, data []byte) error {
	s.mu.Lock()
	conn := s.conn
	closed := s.closed
	s.mu.Unlock()
	if conn == nil || closed {
		return ports.ErrNotConnected
	}

	id := uuid.NewString()
	ackCh := make(chan error, 1)
	s.mu.Lock()
	s.pending[id] = ackCh
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	chunks := chunk(data, s.cfg.MaxChunkBytes)
	s.writeMu.Lock()
	for i, c := range chunks {
		f := Frame{ID: id, Seq: i, Of: len(chunks), Kind: FrameData, Payload: c}
		b, err := encodeFrame(f)
		if err != nil {
			s.writeMu.Unlock()
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			s.writeMu.Unlock()
			return err
		}
	}
	s.writeMu.Unlock()

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	select {
	case err := <-ackCh:
		return err
	case <-sendCtx.Done():
		return &timeoutOrErr{err: sendCtx.Err()}
	}
}

// Ping performs a WebSocket control-frame round trip.
func (s *Socket) Ping(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ports.ErrNotConnected
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.cfg.PingTimeout)
	defer cancel()

	deadline, _ := pingCtx.Deadline()
	s.writeMu.Lock()
	err := conn.WriteControl(websocket.PingMessage, nil, deadline)
	s.writeMu.Unlock()
	if err != nil {
		return &timeoutOrErr{err: err}
	}

	select {
	case <-s.pongCh:
		return nil
	case <-pingCtx.Done():
		return &timeoutOrErr{err: pingCtx.Err()}
	}
}

// Close terminates the connection immediately.
func (s *Socket) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.closed = true
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
