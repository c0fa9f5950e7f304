package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// echoServer accepts a WebSocket connection, decodes Frame envelopes, and
// answers every DATA frame with an ACK for the same id (mirroring what the
// orchestrator's side of the protocol would do). It also lets gorilla's
// default ping handler auto-answer control-frame pings.
func echoServer(t *testing.T, received chan<- []byte) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		go func() {
			assembler := newReassembler()
			for {
				_, raw, err := conn.ReadMessage()
				if err != nil {
					return
				}
				f, err := decodeFrame(raw)
				if err != nil {
					continue
				}
				if f.Kind != FrameData {
					continue
				}
				if full, done := assembler.Add(f); done {
					received <- full
				}
				ack, _ := encodeFrame(Frame{ID: f.ID, Kind: FrameAck})
				_ = conn.WriteMessage(websocket.TextMessage, ack)
			}
		}()
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestSocketConnectSendPing(t *testing.T) {
	received := make(chan []byte, 4)
	server := echoServer(t, received)
	defer server.Close()

	sock := New(Config{Endpoint: wsURL(server), MaxChunkBytes: 8})
	ctx := context.Background()
	require.NoError(t, sock.Connect(ctx))
	defer sock.Close()

	payload := []byte("hello world, this is a longer payload than one chunk")
	require.NoError(t, sock.Send(ctx, payload))

	select {
	case got := <-received:
		require.Equal(t, payload, got)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received reassembled payload")
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, sock.Ping(pingCtx))
}

func TestSocketOnMessageAndClose(t *testing.T) {
	received := make(chan []byte, 4)
	server := echoServer(t, received)
	defer server.Close()

	sock := New(Config{Endpoint: wsURL(server)})

	msgs := make(chan []byte, 4)
	sock.OnMessage(func(data []byte) { msgs <- data })

	closed := make(chan struct{}, 1)
	sock.OnClose(func(code int, reason string) { closed <- struct{}{} })

	ctx := context.Background()
	require.NoError(t, sock.Connect(ctx))

	require.NoError(t, sock.Close())

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("onClose was never invoked")
	}
}
