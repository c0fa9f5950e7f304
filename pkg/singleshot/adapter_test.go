package singleshot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicals/sdk/internal/config"
	"github.com/chronicals/sdk/pkg/domain"
	"github.com/chronicals/sdk/pkg/ports"
	"github.com/chronicals/sdk/pkg/routes"
)

type fakeSocket struct {
	mu        sync.Mutex
	peer      *fakeSocket
	onMessage ports.MessageHandler
	onClose   ports.CloseHandler
	instance  string
}

func newFakePair(instanceID string) (host, orchestrator *fakeSocket) {
	host = &fakeSocket{instance: instanceID}
	orchestrator = &fakeSocket{instance: instanceID}
	host.peer, orchestrator.peer = orchestrator, host
	return
}

func (f *fakeSocket) Connect(ctx context.Context) error { return nil }
func (f *fakeSocket) Send(ctx context.Context, data []byte) error {
	go f.peer.deliver(data)
	return nil
}
func (f *fakeSocket) deliver(data []byte) {
	f.mu.Lock()
	h := f.onMessage
	f.mu.Unlock()
	if h != nil {
		h(data)
	}
}
func (f *fakeSocket) Ping(ctx context.Context) error   { return nil }
func (f *fakeSocket) Close() error                     { return nil }
func (f *fakeSocket) InstanceID() string               { return f.instance }
func (f *fakeSocket) OnMessage(h ports.MessageHandler) { f.mu.Lock(); f.onMessage = h; f.mu.Unlock() }
func (f *fakeSocket) OnClose(h ports.CloseHandler)     { f.mu.Lock(); f.onClose = h; f.mu.Unlock() }

type wireEnvelope struct {
	ID     string          `json:"id"`
	Method string          `json:"method,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// wireOrchestrator answers INITIALIZE_HOST, then, once past declare,
// issues START_TRANSACTION for slug carrying requestID.
func wireOrchestrator(t *testing.T, orch *fakeSocket, slug, requestID string) {
	var declared bool
	orch.OnMessage(func(raw []byte) {
		var env wireEnvelope
		require.NoError(t, json.Unmarshal(raw, &env))
		switch env.Method {
		case "INITIALIZE_HOST":
			resp := wireEnvelope{ID: env.ID, Data: mustJSON(map[string]any{
				"type":         "success",
				"organization": map[string]any{"id": "org_1"},
				"environment":  "development",
				"invalidSlugs": []string{},
			})}
			out, _ := json.Marshal(resp)
			orch.peer.deliver(out)
			if !declared {
				declared = true
				go func() {
					time.Sleep(10 * time.Millisecond)
					call := wireEnvelope{ID: "start-1", Method: "START_TRANSACTION", Data: mustJSON(map[string]any{
						"transactionId": "t1",
						"action":        map[string]any{"slug": slug},
						"requestId":     requestID,
						"params":        map[string]any{},
					})}
					out, _ := json.Marshal(call)
					orch.peer.deliver(out)
				}()
			}
		case "MARK_TRANSACTION_COMPLETE", "SEND_LOG", "SEND_REDIRECT":
			resp := wireEnvelope{ID: env.ID, Data: mustJSON(map[string]any{"type": "SUCCESS"})}
			out, _ := json.Marshal(resp)
			orch.peer.deliver(out)
		}
	})
}

func helloRoute() *routes.Builder {
	b := routes.NewBuilder()
	_ = b.Action("helloCurrentUser", domain.Route{
		Slug: "helloCurrentUser",
		Kind: domain.RouteKindAction,
		Handler: func(io any, ctx any) (any, error) {
			return "hi", nil
		},
	})
	return b
}

func TestServeRequestCompletesOnMatchingTransaction(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxResendAttempts = 2
	cfg.PingIntervalMs = 60000

	factory := func(instanceID string) ports.Socket {
		h, orch := newFakePair(instanceID)
		wireOrchestrator(t, orch, "helloCurrentUser", "req-1")
		return h
	}

	a := New(cfg, factory, helloRoute(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.ServeRequest(ctx, "inst-1", "req-1"))
}

func TestDeclareHostPostsToDerivedBaseURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"type": "success", "invalidSlugs": []string{}})
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.Endpoint = "ws://" + srv.Listener.Addr().String() + "/ws"

	a := New(cfg, nil, helloRoute(), nil)
	resp, err := a.DeclareHost(context.Background(), "host-1")
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Type)
	assert.Equal(t, "/api/hosts/declare", gotPath)
}
