package txn

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicals/sdk/pkg/domain"
	"github.com/chronicals/sdk/pkg/pending"
	"github.com/chronicals/sdk/pkg/ports"
)

type sentCall struct {
	method  string
	payload any
}

type fakeRPC struct {
	sent chan sentCall
	// respond, if set, computes the response body for a given method+payload.
	respond func(method string, payload any) ([]byte, error)
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{sent: make(chan sentCall, 32)}
}

func (f *fakeRPC) Send(ctx context.Context, method string, input any, opts ports.SendOptions) ([]byte, error) {
	f.sent <- sentCall{method: method, payload: input}
	if f.respond != nil {
		return f.respond(method, input)
	}
	return []byte(`{}`), nil
}

func (f *fakeRPC) SetSocket(sock ports.Socket)                              {}
func (f *fakeRPC) RegisterHandler(method string, h ports.InboundHandler)    {}

var _ ports.RPCClient = (*fakeRPC)(nil)

func helloRoute() *domain.Table {
	routes := domain.NewTable()
	_ = routes.Add("helloCurrentUser", &domain.Route{
		Slug: "helloCurrentUser",
		Kind: domain.RouteKindAction,
		Handler: func(io any, ctx any) (any, error) {
			hc := ctx.(*HandlerContext)
			return "Hello, " + hc.User.FirstName + " " + hc.User.LastName, nil
		},
	})
	return routes
}

func startTransactionPayload(id, slug string, user domain.User) []byte {
	b, _ := json.Marshal(map[string]any{
		"transactionId": id,
		"action":        map[string]string{"slug": slug},
		"user":          user,
		"environment":   "development",
		"params":        map[string]any{},
	})
	return b
}

func TestHappyPathAction(t *testing.T) {
	rpc := newFakeRPC()
	mgr := New(helloRoute(), rpc, pending.New(), nil, nil)

	_, err := mgr.HandleStartTransaction(context.Background(), startTransactionPayload("t1", "helloCurrentUser", domain.User{FirstName: "Ada", LastName: "Lovelace"}))
	require.NoError(t, err)

	select {
	case call := <-rpc.sent:
		require.Equal(t, "MARK_TRANSACTION_COMPLETE", call.method)
		payload := call.payload.(map[string]any)
		assert.Equal(t, "t1", payload["transactionId"])
		assert.Equal(t, "SUCCESS", payload["resultStatus"])
		assert.Contains(t, payload["result"].(string), "Hello, Ada Lovelace")
	case <-time.After(time.Second):
		t.Fatal("MARK_TRANSACTION_COMPLETE was never sent")
	}

	assert.Equal(t, 0, mgr.Count(), "transaction should be closed after completion")
}

func TestDuplicateStartTransactionIsIgnored(t *testing.T) {
	rpc := newFakeRPC()
	blocked := make(chan struct{})
	routes := domain.NewTable()
	_ = routes.Add("wait", &domain.Route{
		Slug: "wait",
		Kind: domain.RouteKindAction,
		Handler: func(io any, ctx any) (any, error) {
			<-blocked
			return "done", nil
		},
	})
	mgr := New(routes, rpc, pending.New(), nil, nil)

	_, err := mgr.HandleStartTransaction(context.Background(), startTransactionPayload("t2", "wait", domain.User{}))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return mgr.Count() == 1 }, time.Second, time.Millisecond)

	_, err = mgr.HandleStartTransaction(context.Background(), startTransactionPayload("t2", "wait", domain.User{}))
	require.NoError(t, err)
	assert.Equal(t, 1, mgr.Count(), "duplicate transactionId must not spawn a second handler")

	close(blocked)
}

func TestCloseTransactionCancelsPendingIO(t *testing.T) {
	rpc := newFakeRPC()
	started := make(chan struct{})
	routes := domain.NewTable()
	_ = routes.Add("prompt", &domain.Route{
		Slug: "prompt",
		Kind: domain.RouteKindAction,
		Handler: func(ioAny any, ctxAny any) (any, error) {
			io := ioAny.(ports.IOClient)
			close(started)
			_, err := io.Send(context.Background(), "input.text")
			return nil, err
		},
	})
	mgr := New(routes, rpc, pending.New(), nil, nil)

	_, err := mgr.HandleStartTransaction(context.Background(), startTransactionPayload("t3", "prompt", domain.User{}))
	require.NoError(t, err)

	<-started
	require.Eventually(t, func() bool { return mgr.pending.Len(pending.KindIOCall) == 1 }, time.Second, time.Millisecond)

	closePayload, _ := json.Marshal(map[string]string{"transactionId": "t3"})
	_, err = mgr.HandleCloseTransaction(context.Background(), closePayload)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return mgr.pending.Len(pending.KindIOCall) == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, mgr.Count())

	// No MARK_TRANSACTION_COMPLETE should have been sent: only SEND_IO_CALL.
	close(rpc.sent)
	for call := range rpc.sent {
		assert.NotEqual(t, "MARK_TRANSACTION_COMPLETE", call.method)
	}
}
