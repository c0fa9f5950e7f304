package page

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
}

func newFakeRPC() *fakeRPC { return &fakeRPC{sent: make(chan sentCall, 32)} }

func (f *fakeRPC) Send(ctx context.Context, method string, input any, opts ports.SendOptions) ([]byte, error) {
	f.sent <- sentCall{method: method, payload: input}
	return []byte(`{}`), nil
}
func (f *fakeRPC) SetSocket(sock ports.Socket)                           {}
func (f *fakeRPC) RegisterHandler(method string, h ports.InboundHandler) {}

var _ ports.RPCClient = (*fakeRPC)(nil)

func dashboardRoute() *domain.Table {
	routes := domain.NewTable()
	_ = routes.Add("dashboard", &domain.Route{
		Slug: "dashboard",
		Kind: domain.RouteKindPage,
		Handler: func(io any, ctx any) (any, error) {
			return &domain.Layout{Title: domain.Immediate("Dashboard")}, nil
		},
	})
	return routes
}

func openPagePayload(pageKey, slug string) []byte {
	b, _ := json.Marshal(map[string]any{
		"pageKey":     pageKey,
		"page":        map[string]string{"slug": slug},
		"environment": "development",
		"params":      map[string]any{},
	})
	return b
}

func TestOpenPageHappyPath(t *testing.T) {
	rpc := newFakeRPC()
	mgr := New(dashboardRoute(), rpc, pending.New(), nil, 10*time.Millisecond, func() bool { return true }, func() bool { return false })

	out, err := mgr.HandleOpenPage(context.Background(), openPagePayload("p1", "dashboard"))
	require.NoError(t, err)
	resp := out.(map[string]any)
	assert.Equal(t, "SUCCESS", resp["type"])
	assert.Equal(t, "p1", resp["pageKey"])

	select {
	case call := <-rpc.sent:
		require.Equal(t, "SEND_PAGE", call.method)
	case <-time.After(time.Second):
		t.Fatal("SEND_PAGE was never sent")
	}
}

func TestOpenPageRejectsWhenOrgUnknown(t *testing.T) {
	rpc := newFakeRPC()
	mgr := New(dashboardRoute(), rpc, pending.New(), nil, 0, func() bool { return false }, func() bool { return false })

	out, err := mgr.HandleOpenPage(context.Background(), openPagePayload("p2", "dashboard"))
	require.NoError(t, err)
	resp := out.(map[string]any)
	assert.Equal(t, "ERROR", resp["type"])
}

func TestClosePageClearsSessionAndPending(t *testing.T) {
	rpc := newFakeRPC()
	mgr := New(dashboardRoute(), rpc, pending.New(), nil, 10*time.Millisecond, func() bool { return true }, func() bool { return false })

	_, err := mgr.HandleOpenPage(context.Background(), openPagePayload("p3", "dashboard"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return mgr.Count() == 1 }, time.Second, time.Millisecond)

	closePayload, _ := json.Marshal(map[string]string{"pageKey": "p3"})
	_, err = mgr.HandleClosePage(context.Background(), closePayload)
	require.NoError(t, err)

	assert.Equal(t, 0, mgr.Count())
	assert.Equal(t, 0, mgr.pending.Len(pending.KindPage))
}
