package mcpdev

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicals/sdk/pkg/domain"
)

type fakeStarter struct {
	lastRaw []byte
	err     error
}

func (f *fakeStarter) HandleStartTransaction(ctx context.Context, raw []byte) (any, error) {
	f.lastRaw = raw
	return nil, f.err
}

func newTestTable() *domain.Table {
	table := domain.NewTable()
	_ = table.Add("helloCurrentUser", &domain.Route{Slug: "helloCurrentUser", Kind: domain.RouteKindAction})
	_ = table.Add("dashboard", &domain.Route{Slug: "dashboard", Kind: domain.RouteKindPage})
	return table
}

func callToolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestListRoutesReturnsEveryRoute(t *testing.T) {
	table := newTestTable()
	s := NewServer(table, &fakeStarter{})

	result, err := s.handleListRoutes(context.Background(), callToolRequest(nil))
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)

	var got []routeSummary
	require.NoError(t, json.Unmarshal([]byte(text.Text), &got))
	assert.Len(t, got, 2)
}

func TestTriggerActionCallsHandleStartTransaction(t *testing.T) {
	table := newTestTable()
	starter := &fakeStarter{}
	s := NewServer(table, starter)

	req := callToolRequest(map[string]any{"slug": "helloCurrentUser", "params": `{"foo":"bar"}`})
	result, err := s.handleTriggerAction(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.NotNil(t, starter.lastRaw)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(starter.lastRaw, &wire))
	action, ok := wire["action"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "helloCurrentUser", action["slug"])
}

func TestTriggerActionRejectsUnknownSlug(t *testing.T) {
	table := newTestTable()
	s := NewServer(table, &fakeStarter{})

	req := callToolRequest(map[string]any{"slug": "doesNotExist"})
	result, err := s.handleTriggerAction(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
