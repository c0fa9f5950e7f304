// Package mcpdev exposes a running Host Session over MCP for local
// development: listing declared routes and firing a synthetic
// transaction, without standing up a real orchestrator. This is not
// part of spec.md's wire protocol — a dev-loop convenience only.
package mcpdev

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chronicals/sdk/pkg/domain"
	"github.com/chronicals/sdk/pkg/txn"
)

// TransactionStarter is the slice of txn.Manager this package depends
// on, so tests can supply a fake instead of a full Manager.
type TransactionStarter interface {
	HandleStartTransaction(ctx context.Context, raw []byte) (any, error)
}

var _ TransactionStarter = (*txn.Manager)(nil)

// Server wraps a route table and a transaction starter as an MCP
// server, following aretw0-trellis's own mcp-go adapter shape.
type Server struct {
	table     *domain.Table
	txns      TransactionStarter
	mcpServer *server.MCPServer
}

// NewServer builds the MCP server and registers its tools.
func NewServer(table *domain.Table, txns TransactionStarter) *Server {
	s := &Server{
		table:     table,
		txns:      txns,
		mcpServer: server.NewMCPServer("hostsdk-dev", "0.1.0"),
	}
	s.registerTools()
	return s
}

// ServeStdio runs the server on stdin/stdout, per mcp-go's usual dev
// bridge transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

type routeSummary struct {
	Slug string `json:"slug"`
	Kind string `json:"kind"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_routes",
		mcp.WithDescription("List every action and page currently registered on this host."),
	), s.handleListRoutes)

	s.mcpServer.AddTool(mcp.NewTool("trigger_action",
		mcp.WithDescription("Start a transaction against a declared action, as if an orchestrator had sent START_TRANSACTION."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Fully-qualified action slug")),
		mcp.WithString("params", mcp.Description("JSON object of action params")),
	), s.handleTriggerAction)
}

func (s *Server) handleListRoutes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries := make([]routeSummary, 0, len(s.table.Routes))
	for _, r := range s.table.Routes {
		kind := "action"
		if r.Kind == domain.RouteKindPage {
			kind = "page"
		}
		summaries = append(summaries, routeSummary{Slug: r.Slug, Kind: kind})
	}
	body, err := json.Marshal(summaries)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal routes: %v", err)), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}

func (s *Server) handleTriggerAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	slug, _ := args["slug"].(string)
	if slug == "" {
		return mcp.NewToolResultError("slug is required"), nil
	}

	params := map[string]any{}
	if raw, ok := args["params"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid params JSON: %v", err)), nil
		}
	}

	if _, ok := s.table.Lookup(slug); !ok {
		return mcp.NewToolResultError("unknown slug: " + slug), nil
	}

	wire := map[string]any{
		"transactionId": uuid.NewString(),
		"action":        map[string]any{"slug": slug},
		"params":        params,
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal wire: %v", err)), nil
	}

	if _, err := s.txns.HandleStartTransaction(ctx, raw); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("trigger_action failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("triggered %s", slug)), nil
}
