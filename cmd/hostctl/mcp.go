package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chronicals/sdk/adapters/mcpdev"
	"github.com/chronicals/sdk/pkg/hostsession"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Bridge a running Host Session to a local MCP client for development",
	Long:  `Connects to the orchestrator like serve, then exposes list_routes and trigger_action over stdio via the Model Context Protocol, letting an editor's MCP client fire actions without a real orchestrator round trip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)
		loader, err := newRouteLoader(cfg)
		if err != nil {
			return err
		}

		sess := hostsession.New(cfg, uuid.NewString(), newSocketFactory(cfg), loader, logger)
		if err := sess.Listen(cmd.Context()); err != nil {
			return fmt.Errorf("mcp: listen: %w", err)
		}
		defer sess.ImmediatelyClose()

		srv := mcpdev.NewServer(sess.Table(), sess.TxnManager())
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
