package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chronicals/sdk/pkg/singleshot"
)

var declareCmd = &cobra.Command{
	Use:   "declare",
	Short: "Declare routes over HTTP without opening a socket",
	Long:  `Performs the one-shot HTTP declare of spec.md §6: POST the current route table to the orchestrator's /api/hosts/declare endpoint, print the response, and exit. Used by serverless deployments that never hold a persistent connection.`,
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

		httpHostID, _ := cmd.Flags().GetString("host-id")
		if httpHostID == "" {
			return fmt.Errorf("declare: --host-id is required")
		}

		adapter := singleshot.New(cfg, nil, loader, logger)
		resp, err := adapter.DeclareHost(cmd.Context(), httpHostID)
		if err != nil {
			return fmt.Errorf("declare: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	rootCmd.AddCommand(declareCmd)
	declareCmd.Flags().String("host-id", "", "The httpHostId identifying this declare call to the orchestrator")
}
