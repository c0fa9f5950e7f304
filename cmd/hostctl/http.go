package main

import (
	gohttp "net/http"

	"github.com/spf13/cobra"

	adapterhttp "github.com/chronicals/sdk/adapters/http"
	"github.com/chronicals/sdk/pkg/singleshot"
)

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "Serve the single-shot HTTP surface for serverless deployments",
	Long:  `Starts the POST / (requestId or httpHostId) and GET / health endpoints of spec.md §6, backed by pkg/singleshot.Adapter. Each POST opens its own connection and closes it before responding.`,
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

		adapter := singleshot.New(cfg, newSocketFactory(cfg), loader, logger)
		handler, err := adapterhttp.NewHandler(adapter, logger)
		if err != nil {
			return err
		}

		addr, _ := cmd.Flags().GetString("addr")
		logger.Info("hostctl http: listening", "addr", addr)
		return gohttp.ListenAndServe(addr, handler)
	},
}

func init() {
	rootCmd.AddCommand(httpCmd)
	httpCmd.Flags().String("addr", ":8080", "Address to listen on")
}
