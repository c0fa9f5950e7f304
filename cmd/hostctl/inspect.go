package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chronicals/sdk/internal/prettyprint"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the declared route table",
	Long:  `Loads routesDirectory and pretty-prints every declared action and page, without connecting to an orchestrator.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		loader, err := newRouteLoader(cfg)
		if err != nil {
			return err
		}

		table, err := loader.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("inspect: loading routes: %w", err)
		}

		md := prettyprint.RouteTableMarkdown(table)
		render := prettyprint.NewRenderer()
		out, err := render(md)
		if err != nil {
			return fmt.Errorf("inspect: rendering: %w", err)
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
