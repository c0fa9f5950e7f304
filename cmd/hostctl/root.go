package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hostctl",
	Short: "hostctl runs a chronicals host SDK process",
	Long:  `hostctl connects a backend process to a chronicals orchestrator over a persistent WebSocket, serving the actions and pages registered in its route directory.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "hostsdk.yaml", "Path to the host config file (YAML or JSON)")
	rootCmd.PersistentFlags().String("routes-dir", "", "Directory of route front matter files (overrides the config file's routesDirectory)")
}
