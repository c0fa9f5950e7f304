package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chronicals/sdk/pkg/hostsession"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the SDK version hostctl embeds",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hostctl %s (%s)\n", hostsession.SDKVersion, hostsession.SDKName)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
