package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "dev" // set via ldflags during build

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of clashd",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "clashd %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
