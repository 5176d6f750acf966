package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shemcp/shemcp/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("shemcp %s (commit: %s)\n", version.Version, version.GitCommit)
	},
}
