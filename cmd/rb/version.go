package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studyreward/rewardbook/internal/schema"
	"github.com/studyreward/rewardbook/internal/version"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	GroupID: "admin",
	Short:   "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rb version %s (schema %d)\n", version.Version, schema.CurrentSchemaVersion)
		fmt.Printf("  commit: %s\n  built:  %s\n  go:     %s\n", version.GitCommit, version.BuildTime, version.GoVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
