package main

import (
	"github.com/spf13/cobra"

	"specsync/internal/version"
)

var (
	// configDirFlag is the CLI --config-dir flag value
	configDirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "specsync",
	Short: "specsync - keep generated API clients in sync with upstream specs",
	Long: `specsync fetches upstream OpenAPI and WebSocket schema documents,
stores dated snapshots, and diffs them into a classified, prioritized
change plan for the generated client library. It also verifies that the
generated package's barrel file exports every model.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("specsync version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "config",
		"Directory containing specs.json, classification.json, and package.toml")
}
