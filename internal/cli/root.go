// Package cli wires the consolidator's commands: the long-running service and
// the one-shot batch.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "consolidator",
	Short: "Alert similarity & consolidation engine",
	Long: `Consolidator recognizes when alerts from independent sources describe the
same real-world event and merges each group into one authoritative record.

It scores pairwise similarity across text, geography, event type, and timing,
groups alerts with a single-pass seed clusterer, and persists one enriched
PRIMARY record per group while marking the members CONSOLIDATED.

Configuration comes from environment variables (HTTP_ADDR, DB_PATH,
RELATION_THRESHOLD, KAFKA_BROKERS, ...).`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("consolidator v0.3.0")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
