package cli

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/alert-consolidation-service/internal/config"
	"github.com/couchcryptid/alert-consolidation-service/internal/consolidate"
	"github.com/couchcryptid/alert-consolidation-service/internal/observability"
	"github.com/couchcryptid/alert-consolidation-service/internal/similarity"
	"github.com/couchcryptid/alert-consolidation-service/internal/store"
)

var (
	batchWindowMinutes int
	batchLimit         int
	batchTimeout       time.Duration
)

// batchCmd runs a single consolidation batch and prints the report.
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run one consolidation batch and print the report as JSON",
	Long: `Batch fetches unconsolidated alerts created within the time window,
groups and merges them, persists the results, and prints the batch report
to stdout.

Example:
  consolidator batch --window 60 --limit 100`,
	RunE: runBatchOnce,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchWindowMinutes, "window", 0, "time window in minutes (default: TIME_WINDOW_MINUTES)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "maximum alerts to fetch (default: BATCH_SIZE)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 5*time.Minute, "total timeout for the batch")
}

func runBatchOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetricsForTesting() // one-shot run, nothing scrapes the default registry

	alertStore, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer alertStore.Close() //nolint:errcheck

	window := time.Duration(cfg.TimeWindowMinutes) * time.Minute
	if batchWindowMinutes > 0 {
		window = time.Duration(batchWindowMinutes) * time.Minute
	}
	limit := cfg.BatchSize
	if batchLimit > 0 {
		limit = batchLimit
	}

	scoringCfg := similarity.DefaultConfig()
	scoringCfg.RelationThreshold = cfg.RelationThreshold

	engine := consolidate.New(alertStore, nil, scoringCfg, logger, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	report, err := engine.RunBatch(ctx, window, limit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
