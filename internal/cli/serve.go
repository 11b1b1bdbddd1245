package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/alert-consolidation-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/alert-consolidation-service/internal/adapter/kafka"
	"github.com/couchcryptid/alert-consolidation-service/internal/config"
	"github.com/couchcryptid/alert-consolidation-service/internal/consolidate"
	"github.com/couchcryptid/alert-consolidation-service/internal/observability"
	"github.com/couchcryptid/alert-consolidation-service/internal/similarity"
	"github.com/couchcryptid/alert-consolidation-service/internal/store"
)

// serveCmd runs the service: HTTP trigger plus the scheduled batch loop.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the consolidation service",
	Long: `Serve starts the HTTP server (health, readiness, metrics, and the
POST /v1/consolidations trigger) and, unless CONSOLIDATE_INTERVAL is 0, runs
a consolidation batch on that interval from a single goroutine so batch
invocations never overlap.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	alertStore, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer alertStore.Close() //nolint:errcheck

	// Publishing is feature-flagged: without brokers the engine runs with a
	// nil publisher and consolidated alerts are only persisted.
	var publisher consolidate.Publisher
	var publisherCloser interface{ Close() error }
	if cfg.KafkaEnabled {
		kp := kafkaadapter.NewPublisher(cfg, logger)
		publisher = kp
		publisherCloser = kp
		logger.Info("kafka announcements enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka announcements disabled")
	}

	scoringCfg := similarity.DefaultConfig()
	scoringCfg.RelationThreshold = cfg.RelationThreshold

	engine := consolidate.New(alertStore, publisher, scoringCfg, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, engine, engine, httpadapter.Defaults{
		TimeWindowMinutes: cfg.TimeWindowMinutes,
		BatchSize:         cfg.BatchSize,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if cfg.ConsolidateInterval > 0 {
		go func() {
			window := time.Duration(cfg.TimeWindowMinutes) * time.Minute
			if err := engine.RunScheduled(ctx, cfg.ConsolidateInterval, window, cfg.BatchSize); err != nil {
				logger.Error("scheduled consolidation error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisherCloser != nil {
		if err := publisherCloser.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
