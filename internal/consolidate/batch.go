// Package consolidate merges groups of alerts that describe one real-world
// event into single PRIMARY records and drives the batch that does so.
//
// A batch is one logical unit of work: fetch eligible alerts, group them,
// merge each group, persist the result, and mark the members. There is no
// cross-invocation locking, so two batches running concurrently over
// overlapping time windows can each consolidate the same member. The service
// relies on non-overlapping scheduling (the serve loop runs batches from a
// single goroutine) rather than engine-level locks.
package consolidate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/alert-consolidation-service/internal/domain"
	"github.com/couchcryptid/alert-consolidation-service/internal/observability"
	"github.com/couchcryptid/alert-consolidation-service/internal/similarity"
)

// statusWriteChunkSize bounds both the member-marking fan-out and the number
// of status writes in flight, matching the storage layer's batch-size limit.
const statusWriteChunkSize = 25

// AlertStore is the persistence collaborator. All writes are idempotent
// upserts by id.
type AlertStore interface {
	// FetchUnconsolidated returns alerts created at or after since that have
	// no consolidation status yet, oldest first, bounded by limit.
	FetchUnconsolidated(ctx context.Context, since time.Time, limit int) ([]domain.Alert, error)

	// PutAlert persists a consolidated alert as a new record.
	PutAlert(ctx context.Context, alert domain.ConsolidatedAlert) error

	// UpdateAlertStatus transitions one alert's consolidation state.
	UpdateAlertStatus(ctx context.Context, id string, status domain.ConsolidationStatus, consolidatedInto string) error
}

// Publisher announces newly created consolidated alerts to downstream
// consumers. Publishing is best-effort; failures never abort a batch.
type Publisher interface {
	PublishConsolidated(ctx context.Context, alert domain.ConsolidatedAlert) error
}

// GroupDetail records the outcome of consolidating one group.
type GroupDetail struct {
	ConsolidatedAlertID string   `json:"consolidatedAlertId"`
	OriginalAlertCount  int      `json:"originalAlertCount"`
	OriginalAlertIDs    []string `json:"originalAlertIds"`
}

// Report summarizes one batch run.
type Report struct {
	Total                     int           `json:"total"`
	GroupsFound               int           `json:"groupsFound"`
	AlertsConsolidated        int           `json:"alertsConsolidated"`
	ConsolidatedAlertsCreated int           `json:"consolidatedAlertsCreated"`
	Details                   []GroupDetail `json:"details"`
}

// Engine runs consolidation batches: fetch, group, merge, persist.
type Engine struct {
	store     AlertStore
	publisher Publisher
	clusterer similarity.Clusterer
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates an Engine. Pass a nil publisher to disable announcements.
func New(store AlertStore, publisher Publisher, cfg similarity.Config, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		store:     store,
		publisher: publisher,
		clusterer: similarity.NewGreedySeedClusterer(cfg),
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once the engine has completed at least one
// batch, or an error describing why the service is not yet ready.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if !e.ready.Load() {
		return errors.New("no consolidation batch has completed yet")
	}
	return nil
}

// RunBatch executes one consolidation pass over alerts created within the
// window. Any storage failure aborts the batch and is returned to the caller;
// there are no internal retries. Work persisted before the failure stands:
// members already marked CONSOLIDATED are excluded from future fetches, and
// unmarked members of a created primary will be re-selected next batch. That
// re-selection can produce a second primary for the same members: the
// create-then-mark sequence is deliberately not transactional. A stricter
// scheme would derive the primary id from the sorted member-id set so a
// re-run converges instead of duplicating.
func (e *Engine) RunBatch(ctx context.Context, window time.Duration, limit int) (*Report, error) {
	start := time.Now()
	since := domain.Now().Add(-window)

	alerts, err := e.store.FetchUnconsolidated(ctx, since, limit)
	if err != nil {
		e.metrics.StorageErrors.Inc()
		return nil, fmt.Errorf("fetch unconsolidated alerts: %w", err)
	}

	// Derive geohashes up front so point-only alerts still participate in
	// the geohash location fallback and merge tie-breaks.
	for i := range alerts {
		alerts[i] = domain.EnsureGeohash(alerts[i])
	}

	groups := e.clusterer.Cluster(alerts)

	report := &Report{
		Total:       len(alerts),
		GroupsFound: len(groups),
	}

	for _, group := range groups {
		detail, err := e.consolidateGroup(ctx, group)
		if err != nil {
			e.metrics.StorageErrors.Inc()
			return nil, err
		}
		report.Details = append(report.Details, detail)
		report.AlertsConsolidated += detail.OriginalAlertCount
		report.ConsolidatedAlertsCreated++
		e.metrics.GroupSize.Observe(float64(detail.OriginalAlertCount))
	}

	e.metrics.BatchesRun.Inc()
	e.metrics.AlertsFetched.Add(float64(report.Total))
	e.metrics.GroupsFound.Add(float64(report.GroupsFound))
	e.metrics.AlertsConsolidated.Add(float64(report.AlertsConsolidated))
	e.metrics.ConsolidatedCreated.Add(float64(report.ConsolidatedAlertsCreated))
	e.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	e.ready.Store(true)

	e.logger.Info("consolidation batch complete",
		"total", report.Total,
		"groups_found", report.GroupsFound,
		"alerts_consolidated", report.AlertsConsolidated,
		"duration", time.Since(start),
	)

	return report, nil
}

// consolidateGroup merges one group, persists the primary record, and marks
// every member as consolidated.
func (e *Engine) consolidateGroup(ctx context.Context, group []domain.Alert) (GroupDetail, error) {
	merged, err := Merge(group)
	if err != nil {
		return GroupDetail{}, err
	}

	if err := e.store.PutAlert(ctx, merged); err != nil {
		return GroupDetail{}, fmt.Errorf("persist consolidated alert %s: %w", merged.ID, err)
	}

	if err := e.markMembers(ctx, merged); err != nil {
		return GroupDetail{}, err
	}

	if e.publisher != nil {
		if err := e.publisher.PublishConsolidated(ctx, merged); err != nil {
			e.metrics.PublishErrors.Inc()
			e.logger.Warn("publish consolidated alert failed",
				"consolidated_alert_id", merged.ID,
				"error", err,
			)
		}
	}

	return GroupDetail{
		ConsolidatedAlertID: merged.ID,
		OriginalAlertCount:  merged.SourceCount,
		OriginalAlertIDs:    merged.ConsolidatedFrom,
	}, nil
}

// markMembers transitions every member of a merged group to CONSOLIDATED in
// chunks of statusWriteChunkSize, with the writes inside a chunk issued
// concurrently. Groups are disjoint (the clusterer emits a partition), so
// nothing else writes these ids within the batch.
func (e *Engine) markMembers(ctx context.Context, merged domain.ConsolidatedAlert) error {
	ids := merged.ConsolidatedFrom
	for begin := 0; begin < len(ids); begin += statusWriteChunkSize {
		chunk := ids[begin:min(begin+statusWriteChunkSize, len(ids))]

		errs := make(chan error, len(chunk))
		for _, id := range chunk {
			go func() {
				errs <- e.store.UpdateAlertStatus(ctx, id, domain.StatusConsolidated, merged.ID)
			}()
		}

		var firstErr error
		for range chunk {
			if err := <-errs; err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if firstErr != nil {
			return fmt.Errorf("mark members of %s consolidated: %w", merged.ID, firstErr)
		}
	}
	return nil
}

// RunScheduled executes RunBatch on a fixed interval until the context is
// cancelled. Batches run sequentially from this goroutine, which is what
// keeps invocations from overlapping. Batch failures are logged and the next
// tick retries; only context cancellation stops the loop.
func (e *Engine) RunScheduled(ctx context.Context, interval, window time.Duration, limit int) error {
	e.logger.Info("scheduled consolidation started",
		"interval", interval,
		"window", window,
		"limit", limit,
	)
	e.metrics.EngineRunning.Set(1)
	defer e.metrics.EngineRunning.Set(0)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("scheduled consolidation stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if _, err := e.RunBatch(ctx, window, limit); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				e.logger.Error("consolidation batch failed", "error", err)
			}
		}
	}
}
