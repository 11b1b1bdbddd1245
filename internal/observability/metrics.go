package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// consolidation engine.
type Metrics struct {
	BatchesRun          prometheus.Counter
	AlertsFetched       prometheus.Counter
	GroupsFound         prometheus.Counter
	AlertsConsolidated  prometheus.Counter
	ConsolidatedCreated prometheus.Counter
	StorageErrors       prometheus.Counter
	PublishErrors       prometheus.Counter
	EngineRunning       prometheus.Gauge

	BatchDuration prometheus.Histogram
	GroupSize     prometheus.Histogram
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		BatchesRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alert_consolidation",
			Name:      "batches_run_total",
			Help:      "Total consolidation batches completed successfully.",
		}),
		AlertsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alert_consolidation",
			Name:      "alerts_fetched_total",
			Help:      "Total unconsolidated alerts fetched for grouping.",
		}),
		GroupsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alert_consolidation",
			Name:      "groups_found_total",
			Help:      "Total same-event groups identified across batches.",
		}),
		AlertsConsolidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alert_consolidation",
			Name:      "alerts_consolidated_total",
			Help:      "Total member alerts marked CONSOLIDATED.",
		}),
		ConsolidatedCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alert_consolidation",
			Name:      "consolidated_alerts_created_total",
			Help:      "Total PRIMARY records created by merging groups.",
		}),
		StorageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alert_consolidation",
			Name:      "storage_errors_total",
			Help:      "Total storage failures that aborted a batch.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "alert_consolidation",
			Name:      "publish_errors_total",
			Help:      "Total best-effort publish failures for consolidated alerts.",
		}),
		EngineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "alert_consolidation",
			Name:      "engine_running",
			Help:      "1 while the scheduled consolidation loop is active.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "alert_consolidation",
			Name:      "batch_duration_seconds",
			Help:      "Duration of a complete fetch-group-merge-persist batch.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		GroupSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "alert_consolidation",
			Name:      "group_size",
			Help:      "Number of member alerts per consolidated group.",
			Buckets:   []float64{2, 3, 4, 5, 7, 10, 15, 25, 50},
		}),
	}

	prometheus.MustRegister(
		m.BatchesRun,
		m.AlertsFetched,
		m.GroupsFound,
		m.AlertsConsolidated,
		m.ConsolidatedCreated,
		m.StorageErrors,
		m.PublishErrors,
		m.EngineRunning,
		m.BatchDuration,
		m.GroupSize,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		BatchesRun:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "alert_consolidation", Name: "batches_run_total"}),
		AlertsFetched:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "alert_consolidation", Name: "alerts_fetched_total"}),
		GroupsFound:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "alert_consolidation", Name: "groups_found_total"}),
		AlertsConsolidated:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "alert_consolidation", Name: "alerts_consolidated_total"}),
		ConsolidatedCreated: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "alert_consolidation", Name: "consolidated_alerts_created_total"}),
		StorageErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "alert_consolidation", Name: "storage_errors_total"}),
		PublishErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "alert_consolidation", Name: "publish_errors_total"}),
		EngineRunning:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "alert_consolidation", Name: "engine_running"}),
		BatchDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "alert_consolidation", Name: "batch_duration_seconds"}),
		GroupSize:           prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "alert_consolidation", Name: "group_size"}),
	}
}
