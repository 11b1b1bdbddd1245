package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/alert-consolidation-service/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "alerts.db", cfg.DBPath)
	assert.Equal(t, 60, cfg.TimeWindowMinutes)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.InDelta(t, 0.7, cfg.RelationThreshold, 1e-9)
	assert.Equal(t, 15*time.Minute, cfg.ConsolidateInterval)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DB_PATH", "/var/lib/consolidator/alerts.db")
	t.Setenv("TIME_WINDOW_MINUTES", "120")
	t.Setenv("BATCH_SIZE", "250")
	t.Setenv("RELATION_THRESHOLD", "0.85")
	t.Setenv("CONSOLIDATE_INTERVAL", "5m")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "/var/lib/consolidator/alerts.db", cfg.DBPath)
	assert.Equal(t, 120, cfg.TimeWindowMinutes)
	assert.Equal(t, 250, cfg.BatchSize)
	assert.InDelta(t, 0.85, cfg.RelationThreshold, 1e-9)
	assert.Equal(t, 5*time.Minute, cfg.ConsolidateInterval)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_KafkaDisabledExplicitly(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker-1:9092")
	t.Setenv("KAFKA_ENABLED", "false")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_InvalidThreshold(t *testing.T) {
	t.Setenv("RELATION_THRESHOLD", "1.5")
	_, err := config.Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, "RELATION_THRESHOLD")
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")
	_, err := config.Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, "BATCH_SIZE")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := config.Load()
	require.Error(t, err)
	assert.ErrorContains(t, err, "KAFKA_BROKERS")
}
