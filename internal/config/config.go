package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// SQLite database holding the alert corpus.
	DBPath string

	// Batch defaults used when a trigger omits them.
	TimeWindowMinutes int
	BatchSize         int

	// RelationThreshold is the minimum pair score for an alert to join a
	// group's seed.
	RelationThreshold float64

	// ConsolidateInterval drives the scheduled batch loop in serve mode.
	// Zero disables scheduling; batches then run only via the HTTP trigger.
	ConsolidateInterval time.Duration

	// Kafka announcement of created consolidated alerts (optional).
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("DB_PATH", "alerts.db")
	v.SetDefault("TIME_WINDOW_MINUTES", 60)
	v.SetDefault("BATCH_SIZE", 100)
	v.SetDefault("RELATION_THRESHOLD", 0.7)
	v.SetDefault("CONSOLIDATE_INTERVAL", "15m")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_SINK_TOPIC", "consolidated-alerts")

	cfg := &Config{
		HTTPAddr:            v.GetString("HTTP_ADDR"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           v.GetString("LOG_FORMAT"),
		ShutdownTimeout:     v.GetDuration("SHUTDOWN_TIMEOUT"),
		DBPath:              v.GetString("DB_PATH"),
		TimeWindowMinutes:   v.GetInt("TIME_WINDOW_MINUTES"),
		BatchSize:           v.GetInt("BATCH_SIZE"),
		RelationThreshold:   v.GetFloat64("RELATION_THRESHOLD"),
		ConsolidateInterval: v.GetDuration("CONSOLIDATE_INTERVAL"),
		KafkaBrokers:        splitBrokers(v.GetString("KAFKA_BROKERS")),
		KafkaSinkTopic:      v.GetString("KAFKA_SINK_TOPIC"),
	}

	cfg.KafkaEnabled = len(cfg.KafkaBrokers) > 0
	if raw := v.GetString("KAFKA_ENABLED"); raw != "" {
		cfg.KafkaEnabled = v.GetBool("KAFKA_ENABLED")
	}

	if cfg.ShutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.TimeWindowMinutes <= 0 {
		return nil, errors.New("TIME_WINDOW_MINUTES must be positive")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("BATCH_SIZE must be positive")
	}
	if cfg.RelationThreshold <= 0 || cfg.RelationThreshold > 1 {
		return nil, fmt.Errorf("RELATION_THRESHOLD must be in (0,1], got %g", cfg.RelationThreshold)
	}
	if cfg.ConsolidateInterval < 0 {
		return nil, errors.New("invalid CONSOLIDATE_INTERVAL")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_SINK_TOPIC is not set")
	}

	return cfg, nil
}

// splitBrokers parses a comma-separated broker list, dropping empty entries.
func splitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
