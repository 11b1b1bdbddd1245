//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/alert-consolidation-service/internal/adapter/kafka"
	"github.com/couchcryptid/alert-consolidation-service/internal/config"
	"github.com/couchcryptid/alert-consolidation-service/internal/consolidate"
	"github.com/couchcryptid/alert-consolidation-service/internal/domain"
	"github.com/couchcryptid/alert-consolidation-service/internal/observability"
	"github.com/couchcryptid/alert-consolidation-service/internal/similarity"
	"github.com/couchcryptid/alert-consolidation-service/internal/store"
)

const testSinkTopic = "test-consolidated-alerts"

// announcement holds a deserialized message read from the sink topic.
type announcement struct {
	Alert   domain.ConsolidatedAlert
	Key     string
	Headers map[string]string
}

// readAnnouncement reads one message from the sink consumer and deserializes it.
func readAnnouncement(ctx context.Context, t *testing.T, consumer *kafkago.Reader) announcement {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var alert domain.ConsolidatedAlert
	require.NoError(t, json.Unmarshal(msg.Value, &alert), "unmarshal sink message")

	return announcement{Alert: alert, Key: string(msg.Key), Headers: headers}
}

func newSinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestPublisherRoundTrip verifies the adapter layer: a consolidated alert
// published through kafka.Publisher arrives on the sink topic with its
// routing headers intact.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}
	publisher := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	updated := time.Date(2023, 1, 1, 10, 30, 0, 0, time.UTC)
	alert := domain.ConsolidatedAlert{
		Alert: domain.Alert{
			ID:                  "primary-1",
			EventType:           "earthquake",
			Headline:            "Earthquake near San Francisco",
			ConsolidationStatus: domain.StatusPrimary,
			UpdatedAt:           updated,
		},
		ConsolidatedFrom: []string{"1", "2"},
		SourceCount:      2,
	}
	require.NoError(t, publisher.PublishConsolidated(ctx, alert))

	got := readAnnouncement(ctx, t, newSinkConsumer(t, broker))
	assert.Equal(t, "primary-1", got.Key)
	assert.Equal(t, "earthquake", got.Headers["event_type"])
	assert.Equal(t, "2", got.Headers["source_count"])
	assert.Equal(t, "2023-01-01T10:30:00Z", got.Headers["consolidated_at"])
	assert.Equal(t, []string{"1", "2"}, got.Alert.ConsolidatedFrom)
	assert.Equal(t, domain.StatusPrimary, got.Alert.ConsolidationStatus)
}

// TestConsolidationEndToEnd wires the full engine (sqlite store, clusterer,
// Kafka publisher) and verifies that two reports of the same earthquake are
// merged into one announced PRIMARY record.
func TestConsolidationEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	s, err := store.Open(filepath.Join(t.TempDir(), "alerts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	now := time.Now().UTC().Truncate(time.Second)
	start1 := now.Add(-15 * time.Minute)
	start2 := now.Add(-14 * time.Minute)
	end := now.Add(-5 * time.Minute)

	first := domain.Alert{
		ID:          "1",
		SourceID:    "usgs",
		SourceType:  "seismic",
		CreatedAt:   now.Add(-10 * time.Minute),
		EventType:   "earthquake",
		Headline:    "Earthquake in California",
		Description: "A 5.2 magnitude earthquake occurred in Northern California.",
		Location:    domain.NewPoint(37.7749, -122.4194),
		StartTime:   &start1,
		EndTime:     &end,
	}
	second := domain.Alert{
		ID:          "2",
		SourceID:    "emsc",
		SourceType:  "seismic",
		CreatedAt:   now.Add(-5 * time.Minute),
		EventType:   "earthquake",
		Headline:    "Earthquake near San Francisco",
		Description: "A 5.0 magnitude earthquake occurred near San Francisco Bay Area.",
		Location:    domain.NewPoint(37.7750, -122.4195),
		StartTime:   &start2,
		EndTime:     &end,
	}
	require.NoError(t, s.SaveAlert(ctx, first))
	require.NoError(t, s.SaveAlert(ctx, second))

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}
	publisher := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	engine := consolidate.New(s, publisher, similarity.DefaultConfig(),
		discardLogger(), observability.NewMetricsForTesting())

	report, err := engine.RunBatch(ctx, time.Hour, 100)
	require.NoError(t, err)

	require.Equal(t, 1, report.GroupsFound)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.AlertsConsolidated)
	require.Len(t, report.Details, 1)
	primaryID := report.Details[0].ConsolidatedAlertID
	assert.ElementsMatch(t, []string{"1", "2"}, report.Details[0].OriginalAlertIDs)

	// Both members are marked in storage and point at the primary.
	for _, id := range []string{"1", "2"} {
		member, err := s.GetAlert(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusConsolidated, member.ConsolidationStatus)
		assert.Equal(t, primaryID, member.ConsolidatedInto)
	}

	// The merged record keeps the newest report as its base.
	merged, err := s.GetConsolidatedAlert(ctx, primaryID)
	require.NoError(t, err)
	assert.Equal(t, "emsc", merged.SourceID)
	assert.Equal(t, domain.StatusPrimary, merged.ConsolidationStatus)
	assert.Equal(t, 2, merged.SourceCount)
	assert.Contains(t, merged.EnhancedDescription, "Northern California")
	assert.Contains(t, merged.EnhancedDescription, "San Francisco Bay Area")

	// The announcement carries the same record.
	got := readAnnouncement(ctx, t, newSinkConsumer(t, broker))
	assert.Equal(t, primaryID, got.Key)
	assert.Equal(t, "earthquake", got.Headers["event_type"])
	assert.Equal(t, "2", got.Headers["source_count"])
	assert.ElementsMatch(t, []string{"1", "2"}, got.Alert.ConsolidatedFrom)

	// A second batch finds nothing left to consolidate.
	report, err = engine.RunBatch(ctx, time.Hour, 100)
	require.NoError(t, err)
	assert.Zero(t, report.GroupsFound)
	assert.Zero(t, report.Total)
}
