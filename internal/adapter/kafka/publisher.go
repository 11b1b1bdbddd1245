// Package kafka announces newly created consolidated alerts on a sink topic
// for the downstream delivery pipeline.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/alert-consolidation-service/internal/config"
	"github.com/couchcryptid/alert-consolidation-service/internal/domain"
)

// Publisher produces consolidated-alert announcements to a Kafka topic.
// It implements consolidate.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured sink topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishConsolidated serializes and publishes one consolidated alert.
func (p *Publisher) PublishConsolidated(ctx context.Context, alert domain.ConsolidatedAlert) error {
	msg, err := serializeToMessage(alert)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a consolidated alert into a Kafka message.
// Headers carry routing metadata so consumers can filter without decoding
// the payload.
func serializeToMessage(alert domain.ConsolidatedAlert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize consolidated alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(alert.EventType)},
			{Key: "source_count", Value: []byte(strconv.Itoa(alert.SourceCount))},
			{Key: "consolidated_at", Value: []byte(alert.UpdatedAt.Format(time.RFC3339))},
		},
	}, nil
}
