package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/nooksocial/nook-engine/config"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/deps"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
)

// Producer publishes normalized events for downstream consumers.
type Producer struct {
	writer *kafka.Writer
	topic  string
	logger zerolog.Logger
}

func NewProducer(cfg *config.KafkaConfig, logger zerolog.Logger) (deps.EventProducer, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.TopicNormalized).
		Msg("Kafka producer initialized")

	return &Producer{
		writer: writer,
		topic:  cfg.TopicNormalized,
		logger: logger,
	}, nil
}

// SendNormalized publishes a normalized event, keyed by source event id so
// redeliveries of the same event land on the same partition.
func (p *Producer) SendNormalized(ctx context.Context, event *dto.NormalizedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.EventID),
		Value: data,
	})
	if err != nil {
		p.logger.Error().Err(err).
			Str("event_id", event.EventID).
			Str("event_type", event.EventType).
			Msg("Failed to send normalized event")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Msg("Normalized event sent")

	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
