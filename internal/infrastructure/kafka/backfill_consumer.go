package kafka

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/nooksocial/nook-engine/config"
	kafkaHandlers "github.com/nooksocial/nook-engine/internal/domain/farcaster/delivery/kafka"
)

// BackfillConsumer drains the historical backfill topic. Same semantics as
// the live consumer; its own group id suffix keeps backfill offsets from
// interleaving with live ones.
type BackfillConsumer struct {
	reader   *kafka.Reader
	handlers *kafkaHandlers.Handlers
	logger   zerolog.Logger
	done     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewBackfillConsumer(cfg *config.KafkaConfig, handlers *kafkaHandlers.Handlers, logger zerolog.Logger) *BackfillConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.TopicBackfill,
		GroupID:     cfg.GroupID + "-backfill",
		MinBytes:    minBytes,
		MaxBytes:    maxBytes,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.TopicBackfill).
		Str("group_id", cfg.GroupID+"-backfill").
		Msg("Backfill consumer initialized")

	ctx, cancel := context.WithCancel(context.Background())

	return &BackfillConsumer{
		reader:   reader,
		handlers: handlers,
		logger:   logger,
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *BackfillConsumer) Start() {
	go c.consume()
	c.logger.Info().Msg("Backfill consumer started")
}

func (c *BackfillConsumer) consume() {
	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info().Msg("Backfill consumer context canceled, stopping")
			return
		case <-c.done:
			c.logger.Info().Msg("Backfill consumer received stop signal")
			return
		default:
			msg, err := c.reader.FetchMessage(c.ctx)
			if err != nil {
				if c.ctx.Err() != nil {
					return
				}
				c.logger.Error().Err(err).Msg("Failed to fetch backfill message")
				continue
			}

			if err := c.handlers.HandleRawEvent(c.ctx, msg.Value); err != nil {
				c.logger.Error().Err(err).
					Int64("offset", msg.Offset).
					Msg("Failed to handle backfill event, leaving uncommitted")
				continue
			}

			if err := c.reader.CommitMessages(c.ctx, msg); err != nil {
				c.logger.Error().Err(err).
					Int64("offset", msg.Offset).
					Msg("Failed to commit backfill message")
			}
		}
	}
}

func (c *BackfillConsumer) Stop() error {
	c.cancel()
	close(c.done)

	if err := c.reader.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to close backfill consumer")
		return err
	}

	c.logger.Info().Msg("Backfill consumer stopped")
	return nil
}
