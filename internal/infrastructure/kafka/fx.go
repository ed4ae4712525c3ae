package kafka

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/nooksocial/nook-engine/config"
	kafkaHandlers "github.com/nooksocial/nook-engine/internal/domain/farcaster/delivery/kafka"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/deps"
)

var Module = fx.Module("kafka",
	fx.Provide(NewProducerFx),
	fx.Invoke(registerConsumerLifecycle),
	fx.Invoke(registerBackfillConsumerLifecycle),
)

func NewProducerFx(
	lc fx.Lifecycle,
	cfg *config.KafkaConfig,
	logger zerolog.Logger,
) (deps.EventProducer, error) {
	producer, err := NewProducer(cfg, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})

	return producer, nil
}

func registerConsumerLifecycle(
	lc fx.Lifecycle,
	cfg *config.KafkaConfig,
	handlers *kafkaHandlers.Handlers,
	logger zerolog.Logger,
) {
	consumer := NewConsumer(cfg, handlers, logger.With().Str("component", "kafka-consumer").Logger())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			consumer.Start()
			return nil
		},
		OnStop: func(_ context.Context) error {
			return consumer.Stop()
		},
	})
}

func registerBackfillConsumerLifecycle(
	lc fx.Lifecycle,
	cfg *config.KafkaConfig,
	handlers *kafkaHandlers.Handlers,
	logger zerolog.Logger,
) {
	consumer := NewBackfillConsumer(cfg, handlers, logger.With().Str("component", "kafka-backfill-consumer").Logger())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			consumer.Start()
			return nil
		},
		OnStop: func(_ context.Context) error {
			return consumer.Stop()
		},
	})
}
