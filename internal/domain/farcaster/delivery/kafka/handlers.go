package kafka

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/usecase/buissines"
	pkgerrors "github.com/nooksocial/nook-engine/pkg/errors"
)

// Handlers handles Kafka messages for the farcaster domain
type Handlers struct {
	uc     *buissines.UseCase
	logger zerolog.Logger
}

// NewHandlers creates new Kafka handlers
func NewHandlers(uc *buissines.UseCase, logger zerolog.Logger) *Handlers {
	return &Handlers{
		uc:     uc,
		logger: logger,
	}
}

// HandleRawEvent applies one raw event from the stream. Returns nil for
// events that can never succeed (undecodable, malformed, unknown type) so
// the consumer commits past them; any other error leaves the offset
// uncommitted for redelivery.
func (h *Handlers) HandleRawEvent(ctx context.Context, message []byte) error {
	var event dto.RawEvent
	if err := json.Unmarshal(message, &event); err != nil {
		h.logger.Error().Err(err).
			Str("raw_message", string(message)).
			Msg("Failed to unmarshal raw event, dropping")
		return nil
	}

	h.logger.Debug().
		Str("event_id", event.Source.ID).
		Str("event_type", event.Source.Type).
		Msg("Processing raw event")

	if err := h.uc.ProcessRawEvent(ctx, &event); err != nil {
		if pkgerrors.IsValidationError(err) {
			h.logger.Warn().Err(err).
				Str("event_id", event.Source.ID).
				Str("event_type", event.Source.Type).
				Msg("Dropping event that can never succeed")
			return nil
		}

		h.logger.Error().Err(err).
			Str("event_id", event.Source.ID).
			Str("event_type", event.Source.Type).
			Msg("Failed to process raw event")
		return err
	}

	return nil
}
