package buissines

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/nooksocial/nook-engine/config"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/deps"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/entities"
	domainerrors "github.com/nooksocial/nook-engine/internal/domain/farcaster/errors"
	"github.com/nooksocial/nook-engine/internal/infrastructure/metrics"
	pkgerrors "github.com/nooksocial/nook-engine/pkg/errors"
)

// UseCase implements event normalization and feed query business logic
type UseCase struct {
	entityRepo  deps.EntityRepository
	contentRepo deps.ContentRepository
	actionRepo  deps.ActionRepository
	feedRepo    deps.FeedRepository
	cache       deps.IdentityCache
	hubClient   deps.HubClient
	graphClient deps.GraphClient
	producer    deps.EventProducer
	metrics     *metrics.Metrics
	feedConfig  *config.FeedConfig
	graphConfig *config.GraphConfig
	logger      zerolog.Logger
}

// NewUseCase creates a new engine use case
func NewUseCase(
	entityRepo deps.EntityRepository,
	contentRepo deps.ContentRepository,
	actionRepo deps.ActionRepository,
	feedRepo deps.FeedRepository,
	cache deps.IdentityCache,
	hubClient deps.HubClient,
	graphClient deps.GraphClient,
	producer deps.EventProducer,
	m *metrics.Metrics,
	feedConfig *config.FeedConfig,
	graphConfig *config.GraphConfig,
	logger zerolog.Logger,
) *UseCase {
	return &UseCase{
		entityRepo:  entityRepo,
		contentRepo: contentRepo,
		actionRepo:  actionRepo,
		feedRepo:    feedRepo,
		cache:       cache,
		hubClient:   hubClient,
		graphClient: graphClient,
		producer:    producer,
		metrics:     m,
		feedConfig:  feedConfig,
		graphConfig: graphConfig,
		logger:      logger,
	}
}

// ProcessRawEvent applies one raw event to the store. Processing is
// idempotent per source event id; a retryable error means the event must be
// redelivered, a validation error means it never can succeed and should be
// dropped by the caller.
func (u *UseCase) ProcessRawEvent(ctx context.Context, raw *dto.RawEvent) error {
	start := time.Now()

	if raw == nil || raw.Source.ID == "" || raw.Source.Type == "" {
		u.metrics.RecordEventDropped("missing_source")
		return domainerrors.ErrMalformedEvent
	}

	var normalized *dto.NormalizedEvent
	var err error

	switch raw.Source.Type {
	case dto.EventTypeCastAdd:
		normalized, err = u.processCastAdd(ctx, raw)
	case dto.EventTypeCastRemove:
		normalized, err = u.processCastRemove(ctx, raw)
	case dto.EventTypeReactionAdd:
		normalized, err = u.processReactionAdd(ctx, raw)
	case dto.EventTypeReactionRemove:
		normalized, err = u.processReactionRemove(ctx, raw)
	case dto.EventTypeLinkAdd:
		normalized, err = u.processLinkAdd(ctx, raw)
	case dto.EventTypeLinkRemove:
		normalized, err = u.processLinkRemove(ctx, raw)
	case dto.EventTypeVerificationAdd:
		normalized, err = u.processVerificationAdd(ctx, raw)
	case dto.EventTypeVerificationRemove:
		normalized, err = u.processVerificationRemove(ctx, raw)
	default:
		u.metrics.RecordEventDropped("unknown_event_type")
		return domainerrors.ErrUnknownEventType
	}

	if err != nil {
		switch {
		case errors.Is(err, domainerrors.ErrMalformedEvent):
			u.metrics.RecordEventDropped("malformed_payload")
		case pkgerrors.IsRetryableError(err):
			u.metrics.RecordIngestError("retryable")
		default:
			u.metrics.RecordIngestError("internal")
		}
		return err
	}

	u.metrics.RecordEventIngested(raw.Source.Type, time.Since(start).Seconds())
	u.publishNormalized(ctx, normalized)
	return nil
}

// RecountEngagement recomputes all engagement counters of a content record
// from the underlying rows, repairing any drift from lost increments.
func (u *UseCase) RecountEngagement(ctx context.Context, contentID string) error {
	if _, err := u.contentRepo.GetByID(ctx, contentID); err != nil {
		return err
	}

	likes, err := u.actionRepo.CountActive(ctx, entities.ActionTypeLike, contentID)
	if err != nil {
		return err
	}
	reposts, err := u.actionRepo.CountActive(ctx, entities.ActionTypeRepost, contentID)
	if err != nil {
		return err
	}
	replies, err := u.contentRepo.CountReplies(ctx, contentID)
	if err != nil {
		return err
	}
	embeds, err := u.contentRepo.CountEmbedding(ctx, contentID)
	if err != nil {
		return err
	}

	if err := u.contentRepo.SetCounters(ctx, contentID, likes, reposts, replies, embeds); err != nil {
		return err
	}

	u.metrics.RecordEngagementRecount()
	return nil
}

func (u *UseCase) processCastAdd(ctx context.Context, raw *dto.RawEvent) (*dto.NormalizedEvent, error) {
	var cast dto.CastData
	if err := json.Unmarshal(raw.Data, &cast); err != nil {
		return nil, domainerrors.ErrMalformedEvent
	}
	if cast.Fid == 0 || cast.Hash == "" {
		return nil, domainerrors.ErrMalformedEvent
	}

	content, parent, root, err := u.materializeCast(ctx, raw, &cast)
	if err != nil {
		return nil, err
	}

	topics := contentTopics(content, parent, root)
	inserted, err := u.contentRepo.Upsert(ctx, content, topics)
	if err != nil {
		return nil, err
	}

	actionType := entities.ActionTypePost
	if content.IsReply() {
		actionType = entities.ActionTypeReply
	}
	action := &entities.Action{
		EventID:         raw.Source.ID,
		Type:            actionType,
		Timestamp:       content.Timestamp,
		EntityID:        content.AuthorEntityID,
		TargetEntityID:  content.ParentEntityID,
		SourceContentID: content.ContentID,
		TargetContentID: content.ParentContentID,
	}
	if _, err := u.actionRepo.Upsert(ctx, action, topics); err != nil {
		return nil, err
	}

	if inserted {
		u.bumpCastCounters(ctx, content)
	}

	u.logger.Debug().
		Str("content_id", content.ContentID).
		Str("action_type", actionType).
		Bool("inserted", inserted).
		Msg("Processed cast add")

	return &dto.NormalizedEvent{
		EventID:    raw.Source.ID,
		EventType:  raw.Source.Type,
		ContentIDs: []string{content.ContentID},
		ActionIDs:  []string{raw.Source.ID},
		Timestamp:  content.Timestamp.Unix(),
	}, nil
}

func (u *UseCase) processCastRemove(ctx context.Context, raw *dto.RawEvent) (*dto.NormalizedEvent, error) {
	var cast dto.CastData
	if err := json.Unmarshal(raw.Data, &cast); err != nil {
		return nil, domainerrors.ErrMalformedEvent
	}
	if cast.Fid == 0 || cast.Hash == "" {
		return nil, domainerrors.ErrMalformedEvent
	}

	contentID := ContentURI(cast.Fid, cast.Hash)
	content, err := u.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrContentNotFound) {
			// Already removed or never materialized.
			u.logger.Debug().Str("content_id", contentID).Msg("Cast remove with no local content")
			return &dto.NormalizedEvent{
				EventID:   raw.Source.ID,
				EventType: raw.Source.Type,
				Timestamp: eventTime(cast.Timestamp, raw.Timestamp).Unix(),
			}, nil
		}
		return nil, err
	}

	if err := u.contentRepo.SoftDelete(ctx, contentID); err != nil {
		return nil, err
	}

	if content.IsReply() {
		u.lowerCounter(ctx, content.ParentContentID, entities.CounterReplies)
	}
	for _, embed := range parseEmbeds(content.Embeds) {
		if isContentURI(embed) {
			u.lowerCounter(ctx, embed, entities.CounterEmbeds)
		}
	}

	u.logger.Info().Str("content_id", contentID).Msg("Removed content")

	return &dto.NormalizedEvent{
		EventID:    raw.Source.ID,
		EventType:  raw.Source.Type,
		ContentIDs: []string{contentID},
		Timestamp:  eventTime(cast.Timestamp, raw.Timestamp).Unix(),
	}, nil
}

func (u *UseCase) processReactionAdd(ctx context.Context, raw *dto.RawEvent) (*dto.NormalizedEvent, error) {
	reaction, kind, err := parseReaction(raw.Data)
	if err != nil {
		return nil, err
	}

	entityID, err := u.resolveEntity(ctx, reaction.Fid)
	if err != nil {
		return nil, err
	}

	target, err := u.ensureContent(ctx, reaction.TargetFid, reaction.TargetHash)
	if err != nil {
		return nil, err
	}

	action := &entities.Action{
		EventID:         raw.Source.ID,
		Type:            kind.add,
		Timestamp:       eventTime(reaction.Timestamp, raw.Timestamp),
		EntityID:        entityID,
		TargetEntityID:  target.AuthorEntityID,
		TargetContentID: target.ContentID,
	}

	inserted, err := u.actionRepo.Upsert(ctx, action, reactionTopics(entityID, target))
	if err != nil {
		return nil, err
	}

	if inserted {
		if err := u.contentRepo.IncrementCounter(ctx, target.ContentID, kind.counter); err != nil {
			u.logger.Warn().Err(err).
				Str("content_id", target.ContentID).
				Str("counter", kind.counter).
				Msg("Failed to increment engagement counter")
		}
	}

	return &dto.NormalizedEvent{
		EventID:    raw.Source.ID,
		EventType:  raw.Source.Type,
		ContentIDs: []string{target.ContentID},
		ActionIDs:  []string{raw.Source.ID},
		Timestamp:  action.Timestamp.Unix(),
	}, nil
}

func (u *UseCase) processReactionRemove(ctx context.Context, raw *dto.RawEvent) (*dto.NormalizedEvent, error) {
	reaction, kind, err := parseReaction(raw.Data)
	if err != nil {
		return nil, err
	}

	entityID, err := u.resolveEntity(ctx, reaction.Fid)
	if err != nil {
		return nil, err
	}

	targetID := ContentURI(reaction.TargetFid, reaction.TargetHash)
	action := &entities.Action{
		EventID:         raw.Source.ID,
		Type:            kind.remove,
		Timestamp:       eventTime(reaction.Timestamp, raw.Timestamp),
		EntityID:        entityID,
		TargetContentID: targetID,
	}

	inserted, err := u.actionRepo.Upsert(ctx, action, removeTopics(entityID, targetID))
	if err != nil {
		return nil, err
	}

	if inserted {
		found, err := u.actionRepo.SoftDeleteMatching(ctx, kind.add, entityID, targetID)
		if err != nil {
			return nil, err
		}
		if found {
			u.lowerCounter(ctx, targetID, kind.counter)
		} else {
			// Remove arrived before (or without) its add; the counter was
			// never incremented, so there is nothing to undo.
			u.logger.Debug().
				Str("entity_id", entityID).
				Str("content_id", targetID).
				Str("action_type", kind.remove).
				Msg("Reaction remove with no matching add")
		}
	}

	return &dto.NormalizedEvent{
		EventID:    raw.Source.ID,
		EventType:  raw.Source.Type,
		ContentIDs: []string{targetID},
		ActionIDs:  []string{raw.Source.ID},
		Timestamp:  action.Timestamp.Unix(),
	}, nil
}

func (u *UseCase) processLinkAdd(ctx context.Context, raw *dto.RawEvent) (*dto.NormalizedEvent, error) {
	link, err := parseLink(raw.Data)
	if err != nil {
		return nil, err
	}

	resolved, err := u.resolveEntities(ctx, []uint64{link.Fid, link.TargetFid})
	if err != nil {
		return nil, err
	}
	entityID, targetEntityID := resolved[link.Fid], resolved[link.TargetFid]

	action := &entities.Action{
		EventID:        raw.Source.ID,
		Type:           entities.ActionTypeFollow,
		Timestamp:      eventTime(link.Timestamp, raw.Timestamp),
		EntityID:       entityID,
		TargetEntityID: targetEntityID,
	}

	if _, err := u.actionRepo.Upsert(ctx, action, followTopics(entityID, targetEntityID)); err != nil {
		return nil, err
	}

	return &dto.NormalizedEvent{
		EventID:   raw.Source.ID,
		EventType: raw.Source.Type,
		ActionIDs: []string{raw.Source.ID},
		Timestamp: action.Timestamp.Unix(),
	}, nil
}

func (u *UseCase) processLinkRemove(ctx context.Context, raw *dto.RawEvent) (*dto.NormalizedEvent, error) {
	link, err := parseLink(raw.Data)
	if err != nil {
		return nil, err
	}

	resolved, err := u.resolveEntities(ctx, []uint64{link.Fid, link.TargetFid})
	if err != nil {
		return nil, err
	}
	entityID, targetEntityID := resolved[link.Fid], resolved[link.TargetFid]

	action := &entities.Action{
		EventID:        raw.Source.ID,
		Type:           entities.ActionTypeUnfollow,
		Timestamp:      eventTime(link.Timestamp, raw.Timestamp),
		EntityID:       entityID,
		TargetEntityID: targetEntityID,
	}

	inserted, err := u.actionRepo.Upsert(ctx, action, followTopics(entityID, targetEntityID))
	if err != nil {
		return nil, err
	}

	if inserted {
		found, err := u.actionRepo.SoftDeleteMatchingEntity(ctx, entities.ActionTypeFollow, entityID, targetEntityID)
		if err != nil {
			return nil, err
		}
		if !found {
			u.logger.Debug().
				Str("entity_id", entityID).
				Str("target_entity_id", targetEntityID).
				Msg("Unfollow with no matching follow")
		}
	}

	return &dto.NormalizedEvent{
		EventID:   raw.Source.ID,
		EventType: raw.Source.Type,
		ActionIDs: []string{raw.Source.ID},
		Timestamp: action.Timestamp.Unix(),
	}, nil
}

func (u *UseCase) processVerificationAdd(ctx context.Context, raw *dto.RawEvent) (*dto.NormalizedEvent, error) {
	verification, addressURI, err := parseVerification(raw.Data)
	if err != nil {
		return nil, err
	}

	entityID, err := u.resolveEntity(ctx, verification.Fid)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(map[string]any{
		"address":  verification.Address,
		"protocol": verificationProtocols[verification.Protocol],
		"contract": verification.VerificationType != 0,
	})
	if err != nil {
		return nil, domainerrors.ErrMalformedEvent
	}

	action := &entities.Action{
		EventID:         raw.Source.ID,
		Type:            entities.ActionTypeLinkAddress,
		Timestamp:       eventTime(verification.Timestamp, raw.Timestamp),
		EntityID:        entityID,
		TargetContentID: addressURI,
		Data:            string(data),
	}

	if _, err := u.actionRepo.Upsert(ctx, action, verificationTopics(entityID, addressURI)); err != nil {
		return nil, err
	}

	return &dto.NormalizedEvent{
		EventID:   raw.Source.ID,
		EventType: raw.Source.Type,
		ActionIDs: []string{raw.Source.ID},
		Timestamp: action.Timestamp.Unix(),
	}, nil
}

func (u *UseCase) processVerificationRemove(ctx context.Context, raw *dto.RawEvent) (*dto.NormalizedEvent, error) {
	verification, addressURI, err := parseVerification(raw.Data)
	if err != nil {
		return nil, err
	}

	entityID, err := u.resolveEntity(ctx, verification.Fid)
	if err != nil {
		return nil, err
	}

	action := &entities.Action{
		EventID:         raw.Source.ID,
		Type:            entities.ActionTypeUnlinkAddress,
		Timestamp:       eventTime(verification.Timestamp, raw.Timestamp),
		EntityID:        entityID,
		TargetContentID: addressURI,
	}

	inserted, err := u.actionRepo.Upsert(ctx, action, verificationTopics(entityID, addressURI))
	if err != nil {
		return nil, err
	}

	if inserted {
		found, err := u.actionRepo.SoftDeleteMatching(ctx, entities.ActionTypeLinkAddress, entityID, addressURI)
		if err != nil {
			return nil, err
		}
		if !found {
			u.logger.Debug().
				Str("entity_id", entityID).
				Str("address", addressURI).
				Msg("Address unlink with no matching link")
		}
	}

	return &dto.NormalizedEvent{
		EventID:   raw.Source.ID,
		EventType: raw.Source.Type,
		ActionIDs: []string{raw.Source.ID},
		Timestamp: action.Timestamp.Unix(),
	}, nil
}

// materializeCast resolves every identity and ancestor a cast references.
// Ancestors missing locally are backfilled from the hub before the content
// row is built, so topic generation always sees resolved edges.
func (u *UseCase) materializeCast(ctx context.Context, raw *dto.RawEvent, cast *dto.CastData) (content, parent, root *entities.Content, err error) {
	resolved, err := u.resolveEntities(ctx, append([]uint64{cast.Fid}, cast.Mentions...))
	if err != nil {
		return nil, nil, nil, err
	}

	if cast.ParentFid != 0 && cast.ParentHash != "" {
		parent, err = u.ensureContent(ctx, cast.ParentFid, cast.ParentHash)
		if err != nil {
			return nil, nil, nil, err
		}

		switch {
		case cast.RootParentFid != 0 && cast.RootParentHash != "":
			root, err = u.ensureContent(ctx, cast.RootParentFid, cast.RootParentHash)
			if err != nil {
				return nil, nil, nil, err
			}
		case parent.RootContentID != "" && parent.RootContentID != parent.ContentID:
			root, err = u.contentRepo.GetByID(ctx, parent.RootContentID)
			if err != nil {
				// Thread root no longer active; the parent stands in.
				root = parent
				err = nil
			}
		default:
			root = parent
		}
	}

	content, err = buildCastContent(cast, resolved, parent, root, raw.Timestamp)
	if err != nil {
		return nil, nil, nil, err
	}
	return content, parent, root, nil
}

// ensureContent returns the content row for a cast, backfilling it from the
// hub when it has not been materialized locally yet.
func (u *UseCase) ensureContent(ctx context.Context, fid uint64, hash string) (*entities.Content, error) {
	contentID := ContentURI(fid, hash)

	existing, err := u.contentRepo.GetByID(ctx, contentID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domainerrors.ErrContentNotFound) {
		return nil, err
	}

	cast, err := u.hubClient.GetCast(ctx, fid, hash)
	if err != nil {
		return nil, err
	}
	u.metrics.RecordAncestorFetch()

	resolved, err := u.resolveEntities(ctx, append([]uint64{cast.Fid}, cast.Mentions...))
	if err != nil {
		return nil, err
	}

	// The ancestor's own ancestors resolve lazily when their events arrive.
	content, err := buildCastContent(cast, resolved, nil, nil, time.Unix(cast.Timestamp, 0).UTC())
	if err != nil {
		return nil, err
	}

	if _, err := u.contentRepo.Upsert(ctx, content, contentTopics(content, nil, nil)); err != nil {
		return nil, err
	}

	u.logger.Info().
		Str("content_id", contentID).
		Msg("Backfilled ancestor content from hub")

	return content, nil
}

// bumpCastCounters applies the counter increments an inserted cast implies.
// Best effort: the content row is already committed, and drift is repairable
// by a recount.
func (u *UseCase) bumpCastCounters(ctx context.Context, content *entities.Content) {
	if content.IsReply() {
		if err := u.contentRepo.IncrementCounter(ctx, content.ParentContentID, entities.CounterReplies); err != nil {
			u.logger.Warn().Err(err).
				Str("content_id", content.ParentContentID).
				Msg("Failed to increment reply counter")
		}
	}

	for _, embed := range parseEmbeds(content.Embeds) {
		if !isContentURI(embed) {
			continue
		}
		if err := u.contentRepo.IncrementCounter(ctx, embed, entities.CounterEmbeds); err != nil {
			u.logger.Warn().Err(err).
				Str("content_id", embed).
				Msg("Failed to increment embed counter")
		}
	}
}

// lowerCounter settles an engagement counter after a remove: a clamped
// decrement keeps the counter fresh for readers, then a full recount from the
// underlying rows guards against drift from missed paired-add lookups.
func (u *UseCase) lowerCounter(ctx context.Context, contentID, counter string) {
	clamped, err := u.contentRepo.DecrementCounter(ctx, contentID, counter)
	if err != nil {
		u.logger.Warn().Err(err).
			Str("content_id", contentID).
			Str("counter", counter).
			Msg("Failed to decrement engagement counter")
	} else if clamped {
		u.metrics.RecordCounterClamp()
		u.logger.Warn().
			Str("content_id", contentID).
			Str("counter", counter).
			Msg("Engagement counter decrement clamped at zero")
	}

	if err := u.RecountEngagement(ctx, contentID); err != nil && !errors.Is(err, domainerrors.ErrContentNotFound) {
		u.logger.Warn().Err(err).
			Str("content_id", contentID).
			Msg("Failed to recount engagement")
	}
}

// publishNormalized fans the normalized event out to downstream consumers.
// Publish failures never fail ingestion; redelivery re-publishes.
func (u *UseCase) publishNormalized(ctx context.Context, normalized *dto.NormalizedEvent) {
	if u.producer == nil || normalized == nil {
		return
	}

	if err := u.producer.SendNormalized(ctx, normalized); err != nil {
		u.metrics.RecordKafkaError("produce")
		u.logger.Warn().Err(err).
			Str("event_id", normalized.EventID).
			Msg("Failed to publish normalized event")
		return
	}
	u.metrics.RecordKafkaMessage()
}

func parseReaction(data json.RawMessage) (*dto.ReactionData, reactionKind, error) {
	var reaction dto.ReactionData
	if err := json.Unmarshal(data, &reaction); err != nil {
		return nil, reactionKind{}, domainerrors.ErrMalformedEvent
	}
	if reaction.Fid == 0 || reaction.TargetFid == 0 || reaction.TargetHash == "" {
		return nil, reactionKind{}, domainerrors.ErrMalformedEvent
	}

	kind, ok := reactionKinds[reaction.ReactionType]
	if !ok {
		return nil, reactionKind{}, domainerrors.ErrMalformedEvent
	}
	return &reaction, kind, nil
}

func parseLink(data json.RawMessage) (*dto.LinkData, error) {
	var link dto.LinkData
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, domainerrors.ErrMalformedEvent
	}
	if link.Fid == 0 || link.TargetFid == 0 || link.LinkType != "follow" {
		return nil, domainerrors.ErrMalformedEvent
	}
	return &link, nil
}

func parseVerification(data json.RawMessage) (*dto.VerificationData, string, error) {
	var verification dto.VerificationData
	if err := json.Unmarshal(data, &verification); err != nil {
		return nil, "", domainerrors.ErrMalformedEvent
	}
	if verification.Fid == 0 || verification.Address == "" {
		return nil, "", domainerrors.ErrMalformedEvent
	}

	protocol, ok := verificationProtocols[verification.Protocol]
	if !ok {
		return nil, "", domainerrors.ErrMalformedEvent
	}
	return &verification, AddressURI(protocol, verification.Address), nil
}
