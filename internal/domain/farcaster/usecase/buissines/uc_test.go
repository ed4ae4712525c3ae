package buissines

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/entities"
	domainerrors "github.com/nooksocial/nook-engine/internal/domain/farcaster/errors"
	pkgerrors "github.com/nooksocial/nook-engine/pkg/errors"
)

func rawEvent(id, eventType string, payload any) *dto.RawEvent {
	data, _ := json.Marshal(payload)
	return &dto.RawEvent{
		Source:    dto.EventSource{Service: "farcaster", Type: eventType, ID: id},
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Data:      data,
	}
}

func hasTopic(topics []entities.Topic, topicType, value string) bool {
	for _, topic := range topics {
		if topic.Type == topicType && topic.Value == value {
			return true
		}
	}
	return false
}

func TestProcessRawEvent_CastAdd(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	event := rawEvent("evt-1", dto.EventTypeCastAdd, dto.CastData{
		Fid:               10,
		Hash:              "0xabc",
		Text:              "gm",
		Mentions:          []uint64{20},
		MentionsPositions: []int{0},
		Embeds:            []string{"https://example.com/a.png"},
		ParentURL:         "https://warpcast.com/~/channel/go",
		Timestamp:         1717243200,
	})

	if err := env.uc.ProcessRawEvent(ctx, event); err != nil {
		t.Fatalf("ProcessRawEvent failed: %v", err)
	}

	contentID := ContentURI(10, "0xabc")
	content, err := env.contents.GetByID(ctx, contentID)
	if err != nil {
		t.Fatalf("content not materialized: %v", err)
	}
	if content.ContentType != entities.ContentTypeImage {
		t.Errorf("content type = %s, want image", content.ContentType)
	}
	if content.RootContentID != contentID {
		t.Errorf("top-level post should be its own root, got %s", content.RootContentID)
	}
	if content.ChannelURL != "https://warpcast.com/~/channel/go" {
		t.Errorf("channel url not set: %s", content.ChannelURL)
	}

	authorID := env.cache.fidToID[10]
	mentionID := env.cache.fidToID[20]
	topics := env.contents.topics[contentID]
	if !hasTopic(topics, entities.TopicSourceEntity, authorID) {
		t.Error("missing SOURCE_ENTITY topic")
	}
	if !hasTopic(topics, entities.TopicSourceContent, contentID) {
		t.Error("missing SOURCE_CONTENT topic")
	}
	if !hasTopic(topics, entities.TopicSourceTag, mentionID) {
		t.Error("missing SOURCE_TAG topic for mention")
	}
	if !hasTopic(topics, entities.TopicSourceEmbed, "https://example.com/a.png") {
		t.Error("missing SOURCE_EMBED topic")
	}
	if !hasTopic(topics, entities.TopicChannel, "https://warpcast.com/~/channel/go") {
		t.Error("missing CHANNEL topic")
	}

	posts := env.actions.activeOfType(entities.ActionTypePost)
	if len(posts) != 1 || posts[0].EventID != "evt-1" {
		t.Errorf("expected one POST action for evt-1, got %v", posts)
	}

	if len(env.producer.sent) != 1 {
		t.Fatalf("expected 1 normalized event, got %d", len(env.producer.sent))
	}
	normalized := env.producer.sent[0]
	if normalized.EventID != "evt-1" || normalized.EventType != dto.EventTypeCastAdd {
		t.Errorf("unexpected normalized event: %+v", normalized)
	}
	if len(normalized.ContentIDs) != 1 || normalized.ContentIDs[0] != contentID {
		t.Errorf("normalized event content ids: %v", normalized.ContentIDs)
	}
}

func TestProcessRawEvent_ReplyRedeliveryIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	parentEvent := rawEvent("evt-parent", dto.EventTypeCastAdd, dto.CastData{
		Fid: 1, Hash: "0xp", Text: "root", Timestamp: 1717243100,
	})
	if err := env.uc.ProcessRawEvent(ctx, parentEvent); err != nil {
		t.Fatalf("parent ProcessRawEvent failed: %v", err)
	}

	replyEvent := rawEvent("evt-reply", dto.EventTypeCastAdd, dto.CastData{
		Fid: 2, Hash: "0xr", Text: "nice",
		ParentFid: 1, ParentHash: "0xp",
		Timestamp: 1717243200,
	})

	for i := 0; i < 2; i++ {
		if err := env.uc.ProcessRawEvent(ctx, replyEvent); err != nil {
			t.Fatalf("reply delivery %d failed: %v", i+1, err)
		}
	}

	parentID := ContentURI(1, "0xp")
	parent, err := env.contents.GetByID(ctx, parentID)
	if err != nil {
		t.Fatalf("parent missing: %v", err)
	}
	if parent.Replies != 1 {
		t.Errorf("redelivery double-counted replies: %d", parent.Replies)
	}

	reply, err := env.contents.GetByID(ctx, ContentURI(2, "0xr"))
	if err != nil {
		t.Fatalf("reply missing: %v", err)
	}
	if reply.ParentContentID != parentID || reply.RootContentID != parentID {
		t.Errorf("reply edges wrong: parent=%s root=%s", reply.ParentContentID, reply.RootContentID)
	}

	replies := env.actions.activeOfType(entities.ActionTypeReply)
	if len(replies) != 1 {
		t.Errorf("expected one REPLY action, got %d", len(replies))
	}
}

func TestProcessRawEvent_ReplyBackfillsAncestor(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.hub.casts[castKey(1, "0xp")] = &dto.CastData{
		Fid: 1, Hash: "0xp", Text: "only upstream", Timestamp: 1717243000,
	}

	replyEvent := rawEvent("evt-reply", dto.EventTypeCastAdd, dto.CastData{
		Fid: 2, Hash: "0xr", Text: "late reply",
		ParentFid: 1, ParentHash: "0xp",
		Timestamp: 1717243200,
	})
	if err := env.uc.ProcessRawEvent(ctx, replyEvent); err != nil {
		t.Fatalf("ProcessRawEvent failed: %v", err)
	}

	if env.hub.castCalls != 1 {
		t.Errorf("expected 1 hub fetch, got %d", env.hub.castCalls)
	}
	if _, err := env.contents.GetByID(ctx, ContentURI(1, "0xp")); err != nil {
		t.Fatalf("ancestor not backfilled: %v", err)
	}

	topics := env.contents.topics[ContentURI(2, "0xr")]
	if !hasTopic(topics, entities.TopicTargetContent, ContentURI(1, "0xp")) {
		t.Error("reply missing TARGET_CONTENT topic for backfilled parent")
	}
}

func TestProcessRawEvent_ReplyParentUnavailableIsRetryable(t *testing.T) {
	env := newTestEnv()

	replyEvent := rawEvent("evt-reply", dto.EventTypeCastAdd, dto.CastData{
		Fid: 2, Hash: "0xr",
		ParentFid: 1, ParentHash: "0xmissing",
		Timestamp: 1717243200,
	})

	err := env.uc.ProcessRawEvent(context.Background(), replyEvent)
	if !pkgerrors.IsRetryableError(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if len(env.producer.sent) != 0 {
		t.Error("failed event must not publish a normalized event")
	}
}

func TestProcessRawEvent_ReactionLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if err := env.uc.ProcessRawEvent(ctx, rawEvent("evt-cast", dto.EventTypeCastAdd, dto.CastData{
		Fid: 1, Hash: "0xt", Timestamp: 1717243100,
	})); err != nil {
		t.Fatalf("cast add failed: %v", err)
	}
	targetID := ContentURI(1, "0xt")

	addEvent := rawEvent("evt-like", dto.EventTypeReactionAdd, dto.ReactionData{
		Fid: 2, ReactionType: dto.ReactionTypeLike, TargetFid: 1, TargetHash: "0xt", Timestamp: 1717243200,
	})
	for i := 0; i < 2; i++ {
		if err := env.uc.ProcessRawEvent(ctx, addEvent); err != nil {
			t.Fatalf("like delivery %d failed: %v", i+1, err)
		}
	}

	target, _ := env.contents.GetByID(ctx, targetID)
	if target.Likes != 1 {
		t.Fatalf("redelivered like double-counted: %d", target.Likes)
	}

	removeEvent := rawEvent("evt-unlike", dto.EventTypeReactionRemove, dto.ReactionData{
		Fid: 2, ReactionType: dto.ReactionTypeLike, TargetFid: 1, TargetHash: "0xt", Timestamp: 1717243300,
	})
	for i := 0; i < 2; i++ {
		if err := env.uc.ProcessRawEvent(ctx, removeEvent); err != nil {
			t.Fatalf("unlike delivery %d failed: %v", i+1, err)
		}
	}

	target, _ = env.contents.GetByID(ctx, targetID)
	if target.Likes != 0 {
		t.Fatalf("expected likes back to 0, got %d", target.Likes)
	}
	if count, _ := env.actions.CountActive(ctx, entities.ActionTypeLike, targetID); count != 0 {
		t.Errorf("like action still active after remove: %d", count)
	}
	if len(env.actions.activeOfType(entities.ActionTypeUnlike)) != 1 {
		t.Error("unlike action not recorded")
	}
}

func TestProcessRawEvent_ReactionRemoveWithoutAdd(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if err := env.uc.ProcessRawEvent(ctx, rawEvent("evt-cast", dto.EventTypeCastAdd, dto.CastData{
		Fid: 1, Hash: "0xt", Timestamp: 1717243100,
	})); err != nil {
		t.Fatalf("cast add failed: %v", err)
	}

	removeEvent := rawEvent("evt-unlike", dto.EventTypeReactionRemove, dto.ReactionData{
		Fid: 2, ReactionType: dto.ReactionTypeLike, TargetFid: 1, TargetHash: "0xt", Timestamp: 1717243300,
	})
	if err := env.uc.ProcessRawEvent(ctx, removeEvent); err != nil {
		t.Fatalf("remove without add failed: %v", err)
	}

	target, _ := env.contents.GetByID(ctx, ContentURI(1, "0xt"))
	if target.Likes != 0 {
		t.Errorf("likes moved without a prior add: %d", target.Likes)
	}
}

func TestProcessRawEvent_CastRemove(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if err := env.uc.ProcessRawEvent(ctx, rawEvent("evt-parent", dto.EventTypeCastAdd, dto.CastData{
		Fid: 1, Hash: "0xp", Timestamp: 1717243100,
	})); err != nil {
		t.Fatalf("parent add failed: %v", err)
	}
	if err := env.uc.ProcessRawEvent(ctx, rawEvent("evt-reply", dto.EventTypeCastAdd, dto.CastData{
		Fid: 2, Hash: "0xr", ParentFid: 1, ParentHash: "0xp", Timestamp: 1717243200,
	})); err != nil {
		t.Fatalf("reply add failed: %v", err)
	}

	removeEvent := rawEvent("evt-rm", dto.EventTypeCastRemove, dto.CastData{
		Fid: 2, Hash: "0xr", Timestamp: 1717243300,
	})
	for i := 0; i < 2; i++ {
		if err := env.uc.ProcessRawEvent(ctx, removeEvent); err != nil {
			t.Fatalf("remove delivery %d failed: %v", i+1, err)
		}
	}

	if _, err := env.contents.GetByID(ctx, ContentURI(2, "0xr")); !errors.Is(err, domainerrors.ErrContentNotFound) {
		t.Errorf("removed content still readable: %v", err)
	}

	parent, _ := env.contents.GetByID(ctx, ContentURI(1, "0xp"))
	if parent.Replies != 0 {
		t.Errorf("parent reply counter after remove: %d", parent.Replies)
	}
}

func TestProcessRawEvent_FollowLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if err := env.uc.ProcessRawEvent(ctx, rawEvent("evt-follow", dto.EventTypeLinkAdd, dto.LinkData{
		Fid: 1, LinkType: "follow", TargetFid: 2, Timestamp: 1717243100,
	})); err != nil {
		t.Fatalf("follow failed: %v", err)
	}
	if len(env.actions.activeOfType(entities.ActionTypeFollow)) != 1 {
		t.Fatal("follow action not recorded")
	}

	if err := env.uc.ProcessRawEvent(ctx, rawEvent("evt-unfollow", dto.EventTypeLinkRemove, dto.LinkData{
		Fid: 1, LinkType: "follow", TargetFid: 2, Timestamp: 1717243200,
	})); err != nil {
		t.Fatalf("unfollow failed: %v", err)
	}
	if len(env.actions.activeOfType(entities.ActionTypeFollow)) != 0 {
		t.Error("follow still active after unfollow")
	}
	if len(env.actions.activeOfType(entities.ActionTypeUnfollow)) != 1 {
		t.Error("unfollow action not recorded")
	}
}

func TestProcessRawEvent_VerificationLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if err := env.uc.ProcessRawEvent(ctx, rawEvent("evt-link", dto.EventTypeVerificationAdd, dto.VerificationData{
		Fid: 1, Address: "0xDEAD", Protocol: 0, Timestamp: 1717243100,
	})); err != nil {
		t.Fatalf("verification add failed: %v", err)
	}

	links := env.actions.activeOfType(entities.ActionTypeLinkAddress)
	if len(links) != 1 {
		t.Fatal("link action not recorded")
	}
	if links[0].TargetContentID != "ethereum://0xdead" {
		t.Errorf("address uri = %s", links[0].TargetContentID)
	}

	if err := env.uc.ProcessRawEvent(ctx, rawEvent("evt-unlink", dto.EventTypeVerificationRemove, dto.VerificationData{
		Fid: 1, Address: "0xDEAD", Protocol: 0, Timestamp: 1717243200,
	})); err != nil {
		t.Fatalf("verification remove failed: %v", err)
	}
	if len(env.actions.activeOfType(entities.ActionTypeLinkAddress)) != 0 {
		t.Error("link still active after unlink")
	}
}

func TestProcessRawEvent_Malformed(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	tests := []struct {
		name  string
		event *dto.RawEvent
		want  error
	}{
		{
			name:  "missing source id",
			event: &dto.RawEvent{Source: dto.EventSource{Type: dto.EventTypeCastAdd}},
			want:  domainerrors.ErrMalformedEvent,
		},
		{
			name:  "unknown type",
			event: rawEvent("evt-x", "CAST_BOOST", dto.CastData{Fid: 1, Hash: "0x1"}),
			want:  domainerrors.ErrUnknownEventType,
		},
		{
			name:  "cast without hash",
			event: rawEvent("evt-y", dto.EventTypeCastAdd, dto.CastData{Fid: 1}),
			want:  domainerrors.ErrMalformedEvent,
		},
		{
			name:  "reaction with unknown code",
			event: rawEvent("evt-z", dto.EventTypeReactionAdd, dto.ReactionData{Fid: 1, ReactionType: 9, TargetFid: 2, TargetHash: "0x1"}),
			want:  domainerrors.ErrMalformedEvent,
		},
		{
			name:  "verification with unknown protocol",
			event: rawEvent("evt-w", dto.EventTypeVerificationAdd, dto.VerificationData{Fid: 1, Address: "0x1", Protocol: 9}),
			want:  domainerrors.ErrMalformedEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.uc.ProcessRawEvent(ctx, tt.event)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if len(env.producer.sent) != 0 {
		t.Error("malformed events must not publish normalized events")
	}
}

func TestRecountEngagement(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if err := env.uc.ProcessRawEvent(ctx, rawEvent("evt-cast", dto.EventTypeCastAdd, dto.CastData{
		Fid: 1, Hash: "0xt", Timestamp: 1717243100,
	})); err != nil {
		t.Fatalf("cast add failed: %v", err)
	}
	if err := env.uc.ProcessRawEvent(ctx, rawEvent("evt-like", dto.EventTypeReactionAdd, dto.ReactionData{
		Fid: 2, ReactionType: dto.ReactionTypeLike, TargetFid: 1, TargetHash: "0xt", Timestamp: 1717243200,
	})); err != nil {
		t.Fatalf("like failed: %v", err)
	}

	targetID := ContentURI(1, "0xt")

	// Inject drift, then repair it.
	if err := env.contents.SetCounters(ctx, targetID, 99, 5, 5, 5); err != nil {
		t.Fatalf("SetCounters failed: %v", err)
	}
	if err := env.uc.RecountEngagement(ctx, targetID); err != nil {
		t.Fatalf("RecountEngagement failed: %v", err)
	}

	content, _ := env.contents.GetByID(ctx, targetID)
	if content.Likes != 1 || content.Reposts != 0 || content.Replies != 0 || content.EmbedCount != 0 {
		t.Errorf("recount did not repair drift: %+v", content)
	}

	if err := env.uc.RecountEngagement(ctx, "farcaster://cast/9/0xnope"); !errors.Is(err, domainerrors.ErrContentNotFound) {
		t.Errorf("expected ErrContentNotFound for unknown content, got %v", err)
	}
}
