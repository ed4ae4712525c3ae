package buissines

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/entities"
	domainerrors "github.com/nooksocial/nook-engine/internal/domain/farcaster/errors"
)

const contentURIPrefix = "farcaster://cast/"

// reactionKind maps a protocol reaction code onto the add/remove action pair
// and the counter it drives.
type reactionKind struct {
	add     string
	remove  string
	counter string
}

var reactionKinds = map[int]reactionKind{
	dto.ReactionTypeLike: {
		add:     entities.ActionTypeLike,
		remove:  entities.ActionTypeUnlike,
		counter: entities.CounterLikes,
	},
	dto.ReactionTypeRecast: {
		add:     entities.ActionTypeRepost,
		remove:  entities.ActionTypeUnrepost,
		counter: entities.CounterReposts,
	},
}

var verificationProtocols = map[int]string{
	0: entities.ProtocolEthereum,
	1: entities.ProtocolSolana,
}

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

var videoExtensions = []string{".mp4", ".mov", ".m3u8", ".webm"}

// ContentURI builds the deterministic content id for a cast.
func ContentURI(fid uint64, hash string) string {
	return fmt.Sprintf("%s%d/%s", contentURIPrefix, fid, hash)
}

// AddressURI builds the deterministic reference for a verified blockchain address.
func AddressURI(protocol, address string) string {
	return fmt.Sprintf("%s://%s", protocol, strings.ToLower(address))
}

// isContentURI reports whether an embed value references a cast managed by
// this engine rather than an external resource.
func isContentURI(value string) bool {
	return strings.HasPrefix(value, contentURIPrefix)
}

// buildCastContent maps a cast payload onto a content record. All referenced
// fids must already be resolved in ids; parent and root are nil for top-level
// posts. Top-level posts are their own thread root.
func buildCastContent(cast *dto.CastData, ids map[uint64]string, parent, root *entities.Content, fallback time.Time) (*entities.Content, error) {
	authorID, ok := ids[cast.Fid]
	if !ok {
		return nil, domainerrors.ErrEntityNotFound
	}

	mentions := make([]entities.Mention, 0, len(cast.Mentions))
	for i, fid := range cast.Mentions {
		entityID, ok := ids[fid]
		if !ok {
			return nil, domainerrors.ErrEntityNotFound
		}
		position := 0
		if i < len(cast.MentionsPositions) {
			position = cast.MentionsPositions[i]
		}
		mentions = append(mentions, entities.Mention{EntityID: entityID, Position: position})
	}

	content := &entities.Content{
		ContentID:      ContentURI(cast.Fid, cast.Hash),
		Timestamp:      eventTime(cast.Timestamp, fallback),
		AuthorEntityID: authorID,
		Text:           cast.Text,
		Mentions:       encodeMentions(mentions),
		Embeds:         encodeEmbeds(cast.Embeds),
		ChannelURL:     cast.ParentURL,
		ContentType:    deriveContentType(cast.Embeds),
	}

	if parent != nil {
		content.ParentContentID = parent.ContentID
		content.ParentEntityID = parent.AuthorEntityID
		content.RootContentID = parent.ContentID
		content.RootEntityID = parent.AuthorEntityID
		if content.ChannelURL == "" {
			content.ChannelURL = parent.ChannelURL
		}
	}
	if root != nil {
		content.RootContentID = root.ContentID
		content.RootEntityID = root.AuthorEntityID
		if content.ChannelURL == "" {
			content.ChannelURL = root.ChannelURL
		}
	}
	if content.RootContentID == "" {
		content.RootContentID = content.ContentID
		content.RootEntityID = content.AuthorEntityID
	}

	return content, nil
}

// deriveContentType tags content by its richest embed.
func deriveContentType(embeds []string) string {
	contentType := entities.ContentTypeText

	for _, embed := range embeds {
		lower := strings.ToLower(embed)
		for _, ext := range videoExtensions {
			if strings.HasSuffix(lower, ext) {
				return entities.ContentTypeVideo
			}
		}
		for _, ext := range imageExtensions {
			if strings.HasSuffix(lower, ext) {
				contentType = entities.ContentTypeImage
			}
		}
		if contentType == entities.ContentTypeText && !isContentURI(embed) {
			contentType = entities.ContentTypeURL
		}
	}

	return contentType
}

// eventTime prefers the payload timestamp over the envelope timestamp.
func eventTime(payloadTs int64, fallback time.Time) time.Time {
	if payloadTs > 0 {
		return time.Unix(payloadTs, 0).UTC()
	}
	return fallback.UTC()
}

func encodeMentions(mentions []entities.Mention) string {
	if len(mentions) == 0 {
		return "[]"
	}
	payload, err := json.Marshal(mentions)
	if err != nil {
		return "[]"
	}
	return string(payload)
}

func encodeEmbeds(embeds []string) string {
	if len(embeds) == 0 {
		return "[]"
	}
	payload, err := json.Marshal(embeds)
	if err != nil {
		return "[]"
	}
	return string(payload)
}

func parseMentions(raw string) []entities.Mention {
	if raw == "" {
		return nil
	}
	var mentions []entities.Mention
	if err := json.Unmarshal([]byte(raw), &mentions); err != nil {
		return nil
	}
	return mentions
}

func parseEmbeds(raw string) []string {
	if raw == "" {
		return nil
	}
	var embeds []string
	if err := json.Unmarshal([]byte(raw), &embeds); err != nil {
		return nil
	}
	return embeds
}

// contentToItem maps a stored content row onto its outward representation.
func contentToItem(content *entities.Content) dto.ContentItem {
	mentions := parseMentions(content.Mentions)
	items := make([]dto.MentionItem, 0, len(mentions))
	for _, mention := range mentions {
		items = append(items, dto.MentionItem{EntityID: mention.EntityID, Position: mention.Position})
	}

	return dto.ContentItem{
		ContentID:       content.ContentID,
		Timestamp:       content.Timestamp,
		AuthorEntityID:  content.AuthorEntityID,
		Text:            content.Text,
		Mentions:        items,
		Embeds:          parseEmbeds(content.Embeds),
		ParentContentID: content.ParentContentID,
		RootContentID:   content.RootContentID,
		ChannelURL:      content.ChannelURL,
		ContentType:     content.ContentType,
		Likes:           content.Likes,
		Reposts:         content.Reposts,
		Replies:         content.Replies,
		EmbedCount:      content.EmbedCount,
	}
}
