package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/deps"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/entities"
	domainerrors "github.com/nooksocial/nook-engine/internal/domain/farcaster/errors"
)

// substring predicates run on lowercased values; escaping keeps LIKE
// metacharacters in user input literal.
const likeEscape = " ESCAPE '\\'"

type feedRepository struct {
	db *gorm.DB
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(db *gorm.DB) deps.FeedRepository {
	return &feedRepository{
		db: db,
	}
}

// Query translates the resolved filter into AND-composed parameterized
// predicates over the contents table and the topic inverted index, ordered
// by timestamp desc with content id as tie-breaker.
func (r *feedRepository) Query(ctx context.Context, query *dto.FeedQuery) ([]dto.FeedItem, error) {
	db := r.db.WithContext(ctx).
		Model(&entities.Content{}).
		Select("content_id", "timestamp")

	if query.ChannelURLs != nil {
		db = db.Where("content_id IN (?)", r.topicSubquery(entities.TopicChannel, query.ChannelURLs))
	}

	if query.AuthorFids != nil {
		db = db.Where("author_entity_id IN (?)", r.entitySubquery(query.AuthorFids))
	}

	if len(query.EmbedSubstrings) > 0 {
		db = db.Where("content_id IN (?)", r.embedSubquery(query.EmbedSubstrings))
	}

	if len(query.ContentTypes) > 0 {
		db = db.Where("content_type IN ?", query.ContentTypes)
	}

	switch query.Replies {
	case dto.ReplyModeInclude:
		// no predicate
	case dto.ReplyModeOnly:
		db = db.Where("parent_content_id <> ''")
	default:
		db = db.Where("parent_content_id = ''")
	}

	// Mute predicates always come last and always AND NOT.
	if len(query.MutedFids) > 0 {
		db = db.Where("author_entity_id NOT IN (?)", r.entitySubquery(query.MutedFids))
	}
	if len(query.MutedChannelURLs) > 0 {
		db = db.Where("content_id NOT IN (?)", r.topicSubquery(entities.TopicChannel, query.MutedChannelURLs))
	}
	for _, word := range query.MutedWords {
		db = db.Where("LOWER(text) NOT LIKE ?"+likeEscape, containsPattern(word))
	}

	if query.Cursor != nil {
		db = db.Where(
			"timestamp < ? OR (timestamp = ? AND content_id < ?)",
			query.Cursor.Timestamp, query.Cursor.Timestamp, query.Cursor.ContentID,
		)
	}

	var items []dto.FeedItem
	result := db.
		Order("timestamp DESC").
		Order("content_id DESC").
		Limit(query.PageSize).
		Scan(&items)

	if result.Error != nil {
		return nil, domainerrors.ErrDatabaseOperation
	}

	return items, nil
}

// topicSubquery selects content ids carrying any of the given topic values
func (r *feedRepository) topicSubquery(topicType string, values []string) *gorm.DB {
	return r.db.
		Model(&entities.ContentTopic{}).
		Select("content_id").
		Where("type = ? AND value IN ?", topicType, values)
}

// entitySubquery selects entity ids for a set of fids
func (r *feedRepository) entitySubquery(fids []uint64) *gorm.DB {
	return r.db.
		Model(&entities.Entity{}).
		Select("id").
		Where("fid IN ?", fids)
}

// embedSubquery selects content ids whose embed topic values contain any of
// the given substrings. The substring group is ORed internally and ANDed
// with the rest of the query by the caller.
func (r *feedRepository) embedSubquery(substrings []string) *gorm.DB {
	group := r.db.Where("LOWER(value) LIKE ?"+likeEscape, containsPattern(substrings[0]))
	for _, s := range substrings[1:] {
		group = group.Or("LOWER(value) LIKE ?"+likeEscape, containsPattern(s))
	}

	return r.db.
		Model(&entities.ContentTopic{}).
		Select("content_id").
		Where("type IN ?", []string{entities.TopicSourceEmbed, entities.TopicTargetEmbed}).
		Where(group)
}

// containsPattern builds a case-insensitive LIKE pattern for a raw substring
func containsPattern(s string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(s))
	return "%" + escaped + "%"
}
