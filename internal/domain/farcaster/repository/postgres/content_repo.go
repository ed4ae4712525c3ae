package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/deps"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/entities"
	domainerrors "github.com/nooksocial/nook-engine/internal/domain/farcaster/errors"
	"github.com/nooksocial/nook-engine/pkg/mapfn"
)

// counterColumns whitelists engagement counter column names; counter
// arguments never reach SQL without passing through this map.
var counterColumns = map[string]string{
	entities.CounterLikes:   entities.CounterLikes,
	entities.CounterReposts: entities.CounterReposts,
	entities.CounterReplies: entities.CounterReplies,
	entities.CounterEmbeds:  entities.CounterEmbeds,
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *gorm.DB) deps.ContentRepository {
	return &contentRepository{
		db: db,
	}
}

// Upsert inserts content and its topic rows idempotently keyed by content id.
// Redelivery of the same event inserts nothing and reports inserted=false.
func (r *contentRepository) Upsert(ctx context.Context, content *entities.Content, topics []entities.Topic) (bool, error) {
	inserted := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "content_id"}},
			DoNothing: true,
		}).Create(content)
		if result.Error != nil {
			return result.Error
		}
		inserted = result.RowsAffected > 0

		if len(topics) == 0 {
			return nil
		}

		rows := mapfn.ConvertSlice(topics, func(t entities.Topic) entities.ContentTopic {
			return entities.ContentTopic{
				ContentID: content.ContentID,
				Type:      t.Type,
				Value:     t.Value,
			}
		})

		// Topic rows are additive; backfill may re-generate an identical set.
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})

	if err != nil {
		return false, domainerrors.ErrDatabaseOperation
	}

	return inserted, nil
}

// GetByID retrieves content by id, excluding soft-deleted rows
func (r *contentRepository) GetByID(ctx context.Context, contentID string) (*entities.Content, error) {
	var content entities.Content
	result := r.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		First(&content)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrContentNotFound
		}
		return nil, domainerrors.ErrDatabaseOperation
	}

	return &content, nil
}

// GetByIDs retrieves contents for a set of ids, preserving request order
func (r *contentRepository) GetByIDs(ctx context.Context, contentIDs []string) ([]entities.Content, error) {
	if len(contentIDs) == 0 {
		return nil, nil
	}

	var rows []entities.Content
	result := r.db.WithContext(ctx).
		Where("content_id IN ?", contentIDs).
		Find(&rows)

	if result.Error != nil {
		return nil, domainerrors.ErrDatabaseOperation
	}

	byID := make(map[string]entities.Content, len(rows))
	for _, row := range rows {
		byID[row.ContentID] = row
	}

	ordered := make([]entities.Content, 0, len(rows))
	for _, id := range contentIDs {
		if row, ok := byID[id]; ok {
			ordered = append(ordered, row)
		}
	}

	return ordered, nil
}

// SoftDelete marks content removed. The row is never physically deleted.
func (r *contentRepository) SoftDelete(ctx context.Context, contentID string) error {
	result := r.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Delete(&entities.Content{})

	if result.Error != nil {
		return domainerrors.ErrDatabaseOperation
	}

	return nil
}

// IncrementCounter atomically bumps one engagement counter
func (r *contentRepository) IncrementCounter(ctx context.Context, contentID, counter string) error {
	column, ok := counterColumns[counter]
	if !ok {
		return domainerrors.ErrDatabaseOperation
	}

	result := r.db.WithContext(ctx).
		Model(&entities.Content{}).
		Where("content_id = ?", contentID).
		UpdateColumn(column, gorm.Expr(column+" + 1"))

	if result.Error != nil {
		return domainerrors.ErrDatabaseOperation
	}

	return nil
}

// DecrementCounter atomically lowers one engagement counter. The guard in
// the WHERE clause clamps at zero; a clamped decrement touches no row.
func (r *contentRepository) DecrementCounter(ctx context.Context, contentID, counter string) (bool, error) {
	column, ok := counterColumns[counter]
	if !ok {
		return false, domainerrors.ErrDatabaseOperation
	}

	result := r.db.WithContext(ctx).
		Model(&entities.Content{}).
		Where("content_id = ? AND "+column+" > 0", contentID).
		UpdateColumn(column, gorm.Expr(column+" - 1"))

	if result.Error != nil {
		return false, domainerrors.ErrDatabaseOperation
	}

	return result.RowsAffected == 0, nil
}

// SetCounters overwrites all engagement counters from a recount
func (r *contentRepository) SetCounters(ctx context.Context, contentID string, likes, reposts, replies, embeds int64) error {
	result := r.db.WithContext(ctx).
		Model(&entities.Content{}).
		Where("content_id = ?", contentID).
		UpdateColumns(map[string]interface{}{
			entities.CounterLikes:   likes,
			entities.CounterReposts: reposts,
			entities.CounterReplies: replies,
			entities.CounterEmbeds:  embeds,
		})

	if result.Error != nil {
		return domainerrors.ErrDatabaseOperation
	}

	return nil
}

// CountReplies counts active child contents of the given content
func (r *contentRepository) CountReplies(ctx context.Context, contentID string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&entities.Content{}).
		Where("parent_content_id = ?", contentID).
		Count(&count)

	if result.Error != nil {
		return 0, domainerrors.ErrDatabaseOperation
	}

	return count, nil
}

// CountEmbedding counts active contents that embed the given URI
func (r *contentRepository) CountEmbedding(ctx context.Context, uri string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&entities.ContentTopic{}).
		Joins("JOIN contents ON contents.content_id = content_topics.content_id AND contents.deleted_at IS NULL").
		Where("content_topics.type = ? AND content_topics.value = ?", entities.TopicSourceEmbed, uri).
		Count(&count)

	if result.Error != nil {
		return 0, domainerrors.ErrDatabaseOperation
	}

	return count, nil
}
