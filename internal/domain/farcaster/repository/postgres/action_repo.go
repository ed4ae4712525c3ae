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

type actionRepository struct {
	db *gorm.DB
}

// NewActionRepository creates a new action repository
func NewActionRepository(db *gorm.DB) deps.ActionRepository {
	return &actionRepository{
		db: db,
	}
}

// Upsert inserts an action and its topic rows idempotently keyed by event id
func (r *actionRepository) Upsert(ctx context.Context, action *entities.Action, topics []entities.Topic) (bool, error) {
	inserted := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).Create(action)
		if result.Error != nil {
			return result.Error
		}
		inserted = result.RowsAffected > 0

		if len(topics) == 0 {
			return nil
		}

		rows := mapfn.ConvertSlice(topics, func(t entities.Topic) entities.ActionTopic {
			return entities.ActionTopic{
				EventID: action.EventID,
				Type:    t.Type,
				Value:   t.Value,
			}
		})

		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})

	if err != nil {
		return false, domainerrors.ErrDatabaseOperation
	}

	return inserted, nil
}

// SoftDeleteMatching soft-deletes the most recent active action matching the
// source identity of a remove event. Returns false when no prior add exists.
func (r *actionRepository) SoftDeleteMatching(ctx context.Context, actionType, entityID, targetContentID string) (bool, error) {
	var action entities.Action
	result := r.db.WithContext(ctx).
		Where("type = ? AND entity_id = ? AND target_content_id = ?", actionType, entityID, targetContentID).
		Order("timestamp DESC").
		First(&action)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, domainerrors.ErrDatabaseOperation
	}

	if err := r.db.WithContext(ctx).Delete(&action).Error; err != nil {
		return false, domainerrors.ErrDatabaseOperation
	}

	return true, nil
}

// SoftDeleteMatchingEntity soft-deletes the most recent active
// entity-targeted action (follow) matching the remove's source identity.
func (r *actionRepository) SoftDeleteMatchingEntity(ctx context.Context, actionType, entityID, targetEntityID string) (bool, error) {
	var action entities.Action
	result := r.db.WithContext(ctx).
		Where("type = ? AND entity_id = ? AND target_entity_id = ?", actionType, entityID, targetEntityID).
		Order("timestamp DESC").
		First(&action)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, domainerrors.ErrDatabaseOperation
	}

	if err := r.db.WithContext(ctx).Delete(&action).Error; err != nil {
		return false, domainerrors.ErrDatabaseOperation
	}

	return true, nil
}

// CountActive counts active actions of a type referencing the target content
func (r *actionRepository) CountActive(ctx context.Context, actionType, targetContentID string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&entities.Action{}).
		Where("type = ? AND target_content_id = ?", actionType, targetContentID).
		Count(&count)

	if result.Error != nil {
		return 0, domainerrors.ErrDatabaseOperation
	}

	return count, nil
}
