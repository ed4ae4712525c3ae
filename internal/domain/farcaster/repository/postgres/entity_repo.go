package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/deps"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/entities"
	domainerrors "github.com/nooksocial/nook-engine/internal/domain/farcaster/errors"
)

type entityRepository struct {
	db *gorm.DB
}

// NewEntityRepository creates a new entity repository
func NewEntityRepository(db *gorm.DB) deps.EntityRepository {
	return &entityRepository{
		db: db,
	}
}

// Create creates a new entity. A duplicate fid surfaces as
// ErrEntityAlreadyExists so the resolver can re-read instead of failing.
func (r *entityRepository) Create(ctx context.Context, entity *entities.Entity) error {
	result := r.db.WithContext(ctx).Create(entity)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domainerrors.ErrEntityAlreadyExists
		}
		return domainerrors.ErrDatabaseOperation
	}
	return nil
}

// GetByFid retrieves an entity by protocol user id
func (r *entityRepository) GetByFid(ctx context.Context, fid uint64) (*entities.Entity, error) {
	var entity entities.Entity
	result := r.db.WithContext(ctx).
		Where("fid = ?", fid).
		First(&entity)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrEntityNotFound
		}
		return nil, domainerrors.ErrDatabaseOperation
	}

	return &entity, nil
}

// GetByFids retrieves entities for a set of protocol user ids
func (r *entityRepository) GetByFids(ctx context.Context, fids []uint64) ([]entities.Entity, error) {
	if len(fids) == 0 {
		return nil, nil
	}

	var rows []entities.Entity
	result := r.db.WithContext(ctx).
		Where("fid IN ?", fids).
		Find(&rows)

	if result.Error != nil {
		return nil, domainerrors.ErrDatabaseOperation
	}

	return rows, nil
}

// GetByID retrieves an entity by internal id
func (r *entityRepository) GetByID(ctx context.Context, id string) (*entities.Entity, error) {
	var entity entities.Entity
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&entity)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrEntityNotFound
		}
		return nil, domainerrors.ErrDatabaseOperation
	}

	return &entity, nil
}

// UpdateProfile overwrites the cached profile projection
func (r *entityRepository) UpdateProfile(ctx context.Context, id string, profile dto.UserData) error {
	result := r.db.WithContext(ctx).
		Model(&entities.Entity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"username":     profile.Username,
			"display_name": profile.DisplayName,
			"avatar_url":   profile.AvatarURL,
			"bio":          profile.Bio,
		})

	if result.Error != nil {
		return domainerrors.ErrDatabaseOperation
	}

	return nil
}
