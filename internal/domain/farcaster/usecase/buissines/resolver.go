package buissines

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/entities"
	domainerrors "github.com/nooksocial/nook-engine/internal/domain/farcaster/errors"
	"github.com/nooksocial/nook-engine/pkg/mapfn"
)

// resolveEntity maps a single fid to its stable entity id, creating the
// entity on first sight.
func (u *UseCase) resolveEntity(ctx context.Context, fid uint64) (string, error) {
	resolved, err := u.resolveEntities(ctx, []uint64{fid})
	if err != nil {
		return "", err
	}

	entityID, ok := resolved[fid]
	if !ok {
		return "", domainerrors.ErrEntityNotFound
	}
	return entityID, nil
}

// resolveEntities maps fids to stable entity ids: cache first, then the
// store, creating entities for fids never seen before. Two events racing on
// the same unseen fid converge on one entity via the unique fid index.
func (u *UseCase) resolveEntities(ctx context.Context, fids []uint64) (map[uint64]string, error) {
	fids = mapfn.FilterSlice(mapfn.UniqueSlice(fids), func(fid uint64) bool { return fid != 0 })
	resolved := make(map[uint64]string, len(fids))

	var missing []uint64
	for _, fid := range fids {
		if entityID, ok := u.cache.GetEntityID(ctx, fid); ok {
			resolved[fid] = entityID
			continue
		}
		missing = append(missing, fid)
	}

	if len(missing) == 0 {
		return resolved, nil
	}

	stored, err := u.entityRepo.GetByFids(ctx, missing)
	if err != nil {
		return nil, err
	}

	var bare []entities.Entity
	for _, entity := range stored {
		resolved[entity.Fid] = entity.ID
		u.cache.Set(ctx, entity.Fid, entity.ID)
		if entity.Username == "" {
			bare = append(bare, entity)
		}
	}

	toCreate := mapfn.FilterSlice(missing, func(fid uint64) bool {
		_, ok := resolved[fid]
		return !ok
	})

	profiles := u.fetchProfiles(ctx, append(toCreate, mapfn.ConvertSlice(bare, func(e entities.Entity) uint64 { return e.Fid })...))

	// Backfill profile projections for entities created before their
	// profile was readable.
	for _, entity := range bare {
		profile, ok := profiles[entity.Fid]
		if !ok {
			continue
		}
		if err := u.entityRepo.UpdateProfile(ctx, entity.ID, profile); err != nil {
			u.logger.Warn().Err(err).
				Uint64("fid", entity.Fid).
				Str("entity_id", entity.ID).
				Msg("Failed to backfill entity profile")
		}
	}

	for _, fid := range toCreate {
		entityID, err := u.createEntity(ctx, fid, profiles[fid])
		if err != nil {
			return nil, err
		}
		resolved[fid] = entityID
	}

	return resolved, nil
}

// createEntity inserts a new entity for a fid. Losing the insert race to a
// concurrent event is recovered by re-reading the winner's row.
func (u *UseCase) createEntity(ctx context.Context, fid uint64, profile dto.UserData) (string, error) {
	entity := &entities.Entity{
		ID:          uuid.NewString(),
		Fid:         fid,
		Username:    profile.Username,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
		Bio:         profile.Bio,
	}

	if err := u.entityRepo.Create(ctx, entity); err != nil {
		if errors.Is(err, domainerrors.ErrEntityAlreadyExists) {
			existing, getErr := u.entityRepo.GetByFid(ctx, fid)
			if getErr != nil {
				return "", getErr
			}
			u.cache.Set(ctx, fid, existing.ID)
			return existing.ID, nil
		}
		return "", err
	}

	u.logger.Debug().
		Uint64("fid", fid).
		Str("entity_id", entity.ID).
		Msg("Created entity")

	u.cache.Set(ctx, fid, entity.ID)
	return entity.ID, nil
}

// fetchProfiles loads profile projections from the hub, best effort.
func (u *UseCase) fetchProfiles(ctx context.Context, fids []uint64) map[uint64]dto.UserData {
	fids = mapfn.UniqueSlice(fids)
	if len(fids) == 0 {
		return nil
	}

	userDatas, err := u.hubClient.GetUserDatas(ctx, fids)
	if err != nil || len(userDatas) == 0 {
		return nil
	}

	profiles := make(map[uint64]dto.UserData, len(userDatas))
	for _, userData := range userDatas {
		profiles[userData.Fid] = userData
	}
	return profiles
}
