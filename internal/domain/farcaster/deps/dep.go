package deps

import (
	"context"
	"time"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
	"github.com/nooksocial/nook-engine/internal/domain/farcaster/entities"
)

// EntityRepository defines the interface for entity data access
type EntityRepository interface {
	// Create creates a new entity; duplicate fid maps to ErrEntityAlreadyExists
	Create(ctx context.Context, entity *entities.Entity) error

	// GetByFid retrieves an entity by protocol user id
	GetByFid(ctx context.Context, fid uint64) (*entities.Entity, error)

	// GetByFids retrieves entities for a set of protocol user ids
	GetByFids(ctx context.Context, fids []uint64) ([]entities.Entity, error)

	// GetByID retrieves an entity by internal id
	GetByID(ctx context.Context, id string) (*entities.Entity, error)

	// UpdateProfile overwrites the cached profile projection
	UpdateProfile(ctx context.Context, id string, profile dto.UserData) error
}

// ContentRepository defines the interface for content data access
type ContentRepository interface {
	// Upsert inserts content and its topic rows idempotently.
	// Returns true when the content row was actually inserted.
	Upsert(ctx context.Context, content *entities.Content, topics []entities.Topic) (bool, error)

	// GetByID retrieves content by id, excluding soft-deleted rows
	GetByID(ctx context.Context, contentID string) (*entities.Content, error)

	// GetByIDs retrieves contents for a set of ids, order preserving
	GetByIDs(ctx context.Context, contentIDs []string) ([]entities.Content, error)

	// SoftDelete marks content removed without touching the row otherwise
	SoftDelete(ctx context.Context, contentID string) error

	// IncrementCounter atomically bumps one engagement counter
	IncrementCounter(ctx context.Context, contentID, counter string) error

	// DecrementCounter atomically lowers one engagement counter, clamped at
	// zero. Returns true when the decrement was clamped (no row updated).
	DecrementCounter(ctx context.Context, contentID, counter string) (bool, error)

	// SetCounters overwrites all engagement counters from a recount
	SetCounters(ctx context.Context, contentID string, likes, reposts, replies, embeds int64) error

	// CountReplies counts active child contents of the given content
	CountReplies(ctx context.Context, contentID string) (int64, error)

	// CountEmbedding counts active contents embedding the given URI
	CountEmbedding(ctx context.Context, uri string) (int64, error)
}

// ActionRepository defines the interface for action data access
type ActionRepository interface {
	// Upsert inserts an action and its topic rows idempotently keyed by
	// event id. Returns true when the action row was actually inserted.
	Upsert(ctx context.Context, action *entities.Action, topics []entities.Topic) (bool, error)

	// SoftDeleteMatching soft-deletes the most recent active action with the
	// given type, acting entity, and target content. Returns true when a
	// matching action was found.
	SoftDeleteMatching(ctx context.Context, actionType, entityID, targetContentID string) (bool, error)

	// SoftDeleteMatchingEntity is SoftDeleteMatching for entity-targeted
	// actions (follows).
	SoftDeleteMatchingEntity(ctx context.Context, actionType, entityID, targetEntityID string) (bool, error)

	// CountActive counts active actions of a type referencing the target content
	CountActive(ctx context.Context, actionType, targetContentID string) (int64, error)
}

// FeedRepository answers resolved feed queries against the topic index
type FeedRepository interface {
	// Query returns up to PageSize items ordered by timestamp desc, content id desc
	Query(ctx context.Context, query *dto.FeedQuery) ([]dto.FeedItem, error)
}

// IdentityCache is the injected cache abstraction for the resolver and the
// power badge holder set. Implementations must be safe for concurrent use.
type IdentityCache interface {
	// GetEntityID returns the cached entity id for a fid
	GetEntityID(ctx context.Context, fid uint64) (string, bool)

	// GetFid returns the cached fid for an entity id
	GetFid(ctx context.Context, entityID string) (uint64, bool)

	// Set caches the fid<->entity id pair in both directions
	Set(ctx context.Context, fid uint64, entityID string)

	// GetPowerBadgeFids returns the cached power badge holder set
	GetPowerBadgeFids(ctx context.Context) ([]uint64, bool)

	// SetPowerBadgeFids caches the power badge holder set with a TTL
	SetPowerBadgeFids(ctx context.Context, fids []uint64, ttl time.Duration)
}

// HubClient fetches content and profiles from the upstream farcaster reader
type HubClient interface {
	// GetCast fetches a cast payload by author fid and message hash
	GetCast(ctx context.Context, fid uint64, hash string) (*dto.CastData, error)

	// GetUserDatas fetches profile projections, best effort
	GetUserDatas(ctx context.Context, fids []uint64) ([]dto.UserData, error)
}

// GraphClient talks to the social graph service
type GraphClient interface {
	// GetFollowing returns the direct following set of a fid
	GetFollowing(ctx context.Context, fid uint64) ([]uint64, error)

	// GetMutes returns the caller's current mute lists
	GetMutes(ctx context.Context, fid uint64) (*dto.MuteContext, error)

	// GetPowerBadgeUsers returns the current power badge holder set
	GetPowerBadgeUsers(ctx context.Context) ([]uint64, error)
}

// EventProducer defines interface for publishing normalized events to Kafka
type EventProducer interface {
	// SendNormalized publishes a normalized event record downstream
	SendNormalized(ctx context.Context, event *dto.NormalizedEvent) error

	// Close closes the producer
	Close() error
}
