package entities

import (
	"time"

	"gorm.io/gorm"
)

// Topic types denormalized onto content and action rows. The
// (type, value) pairs are the only index feed queries ever touch.
const (
	TopicSourceEntity      = "SOURCE_ENTITY"
	TopicSourceContent     = "SOURCE_CONTENT"
	TopicTargetEntity      = "TARGET_ENTITY"
	TopicTargetContent     = "TARGET_CONTENT"
	TopicRootTargetEntity  = "ROOT_TARGET_ENTITY"
	TopicRootTargetContent = "ROOT_TARGET_CONTENT"
	TopicSourceTag         = "SOURCE_TAG"
	TopicTargetTag         = "TARGET_TAG"
	TopicSourceEmbed       = "SOURCE_EMBED"
	TopicTargetEmbed       = "TARGET_EMBED"
	TopicChannel           = "CHANNEL"
)

// Action types
const (
	ActionTypePost          = "POST"
	ActionTypeReply         = "REPLY"
	ActionTypeLike          = "LIKE"
	ActionTypeUnlike        = "UNLIKE"
	ActionTypeRepost        = "REPOST"
	ActionTypeUnrepost      = "UNREPOST"
	ActionTypeFollow        = "FOLLOW"
	ActionTypeUnfollow      = "UNFOLLOW"
	ActionTypeLinkAddress   = "LINK_BLOCKCHAIN_ADDRESS"
	ActionTypeUnlinkAddress = "UNLINK_BLOCKCHAIN_ADDRESS"
)

// Engagement counter column names
const (
	CounterLikes   = "likes"
	CounterReposts = "reposts"
	CounterReplies = "replies"
	CounterEmbeds  = "embed_count"
)

// Verification protocols, mapped from the raw numeric codes
const (
	ProtocolEthereum = "ethereum"
	ProtocolSolana   = "solana"
)

// Content type tags derived from the cast payload
const (
	ContentTypeText  = "text"
	ContentTypeImage = "image"
	ContentTypeVideo = "video"
	ContentTypeURL   = "url"
)

// Entity maps a protocol user (fid) to a stable internal id.
// Profile fields are a mutable best-effort projection, never authoritative.
type Entity struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Fid         uint64    `gorm:"not null;uniqueIndex:idx_entities_fid"`
	Username    string    `gorm:"size:256"`
	DisplayName string    `gorm:"size:256"`
	AvatarURL   string    `gorm:"type:text"`
	Bio         string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for Entity
func (Entity) TableName() string {
	return "entities"
}

// Content represents a cast (post or reply). Immutable once created except
// engagement counters; removals are soft deletes.
type Content struct {
	ContentID       string         `gorm:"primaryKey;size:512"`
	Timestamp       time.Time      `gorm:"not null;index:idx_contents_timestamp,sort:desc"`
	AuthorEntityID  string         `gorm:"not null;size:36;index:idx_contents_author"`
	Text            string         `gorm:"type:text"`
	Mentions        string         `gorm:"type:text"` // JSON array of Mention stored as string
	Embeds          string         `gorm:"type:text"` // JSON array of embed URIs stored as string
	ParentContentID string         `gorm:"size:512;index:idx_contents_parent"`
	ParentEntityID  string         `gorm:"size:36"`
	RootContentID   string         `gorm:"size:512;index:idx_contents_root"`
	RootEntityID    string         `gorm:"size:36"`
	ChannelURL      string         `gorm:"size:512"`
	ContentType     string         `gorm:"size:32"`
	Likes           int64          `gorm:"not null;default:0"`
	Reposts         int64          `gorm:"not null;default:0"`
	Replies         int64          `gorm:"not null;default:0"`
	EmbedCount      int64          `gorm:"not null;default:0"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for Content
func (Content) TableName() string {
	return "contents"
}

// IsReply reports whether the content has a parent edge.
func (c *Content) IsReply() bool {
	return c.ParentContentID != ""
}

// Mention is one mention reference inside a cast, serialized into
// Content.Mentions as JSON.
type Mention struct {
	EntityID string `json:"entity_id"`
	Position int    `json:"position"`
}

// Action represents one state-changing event applied against content or an
// entity. EventID is the idempotency key; a remove soft-deletes the matching
// prior add instead of mutating it.
type Action struct {
	ID              uint           `gorm:"primaryKey"`
	EventID         string         `gorm:"not null;uniqueIndex:idx_actions_event;size:256"`
	Type            string         `gorm:"not null;size:64;index:idx_actions_match,priority:1"`
	Timestamp       time.Time      `gorm:"not null"`
	EntityID        string         `gorm:"not null;size:36;index:idx_actions_match,priority:2"`
	TargetEntityID  string         `gorm:"size:36"`
	SourceContentID string         `gorm:"size:512"`
	TargetContentID string         `gorm:"size:512;index:idx_actions_match,priority:3"`
	Data            string         `gorm:"type:text"` // JSON extra payload (addresses etc.) stored as string
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for Action
func (Action) TableName() string {
	return "actions"
}

// ContentTopic is one inverted-index row for a content record.
type ContentTopic struct {
	ID        uint      `gorm:"primaryKey"`
	ContentID string    `gorm:"not null;size:512;uniqueIndex:idx_content_topics_row,priority:1"`
	Type      string    `gorm:"not null;size:32;uniqueIndex:idx_content_topics_row,priority:2;index:idx_content_topics_lookup,priority:1"`
	Value     string    `gorm:"not null;size:512;uniqueIndex:idx_content_topics_row,priority:3;index:idx_content_topics_lookup,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for ContentTopic
func (ContentTopic) TableName() string {
	return "content_topics"
}

// ActionTopic is one inverted-index row for an action record, keyed by the
// action's event id so topic writes stay idempotent under redelivery.
type ActionTopic struct {
	ID        uint      `gorm:"primaryKey"`
	EventID   string    `gorm:"not null;size:256;uniqueIndex:idx_action_topics_row,priority:1"`
	Type      string    `gorm:"not null;size:32;uniqueIndex:idx_action_topics_row,priority:2;index:idx_action_topics_lookup,priority:1"`
	Value     string    `gorm:"not null;size:512;uniqueIndex:idx_action_topics_row,priority:3;index:idx_action_topics_lookup,priority:2"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for ActionTopic
func (ActionTopic) TableName() string {
	return "action_topics"
}

// Topic is a (type, value) pair before it is attached to a row.
type Topic struct {
	Type  string
	Value string
}
