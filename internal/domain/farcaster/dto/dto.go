package dto

import (
	"encoding/json"
	"time"
)

// Raw event types delivered by the farcaster transport
const (
	EventTypeCastAdd            = "CAST_ADD"
	EventTypeCastRemove         = "CAST_REMOVE"
	EventTypeReactionAdd        = "REACTION_ADD"
	EventTypeReactionRemove     = "REACTION_REMOVE"
	EventTypeLinkAdd            = "LINK_ADD"
	EventTypeLinkRemove         = "LINK_REMOVE"
	EventTypeVerificationAdd    = "VERIFICATION_ADD"
	EventTypeVerificationRemove = "VERIFICATION_REMOVE"
)

// Reaction type codes from the protocol
const (
	ReactionTypeLike   = 1
	ReactionTypeRecast = 2
)

// EventSource identifies where a raw event came from
type EventSource struct {
	Service string `json:"service"`
	Type    string `json:"type"`
	ID      string `json:"id"`
}

// RawEvent is the transport envelope. Delivery is at-least-once and
// unordered across distinct content ids.
type RawEvent struct {
	Source    EventSource     `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// CastData is the payload of CAST_ADD / CAST_REMOVE events
type CastData struct {
	Fid               uint64   `json:"fid"`
	Hash              string   `json:"hash"`
	Text              string   `json:"text"`
	Mentions          []uint64 `json:"mentions"`
	MentionsPositions []int    `json:"mentions_positions"`
	Embeds            []string `json:"embeds"`
	ParentFid         uint64   `json:"parent_fid"`
	ParentHash        string   `json:"parent_hash"`
	RootParentFid     uint64   `json:"root_parent_fid"`
	RootParentHash    string   `json:"root_parent_hash"`
	ParentURL         string   `json:"parent_url"` // channel identifier
	Timestamp         int64    `json:"timestamp"`
}

// ReactionData is the payload of REACTION_ADD / REACTION_REMOVE events
type ReactionData struct {
	Fid          uint64 `json:"fid"`
	ReactionType int    `json:"reaction_type"`
	TargetFid    uint64 `json:"target_fid"`
	TargetHash   string `json:"target_hash"`
	Timestamp    int64  `json:"timestamp"`
}

// LinkData is the payload of LINK_ADD / LINK_REMOVE events
type LinkData struct {
	Fid       uint64 `json:"fid"`
	LinkType  string `json:"link_type"`
	TargetFid uint64 `json:"target_fid"`
	Timestamp int64  `json:"timestamp"`
}

// VerificationData is the payload of VERIFICATION_ADD / VERIFICATION_REMOVE events
type VerificationData struct {
	Fid              uint64 `json:"fid"`
	Address          string `json:"address"`
	Protocol         int    `json:"protocol"`          // 0 = ethereum, 1 = solana
	VerificationType int    `json:"verification_type"` // != 0 means contract address
	Timestamp        int64  `json:"timestamp"`
}

// UserData is a best-effort profile projection from the identity service
type UserData struct {
	Fid         uint64 `json:"fid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Bio         string `json:"bio"`
}

// UserFilterType selects how the user clause of a feed filter is expanded
type UserFilterType string

const (
	UserFilterFids       UserFilterType = "FIDS"
	UserFilterFollowing  UserFilterType = "FOLLOWING"
	UserFilterPowerBadge UserFilterType = "POWER_BADGE"
)

// ReplyMode controls whether replies appear in a feed
type ReplyMode string

const (
	ReplyModeExclude ReplyMode = "exclude"
	ReplyModeInclude ReplyMode = "include"
	ReplyModeOnly    ReplyMode = "only"
)

// ChannelFilter restricts a feed to a set of channel URLs
type ChannelFilter struct {
	URLs []string `json:"urls"`
}

// UserFilter restricts a feed to a set of authors
type UserFilter struct {
	Type   UserFilterType `json:"type"`
	Fids   []uint64       `json:"fids,omitempty"`
	Degree int            `json:"degree,omitempty"` // FOLLOWING only: 1 or 2
}

// MuteContext carries the caller's current mute state. It is request-scoped
// and never persisted or cached.
type MuteContext struct {
	Fids        []uint64 `json:"fids"`
	ChannelURLs []string `json:"channel_urls"`
	Words       []string `json:"words"`
}

// FeedFilter is the declarative feed request filter
type FeedFilter struct {
	ViewerFid    uint64         `json:"viewer_fid,omitempty"`
	Channels     *ChannelFilter `json:"channels,omitempty"`
	Users        *UserFilter    `json:"users,omitempty"`
	Embeds       []string       `json:"embeds,omitempty"`
	ContentTypes []string       `json:"content_types,omitempty"`
	Replies      ReplyMode      `json:"replies,omitempty"`
	Mutes        *MuteContext   `json:"mutes,omitempty"`
}

// FeedRequest is the request body for a feed query
type FeedRequest struct {
	Filter   FeedFilter `json:"filter"`
	Cursor   string     `json:"cursor,omitempty"`
	PageSize int        `json:"page_size,omitempty"`
}

// FeedResponse is a single page of content ids
type FeedResponse struct {
	ContentIDs []string `json:"content_ids"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// FeedCursor is the decoded pagination watermark
type FeedCursor struct {
	Timestamp time.Time `json:"ts"`
	ContentID string    `json:"id"`
}

// FeedQuery is the fully resolved query handed to the feed repository.
// All membership sets are already expanded; nil slices mean "no clause",
// non-nil empty slices mean "match nothing".
type FeedQuery struct {
	ChannelURLs      []string
	AuthorFids       []uint64
	EmbedSubstrings  []string
	ContentTypes     []string
	Replies          ReplyMode
	MutedFids        []uint64
	MutedChannelURLs []string
	MutedWords       []string
	Cursor           *FeedCursor
	PageSize         int
}

// FeedItem is one row of a feed repository result
type FeedItem struct {
	ContentID string
	Timestamp time.Time
}

// ContentItem is the outward representation of a content row
type ContentItem struct {
	ContentID       string    `json:"content_id"`
	Timestamp       time.Time `json:"timestamp"`
	AuthorEntityID  string    `json:"author_entity_id"`
	Text            string    `json:"text"`
	Mentions        []MentionItem `json:"mentions,omitempty"`
	Embeds          []string  `json:"embeds,omitempty"`
	ParentContentID string    `json:"parent_content_id,omitempty"`
	RootContentID   string    `json:"root_content_id,omitempty"`
	ChannelURL      string    `json:"channel_url,omitempty"`
	ContentType     string    `json:"content_type"`
	Likes           int64     `json:"likes"`
	Reposts         int64     `json:"reposts"`
	Replies         int64     `json:"replies"`
	EmbedCount      int64     `json:"embed_count"`
}

// MentionItem is one mention reference in a ContentItem
type MentionItem struct {
	EntityID string `json:"entity_id"`
	Position int    `json:"position"`
}

// ContentBatchRequest is the request body for a batched content lookup
type ContentBatchRequest struct {
	ContentIDs []string `json:"content_ids"`
}

// ContentBatchResponse is the response body for a batched content lookup
type ContentBatchResponse struct {
	Contents []ContentItem `json:"contents"`
}

// NormalizedEvent is published to Kafka after an event is ingested
type NormalizedEvent struct {
	EventID    string   `json:"event_id"`
	EventType  string   `json:"event_type"`
	ContentIDs []string `json:"content_ids,omitempty"`
	ActionIDs  []string `json:"action_ids,omitempty"`
	Timestamp  int64    `json:"timestamp"`
}
