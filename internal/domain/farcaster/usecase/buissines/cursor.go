package buissines

import (
	"encoding/base64"
	"encoding/json"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
)

// EncodeCursor serializes a pagination watermark into an opaque token.
func EncodeCursor(item dto.FeedItem) string {
	payload, err := json.Marshal(dto.FeedCursor{
		Timestamp: item.Timestamp,
		ContentID: item.ContentID,
	})
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(payload)
}

// DecodeCursor parses an opaque cursor token. A malformed token is treated
// as the start of the feed rather than an error.
func DecodeCursor(token string) *dto.FeedCursor {
	if token == "" {
		return nil
	}

	payload, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil
	}

	var cursor dto.FeedCursor
	if err := json.Unmarshal(payload, &cursor); err != nil {
		return nil
	}

	if cursor.Timestamp.IsZero() || cursor.ContentID == "" {
		return nil
	}

	return &cursor
}
