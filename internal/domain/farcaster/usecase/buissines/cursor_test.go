package buissines

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/dto"
)

func TestCursorRoundTrip(t *testing.T) {
	item := dto.FeedItem{
		ContentID: "farcaster://cast/42/0xabc",
		Timestamp: time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC),
	}

	token := EncodeCursor(item)
	if token == "" {
		t.Fatal("EncodeCursor returned an empty token")
	}

	cursor := DecodeCursor(token)
	if cursor == nil {
		t.Fatal("DecodeCursor rejected a valid token")
	}
	if cursor.ContentID != item.ContentID {
		t.Errorf("content id = %s, want %s", cursor.ContentID, item.ContentID)
	}
	if !cursor.Timestamp.Equal(item.Timestamp) {
		t.Errorf("timestamp = %v, want %v", cursor.Timestamp, item.Timestamp)
	}
}

func TestDecodeCursorMalformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not base64", "%%%not-base64%%%"},
		{"not json", base64.URLEncoding.EncodeToString([]byte("hello"))},
		{"zero timestamp", base64.URLEncoding.EncodeToString([]byte(`{"id":"farcaster://cast/1/0xa"}`))},
		{"empty content id", base64.URLEncoding.EncodeToString([]byte(`{"ts":"2024-06-01T12:00:00Z"}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if cursor := DecodeCursor(tt.token); cursor != nil {
				t.Errorf("expected nil cursor, got %+v", cursor)
			}
		})
	}
}
