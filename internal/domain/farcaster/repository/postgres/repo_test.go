package postgres

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nooksocial/nook-engine/internal/domain/farcaster/entities"
)

// newTestDB opens an isolated in-memory database per test. TranslateError
// matches the production connection so duplicate key detection behaves the
// same way.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&entities.Entity{},
		&entities.Content{},
		&entities.Action{},
		&entities.ContentTopic{},
		&entities.ActionTopic{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func seedEntity(t *testing.T, db *gorm.DB, fid uint64) entities.Entity {
	t.Helper()

	entity := entities.Entity{
		ID:  uuid.NewString(),
		Fid: fid,
	}
	if err := db.Create(&entity).Error; err != nil {
		t.Fatalf("failed to seed entity fid=%d: %v", fid, err)
	}
	return entity
}

func seedContent(t *testing.T, db *gorm.DB, content entities.Content, topics ...entities.Topic) entities.Content {
	t.Helper()

	if content.Mentions == "" {
		content.Mentions = "[]"
	}
	if content.Embeds == "" {
		content.Embeds = "[]"
	}
	if err := db.Create(&content).Error; err != nil {
		t.Fatalf("failed to seed content %s: %v", content.ContentID, err)
	}

	for _, topic := range topics {
		row := entities.ContentTopic{
			ContentID: content.ContentID,
			Type:      topic.Type,
			Value:     topic.Value,
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("failed to seed topic %s=%s: %v", topic.Type, topic.Value, err)
		}
	}
	return content
}

func testTime(offset int) time.Time {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(offset) * time.Minute)
}
