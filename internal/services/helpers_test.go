package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-chat-dedup/internal/domain"
	"github.com/tbourn/go-chat-dedup/internal/repo"
)

// ---------- test helpers ----------

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newDedup(db *gorm.DB) *DedupService {
	s := NewDedupService(
		repo.MessageLog{DB: db},
		repo.FingerprintStore{DB: db},
		repo.DuplicateEventStore{DB: db},
		DefaultPolicy(),
		DefaultAuthorClassifier(),
	)
	s.Now = func() time.Time { return testNow }
	return s
}

// post inserts a live message created at testNow.
func post(t *testing.T, db *gorm.DB, roomID, userID, content string) *domain.Message {
	t.Helper()
	m := &domain.Message{
		RoomID:    roomID,
		UserID:    domain.StrPtr(userID),
		Content:   &content,
		CreatedAt: testNow,
	}
	if err := repo.CreateMessage(context.Background(), db, m); err != nil {
		t.Fatalf("create message: %v", err)
	}
	return m
}

// seedFP inserts a fingerprint for content as if it had been accepted at "at".
func seedFP(t *testing.T, db *gorm.DB, id, normalized string, tokens []string, at time.Time) {
	t.Helper()
	fp := &domain.Fingerprint{
		ID:         id,
		RoomID:     "seed",
		MessageID:  uuid.NewString(),
		UserID:     domain.StrPtr("ai_seed"),
		Normalized: normalized,
		Tokens:     tokens,
		CreatedAt:  at,
	}
	if err := repo.CreateFingerprint(context.Background(), db, fp); err != nil {
		t.Fatalf("seed fingerprint: %v", err)
	}
}

// words returns "word00 word01 ..." for indices [from, to).
func words(from, to int) []string {
	out := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, fmt.Sprintf("word%02d", i))
	}
	return out
}

func join(ws []string) string { return strings.Join(ws, " ") }

func counts(t *testing.T, db *gorm.DB) (live, fps, events int64) {
	t.Helper()
	ctx := context.Background()
	if err := db.WithContext(ctx).Model(&domain.Message{}).Count(&live).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if err := db.WithContext(ctx).Model(&domain.Fingerprint{}).Count(&fps).Error; err != nil {
		t.Fatalf("count fingerprints: %v", err)
	}
	if err := db.WithContext(ctx).Model(&domain.DuplicateEvent{}).Count(&events).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return live, fps, events
}
