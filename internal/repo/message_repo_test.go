package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-chat-dedup/internal/domain"
)

func TestCreateMessage_AssignsIDAndTimestamp(t *testing.T) {
	db := newTestDB(t, &domain.Message{})
	ctx := context.Background()

	m := &domain.Message{RoomID: "r1", UserID: domain.StrPtr("ai_42"), Content: domain.StrPtr("hello there")}
	if err := CreateMessage(ctx, db, m); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if m.ID == "" {
		t.Fatal("expected generated ID")
	}
	if m.CreatedAt.IsZero() || time.Since(m.CreatedAt) > time.Minute {
		t.Fatalf("CreatedAt not set reasonably: %v", m.CreatedAt)
	}

	got, err := GetMessage(ctx, db, "r1", m.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if domain.Deref(got.Content) != "hello there" || domain.Deref(got.UserID) != "ai_42" {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestGetMessage_WrongRoomIsNotFound(t *testing.T) {
	db := newTestDB(t, &domain.Message{})
	seedMessage(t, db, "m1", "r1", "x", time.Now().UTC())

	if _, err := GetMessage(context.Background(), db, "r2", "m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMessage_SoftDeletesOnce(t *testing.T) {
	db := newTestDB(t, &domain.Message{})
	ctx := context.Background()
	seedMessage(t, db, "m1", "r1", "x", time.Now().UTC())

	if err := DeleteMessage(ctx, db, "r1", "m1"); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if _, err := GetMessage(ctx, db, "r1", "m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted message still visible: %v", err)
	}
	if err := DeleteMessage(ctx, db, "r1", "m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}

	// Row stays in the table for audit.
	var n int64
	if err := db.Unscoped().Model(&domain.Message{}).Where("id = ?", "m1").Count(&n).Error; err != nil || n != 1 {
		t.Fatalf("expected soft-deleted row to remain, n=%d err=%v", n, err)
	}
}

func TestListMessagesPage_OrderAndCount(t *testing.T) {
	db := newTestDB(t, &domain.Message{})
	ctx := context.Background()

	// same CreatedAt for first two; ID "a" should come before "b"
	t0 := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	seedMessage(t, db, "b", "r1", "second", t0)
	seedMessage(t, db, "a", "r1", "first", t0)
	seedMessage(t, db, "c", "r1", "third", t0.Add(time.Second))
	seedMessage(t, db, "z", "r2", "other", t0)

	total, err := CountMessages(ctx, db, "r1")
	if err != nil || total != 3 {
		t.Fatalf("CountMessages = %d, %v; want 3", total, err)
	}

	page, err := ListMessagesPage(ctx, db, "r1", 0, 2)
	if err != nil {
		t.Fatalf("ListMessagesPage: %v", err)
	}
	if len(page) != 2 || page[0].ID != "a" || page[1].ID != "b" {
		t.Fatalf("unexpected first page: %+v", page)
	}

	page, err = ListMessagesPage(ctx, db, "r1", 2, 2)
	if err != nil {
		t.Fatalf("ListMessagesPage: %v", err)
	}
	if len(page) != 1 || page[0].ID != "c" {
		t.Fatalf("unexpected second page: %+v", page)
	}
}
