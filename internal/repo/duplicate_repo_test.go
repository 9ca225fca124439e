package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-chat-dedup/internal/domain"
)

func newEvent(id, roomID, messageID string, at time.Time) *domain.DuplicateEvent {
	return &domain.DuplicateEvent{
		ID:         id,
		RoomID:     roomID,
		MessageID:  messageID,
		UserID:     domain.StrPtr("bot_7"),
		Normalized: "hello world again",
		Match: domain.MatchInfo{
			Type:          domain.MatchSimilar,
			FingerprintID: "f1",
			Similarity:    0.9,
		},
		CreatedAt: at,
	}
}

func TestCreateDuplicateEvent_OncePerMessage(t *testing.T) {
	db := newTestDB(t, &domain.DuplicateEvent{})
	ctx := context.Background()
	now := time.Now().UTC()

	if err := CreateDuplicateEvent(ctx, db, newEvent("e1", "r1", "m1", now)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := CreateDuplicateEvent(ctx, db, newEvent("e2", "r1", "m1", now)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := GetDuplicateEventByMessage(ctx, db, "r1", "m1")
	if err != nil {
		t.Fatalf("GetDuplicateEventByMessage: %v", err)
	}
	if got.ID != "e1" || got.Match.Type != domain.MatchSimilar || got.Match.Similarity != 0.9 {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestGetDuplicateEventByMessage_NotFound(t *testing.T) {
	db := newTestDB(t, &domain.DuplicateEvent{})
	if _, err := GetDuplicateEventByMessage(context.Background(), db, "r1", "m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListDuplicateEventsPage_NewestFirstWithRoomFilter(t *testing.T) {
	db := newTestDB(t, &domain.DuplicateEvent{})
	ctx := context.Background()
	t0 := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	for _, ev := range []*domain.DuplicateEvent{
		newEvent("e1", "r1", "m1", t0),
		newEvent("e2", "r2", "m2", t0.Add(time.Minute)),
		newEvent("e3", "r1", "m3", t0.Add(2*time.Minute)),
	} {
		if err := CreateDuplicateEvent(ctx, db, ev); err != nil {
			t.Fatalf("seed %s: %v", ev.ID, err)
		}
	}

	total, err := CountDuplicateEvents(ctx, db, "r1")
	if err != nil || total != 2 {
		t.Fatalf("CountDuplicateEvents(r1) = %d, %v", total, err)
	}

	page, err := ListDuplicateEventsPage(ctx, db, "r1", 0, 10)
	if err != nil {
		t.Fatalf("ListDuplicateEventsPage: %v", err)
	}
	if len(page) != 2 || page[0].ID != "e3" || page[1].ID != "e1" {
		t.Fatalf("unexpected page: %+v", page)
	}

	all, err := ListDuplicateEventsPage(ctx, db, "", 1, 1)
	if err != nil {
		t.Fatalf("ListDuplicateEventsPage(all): %v", err)
	}
	if len(all) != 1 || all[0].ID != "e2" {
		t.Fatalf("unexpected offset page: %+v", all)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("UNIQUE constraint failed: fingerprints.room_id"), true},
		{errors.New(`ERROR: duplicate key value violates unique constraint "ux_duplicate_room_message"`), true},
		{errors.New("no such table: fingerprints"), false},
	}
	for _, tc := range cases {
		if got := isUniqueViolation(tc.err); got != tc.want {
			t.Errorf("isUniqueViolation(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
