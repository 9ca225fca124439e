package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/tbourn/go-chat-dedup/internal/domain"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.MessageCreated
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.MessageCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func TestMessageService_Post_Validation(t *testing.T) {
	s := &MessageService{DB: newSvcDB(t), MaxContentRunes: 5}
	ctx := context.Background()

	if _, err := s.Post(ctx, "  ", "ai_1", "hello", ""); !errors.Is(err, ErrInvalidRoom) {
		t.Fatalf("expected ErrInvalidRoom, got %v", err)
	}
	if _, err := s.Post(ctx, "r1", "ai_1", "   ", ""); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
	if _, err := s.Post(ctx, "r1", "ai_1", "toolong", ""); !errors.Is(err, ErrContentTooLong) {
		t.Fatalf("expected ErrContentTooLong, got %v", err)
	}
	// Rune count, not bytes.
	if _, err := s.Post(ctx, "r1", "ai_1", "héllo", ""); err != nil {
		t.Fatalf("5 runes should be accepted: %v", err)
	}
}

func TestMessageService_Post_PersistsAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	s := &MessageService{DB: newSvcDB(t), Events: pub}
	ctx := context.Background()

	m, err := s.Post(ctx, "r1", " ai_42 ", "  hello world  ", domain.AuthorAutomated)
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if domain.Deref(m.Content) != "hello world" || domain.Deref(m.UserID) != "ai_42" || m.AuthorKind != domain.AuthorAutomated {
		t.Fatalf("unexpected message: %+v", m)
	}
	if len(pub.events) != 1 || pub.events[0].MessageID != m.ID || pub.events[0].RoomID != "r1" {
		t.Fatalf("unexpected events: %+v", pub.events)
	}

	got, err := s.Get(ctx, "r1", m.ID)
	if err != nil || got.ID != m.ID {
		t.Fatalf("Get = %+v, %v", got, err)
	}
}

func TestMessageService_Post_PublishFailureKeepsMessage(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("pool closed")}
	s := &MessageService{DB: newSvcDB(t), Events: pub}

	m, err := s.Post(context.Background(), "r1", "", "anonymous note", "")
	if err != nil {
		t.Fatalf("Post should succeed when publish fails: %v", err)
	}
	if m.UserID != nil {
		t.Fatalf("empty user id should be stored as NULL, got %q", *m.UserID)
	}
	if _, err := s.Get(context.Background(), "r1", m.ID); err != nil {
		t.Fatalf("message should persist: %v", err)
	}
}

func TestMessageService_Get_NotFound(t *testing.T) {
	s := &MessageService{DB: newSvcDB(t)}
	if _, err := s.Get(context.Background(), "r1", "nope"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestMessageService_ListPage(t *testing.T) {
	s := &MessageService{DB: newSvcDB(t)}
	ctx := context.Background()

	items, total, err := s.ListPage(ctx, "r1", 1, 10)
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("empty room: items=%d total=%d err=%v", len(items), total, err)
	}

	for _, c := range []string{"one", "two", "three"} {
		if _, err := s.Post(ctx, "r1", "ai_1", c, ""); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}
	items, total, err = s.ListPage(ctx, "r1", 2, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 3 || len(items) != 1 {
		t.Fatalf("page 2: items=%d total=%d", len(items), total)
	}

	// Defaults for nonsense paging.
	items, _, err = s.ListPage(ctx, "r1", 0, 0)
	if err != nil || len(items) != 3 {
		t.Fatalf("default paging: items=%d err=%v", len(items), err)
	}
	for _, m := range items {
		if strings.TrimSpace(domain.Deref(m.Content)) == "" {
			t.Fatalf("unexpected empty content: %+v", m)
		}
	}
}
