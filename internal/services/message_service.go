// Package services – MessageService
//
// This file implements MessageService, the owner of the live message log.
// Posting a message persists it and then emits a MessageCreated trigger so
// the duplicate filter can inspect it. Emission happens after the insert has
// committed; a failed emission is logged and does not undo the post.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include room and message identifiers and pagination parameters.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-dedup/internal/domain"
	"github.com/tbourn/go-chat-dedup/internal/repo"
	"github.com/tbourn/go-chat-dedup/internal/utils"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxContentRunes caps message length when MessageService.MaxContentRunes is unset.
const DefaultMaxContentRunes = 4000

// Publisher delivers MessageCreated triggers to the filter.
type Publisher interface {
	Publish(ctx context.Context, ev domain.MessageCreated) error
}

// MessageService manages the live message log.
type MessageService struct {
	DB     *gorm.DB
	Events Publisher // optional; nil disables triggers

	MaxContentRunes int
}

// Post validates and stores a message, then publishes MessageCreated.
// userID may be empty. kind is the producer's explicit author tag, or
// domain.AuthorUnknown to let the filter derive it from userID.
func (s *MessageService) Post(ctx context.Context, roomID, userID, content string, kind domain.AuthorKind) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Post",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, ErrInvalidRoom
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	limit := s.MaxContentRunes
	if limit <= 0 {
		limit = DefaultMaxContentRunes
	}
	if utf8.RuneCountInString(content) > limit {
		return nil, ErrContentTooLong
	}

	now := time.Now().UTC()
	m := &domain.Message{
		RoomID:     roomID,
		UserID:     domain.StrPtr(strings.TrimSpace(userID)),
		AuthorKind: kind,
		Content:    &content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.CreateMessage(ctx, s.DB, m); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("message.id", m.ID))

	if s.Events != nil {
		ev := domain.MessageCreated{RoomID: m.RoomID, MessageID: m.ID, CreatedAt: m.CreatedAt}
		if err := s.Events.Publish(ctx, ev); err != nil {
			log.Error().Err(err).
				Str("room_id", m.RoomID).
				Str("message_id", m.ID).
				Msg("publish message_created failed")
		}
	}
	return m, nil
}

// Get returns a live message or ErrMessageNotFound.
func (s *MessageService) Get(ctx context.Context, roomID, messageID string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.String("message.id", messageID),
		),
	)
	defer span.End()

	m, err := repo.GetMessage(ctx, s.DB, roomID, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	return m, err
}

// ListPage returns paginated live messages for a room, oldest first.
func (s *MessageService) ListPage(ctx context.Context, roomID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	offset, limit := utils.PageBounds(page, pageSize)

	total, err := repo.CountMessages(ctx, s.DB, roomID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, roomID, offset, limit)
	return items, total, err
}
