// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// duplicate-event audit trail.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-dedup/internal/domain"
)

// CreateDuplicateEvent inserts ev. A second event for the same
// (room, message) pair yields ErrDuplicate.
func CreateDuplicateEvent(ctx context.Context, db *gorm.DB, ev *domain.DuplicateEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(ev).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetDuplicateEventByMessage returns the audit record for a rejected
// message, or ErrNotFound.
func GetDuplicateEventByMessage(ctx context.Context, db *gorm.DB, roomID, messageID string) (*domain.DuplicateEvent, error) {
	var ev domain.DuplicateEvent
	if err := db.WithContext(ctx).
		Where("room_id = ? AND message_id = ?", roomID, messageID).
		First(&ev).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

// CountDuplicateEvents returns the number of audit records, optionally
// scoped to a room.
func CountDuplicateEvents(ctx context.Context, db *gorm.DB, roomID string) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.DuplicateEvent{})
	if roomID != "" {
		q = q.Where("room_id = ?", roomID)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListDuplicateEventsPage returns audit records newest first, optionally
// scoped to a room.
func ListDuplicateEventsPage(ctx context.Context, db *gorm.DB, roomID string, offset, limit int) ([]domain.DuplicateEvent, error) {
	var out []domain.DuplicateEvent
	q := db.WithContext(ctx)
	if roomID != "" {
		q = q.Where("room_id = ?", roomID)
	}
	err := q.Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
