// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the live
// message log.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-dedup/internal/domain"
)

// CreateMessage inserts m into the log. An empty ID is replaced with a UUID
// and a zero CreatedAt with the current UTC time.
func CreateMessage(ctx context.Context, db *gorm.DB, m *domain.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(m).Error
}

// GetMessage fetches a live message by room and ID, or ErrNotFound.
func GetMessage(ctx context.Context, db *gorm.DB, roomID, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).
		Where("room_id = ? AND id = ?", roomID, id).
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMessage soft-deletes a message from the live log. It returns
// ErrNotFound when no live row matched.
func DeleteMessage(ctx context.Context, db *gorm.DB, roomID, id string) error {
	res := db.WithContext(ctx).
		Where("room_id = ? AND id = ?", roomID, id).
		Delete(&domain.Message{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountMessages returns the number of live messages in a room.
func CountMessages(ctx context.Context, db *gorm.DB, roomID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("room_id = ?", roomID).
		Count(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListMessagesPage(ctx context.Context, db *gorm.DB, roomID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
