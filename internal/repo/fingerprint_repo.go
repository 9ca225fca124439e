// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for message
// fingerprints.
//
// Fingerprints are append-only. The only read on the hot path is
// ListRecentFingerprints, which returns the comparison candidates for a new
// message newest first.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-dedup/internal/domain"
)

// CreateFingerprint inserts fp. A second fingerprint for the same
// (room, message) pair yields ErrDuplicate.
func CreateFingerprint(ctx context.Context, db *gorm.DB, fp *domain.Fingerprint) error {
	if fp.ID == "" {
		fp.ID = uuid.NewString()
	}
	if fp.CreatedAt.IsZero() {
		fp.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(fp).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// ListRecentFingerprints returns at most limit fingerprints created at or
// after since, across all rooms, ordered (CreatedAt DESC, ID DESC).
func ListRecentFingerprints(ctx context.Context, db *gorm.DB, since time.Time, limit int) ([]domain.Fingerprint, error) {
	var out []domain.Fingerprint
	err := db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetFingerprintByMessage returns the fingerprint recorded for a message, or
// ErrNotFound.
func GetFingerprintByMessage(ctx context.Context, db *gorm.DB, roomID, messageID string) (*domain.Fingerprint, error) {
	var fp domain.Fingerprint
	if err := db.WithContext(ctx).
		Where("room_id = ? AND message_id = ?", roomID, messageID).
		First(&fp).Error; err != nil {
		return nil, err
	}
	return &fp, nil
}

// CountFingerprints returns the number of stored fingerprints, optionally
// scoped to a room (empty roomID counts all).
func CountFingerprints(ctx context.Context, db *gorm.DB, roomID string) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Fingerprint{})
	if roomID != "" {
		q = q.Where("room_id = ?", roomID)
	}
	err := q.Count(&total).Error
	return total, err
}

// ListFingerprintsPage returns fingerprints newest first, optionally scoped
// to a room.
func ListFingerprintsPage(ctx context.Context, db *gorm.DB, roomID string, offset, limit int) ([]domain.Fingerprint, error) {
	var out []domain.Fingerprint
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

// DeleteFingerprintsBefore hard-deletes fingerprints created strictly before
// cutoff and returns how many rows were removed.
func DeleteFingerprintsBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.Fingerprint{})
	return res.RowsAffected, res.Error
}
