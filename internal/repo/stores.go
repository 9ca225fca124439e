// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file adapts the repository functions to the store
// interfaces consumed by services.DedupService.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-chat-dedup/internal/domain"
)

// MessageLog exposes the live message log.
type MessageLog struct{ DB *gorm.DB }

// GetMessage returns a live message or ErrNotFound.
func (s MessageLog) GetMessage(ctx context.Context, roomID, messageID string) (*domain.Message, error) {
	return GetMessage(ctx, s.DB, roomID, messageID)
}

// DeleteMessage soft-deletes a message; ErrNotFound when it is already gone.
func (s MessageLog) DeleteMessage(ctx context.Context, roomID, messageID string) error {
	return DeleteMessage(ctx, s.DB, roomID, messageID)
}

// FingerprintStore exposes the fingerprint table.
type FingerprintStore struct{ DB *gorm.DB }

// RecentFingerprints lists comparison candidates newest first.
func (s FingerprintStore) RecentFingerprints(ctx context.Context, since time.Time, limit int) ([]domain.Fingerprint, error) {
	return ListRecentFingerprints(ctx, s.DB, since, limit)
}

// FingerprintFor returns the fingerprint of a message or ErrNotFound.
func (s FingerprintStore) FingerprintFor(ctx context.Context, roomID, messageID string) (*domain.Fingerprint, error) {
	return GetFingerprintByMessage(ctx, s.DB, roomID, messageID)
}

// SaveFingerprint inserts fp. When the message already has a fingerprint
// (a concurrent or earlier delivery won), the existing id is returned.
func (s FingerprintStore) SaveFingerprint(ctx context.Context, fp *domain.Fingerprint) (string, error) {
	err := CreateFingerprint(ctx, s.DB, fp)
	if errors.Is(err, ErrDuplicate) {
		existing, gerr := GetFingerprintByMessage(ctx, s.DB, fp.RoomID, fp.MessageID)
		if gerr != nil {
			return "", gerr
		}
		return existing.ID, nil
	}
	if err != nil {
		return "", err
	}
	return fp.ID, nil
}

// DuplicateEventStore exposes the duplicate-event audit table.
type DuplicateEventStore struct{ DB *gorm.DB }

// DuplicateEventFor returns the audit record of a message or ErrNotFound.
func (s DuplicateEventStore) DuplicateEventFor(ctx context.Context, roomID, messageID string) (*domain.DuplicateEvent, error) {
	return GetDuplicateEventByMessage(ctx, s.DB, roomID, messageID)
}

// SaveDuplicateEvent inserts ev, returning the existing id when the message
// was already audited.
func (s DuplicateEventStore) SaveDuplicateEvent(ctx context.Context, ev *domain.DuplicateEvent) (string, error) {
	err := CreateDuplicateEvent(ctx, s.DB, ev)
	if errors.Is(err, ErrDuplicate) {
		existing, gerr := GetDuplicateEventByMessage(ctx, s.DB, ev.RoomID, ev.MessageID)
		if gerr != nil {
			return "", gerr
		}
		return existing.ID, nil
	}
	if err != nil {
		return "", err
	}
	return ev.ID, nil
}
