// Package services – AuditService
//
// Read-only access to the filter's persisted state: the duplicate-event
// audit trail and the fingerprint store.
package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-dedup/internal/domain"
	"github.com/tbourn/go-chat-dedup/internal/repo"
	"github.com/tbourn/go-chat-dedup/internal/utils"
)

// AuditService lists duplicate events and fingerprints.
type AuditService struct {
	DB *gorm.DB
}

// ListDuplicates returns audit records newest first. An empty roomID lists
// all rooms.
func (s *AuditService) ListDuplicates(ctx context.Context, roomID string, page, pageSize int) ([]domain.DuplicateEvent, int64, error) {
	tr := otel.Tracer("services/AuditService")
	ctx, span := tr.Start(ctx, "ListDuplicates",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	total, err := repo.CountDuplicateEvents(ctx, s.DB, roomID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.DuplicateEvent{}, 0, nil
	}
	offset, limit := utils.PageBounds(page, pageSize)
	items, err := repo.ListDuplicateEventsPage(ctx, s.DB, roomID, offset, limit)
	return items, total, err
}

// ListFingerprints returns fingerprints newest first. An empty roomID lists
// all rooms.
func (s *AuditService) ListFingerprints(ctx context.Context, roomID string, page, pageSize int) ([]domain.Fingerprint, int64, error) {
	tr := otel.Tracer("services/AuditService")
	ctx, span := tr.Start(ctx, "ListFingerprints",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	total, err := repo.CountFingerprints(ctx, s.DB, roomID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Fingerprint{}, 0, nil
	}
	offset, limit := utils.PageBounds(page, pageSize)
	items, err := repo.ListFingerprintsPage(ctx, s.DB, roomID, offset, limit)
	return items, total, err
}
