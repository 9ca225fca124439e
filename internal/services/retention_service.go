// Package services – RetentionService
//
// Fingerprints older than the comparison window are never read again. When a
// retention period is configured they are hard-deleted on a schedule; with a
// zero TTL nothing is ever removed and storage growth is left to operators.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-dedup/internal/observability"
	"github.com/tbourn/go-chat-dedup/internal/repo"
)

// RetentionService purges expired fingerprints.
type RetentionService struct {
	DB  *gorm.DB
	TTL time.Duration // 0 disables Purge

	Now func() time.Time
}

// Enabled reports whether a retention period is configured.
func (s *RetentionService) Enabled() bool { return s.TTL > 0 }

// Purge deletes fingerprints older than TTL. It is a no-op when retention is
// disabled.
func (s *RetentionService) Purge(ctx context.Context) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	return s.PurgeBefore(ctx, now.Add(-s.TTL))
}

// PurgeBefore deletes fingerprints created strictly before cutoff.
func (s *RetentionService) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tr := otel.Tracer("services/RetentionService")
	ctx, span := tr.Start(ctx, "PurgeBefore",
		trace.WithAttributes(attribute.String("cutoff", cutoff.UTC().Format(time.RFC3339))),
	)
	defer span.End()

	n, err := repo.DeleteFingerprintsBefore(ctx, s.DB, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("purged", n))
	observability.FingerprintsPurged.Add(float64(n))
	log.Info().Int64("purged", n).Time("cutoff", cutoff).Msg("fingerprint retention")
	return n, nil
}
