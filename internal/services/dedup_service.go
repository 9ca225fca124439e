// Package services – DedupService
//
// This file implements the duplicate-message filter. For every newly
// inserted message it decides whether an automated author has just repeated
// itself (across any room, within the comparison window) and, if so, audits
// and removes the message. Unique automated messages are fingerprinted so
// later messages can be compared against them.
//
// The service is stateless. Concurrent invocations are allowed and are not
// coordinated: two near-identical messages handled at the same instant may
// both be accepted, because neither sees the other's fingerprint yet.
//
// Observability: HandleMessageCreated and Preview are OpenTelemetry spans;
// every decision is counted in dedup_decisions_total.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-chat-dedup/internal/domain"
	"github.com/tbourn/go-chat-dedup/internal/observability"
	"github.com/tbourn/go-chat-dedup/internal/repo"
	"github.com/tbourn/go-chat-dedup/internal/textsim"
)

// MessageLog reads and removes messages in the live log.
// Lookups of missing messages return repo.ErrNotFound.
type MessageLog interface {
	GetMessage(ctx context.Context, roomID, messageID string) (*domain.Message, error)
	DeleteMessage(ctx context.Context, roomID, messageID string) error
}

// FingerprintStore persists accepted automated messages.
type FingerprintStore interface {
	// RecentFingerprints returns at most limit fingerprints created at or
	// after since, across all rooms, newest first (ties by id descending).
	RecentFingerprints(ctx context.Context, since time.Time, limit int) ([]domain.Fingerprint, error)
	// FingerprintFor returns the fingerprint recorded for a message, or
	// repo.ErrNotFound.
	FingerprintFor(ctx context.Context, roomID, messageID string) (*domain.Fingerprint, error)
	// SaveFingerprint inserts fp and returns its id. Saving a second
	// fingerprint for the same message returns the existing id.
	SaveFingerprint(ctx context.Context, fp *domain.Fingerprint) (string, error)
}

// DuplicateEventStore persists the audit trail of rejected messages.
type DuplicateEventStore interface {
	// DuplicateEventFor returns the audit record for a message, or
	// repo.ErrNotFound.
	DuplicateEventFor(ctx context.Context, roomID, messageID string) (*domain.DuplicateEvent, error)
	// SaveDuplicateEvent inserts ev and returns its id. Saving a second
	// event for the same message returns the existing id.
	SaveDuplicateEvent(ctx context.Context, ev *domain.DuplicateEvent) (string, error)
}

// Policy holds the classifier tuning.
type Policy struct {
	Window             time.Duration // how far back candidates are read
	MaxCandidates      int           // cap on candidates per message
	Threshold          float64       // minimum Jaccard similarity for a near-duplicate
	MinNormalizedRunes int           // shorter normalized texts pass through
	MinTokens          int           // messages with fewer tokens pass through
	MinTokenRunes      int           // tokens shorter than this are ignored
}

// DefaultPolicy returns the production classifier settings.
func DefaultPolicy() Policy {
	return Policy{
		Window:             60 * time.Minute,
		MaxCandidates:      500,
		Threshold:          0.82,
		MinNormalizedRunes: 6,
		MinTokens:          3,
		MinTokenRunes:      textsim.DefaultMinTokenRunes,
	}
}

// Outcome is the coarse result of handling one message.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"   // left untouched, nothing written
	OutcomeAccepted  Outcome = "accepted"  // unique; a fingerprint exists for it
	OutcomeDuplicate Outcome = "duplicate" // audited and removed from the log
)

// Decision reasons.
const (
	ReasonMessageMissing       = "message_missing"
	ReasonNoContent            = "no_content"
	ReasonNotAutomated         = "not_automated"
	ReasonTooShort             = "too_short"
	ReasonTooFewTokens         = "too_few_tokens"
	ReasonUnique               = "unique"
	ReasonAlreadyFingerprinted = "already_fingerprinted"
	ReasonAlreadyRejected      = "already_rejected"
	ReasonExact                = string(domain.MatchExact)
	ReasonSimilar              = string(domain.MatchSimilar)
)

// Decision describes what the filter did (or, for Preview, would do) with a
// message.
type Decision struct {
	Outcome          Outcome           `json:"outcome"`
	Reason           string            `json:"reason"`
	RoomID           string            `json:"room_id,omitempty"`
	MessageID        string            `json:"message_id,omitempty"`
	AuthorKind       domain.AuthorKind `json:"author_kind,omitempty"`
	Normalized       string            `json:"normalized,omitempty"`
	Tokens           []string          `json:"tokens,omitempty"`
	Candidates       int               `json:"candidates"`
	Match            *domain.MatchInfo `json:"match,omitempty"`
	FingerprintID    string            `json:"fingerprint_id,omitempty"`
	DuplicateEventID string            `json:"duplicate_event_id,omitempty"`
	DryRun           bool              `json:"dry_run,omitempty"`
}

// DedupService classifies newly created messages.
type DedupService struct {
	Messages     MessageLog
	Fingerprints FingerprintStore
	Events       DuplicateEventStore

	Policy  Policy
	Authors AuthorClassifier

	// Now returns the current time; defaults to time.Now().UTC().
	Now func() time.Time
	// Log defaults to the global zerolog logger.
	Log *zerolog.Logger
}

// NewDedupService wires a DedupService with the given stores and settings.
func NewDedupService(msgs MessageLog, fps FingerprintStore, evs DuplicateEventStore, policy Policy, authors AuthorClassifier) *DedupService {
	return &DedupService{
		Messages:     msgs,
		Fingerprints: fps,
		Events:       evs,
		Policy:       policy,
		Authors:      authors,
	}
}

// Classify scans candidates in order and returns the first match, or nil.
// An identical normalized text is an exact match with similarity 1;
// otherwise a candidate matches when the Jaccard similarity of the token
// sets reaches threshold. The first qualifying candidate wins even if a
// later one would score higher.
func Classify(normalized string, tokens []string, candidates []domain.Fingerprint, threshold float64) *domain.MatchInfo {
	for i := range candidates {
		c := &candidates[i]
		if c.Normalized == normalized {
			return &domain.MatchInfo{Type: domain.MatchExact, FingerprintID: c.ID, Similarity: 1}
		}
		if sim := textsim.Jaccard(tokens, c.Tokens); sim >= threshold {
			return &domain.MatchInfo{Type: domain.MatchSimilar, FingerprintID: c.ID, Similarity: sim}
		}
	}
	return nil
}

// HandleMessageCreated runs the filter for one MessageCreated event.
//
// Precondition outcomes (missing message, no content, non-automated author,
// too short, too few tokens) are returned as skipped decisions with a nil
// error and write nothing. Storage failures are returned as errors so the
// caller can redeliver the event; writes are idempotent per message, so a
// redelivery never produces a second fingerprint or audit record.
func (s *DedupService) HandleMessageCreated(ctx context.Context, roomID, messageID string) (*Decision, error) {
	tr := otel.Tracer("services/DedupService")
	ctx, span := tr.Start(ctx, "HandleMessageCreated",
		trace.WithAttributes(
			attribute.String("room.id", roomID),
			attribute.String("message.id", messageID),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() { observability.DedupClassifyDuration.Observe(time.Since(start).Seconds()) }()

	d, err := s.handle(ctx, roomID, messageID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("dedup.outcome", string(d.Outcome)),
		attribute.String("dedup.reason", d.Reason),
		attribute.Int("dedup.candidates", d.Candidates),
	)
	s.record(d)
	return d, nil
}

func (s *DedupService) handle(ctx context.Context, roomID, messageID string) (*Decision, error) {
	msg, err := s.Messages.GetMessage(ctx, roomID, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		return &Decision{Outcome: OutcomeSkipped, Reason: ReasonMessageMissing, RoomID: roomID, MessageID: messageID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load message: %w", err)
	}

	d, eligible := s.evaluate(msg.Content, msg.UserID, msg.AuthorKind)
	d.RoomID, d.MessageID = roomID, messageID
	if !eligible {
		return d, nil
	}

	// Redelivered event: finish what the earlier attempt started.
	if ev, err := s.Events.DuplicateEventFor(ctx, roomID, messageID); err == nil {
		match := ev.Match
		d.Outcome, d.Reason = OutcomeDuplicate, ReasonAlreadyRejected
		d.Match, d.DuplicateEventID = &match, ev.ID
		if err := s.removeMessage(ctx, d); err != nil {
			return nil, err
		}
		return d, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("load duplicate event: %w", err)
	}
	if fp, err := s.Fingerprints.FingerprintFor(ctx, roomID, messageID); err == nil {
		d.Outcome, d.Reason, d.FingerprintID = OutcomeAccepted, ReasonAlreadyFingerprinted, fp.ID
		return d, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("load fingerprint: %w", err)
	}

	now := s.now()
	candidates, err := s.candidates(ctx, now, roomID, messageID)
	if err != nil {
		return nil, err
	}
	d.Candidates = len(candidates)

	match := Classify(d.Normalized, d.Tokens, candidates, s.Policy.Threshold)
	if match == nil {
		id, err := s.Fingerprints.SaveFingerprint(ctx, &domain.Fingerprint{
			RoomID:     roomID,
			MessageID:  messageID,
			UserID:     msg.UserID,
			Normalized: d.Normalized,
			Tokens:     d.Tokens,
			CreatedAt:  now,
		})
		if err != nil {
			return nil, fmt.Errorf("save fingerprint: %w", err)
		}
		d.Outcome, d.Reason, d.FingerprintID = OutcomeAccepted, ReasonUnique, id
		return d, nil
	}

	id, err := s.Events.SaveDuplicateEvent(ctx, &domain.DuplicateEvent{
		RoomID:     roomID,
		MessageID:  messageID,
		UserID:     msg.UserID,
		Normalized: d.Normalized,
		Match:      *match,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, fmt.Errorf("save duplicate event: %w", err)
	}
	d.Outcome, d.Reason = OutcomeDuplicate, string(match.Type)
	d.Match, d.DuplicateEventID = match, id
	if err := s.removeMessage(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Preview classifies content against the current fingerprints without
// writing anything. userID and kind are interpreted exactly as for a stored
// message.
func (s *DedupService) Preview(ctx context.Context, content, userID string, kind domain.AuthorKind) (*Decision, error) {
	tr := otel.Tracer("services/DedupService")
	ctx, span := tr.Start(ctx, "Preview",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("author.kind", string(kind)),
		),
	)
	defer span.End()

	if content == "" {
		return nil, ErrEmptyContent
	}

	d, eligible := s.evaluate(&content, domain.StrPtr(userID), kind)
	d.DryRun = true
	if !eligible {
		return d, nil
	}

	candidates, err := s.candidates(ctx, s.now(), "", "")
	if err != nil {
		return nil, err
	}
	d.Candidates = len(candidates)

	if match := Classify(d.Normalized, d.Tokens, candidates, s.Policy.Threshold); match != nil {
		d.Outcome, d.Reason, d.Match = OutcomeDuplicate, string(match.Type), match
	} else {
		d.Outcome, d.Reason = OutcomeAccepted, ReasonUnique
	}
	return d, nil
}

// evaluate applies the precondition filters. It returns eligible=false with a
// skipped decision when the message passes through untouched.
func (s *DedupService) evaluate(content, userID *string, explicit domain.AuthorKind) (*Decision, bool) {
	d := &Decision{Outcome: OutcomeSkipped}
	if content == nil {
		d.Reason = ReasonNoContent
		return d, false
	}
	d.AuthorKind = s.Authors.Kind(userID, explicit)
	if d.AuthorKind != domain.AuthorAutomated {
		d.Reason = ReasonNotAutomated
		return d, false
	}

	d.Normalized = textsim.Normalize(*content)
	if utf8.RuneCountInString(d.Normalized) < s.Policy.MinNormalizedRunes {
		d.Reason = ReasonTooShort
		return d, false
	}
	d.Tokens = textsim.TokenizeMin(d.Normalized, s.minTokenRunes())
	if len(d.Tokens) < s.Policy.MinTokens {
		d.Reason = ReasonTooFewTokens
		return d, false
	}
	return d, true
}

// candidates reads the comparison set and drops the message's own
// fingerprint, which can only be present on a redelivered event.
func (s *DedupService) candidates(ctx context.Context, now time.Time, roomID, messageID string) ([]domain.Fingerprint, error) {
	cands, err := s.Fingerprints.RecentFingerprints(ctx, now.Add(-s.Policy.Window), s.Policy.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}
	if messageID != "" {
		kept := cands[:0]
		for _, c := range cands {
			if c.RoomID == roomID && c.MessageID == messageID {
				continue
			}
			kept = append(kept, c)
		}
		cands = kept
	}
	observability.DedupCandidates.Observe(float64(len(cands)))
	return cands, nil
}

func (s *DedupService) removeMessage(ctx context.Context, d *Decision) error {
	err := s.Messages.DeleteMessage(ctx, d.RoomID, d.MessageID)
	if err == nil || errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	s.logger().Warn().
		Err(err).
		Str("room_id", d.RoomID).
		Str("message_id", d.MessageID).
		Str("duplicate_event_id", d.DuplicateEventID).
		Msg("duplicate_audited_not_deleted")
	return fmt.Errorf("%w: %v", ErrRejectNotApplied, err)
}

func (s *DedupService) record(d *Decision) {
	observability.DedupDecisions.WithLabelValues(string(d.Outcome), d.Reason).Inc()

	l := s.logger()
	ev := l.Debug()
	if d.Outcome == OutcomeDuplicate {
		ev = l.Info()
	}
	ev = ev.Str("room_id", d.RoomID).
		Str("message_id", d.MessageID).
		Str("outcome", string(d.Outcome)).
		Str("reason", d.Reason).
		Int("candidates", d.Candidates)
	if d.Match != nil {
		ev = ev.Str("match_fingerprint_id", d.Match.FingerprintID).
			Float64("similarity", d.Match.Similarity)
	}
	ev.Msg("dedup decision")
}

func (s *DedupService) minTokenRunes() int {
	if s.Policy.MinTokenRunes > 0 {
		return s.Policy.MinTokenRunes
	}
	return textsim.DefaultMinTokenRunes
}

func (s *DedupService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *DedupService) logger() *zerolog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return &log.Logger
}
