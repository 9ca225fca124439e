package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-dedup/internal/domain"
	"github.com/tbourn/go-chat-dedup/internal/services"
	"github.com/tbourn/go-chat-dedup/internal/utils"
)

//
// Service contracts (context-aware)
//

// MessageService owns the live message log.
type MessageService interface {
	// Post stores a message and emits its MessageCreated trigger.
	Post(ctx context.Context, roomID, userID, content string, kind domain.AuthorKind) (*domain.Message, error)
	// ListPage returns a page of live messages in a room and the total count.
	ListPage(ctx context.Context, roomID string, page, pageSize int) ([]domain.Message, int64, error)
}

// DedupService runs the duplicate filter.
type DedupService interface {
	// HandleMessageCreated classifies a stored message (and rejects it when
	// it duplicates a recent fingerprint).
	HandleMessageCreated(ctx context.Context, roomID, messageID string) (*services.Decision, error)
	// Preview classifies free text without writing anything.
	Preview(ctx context.Context, content, userID string, kind domain.AuthorKind) (*services.Decision, error)
}

// AuditService lists what the filter recorded.
type AuditService interface {
	ListDuplicates(ctx context.Context, roomID string, page, pageSize int) ([]domain.DuplicateEvent, int64, error)
	ListFingerprints(ctx context.Context, roomID string, page, pageSize int) ([]domain.Fingerprint, int64, error)
}

// StatsFunc returns the live message count and newest update time of a room.
// It backs the ETag on message listings; nil disables conditional responses.
type StatsFunc func(ctx context.Context, roomID string) (count int64, lastUpdate *time.Time, err error)

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. It depends on service interfaces only.
type Handlers struct {
	msgSvc   MessageService
	dedupSvc DedupService
	auditSvc AuditService
	stats    StatsFunc

	maxContentRunes int
}

// Option customizes Handlers.
type Option func(*Handlers)

// WithStats enables ETag support on GET /rooms/{id}/messages.
func WithStats(fn StatsFunc) Option { return func(h *Handlers) { h.stats = fn } }

// WithMaxContentRunes reports the content cap in 400 responses.
func WithMaxContentRunes(n int) Option { return func(h *Handlers) { h.maxContentRunes = n } }

// New constructs Handlers bound to the given services.
func New(msgSvc MessageService, dedupSvc DedupService, auditSvc AuditService, opts ...Option) *Handlers {
	h := &Handlers{
		msgSvc:          msgSvc,
		dedupSvc:        dedupSvc,
		auditSvc:        auditSvc,
		maxContentRunes: services.DefaultMaxContentRunes,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

//
// Shared DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"        example:"1"`
	PageSize   int   `json:"page_size"   example:"20"`
	Total      int64 `json:"total"       example:"42"`
	TotalPages int   `json:"total_pages" example:"3"`
	HasNext    bool  `json:"has_next"    example:"true"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses page/page_size query params and bounds them.
func clampPagination(c *gin.Context) (page, pageSize int) {
	page = utils.AtoiDefault(c.Query("page"), 1)
	pageSize = utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	return utils.ClampPage(page, pageSize)
}
