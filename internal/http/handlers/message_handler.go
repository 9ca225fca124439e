// Message HTTP handlers.
//
//   - POST /rooms/{id}/messages   (append a message; triggers the filter)
//   - GET  /rooms/{id}/messages   (list live messages, ETag support)
//
// Handlers are transport-thin: they validate input, call MessageService, and
// translate results into HTTP responses. Filtering happens asynchronously
// after the post returns, so a rejected duplicate disappears from later
// listings rather than failing the POST.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-dedup/internal/domain"
	"github.com/tbourn/go-chat-dedup/internal/services"
)

// PostMessageRequest is the JSON payload for appending a message.
type PostMessageRequest struct {
	// UserID identifies the author; automated authors use a reserved prefix.
	UserID string `json:"user_id" example:"bot_weather"`
	// Content is the message text. It must be non-empty.
	Content string `json:"content" binding:"required" example:"Hola a todos! 👋 Que tal el dia?"`
	// AuthorKind optionally tags the author explicitly (human|automated|system).
	AuthorKind string `json:"author_kind,omitempty" example:"automated"`
}

// PostMessageResponse wraps the stored message.
type PostMessageResponse struct {
	Message *domain.Message `json:"message"`
}

// ListMessagesResponse contains a page of live messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent converts CRLF/CR to LF, collapses blank-line runs, and trims.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Append a message to a room
// @Description Stores the message and schedules duplicate filtering. Automated
// @Description messages that duplicate a recent one are removed shortly after.
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                       true  "Room ID"  example(lobby)
// @Param       body  body  handlers.PostMessageRequest  true  "Message payload"
//
// @Success     201  {object}  handlers.PostMessageResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("id"))

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	kind, valid := domain.ParseAuthorKind(req.AuthorKind)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeInvalidAuthor, services.ErrInvalidAuthorKind.Error())
		return
	}

	content := sanitizeContent(req.Content)
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	if h.maxContentRunes > 0 && utf8.RuneCountInString(content) > h.maxContentRunes {
		fail(c, http.StatusBadRequest, ErrCodeContentTooLong, fmt.Sprintf("content too long: max %d runes", h.maxContentRunes))
		return
	}

	m, err := h.msgSvc.Post(c.Request.Context(), roomID, req.UserID, content, kind)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRoom):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrEmptyContent):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		case errors.Is(err, services.ErrContentTooLong):
			fail(c, http.StatusBadRequest, ErrCodeContentTooLong, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, PostMessageResponse{Message: m})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List live messages in a room
// @Description Returns a page of messages, oldest first. Rejected duplicates
// @Description are not listed. Supports If-None-Match with a weak ETag.
// @Tags        Messages
// @Produce     json
//
// @Param       id         path   string  true  "Room ID"         example(lobby)
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Success     304  "Not modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /rooms/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	roomID := strings.TrimSpace(c.Param("id"))

	// ETag pre-check (best effort).
	if h.stats != nil {
		if count, maxTS, err := h.stats(ctx, roomID); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, roomID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)
	items, total, err := h.msgSvc.ListPage(ctx, roomID, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Message{}
	}
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}
