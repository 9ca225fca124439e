// Duplicate filter HTTP handlers.
//
//   - POST /rooms/{id}/messages/{messageId}/classify  (run the filter now)
//   - POST /dedup/preview                             (dry run, no writes)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-dedup/internal/domain"
	"github.com/tbourn/go-chat-dedup/internal/services"
)

// PreviewRequest is the JSON payload for a dry-run classification.
type PreviewRequest struct {
	Content    string `json:"content" binding:"required" example:"Hola a todos! Que tal el día?"`
	UserID     string `json:"user_id" example:"bot_greeter"`
	AuthorKind string `json:"author_kind,omitempty" example:"automated"`
}

// ClassifyMessage godoc
// @ID          classifyMessage
// @Summary     Run the duplicate filter on a stored message
// @Description Synchronously classifies the message as if its MessageCreated
// @Description trigger had just arrived. Safe to repeat: a message already
// @Description fingerprinted or rejected keeps its earlier decision.
// @Tags        Dedup
// @Produce     json
//
// @Param       id         path  string  true  "Room ID"     example(lobby)
// @Param       messageId  path  string  true  "Message ID"  format(uuid)
//
// @Success     200  {object}  services.Decision
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Failure     503  {object}  handlers.ErrorResponse "Duplicate audited but not yet removed"
// @Router      /rooms/{id}/messages/{messageId}/classify [post]
func (h *Handlers) ClassifyMessage(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("id"))
	messageID := strings.TrimSpace(c.Param("messageId"))

	d, err := h.dedupSvc.HandleMessageCreated(c.Request.Context(), roomID, messageID)
	if err != nil {
		if errors.Is(err, services.ErrRejectNotApplied) {
			fail(c, http.StatusServiceUnavailable, ErrCodeRejectPartial, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeClassifyFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, d)
}

// PreviewDecision godoc
// @ID          previewDecision
// @Summary     Dry-run the duplicate filter
// @Description Normalizes and tokenizes the content and compares it with the
// @Description fingerprints currently in the window. Nothing is stored.
// @Tags        Dedup
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.PreviewRequest  true  "Content to classify"
//
// @Success     200  {object}  services.Decision
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /dedup/preview [post]
func (h *Handlers) PreviewDecision(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	kind, valid := domain.ParseAuthorKind(req.AuthorKind)
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeInvalidAuthor, services.ErrInvalidAuthorKind.Error())
		return
	}

	d, err := h.dedupSvc.Preview(c.Request.Context(), req.Content, strings.TrimSpace(req.UserID), kind)
	if err != nil {
		if errors.Is(err, services.ErrEmptyContent) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeClassifyFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, d)
}
