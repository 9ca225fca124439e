// Audit HTTP handlers.
//
//   - GET /duplicates    (rejected messages, newest first)
//   - GET /fingerprints  (accepted automated messages, newest first)
//
// Both accept an optional room filter and the usual page/page_size params.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-chat-dedup/internal/domain"
)

// ListDuplicatesResponse contains a page of duplicate events.
type ListDuplicatesResponse struct {
	Duplicates []domain.DuplicateEvent `json:"duplicates"`
	Pagination Pagination              `json:"pagination"`
}

// ListFingerprintsResponse contains a page of fingerprints.
type ListFingerprintsResponse struct {
	Fingerprints []domain.Fingerprint `json:"fingerprints"`
	Pagination   Pagination           `json:"pagination"`
}

// ListDuplicates godoc
// @ID          listDuplicates
// @Summary     List rejected duplicates
// @Tags        Audit
// @Produce     json
//
// @Param       room       query  string  false "Only this room"
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListDuplicatesResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /duplicates [get]
func (h *Handlers) ListDuplicates(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.auditSvc.ListDuplicates(c.Request.Context(), strings.TrimSpace(c.Query("room")), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.DuplicateEvent{}
	}
	ok(c, http.StatusOK, ListDuplicatesResponse{Duplicates: items, Pagination: newPagination(page, pageSize, total)})
}

// ListFingerprints godoc
// @ID          listFingerprints
// @Summary     List stored fingerprints
// @Tags        Audit
// @Produce     json
//
// @Param       room       query  string  false "Only this room"
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListFingerprintsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /fingerprints [get]
func (h *Handlers) ListFingerprints(c *gin.Context) {
	page, pageSize := clampPagination(c)
	items, total, err := h.auditSvc.ListFingerprints(c.Request.Context(), strings.TrimSpace(c.Query("room")), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if items == nil {
		items = []domain.Fingerprint{}
	}
	ok(c, http.StatusOK, ListFingerprintsResponse{Fingerprints: items, Pagination: newPagination(page, pageSize, total)})
}
