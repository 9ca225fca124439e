package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-chat-dedup/internal/domain"
	"github.com/tbourn/go-chat-dedup/internal/repo"
	"github.com/tbourn/go-chat-dedup/internal/services"
)

// ---------- test plumbing ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// realHandlers wires handlers over real services backed by db. Messages are
// posted without a trigger; tests classify explicitly.
func realHandlers(db *gorm.DB, opts ...Option) *Handlers {
	dedup := services.NewDedupService(
		repo.MessageLog{DB: db},
		repo.FingerprintStore{DB: db},
		repo.DuplicateEventStore{DB: db},
		services.DefaultPolicy(),
		services.DefaultAuthorClassifier(),
	)
	opts = append([]Option{WithStats(func(ctx context.Context, roomID string) (int64, *time.Time, error) {
		return repo.MessagesStats(ctx, db, roomID)
	})}, opts...)
	return New(&services.MessageService{DB: db}, dedup, &services.AuditService{DB: db}, opts...)
}

func newRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/rooms/:id/messages", h.PostMessage)
	r.GET("/rooms/:id/messages", h.ListMessages)
	r.POST("/rooms/:id/messages/:messageId/classify", h.ClassifyMessage)
	r.POST("/dedup/preview", h.PreviewDecision)
	r.GET("/duplicates", h.ListDuplicates)
	r.GET("/fingerprints", h.ListFingerprints)
	return r
}

func do(r http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	var rd *bytes.Buffer
	if body != "" {
		rd = bytes.NewBufferString(body)
	} else {
		rd = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body=%s)", v, err, w.Body.String())
	}
	return v
}

type stubMsgSvc struct {
	post func(ctx context.Context, roomID, userID, content string, kind domain.AuthorKind) (*domain.Message, error)
}

func (s stubMsgSvc) Post(ctx context.Context, roomID, userID, content string, kind domain.AuthorKind) (*domain.Message, error) {
	return s.post(ctx, roomID, userID, content, kind)
}

func (stubMsgSvc) ListPage(context.Context, string, int, int) ([]domain.Message, int64, error) {
	return nil, 0, errors.New("list unavailable")
}

// ---------- helpers ----------

func Test_sanitizeContent_and_clampPagination(t *testing.T) {
	if got := sanitizeContent("  line1\r\n\r\n\r\n\r\nline2\rline3  "); got != "line1\n\nline2\nline3" {
		t.Fatalf("sanitizeContent = %q", got)
	}
	if sanitizeContent(" \r\n\t ") != "" {
		t.Fatalf("sanitizeContent should trim to empty")
	}

	// gin caches parsed query params per context, so each case needs its own.
	cases := []struct {
		query              string
		wantPage, wantSize int
	}{
		{"page=-3&page_size=9999", 1, 100},
		{"page=&page_size=0", 1, 1},
		{"", 1, 20},
		{"page=4&page_size=15", 4, 15},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)
		if p, ps := clampPagination(c); p != tc.wantPage || ps != tc.wantSize {
			t.Fatalf("clampPagination(%q) = %d,%d; want %d,%d", tc.query, p, ps, tc.wantPage, tc.wantSize)
		}
	}

	if pg := newPagination(2, 20, 41); pg.TotalPages != 3 || !pg.HasNext {
		t.Fatalf("newPagination = %+v", pg)
	}
}

// ---------- PostMessage ----------

func TestPostMessage_CreatesAndPassesAuthorKind(t *testing.T) {
	var gotKind domain.AuthorKind
	var gotContent string
	h := New(stubMsgSvc{post: func(_ context.Context, roomID, userID, content string, kind domain.AuthorKind) (*domain.Message, error) {
		gotKind, gotContent = kind, content
		return &domain.Message{ID: "m1", RoomID: roomID, UserID: domain.StrPtr(userID), Content: &content}, nil
	}}, nil, nil)
	r := newRouter(h)

	w := do(r, http.MethodPost, "/rooms/lobby/messages", `{"user_id":"npc_guard","content":"Halt!\r\nWho goes there?","author_kind":"Automated"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	resp := decode[PostMessageResponse](t, w)
	if resp.Message == nil || resp.Message.ID != "m1" || resp.Message.RoomID != "lobby" {
		t.Fatalf("unexpected response: %+v", resp.Message)
	}
	if gotKind != domain.AuthorAutomated || gotContent != "Halt!\nWho goes there?" {
		t.Fatalf("service saw kind=%q content=%q", gotKind, gotContent)
	}
}

func TestPostMessage_Errors(t *testing.T) {
	svcErr := func(err error) stubMsgSvc {
		return stubMsgSvc{post: func(context.Context, string, string, string, domain.AuthorKind) (*domain.Message, error) {
			return nil, err
		}}
	}
	tests := []struct {
		name     string
		svc      stubMsgSvc
		opts     []Option
		body     string
		wantCode int
		wantErr  string
	}{
		{"missing content", svcErr(nil), nil, `{"user_id":"bot_a"}`, http.StatusBadRequest, ErrCodeBadRequest},
		{"blank content", svcErr(nil), nil, `{"content":" \r\n "}`, http.StatusBadRequest, ErrCodeBadRequest},
		{"bad author kind", svcErr(nil), nil, `{"content":"hi","author_kind":"robot"}`, http.StatusBadRequest, ErrCodeInvalidAuthor},
		{"too long", svcErr(nil), []Option{WithMaxContentRunes(5)}, `{"content":"123456"}`, http.StatusBadRequest, ErrCodeContentTooLong},
		{"invalid room", svcErr(services.ErrInvalidRoom), nil, `{"content":"hi"}`, http.StatusBadRequest, ErrCodeBadRequest},
		{"storage failure", svcErr(errors.New("disk full")), nil, `{"content":"hi"}`, http.StatusInternalServerError, ErrCodeCreateFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(New(tt.svc, nil, nil, tt.opts...))
			w := do(r, http.MethodPost, "/rooms/lobby/messages", tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("status=%d want %d body=%s", w.Code, tt.wantCode, w.Body.String())
			}
			if er := decode[ErrorResponse](t, w); er.Code != tt.wantErr {
				t.Fatalf("code=%q want %q", er.Code, tt.wantErr)
			}
		})
	}
}

// ---------- ListMessages ----------

func TestListMessages_PaginationAndETag(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(realHandlers(db))

	var ids []string
	for i := 0; i < 3; i++ {
		w := do(r, http.MethodPost, "/rooms/lobby/messages", fmt.Sprintf(`{"user_id":"u%d","content":"message number %d"}`, i, i))
		if w.Code != http.StatusCreated {
			t.Fatalf("seed post %d: %d", i, w.Code)
		}
		ids = append(ids, decode[PostMessageResponse](t, w).Message.ID)
	}
	// Another room must not leak in.
	do(r, http.MethodPost, "/rooms/other/messages", `{"content":"elsewhere"}`)

	w := do(r, http.MethodGet, "/rooms/lobby/messages?page=1&page_size=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d", w.Code)
	}
	resp := decode[ListMessagesResponse](t, w)
	if len(resp.Messages) != 2 || resp.Pagination.Total != 3 || !resp.Pagination.HasNext {
		t.Fatalf("unexpected page: %+v", resp.Pagination)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}

	w = do(r, http.MethodGet, "/rooms/lobby/messages", "", "If-None-Match", etag)
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional GET = %d; want 304", w.Code)
	}

	// Removing a message (as the filter does) invalidates the tag.
	if err := repo.DeleteMessage(context.Background(), db, "lobby", ids[1]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	w = do(r, http.MethodGet, "/rooms/lobby/messages", "", "If-None-Match", etag)
	if w.Code != http.StatusOK {
		t.Fatalf("GET after delete = %d; want 200", w.Code)
	}
	if got := decode[ListMessagesResponse](t, w); got.Pagination.Total != 2 {
		t.Fatalf("total after delete = %d", got.Pagination.Total)
	}
}

func TestListMessages_ServiceError(t *testing.T) {
	r := newRouter(New(stubMsgSvc{}, nil, nil))
	w := do(r, http.MethodGet, "/rooms/lobby/messages", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	if er := decode[ErrorResponse](t, w); er.Code != ErrCodeListFailed {
		t.Fatalf("code=%q", er.Code)
	}
}
