package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func Test_fail_EnvelopeAndLogging(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		code    string
		wantLog bool
	}{
		{"server error logged", http.StatusServiceUnavailable, ErrCodeRejectPartial, true},
		{"client error silent", http.StatusUnprocessableEntity, ErrCodeContentTooLong, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			var buf bytes.Buffer
			logger := zerolog.New(&buf)

			r := gin.New()
			r.Use(func(c *gin.Context) {
				c.Writer.Header().Set("X-Request-ID", "rid-"+tc.code)
				c.Set("logger", &logger)
				c.Next()
			})
			// fail aborts the chain, so the second handler never writes.
			r.POST("/classify", func(c *gin.Context) {
				fail(c, tc.status, tc.code, "boom")
			}, func(c *gin.Context) {
				c.String(http.StatusOK, "next handler ran")
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/classify", nil))

			if w.Code != tc.status {
				t.Fatalf("status=%d; want %d", w.Code, tc.status)
			}
			got := decode[ErrorResponse](t, w)
			if got.RequestID != "rid-"+tc.code || got.Code != tc.code || got.Message != "boom" {
				t.Fatalf("unexpected body: %+v", got)
			}
			if logged := strings.Contains(buf.String(), `"level":"error"`); logged != tc.wantLog {
				t.Fatalf("error logged = %v; want %v (%s)", logged, tc.wantLog, buf.String())
			}
		})
	}
}

func Test_Fail_And_ok(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/missing", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found") })
	r.GET("/ok", func(c *gin.Context) { ok(c, http.StatusCreated, gin.H{"outcome": "accepted"}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if er := decode[ErrorResponse](t, w); w.Code != http.StatusNotFound || er.Code != ErrCodeNotFound || er.RequestID != "" {
		t.Fatalf("404 = %d %+v", w.Code, er)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || w.Code != http.StatusCreated || body["outcome"] != "accepted" {
		t.Fatalf("ok = %d %v %v", w.Code, body, err)
	}
}
