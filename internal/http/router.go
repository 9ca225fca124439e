// Package httpapi wires the HTTP transport (Gin) to the dedup services,
// middleware, and route handlers. It centralizes cross-cutting concerns:
// tracing, correlation IDs, access logging, panic recovery, metrics,
// compression, CORS, security headers, and rate limiting.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-dedup/docs"
	"github.com/tbourn/go-chat-dedup/internal/config"
	"github.com/tbourn/go-chat-dedup/internal/http/handlers"
	"github.com/tbourn/go-chat-dedup/internal/http/middleware"
	"github.com/tbourn/go-chat-dedup/internal/repo"
	"github.com/tbourn/go-chat-dedup/internal/services"
)

// clientIDHeader lets automated producers share one rate-limit bucket
// regardless of which address they post from.
const clientIDHeader = "X-Client-ID"

// Deps are the collaborators RegisterRoutes needs beyond the database.
type Deps struct {
	// Events receives MessageCreated triggers for posted messages; nil
	// stores messages without filtering them.
	Events services.Publisher
	// Dedup serves manual classification and previews.
	Dedup handlers.DedupService
	// Ready reports dependency health for /health; nil means always ready.
	Ready func(ctx context.Context) error
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the versioned API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per client id or IP)
//  8. CORS and security headers
//  9. gzip for JSON responses
func RegisterRoutes(r *gin.Engine, db *gorm.DB, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.LogOptions{QuietPaths: []string{"/health", "/metrics"}}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics("/metrics"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByHeaderOrIP(clientIDHeader), "/health", "/metrics")
	r.Use(rl.Handler())

	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", clientIDHeader}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", healthHandler(db, deps.Ready))

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	msgSvc := &services.MessageService{
		DB:              db,
		Events:          deps.Events,
		MaxContentRunes: services.DefaultMaxContentRunes,
	}
	h := handlers.New(msgSvc, deps.Dedup, &services.AuditService{DB: db},
		handlers.WithMaxContentRunes(msgSvc.MaxContentRunes),
		handlers.WithStats(func(ctx context.Context, roomID string) (int64, *time.Time, error) {
			return repo.MessagesStats(ctx, db, roomID)
		}),
	)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Message log
		api.POST("/rooms/:id/messages", h.PostMessage)
		api.GET("/rooms/:id/messages", h.ListMessages)

		// Filter
		api.POST("/rooms/:id/messages/:messageId/classify", h.ClassifyMessage)
		api.POST("/dedup/preview", h.PreviewDecision)

		// Audit
		audit := api.Group("", middleware.NoStore())
		audit.GET("/duplicates", h.ListDuplicates)
		audit.GET("/fingerprints", h.ListFingerprints)
	}
}

// healthHandler pings the database (and any extra dependency) and answers
// 503 when one of them is down.
func healthHandler(db *gorm.DB, ready func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "down"})
			return
		}
		if ready != nil {
			if err := ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// limitBody caps the request body size at maxBytes.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
