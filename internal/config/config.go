// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage, classifier tuning, event dispatch, retention, rate
// limiting, and observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// DBConfig selects the backing store.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH (sqlite)
	URL    string // DATABASE_URL (postgres)
}

// DedupConfig tunes the duplicate classifier.
type DedupConfig struct {
	Window             time.Duration // DEDUP_WINDOW
	MaxCandidates      int           // DEDUP_MAX_CANDIDATES
	Threshold          float64       // DEDUP_THRESHOLD in (0,1]
	MinNormalizedRunes int           // DEDUP_MIN_NORMALIZED_RUNES
	MinTokens          int           // DEDUP_MIN_TOKENS
	MinTokenRunes      int           // DEDUP_MIN_TOKEN_RUNES

	AutomationPrefixes []string // AUTOMATION_PREFIXES
	SystemAuthorID     string   // SYSTEM_AUTHOR_ID
}

// DispatchConfig sizes the MessageCreated worker pool.
type DispatchConfig struct {
	Workers      int           // DISPATCH_WORKERS
	MaxAttempts  int           // DISPATCH_MAX_ATTEMPTS
	RetryBackoff time.Duration // DISPATCH_RETRY_BACKOFF
}

// RedisConfig enables the optional Redis event queue when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Addr) != "" }

// RetentionConfig controls fingerprint purging. A zero TTL disables it.
type RetentionConfig struct {
	FingerprintTTL time.Duration // FINGERPRINT_RETENTION
	Schedule       string        // PURGE_SCHEDULE (cron spec)
}

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "chat-dedup")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	DB        DBConfig
	Dedup     DedupConfig
	Dispatch  DispatchConfig
	Redis     RedisConfig
	Retention RetentionConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DB: DBConfig{
			Driver: strings.ToLower(strings.TrimSpace(getenv("DB_DRIVER", "sqlite"))),
			Path:   getenv("DB_PATH", "dedup.db"),
			URL:    getenv("DATABASE_URL", ""),
		},

		Dedup: DedupConfig{
			Window:             getdur("DEDUP_WINDOW", 60*time.Minute),
			MaxCandidates:      getint("DEDUP_MAX_CANDIDATES", 500),
			Threshold:          getfloat("DEDUP_THRESHOLD", 0.82),
			MinNormalizedRunes: getint("DEDUP_MIN_NORMALIZED_RUNES", 6),
			MinTokens:          getint("DEDUP_MIN_TOKENS", 3),
			MinTokenRunes:      getint("DEDUP_MIN_TOKEN_RUNES", 3),
			AutomationPrefixes: splitCSV(getenv("AUTOMATION_PREFIXES", "ai_,bot_,npc_")),
			SystemAuthorID:     getenv("SYSTEM_AUTHOR_ID", "system"),
		},

		Dispatch: DispatchConfig{
			Workers:      getint("DISPATCH_WORKERS", 64),
			MaxAttempts:  getint("DISPATCH_MAX_ATTEMPTS", 3),
			RetryBackoff: getdur("DISPATCH_RETRY_BACKOFF", 200*time.Millisecond),
		},

		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
			Queue:    getenv("REDIS_QUEUE", "chat:messages:created"),
		},

		Retention: RetentionConfig{
			FingerprintTTL: getdur("FINGERPRINT_RETENTION", 0),
			Schedule:       getenv("PURGE_SCHEDULE", "@every 1h"),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "chat-dedup"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" {
		cfg.DB.Driver = "postgres"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.URL) == "" {
			return cfg, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.Dedup.Window <= 0 {
		return cfg, errors.New("DEDUP_WINDOW must be > 0")
	}
	if cfg.Dedup.MaxCandidates < 1 {
		return cfg, errors.New("DEDUP_MAX_CANDIDATES must be >= 1")
	}
	if cfg.Dedup.Threshold <= 0 || cfg.Dedup.Threshold > 1 {
		return cfg, errors.New("DEDUP_THRESHOLD must be in (0,1]")
	}
	if cfg.Dedup.MinNormalizedRunes < 0 || cfg.Dedup.MinTokens < 0 || cfg.Dedup.MinTokenRunes < 1 {
		return cfg, errors.New("DEDUP_MIN_* values must be non-negative (token runes >= 1)")
	}
	if len(cfg.Dedup.AutomationPrefixes) == 0 {
		return cfg, errors.New("AUTOMATION_PREFIXES must list at least one prefix")
	}
	if strings.TrimSpace(cfg.Dedup.SystemAuthorID) == "" {
		return cfg, errors.New("SYSTEM_AUTHOR_ID must not be empty")
	}
	if cfg.Dispatch.Workers < 1 {
		return cfg, errors.New("DISPATCH_WORKERS must be >= 1")
	}
	if cfg.Dispatch.MaxAttempts < 1 {
		return cfg, errors.New("DISPATCH_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.Dispatch.RetryBackoff < 0 {
		return cfg, errors.New("DISPATCH_RETRY_BACKOFF must be >= 0")
	}
	if cfg.Redis.Enabled() && strings.TrimSpace(cfg.Redis.Queue) == "" {
		return cfg, errors.New("REDIS_QUEUE must not be empty when REDIS_ADDR is set")
	}
	if cfg.Retention.FingerprintTTL < 0 {
		return cfg, errors.New("FINGERPRINT_RETENTION must be >= 0")
	}
	if cfg.Retention.FingerprintTTL > 0 && cfg.Retention.FingerprintTTL < cfg.Dedup.Window {
		return cfg, errors.New("FINGERPRINT_RETENTION must be 0 or >= DEDUP_WINDOW")
	}
	if cfg.Retention.FingerprintTTL > 0 && strings.TrimSpace(cfg.Retention.Schedule) == "" {
		return cfg, errors.New("PURGE_SCHEDULE must not be empty when retention is enabled")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
