// Package app assembles the dedup service from configuration: storage, the
// duplicate filter, trigger delivery (in-process, optionally fed by a Redis
// queue), scheduled fingerprint retention, and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-chat-dedup/internal/config"
	"github.com/tbourn/go-chat-dedup/internal/domain"
	"github.com/tbourn/go-chat-dedup/internal/events"
	httpapi "github.com/tbourn/go-chat-dedup/internal/http"
	"github.com/tbourn/go-chat-dedup/internal/repo"
	"github.com/tbourn/go-chat-dedup/internal/services"
)

const (
	// shutdownTimeout bounds each shutdown step.
	shutdownTimeout = 10 * time.Second
	// redisConsumers is the number of concurrent queue readers. Each waits
	// for its event's final outcome before acknowledging it.
	redisConsumers = 4
)

// App is a fully wired dedupd instance.
type App struct {
	Config     config.Config
	DB         *gorm.DB
	Dedup      *services.DedupService
	Dispatcher *events.Dispatcher
	Retention  *services.RetentionService
	Router     *gin.Engine

	redis *redis.Client
	queue *events.RedisQueue
	cron  *cron.Cron
}

// PolicyFrom maps classifier settings onto a services.Policy.
func PolicyFrom(cfg config.DedupConfig) services.Policy {
	return services.Policy{
		Window:             cfg.Window,
		MaxCandidates:      cfg.MaxCandidates,
		Threshold:          cfg.Threshold,
		MinNormalizedRunes: cfg.MinNormalizedRunes,
		MinTokens:          cfg.MinTokens,
		MinTokenRunes:      cfg.MinTokenRunes,
	}
}

// OpenDB opens and migrates the configured database.
func OpenDB(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.Open(repo.Options{
		Driver:          cfg.DB.Driver,
		Path:            cfg.DB.Path,
		URL:             cfg.DB.URL,
		ConnectAttempts: 10,
		ConnectBackoff:  2 * time.Second,
		Tracing:         cfg.OTEL.Enabled,
		Silent:          cfg.LogLevel != "debug",
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// New wires every component. Nothing runs until Run is called.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, DB: db}

	a.Dedup = services.NewDedupService(
		repo.MessageLog{DB: db},
		repo.FingerprintStore{DB: db},
		repo.DuplicateEventStore{DB: db},
		PolicyFrom(cfg.Dedup),
		services.AuthorClassifier{Prefixes: cfg.Dedup.AutomationPrefixes, SystemID: cfg.Dedup.SystemAuthorID},
	)

	a.Dispatcher, err = events.NewDispatcher(a.handle, events.Options{
		Workers:      cfg.Dispatch.Workers,
		MaxAttempts:  cfg.Dispatch.MaxAttempts,
		RetryBackoff: cfg.Dispatch.RetryBackoff,
	})
	if err != nil {
		a.closeDB()
		return nil, err
	}

	var publisher services.Publisher = a.Dispatcher
	var ready func(context.Context) error
	if cfg.Redis.Enabled() {
		a.redis, err = events.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			_ = a.Dispatcher.Close(time.Second)
			a.closeDB()
			return nil, err
		}
		a.queue = events.NewRedisQueue(a.redis, cfg.Redis.Queue)
		publisher = a.queue
		ready = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}

	a.Retention = &services.RetentionService{DB: db, TTL: cfg.Retention.FingerprintTTL}
	if a.Retention.Enabled() {
		a.cron = cron.New(
			cron.WithLogger(cronLogger{}),
			cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
		)
		if _, err := a.cron.AddFunc(cfg.Retention.Schedule, a.purge); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("purge schedule %q: %w", cfg.Retention.Schedule, err)
		}
	}

	gin.SetMode(cfg.GinMode)
	a.Router = gin.New()
	httpapi.RegisterRoutes(a.Router, db, httpapi.Deps{
		Events: publisher,
		Dedup:  a.Dedup,
		Ready:  ready,
	}, cfg)

	return a, nil
}

// handle is the dispatcher's delivery function.
func (a *App) handle(ctx context.Context, ev domain.MessageCreated) error {
	_, err := a.Dedup.HandleMessageCreated(ctx, ev.RoomID, ev.MessageID)
	return err
}

func (a *App) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := a.Retention.Purge(ctx); err != nil {
		log.Error().Err(err).Msg("scheduled fingerprint purge failed")
	}
}

// Run serves HTTP and, when configured, consumes the Redis queue and runs the
// retention schedule. It blocks until ctx is cancelled or the server fails,
// then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	cfg := a.Config
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var wg sync.WaitGroup
	if a.queue != nil {
		if n, err := a.queue.Recover(ctx); err != nil {
			log.Warn().Err(err).Msg("requeue of unacknowledged events failed")
		} else if n > 0 {
			log.Info().Int("events", n).Msg("requeued unacknowledged message_created events")
		}
		for i := 0; i < redisConsumers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = a.queue.Consume(runCtx, a.Dispatcher.Deliver)
			}()
		}
		log.Info().Str("queue", cfg.Redis.Queue).Int("consumers", redisConsumers).Msg("consuming message_created from redis")
	}
	if a.cron != nil {
		a.cron.Start()
		log.Info().
			Str("schedule", cfg.Retention.Schedule).
			Dur("ttl", cfg.Retention.FingerprintTTL).
			Msg("fingerprint retention scheduled")
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		runErr = err
	}

	log.Info().Msg("shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	stop()
	wg.Wait()

	if err := a.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Close stops background work and releases connections. In-flight deliveries
// get shutdownTimeout to finish.
func (a *App) Close() error {
	var errs []error
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.Dispatcher != nil {
		if err := a.Dispatcher.Close(shutdownTimeout); err != nil {
			errs = append(errs, fmt.Errorf("dispatcher: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if err := a.closeDB(); err != nil {
		errs = append(errs, fmt.Errorf("db: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) closeDB() error {
	if a.DB == nil {
		return nil
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// cronLogger routes robfig/cron logs to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
