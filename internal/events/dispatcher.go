// Package events delivers MessageCreated triggers to the duplicate filter.
//
// Dispatcher runs handlers on a bounded ants worker pool and retries a
// failed delivery with exponential backoff, up to MaxAttempts. A handler may
// see the same event more than once and must be idempotent. Events given to
// Publish are at-most-once past MaxAttempts: an abandoned event is logged and
// counted, not kept. Deliver reports the outcome so a durable source such as
// RedisQueue can keep unprocessed events for redelivery.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-chat-dedup/internal/domain"
	"github.com/tbourn/go-chat-dedup/internal/observability"
)

// ErrDispatcherClosed is returned by Publish after Close.
var ErrDispatcherClosed = errors.New("events: dispatcher closed")

var errHandlerPanicked = errors.New("events: handler panicked")

// Handler processes one event. A non-nil error requests redelivery.
type Handler func(ctx context.Context, ev domain.MessageCreated) error

// Options sizes the dispatcher.
type Options struct {
	Workers      int           // pool size; defaults to 64
	MaxAttempts  int           // deliveries per event; defaults to 3
	RetryBackoff time.Duration // first retry delay, doubled per attempt
}

// Dispatcher fans MessageCreated events out to a Handler.
type Dispatcher struct {
	pool    *ants.Pool
	handler Handler
	opts    Options

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher builds a dispatcher backed by a blocking ants pool.
func NewDispatcher(h Handler, opts Options) (*Dispatcher, error) {
	if h == nil {
		return nil, errors.New("events: nil handler")
	}
	if opts.Workers <= 0 {
		opts.Workers = 64
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBackoff < 0 {
		opts.RetryBackoff = 0
	}

	pool, err := ants.NewPool(opts.Workers,
		ants.WithPanicHandler(func(p any) {
			log.Error().Interface("panic", p).Msg("message_created handler panicked")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("events: new pool: %w", err)
	}
	return &Dispatcher{
		pool:    pool,
		handler: h,
		opts:    opts,
		done:    make(chan struct{}),
	}, nil
}

// Publish schedules ev for delivery and returns once a worker has accepted
// it. The handler runs detached from ctx cancellation but keeps its values
// (trace span, request id), so an HTTP request can return before the
// filter finishes.
func (d *Dispatcher) Publish(ctx context.Context, ev domain.MessageCreated) error {
	return d.submit(ctx, ev, nil)
}

// Deliver runs ev through the worker pool like Publish but waits for the
// final outcome. It returns nil once the handler succeeds, or the last
// handler error after MaxAttempts. Callers that acknowledge an external
// queue use it to ack only processed events.
func (d *Dispatcher) Deliver(ctx context.Context, ev domain.MessageCreated) error {
	result := make(chan error, 1)
	if err := d.submit(ctx, ev, result); err != nil {
		return err
	}
	return <-result
}

func (d *Dispatcher) submit(ctx context.Context, ev domain.MessageCreated, result chan<- error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	hctx := context.WithoutCancel(ctx)
	d.wg.Add(1)
	err := d.pool.Submit(func() {
		defer d.wg.Done()
		// Stays errHandlerPanicked if deliver panics; the pool recovers it.
		outcome := errHandlerPanicked
		if result != nil {
			defer func() { result <- outcome }()
		}
		outcome = d.deliver(hctx, ev)
	})
	if err != nil {
		d.wg.Done()
		return fmt.Errorf("events: submit: %w", err)
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, ev domain.MessageCreated) error {
	backoff := d.opts.RetryBackoff
	for attempt := 1; ; attempt++ {
		err := d.handler(ctx, ev)
		if err == nil {
			return nil
		}
		if attempt >= d.opts.MaxAttempts {
			observability.DispatchDropped.Inc()
			log.Error().Err(err).
				Str("room_id", ev.RoomID).
				Str("message_id", ev.MessageID).
				Int("attempts", attempt).
				Msg("message_created delivery abandoned")
			return err
		}

		observability.DispatchRetries.Inc()
		log.Warn().Err(err).
			Str("room_id", ev.RoomID).
			Str("message_id", ev.MessageID).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("message_created delivery failed, retrying")

		select {
		case <-time.After(backoff):
		case <-d.done:
			// Shutting down: remaining attempts run without delay.
		}
		backoff *= 2
	}
}

// Running reports the number of busy workers.
func (d *Dispatcher) Running() int { return d.pool.Running() }

// Close stops accepting events and waits up to timeout for in-flight
// deliveries. Pending retries skip their backoff once Close is called.
func (d *Dispatcher) Close(timeout time.Duration) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.done)
	d.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(finished)
	}()

	var err error
	select {
	case <-finished:
	case <-time.After(timeout):
		err = errors.New("events: timed out waiting for in-flight deliveries")
	}
	if rerr := d.pool.ReleaseTimeout(timeout); rerr != nil && err == nil {
		err = rerr
	}
	return err
}
