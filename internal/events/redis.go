package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-chat-dedup/internal/config"
	"github.com/tbourn/go-chat-dedup/internal/domain"
)

// NewRedisClient connects to a single Redis node and verifies it with PING.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// RedisQueue carries MessageCreated events between instances over a Redis
// list. Producers LPUSH. Consumers atomically move each entry onto a
// processing list (BRPOPLPUSH) and remove it only after the handler
// succeeds, so an event survives a consumer crash or a failed delivery and
// is requeued by Recover. Each event is taken by one instance at a time.
type RedisQueue struct {
	client     *redis.Client
	key        string
	processing string

	// PollTimeout bounds each blocking pop so Consume notices cancellation.
	PollTimeout time.Duration
}

// NewRedisQueue returns a queue on the given list key. In-flight entries
// live under key + ":processing".
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{
		client:      client,
		key:         key,
		processing:  key + ":processing",
		PollTimeout: time.Second,
	}
}

// Publish serializes ev and pushes it onto the queue.
func (q *RedisQueue) Publish(ctx context.Context, ev domain.MessageCreated) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, data).Err()
}

// Recover moves every entry left on the processing list back onto the
// queue and returns how many were moved. Call it before consuming: entries
// found there were taken by a consumer that crashed or whose handler failed.
// Running it while other instances consume may redeliver an event they are
// still handling; handlers are idempotent, so that only costs a lookup.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := q.client.RPopLPush(ctx, q.processing, q.key).Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("requeue %s: %w", q.processing, err)
		}
		n++
	}
}

// Consume takes events and passes them to h until ctx is cancelled. An
// entry is acknowledged (removed from the processing list) when h returns
// nil or when it cannot be decoded; on a handler error it stays on the
// processing list for Recover. Consume returns nil on cancellation.
func (q *RedisQueue) Consume(ctx context.Context, h Handler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		raw, err := q.client.BRPopLPush(ctx, q.key, q.processing, q.PollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Str("key", q.key).Msg("redis brpoplpush failed")
			select {
			case <-time.After(q.PollTimeout):
			case <-ctx.Done():
				return nil
			}
			continue
		}

		var ev domain.MessageCreated
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			log.Error().Err(err).Str("key", q.key).Msg("drop undecodable message_created")
			q.ack(raw)
			continue
		}
		if err := h(ctx, ev); err != nil {
			log.Error().Err(err).
				Str("room_id", ev.RoomID).
				Str("message_id", ev.MessageID).
				Str("processing", q.processing).
				Msg("message_created not processed, kept for redelivery")
			continue
		}
		q.ack(raw)
	}
}

// ack removes one processed entry. It runs on a fresh context so a
// cancellation racing the handler does not leave a finished event behind.
func (q *RedisQueue) ack(raw string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.client.LRem(ctx, q.processing, 1, raw).Err(); err != nil {
		log.Warn().Err(err).Str("processing", q.processing).Msg("redis ack failed; event may be redelivered")
	}
}

// Len returns the number of queued events.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// InFlight returns the number of taken but unacknowledged events.
func (q *RedisQueue) InFlight(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.processing).Result()
}
