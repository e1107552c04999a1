package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alexnthnz/plant-care/internal/config"
	"github.com/alexnthnz/plant-care/internal/reminder"
)

// RedisClient wraps redis.Client
type RedisClient struct {
	*redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg config.RedisConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{Client: rdb}, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.Client.Close()
}

// RedisPlatform is a reminder.Platform backed by Redis. Fire times live in a
// sorted set scored by Unix milliseconds, notifications in a hash keyed by id.
type RedisPlatform struct {
	client     *redis.Client
	pendingKey string
	payloadKey string
}

// NewRedisPlatform stores reminders under keys starting with prefix.
func NewRedisPlatform(client *redis.Client, prefix string) *RedisPlatform {
	return &RedisPlatform{
		client:     client,
		pendingKey: prefix + "reminders:pending",
		payloadKey: prefix + "reminders:payloads",
	}
}

// ScheduleAt stores n, replacing any reminder with the same id.
func (p *RedisPlatform) ScheduleAt(ctx context.Context, n reminder.Notification) (string, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return "", fmt.Errorf("failed to encode reminder %s: %w", n.ID, err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, p.payloadKey, n.ID, data)
		pipe.ZAdd(ctx, p.pendingKey, redis.Z{Score: float64(n.FireAt.UnixMilli()), Member: n.ID})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to schedule reminder %s: %w", n.ID, err)
	}
	return n.ID, nil
}

// Cancel removes id. Unknown ids are ignored.
func (p *RedisPlatform) Cancel(ctx context.Context, id string) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, p.pendingKey, id)
		pipe.HDel(ctx, p.payloadKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to cancel reminder %s: %w", id, err)
	}
	return nil
}

// ListPending returns every stored reminder ordered by fire time.
func (p *RedisPlatform) ListPending(ctx context.Context) ([]reminder.Notification, error) {
	raw, err := p.client.HGetAll(ctx, p.payloadKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}

	out := make([]reminder.Notification, 0, len(raw))
	for id, data := range raw {
		var n reminder.Notification
		if err := json.Unmarshal([]byte(data), &n); err != nil {
			return nil, fmt.Errorf("failed to decode reminder %s: %w", id, err)
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out, nil
}

// CancelAll removes every reminder.
func (p *RedisPlatform) CancelAll(ctx context.Context) error {
	if err := p.client.Del(ctx, p.pendingKey, p.payloadKey).Err(); err != nil {
		return fmt.Errorf("failed to clear reminders: %w", err)
	}
	return nil
}

// PopDue claims and returns up to limit reminders due at or before now. A
// reminder is only returned to the caller whose ZREM removed it, so several
// dispatchers can poll the same keys.
func (p *RedisPlatform) PopDue(ctx context.Context, now time.Time, limit int) ([]reminder.Notification, error) {
	ids, err := p.client.ZRangeByScore(ctx, p.pendingKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}

	var due []reminder.Notification
	for _, id := range ids {
		removed, err := p.client.ZRem(ctx, p.pendingKey, id).Result()
		if err != nil {
			return due, fmt.Errorf("failed to claim reminder %s: %w", id, err)
		}
		if removed == 0 {
			continue
		}

		data, err := p.client.HGet(ctx, p.payloadKey, id).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return due, fmt.Errorf("failed to read reminder %s: %w", id, err)
		}

		// The reminder is claimed once ZREM succeeds, so it is handed back
		// even when its payload cannot be removed.
		var n reminder.Notification
		decodeErr := json.Unmarshal([]byte(data), &n)
		if decodeErr == nil {
			due = append(due, n)
		}
		if err := p.client.HDel(ctx, p.payloadKey, id).Err(); err != nil {
			return due, fmt.Errorf("failed to remove reminder payload %s: %w", id, err)
		}
		if decodeErr != nil {
			return due, fmt.Errorf("failed to decode reminder %s: %w", id, decodeErr)
		}
	}
	return due, nil
}
