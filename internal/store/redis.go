package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisKey is the hash under which the redis backend keeps records.
const DefaultRedisKey = "naukri-agent:applied"

// Redis keeps all records as JSON values in a single hash, one field per
// job identifier.
type Redis struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedis parses redisURL, verifies connectivity and returns the backend.
func NewRedis(ctx context.Context, redisURL, key string, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = DefaultRedisKey
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Redis{client: client, key: key, logger: logger}, nil
}

func (r *Redis) Get(ctx context.Context, id string) (*Record, error) {
	data, err := r.client.HGet(ctx, r.key, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis HGET %s %s: %w", r.key, id, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("parsing record %s: %w", id, err)
	}
	return &rec, nil
}

func (r *Redis) Put(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return errors.New("store: record must have an id")
	}

	clone := *rec
	existing, err := r.Get(ctx, rec.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		clone.FirstSeen = existing.FirstSeen
	} else if clone.FirstSeen.IsZero() {
		clone.FirstSeen = time.Now().UTC()
	}

	data, err := json.Marshal(&clone)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", rec.ID, err)
	}

	if err := r.client.HSet(ctx, r.key, rec.ID, data).Err(); err != nil {
		return fmt.Errorf("redis HSET %s %s: %w", r.key, rec.ID, err)
	}
	return nil
}

func (r *Redis) Len(ctx context.Context) (int, error) {
	n, err := r.client.HLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis HLEN %s: %w", r.key, err)
	}
	return int(n), nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
