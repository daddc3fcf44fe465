// Package store persists the durable record of every job the agent has
// already handled. A posting with a record is never re-submitted, so the
// store is what makes repeated runs idempotent.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned by operations on a store that has been closed.
var ErrClosed = errors.New("store is closed")

// Record is one durable entry, keyed by the canonical job identifier.
// FirstSeen is written once and survives later updates to the outcome
// fields. Records are never deleted.
type Record struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Title     string    `json:"title,omitempty"`
	Company   string    `json:"company,omitempty"`
	URL       string    `json:"url,omitempty"`
	Source    string    `json:"source,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	FirstSeen time.Time `json:"first_seen"`
}

// Store is the durable dedup mapping. Get returns (nil, nil) for an unknown
// identifier. Put has append-or-update semantics: outcome fields of an
// existing record may change, FirstSeen never does.
type Store interface {
	Get(ctx context.Context, id string) (*Record, error)
	Put(ctx context.Context, rec *Record) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	// Backend is one of "file", "redis" or "postgres". Empty means "file".
	Backend string
	// Path is the JSON document location for the file backend.
	Path string
	// RedisURL and RedisKey configure the redis backend. RedisKey defaults
	// to DefaultRedisKey.
	RedisURL string
	RedisKey string
	// PostgresURL configures the postgres backend.
	PostgresURL string
}

// Open constructs the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	backend := strings.TrimSpace(strings.ToLower(cfg.Backend))
	if backend == "" {
		backend = "file"
	}

	switch backend {
	case "file":
		return NewFile(cfg.Path, logger)
	case "redis":
		return NewRedis(ctx, cfg.RedisURL, cfg.RedisKey, logger)
	case "postgres":
		return NewPostgres(ctx, cfg.PostgresURL, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
