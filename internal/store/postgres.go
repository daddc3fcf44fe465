package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS applied_jobs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	company    TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	reason     TEXT NOT NULL DEFAULT '',
	first_seen TIMESTAMPTZ NOT NULL
)`

// Postgres keeps one row per job identifier. The upsert leaves first_seen
// untouched for existing rows.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres creates a verified pgx pool and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating applied_jobs table: %w", err)
	}

	return &Postgres{pool: pool, logger: logger}, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := p.pool.QueryRow(ctx,
		`SELECT id, status, title, company, url, source, reason, first_seen
		 FROM applied_jobs WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.Status, &rec.Title, &rec.Company, &rec.URL, &rec.Source, &rec.Reason, &rec.FirstSeen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying record %s: %w", id, err)
	}
	return &rec, nil
}

func (p *Postgres) Put(ctx context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return errors.New("store: record must have an id")
	}

	firstSeen := rec.FirstSeen
	if firstSeen.IsZero() {
		firstSeen = time.Now().UTC()
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO applied_jobs (id, status, title, company, url, source, reason, first_seen)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
			status  = EXCLUDED.status,
			title   = EXCLUDED.title,
			company = EXCLUDED.company,
			url     = EXCLUDED.url,
			source  = EXCLUDED.source,
			reason  = EXCLUDED.reason`,
		rec.ID, rec.Status, rec.Title, rec.Company, rec.URL, rec.Source, rec.Reason, firstSeen,
	)
	if err != nil {
		return fmt.Errorf("upserting record %s: %w", rec.ID, err)
	}
	return nil
}

func (p *Postgres) Len(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM applied_jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
