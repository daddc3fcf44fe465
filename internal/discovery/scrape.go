package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"naukri-agent/internal/board"
	"naukri-agent/internal/jobs"
)

// ScrapeSource adapts an authenticated board session to the Source
// contract. It is the primary source: its records carry the most
// apply-ready data and win merge conflicts.
type ScrapeSource struct {
	session board.Session
	logger  *zap.Logger
}

func NewScrapeSource(session board.Session, logger *zap.Logger) *ScrapeSource {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ScrapeSource{
		session: session,
		logger:  logger,
	}
}

// Name is the human-readable source name used in logs.
func (s *ScrapeSource) Name() string { return "board scrape" }

// Tag is the source tag stamped on every candidate this source returns.
func (s *ScrapeSource) Tag() string { return jobs.SourceScrape }

// Discover runs every query against the board search. A failing query is
// logged and skipped; an error comes back only when every query failed.
func (s *ScrapeSource) Discover(ctx context.Context, queries []jobs.Query) (*jobs.Candidates, error) {
	found := &jobs.Candidates{}

	var failures int
	var lastErr error
	for _, q := range queries {
		candidates, err := s.session.FindJobs(ctx, q)
		if err != nil {
			failures++
			lastErr = err
			s.logger.Warn("board search failed",
				zap.String("role", q.Role),
				zap.String("location", q.Location),
				zap.Error(err),
			)
			continue
		}
		found.Append(candidates.Items...)
	}

	if lastErr != nil && failures == len(queries) {
		return nil, fmt.Errorf("all board searches failed: %w", lastErr)
	}

	return found, nil
}
