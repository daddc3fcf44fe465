// Package discovery finds job postings across the configured sources and
// merges them into one deduplicated candidate list per cycle.
package discovery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"naukri-agent/internal/jobs"
)

// Source is one discovery backend. Implementations return candidates tagged
// with their source and never share state with other sources.
type Source interface {
	Name() string
	Tag() string
	Discover(ctx context.Context, queries []jobs.Query) (*jobs.Candidates, error)
}

// Merger runs all sources and collapses duplicate postings. The source
// order is the merge priority: when two sources return the same posting,
// the earlier source's record is kept. Wiring puts the scrape source first,
// so scrape data wins over API data.
type Merger struct {
	sources []Source
	timeout time.Duration
	logger  *zap.Logger
}

// NewMerger builds a Merger. A non-positive timeout disables the per-source
// deadline.
func NewMerger(sources []Source, perSourceTimeout time.Duration, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Merger{
		sources: sources,
		timeout: perSourceTimeout,
		logger:  logger,
	}
}

type sourceResult struct {
	found *jobs.Candidates
	err   error
}

// Discover fans the queries out to every source concurrently, waits for all
// of them to finish or time out, and merges the results. A failing source
// is logged and skipped; when every source fails the cycle gets an empty
// list, not an error. The error return is reserved for cancellation.
func (m *Merger) Discover(ctx context.Context, queries []jobs.Query) (*jobs.Candidates, error) {
	results := make([]sourceResult, len(m.sources))

	var wg sync.WaitGroup
	for i, src := range m.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()

			sctx := ctx
			if m.timeout > 0 {
				var cancel context.CancelFunc
				sctx, cancel = context.WithTimeout(ctx, m.timeout)
				defer cancel()
			}

			found, err := src.Discover(sctx, queries)
			results[i] = sourceResult{found: found, err: err}
		}(i, src)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := m.merge(results)

	m.logger.Info("discovery done",
		zap.Int("sources", len(m.sources)),
		zap.Int("candidates", merged.Len()),
	)

	return merged, nil
}

// merge walks the per-source results in priority order and keeps the first
// record seen for each match key. Group order follows the first appearance
// of the key.
func (m *Merger) merge(results []sourceResult) *jobs.Candidates {
	merged := &jobs.Candidates{}
	seen := make(map[string]*jobs.Candidate)

	for i, res := range results {
		src := m.sources[i]

		if res.err != nil {
			m.logger.Warn("discovery source failed",
				zap.String("source", src.Name()),
				zap.Error(res.err),
			)
			continue
		}

		initial := merged.Len()
		for _, c := range res.found.Items {
			key := c.MatchKey()
			if existing, ok := seen[key]; ok {
				m.logger.Debug("collapsing duplicate posting",
					zap.String("kept", existing.ID),
					zap.String("dropped", c.ID),
				)
				continue
			}
			seen[key] = c
			merged.Append(c)
		}

		m.logger.Debug("source merged",
			zap.String("source", src.Name()),
			zap.Int("returned", res.found.Len()),
			zap.Int("added", merged.Len()-initial),
		)
	}

	return merged
}
