// Package filtering classifies discovered candidates against the configured
// targets before anything touches the board. Rules run in a fixed order and
// the first skip verdict wins; candidates that pass every rule come out
// eligible for the apply stage.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"naukri-agent/internal/activitylog"
	"naukri-agent/internal/jobs"
	"naukri-agent/internal/store"
)

// Rule is a single eligibility check. Classify returns the skip verdict and
// a human-readable reason, or an empty verdict when the candidate passes.
type Rule interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Classify(ctx context.Context, c *jobs.Candidate) (jobs.EligibilityVerdict, string, error)
}

// Step describes the result of executing one rule over the remaining
// candidates.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Pipeline drives the rules and owns the skip side effects: every skip is
// written to the activity log exactly once, and skips other than
// already-processed are remembered in the dedup store so later cycles
// short-circuit on the first rule.
type Pipeline struct {
	rules    []Rule
	store    store.Store
	activity activitylog.Recorder
	logger   *zap.Logger
}

func New(rules []Rule, st store.Store, recorder activitylog.Recorder, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		rules:    rules,
		store:    st,
		activity: recorder,
		logger:   logger,
	}
}

// Run classifies every candidate and returns the eligible remainder in
// discovery order. Disabled rules are logged and stepped over.
func (p *Pipeline) Run(ctx context.Context, cycleID string, candidates *jobs.Candidates) (*jobs.Candidates, error) {
	for _, rule := range p.rules {
		if !rule.IsEnabled() {
			continue
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", rule.Name(), err)
		}
	}

	remaining := candidates.Items
	for _, rule := range p.rules {
		if !rule.IsEnabled() {
			p.logger.Info("filter disabled", zap.String("name", rule.Name()))
			continue
		}

		initial := len(remaining)
		kept := make([]*jobs.Candidate, 0, initial)
		var skipped []string

		for _, c := range remaining {
			verdict, reason, err := rule.Classify(ctx, c)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", rule.Name(), err)
			}
			if verdict == "" {
				kept = append(kept, c)
				continue
			}

			if err := p.recordSkip(ctx, cycleID, c, verdict, reason); err != nil {
				return nil, fmt.Errorf("%s: %w", rule.Name(), err)
			}
			skipped = append(skipped, c.ID)
		}
		remaining = kept

		if len(skipped) > 0 {
			p.logger.Info("skipping candidates",
				zap.String("rule", rule.Name()),
				zap.Strings("skipped_candidates", skipped),
				zap.Int("candidates_left", len(remaining)),
			)
		}

		p.logger.Info("filter step",
			zap.String("name", rule.Name()),
			zap.Int("initial", initial),
			zap.Int("dropped", initial-len(remaining)),
			zap.Int("left", len(remaining)),
		)
	}

	for _, c := range remaining {
		c.Verdict = jobs.Eligible
	}

	return &jobs.Candidates{Items: remaining}, nil
}

// recordSkip attaches the verdict and performs the durable writes. The
// verdict is immutable once set, so a candidate is recorded at most once
// per cycle.
func (p *Pipeline) recordSkip(ctx context.Context, cycleID string, c *jobs.Candidate, verdict jobs.EligibilityVerdict, reason string) error {
	c.Verdict = verdict

	if p.activity != nil {
		err := p.activity.Skipped(activitylog.Entry{
			CycleID:  cycleID,
			JobID:    c.ID,
			Title:    c.Title,
			Company:  c.Company,
			Location: c.Location,
			URL:      c.URL,
			Source:   c.Source,
			Status:   string(verdict),
			Reason:   reason,
		})
		if err != nil {
			return fmt.Errorf("recording skip: %w", err)
		}
	}

	// Already-processed candidates have a store record by definition.
	if verdict == jobs.SkippedAlreadyProcessed || p.store == nil {
		return nil
	}

	err := p.store.Put(ctx, &store.Record{
		ID:      c.ID,
		Status:  string(verdict),
		Title:   c.Title,
		Company: c.Company,
		URL:     c.URL,
		Source:  c.Source,
		Reason:  reason,
	})
	if err != nil {
		return fmt.Errorf("storing skip: %w", err)
	}
	return nil
}
