package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"naukri-agent/internal/jobs"
	"naukri-agent/internal/store"
)

type alreadyProcessedRule struct {
	deps     *AlreadyProcessedDeps
	disabled bool
	reason   string
}

type AlreadyProcessedDeps struct {
	Store  store.Store
	Logger *zap.Logger
}

// NewAlreadyProcessed creates the rule that skips candidates with an
// existing dedup record. It runs first so nothing already handled is ever
// re-evaluated, let alone re-applied.
func NewAlreadyProcessed(deps *AlreadyProcessedDeps) Rule {
	return &alreadyProcessedRule{deps: deps}
}

func (r *alreadyProcessedRule) Name() string { return "already_processed" }

func (r *alreadyProcessedRule) Disable(reason string) {
	r.disabled = true
	r.reason = reason
	if r.deps != nil && r.deps.Logger != nil {
		r.deps.Logger.Info("ignoring already processed candidates", zap.String("reason", reason))
	}
}

func (r *alreadyProcessedRule) IsEnabled() bool { return !r.disabled }

func (r *alreadyProcessedRule) Validate() error {
	if r.deps == nil || r.deps.Store == nil {
		return fmt.Errorf("dedup store is required")
	}
	return nil
}

func (r *alreadyProcessedRule) Classify(ctx context.Context, c *jobs.Candidate) (jobs.EligibilityVerdict, string, error) {
	rec, err := r.deps.Store.Get(ctx, c.ID)
	if err != nil {
		return "", "", fmt.Errorf("dedup lookup: %w", err)
	}
	if rec == nil {
		return "", "", nil
	}

	return jobs.SkippedAlreadyProcessed, fmt.Sprintf("recorded with status %q", rec.Status), nil
}
