package filtering

import (
	"context"
	"fmt"

	"naukri-agent/internal/jobs"
)

// ExperienceConfig holds the acceptable required-experience window. A nil
// Range turns the rule into a no-op.
type ExperienceConfig struct {
	Range *jobs.ExperienceRange
}

type experienceRule struct {
	rng *jobs.ExperienceRange
}

// NewExperience creates the rule that drops candidates whose stated
// experience requirement does not overlap the configured window. A
// candidate without experience data passes.
func NewExperience(cfg *ExperienceConfig) Rule {
	r := &experienceRule{}
	if cfg != nil {
		r.rng = cfg.Range
	}
	return r
}

func (r *experienceRule) Name() string { return "experience" }

func (r *experienceRule) Disable(string) {}

func (r *experienceRule) IsEnabled() bool { return true }

func (r *experienceRule) Validate() error {
	if r.rng != nil && r.rng.Min > r.rng.Max {
		return fmt.Errorf("invalid experience range %s", r.rng)
	}
	return nil
}

func (r *experienceRule) Classify(_ context.Context, c *jobs.Candidate) (jobs.EligibilityVerdict, string, error) {
	if r.rng == nil || c.Experience == nil {
		return "", "", nil
	}

	if !c.Experience.Intersects(r.rng) {
		reason := fmt.Sprintf("requires %s, outside configured %s", c.Experience, r.rng)
		return jobs.SkippedExperienceMismatch, reason, nil
	}

	return "", "", nil
}
