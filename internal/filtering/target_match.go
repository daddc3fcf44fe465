package filtering

import (
	"context"
	"fmt"
	"strings"

	"naukri-agent/internal/jobs"
)

// TargetMatchConfig carries the configured search targets. Matching is
// case-folded substring containment: a candidate passes when any role
// appears in its title or any keyword appears in its description, and its
// location (when stated) contains one of the configured locations.
type TargetMatchConfig struct {
	Roles     []string
	Keywords  []string
	Locations []string
}

type targetMatchRule struct {
	cfg *TargetMatchConfig

	roles     []string
	keywords  []string
	locations []string
}

// NewTargetMatch creates the rule that drops candidates outside the
// configured role, keyword and location targets.
func NewTargetMatch(cfg *TargetMatchConfig) Rule {
	return &targetMatchRule{cfg: cfg}
}

func (r *targetMatchRule) Name() string { return "target_match" }

func (r *targetMatchRule) Disable(string) {}

func (r *targetMatchRule) IsEnabled() bool { return true }

func (r *targetMatchRule) Validate() error {
	r.roles = nil
	r.keywords = nil
	r.locations = nil
	if r.cfg != nil {
		r.roles = fold(r.cfg.Roles)
		r.keywords = fold(r.cfg.Keywords)
		r.locations = fold(r.cfg.Locations)
	}
	return nil
}

func (r *targetMatchRule) Classify(_ context.Context, c *jobs.Candidate) (jobs.EligibilityVerdict, string, error) {
	// Nothing configured means nothing to mismatch.
	if len(r.roles) == 0 && len(r.keywords) == 0 && len(r.locations) == 0 {
		return "", "", nil
	}

	title := strings.ToLower(c.Title)
	description := strings.ToLower(c.Description)

	matched := len(r.roles) == 0 && len(r.keywords) == 0
	for _, role := range r.roles {
		if strings.Contains(title, role) {
			matched = true
			break
		}
	}
	if !matched {
		for _, keyword := range r.keywords {
			if strings.Contains(description, keyword) {
				matched = true
				break
			}
		}
	}
	if !matched {
		return jobs.SkippedKeywordMismatch, "title and description match no configured role or keyword", nil
	}

	// An absent location is a pass, not a fail.
	location := strings.ToLower(strings.TrimSpace(c.Location))
	if len(r.locations) > 0 && location != "" {
		var ok bool
		for _, target := range r.locations {
			if strings.Contains(location, target) {
				ok = true
				break
			}
		}
		if !ok {
			return jobs.SkippedKeywordMismatch, fmt.Sprintf("location %q matches no configured location", c.Location), nil
		}
	}

	return "", "", nil
}

func fold(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
