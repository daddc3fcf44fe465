package jobs

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// ExperienceRange is a required-experience window in years. A single stated
// value is the degenerate range [v, v]; "N+" has no upper bound.
type ExperienceRange struct {
	Min float64
	Max float64
}

var (
	expRangeRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:-|–|to)\s*(\d+(?:\.\d+)?)\s*(?:years?|yrs?)`)
	expPlusRe   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*\+\s*(?:years?|yrs?)`)
	expSingleRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:years?|yrs?)`)
)

// ParseExperience extracts a required-experience range from free text such as
// "2-4 Yrs", "3+ years" or "5 years". It returns nil when the text states no
// requirement at all.
func ParseExperience(text string) *ExperienceRange {
	if m := expRangeRe.FindStringSubmatch(text); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		if hi < lo {
			lo, hi = hi, lo
		}
		return &ExperienceRange{Min: lo, Max: hi}
	}
	if m := expPlusRe.FindStringSubmatch(text); m != nil {
		lo, _ := strconv.ParseFloat(m[1], 64)
		return &ExperienceRange{Min: lo, Max: math.Inf(1)}
	}
	if m := expSingleRe.FindStringSubmatch(text); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		return &ExperienceRange{Min: v, Max: v}
	}
	return nil
}

// Intersects reports whether two ranges share at least one value. A nil range
// on either side means "no requirement stated" and always intersects.
func (r *ExperienceRange) Intersects(other *ExperienceRange) bool {
	if r == nil || other == nil {
		return true
	}
	return r.Min <= other.Max && other.Min <= r.Max
}

func (r *ExperienceRange) String() string {
	if r == nil {
		return "any"
	}
	if math.IsInf(r.Max, 1) {
		return fmt.Sprintf("%s+ years", formatYears(r.Min))
	}
	if r.Min == r.Max {
		return fmt.Sprintf("%s years", formatYears(r.Min))
	}
	return fmt.Sprintf("%s-%s years", formatYears(r.Min), formatYears(r.Max))
}

func formatYears(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
