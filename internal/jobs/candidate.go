package jobs

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Source tags carried by every candidate. The scrape source is the board
// itself; API sources are named by provider.
const (
	SourceScrape  = "scrape"
	SourceJSearch = "api:jsearch"
	SourceAdzuna  = "api:adzuna"
)

// Query is one (role, location) search target. Targets are expanded from the
// configured role and location lists in order.
type Query struct {
	Role     string
	Location string
	// Experience is the minimum years filter in the form the board's
	// search URL takes, e.g. "3". Sources without such a filter ignore it.
	Experience string
}

// Candidate is a single discovered job posting under consideration for
// application. It lives for one cycle; durable state is kept by the dedup
// store and the activity log only.
type Candidate struct {
	// ID is derived from the source tag and the source-native posting id,
	// e.g. "scrape:091120500012" or "api:adzuna:4012345678".
	ID          string
	Title       string
	Company     string
	Location    string
	URL         string
	Source      string
	Description string
	Experience  *ExperienceRange
	Skills      []string

	// Outcome metadata, attached as the candidate moves through the
	// pipeline. Never reset once set.
	Verdict  EligibilityVerdict
	Outcome  *ApplyOutcome
	Outreach *OutreachResult
}

// CandidateID builds the stable identifier for a posting.
func CandidateID(source, nativeID string) string {
	return fmt.Sprintf("%s:%s", source, strings.TrimSpace(nativeID))
}

// MatchKey returns the canonical key used to collapse the same real posting
// discovered by different sources: the (title, company, location) tuple,
// case-folded with whitespace collapsed.
func (c *Candidate) MatchKey() string {
	return normalize(c.Title) + "|" + normalize(c.Company) + "|" + normalize(c.Location)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Candidates is an ordered collection of candidates.
type Candidates struct {
	Items []*Candidate
}

func (c *Candidates) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

func (c *Candidates) Append(items ...*Candidate) {
	c.Items = append(c.Items, items...)
}

func (c *Candidates) FindByID(id string) *Candidate {
	for _, candidate := range c.Items {
		if candidate.ID == id {
			return candidate
		}
	}
	return nil
}

func (c *Candidates) IDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, candidate := range c.Items {
		ids = append(ids, candidate.ID)
	}
	return ids
}

// Shuffle randomizes the apply order so runs do not walk the board in a
// mechanical top-to-bottom sweep.
func (c *Candidates) Shuffle() {
	rand.Shuffle(len(c.Items), func(i, j int) {
		c.Items[i], c.Items[j] = c.Items[j], c.Items[i]
	})
}
