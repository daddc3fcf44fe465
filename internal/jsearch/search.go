package jsearch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"

	"naukri-agent/internal/jobs"
)

type searchResponse struct {
	Status string `json:"status"`
	Data   []any  `json:"data"`
}

type posting struct {
	JobID       string `json:"job_id"`
	Title       string `json:"job_title"`
	Employer    string `json:"employer_name"`
	City        string `json:"job_city"`
	Country     string `json:"job_country"`
	ApplyLink   string `json:"job_apply_link"`
	Description string `json:"job_description"`
	Experience  struct {
		RequiredMonths float64 `json:"required_experience_in_months"`
	} `json:"job_required_experience"`
	Skills []string `json:"job_required_skills"`
}

// search pulls up to c.Pages result pages for one query. JSearch takes the
// role and location as a single free-text query string.
func (c *Client) search(ctx context.Context, query jobs.Query) ([]*jobs.Candidate, error) {
	var candidates []*jobs.Candidate

	text := query.Role
	if query.Location != "" {
		text = fmt.Sprintf("%s in %s", query.Role, query.Location)
	}

	pages := c.Pages
	if pages < 1 {
		pages = 1
	}

	for page := 1; page <= pages; page++ {
		q := url.Values{}
		q.Set("query", text)
		q.Set("page", strconv.Itoa(page))
		q.Set("num_pages", "1")

		var resp searchResponse
		if err := c.getJSON(ctx, searchPath, q, &resp); err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		if len(resp.Data) == 0 {
			break
		}

		var postings []*posting
		cfg := &mapstructure.DecoderConfig{
			Metadata: nil,
			Result:   &postings,
			TagName:  "json",
		}
		decoder, _ := mapstructure.NewDecoder(cfg)
		if err := decoder.Decode(resp.Data); err != nil {
			return nil, fmt.Errorf("page %d: decoding postings: %w", page, err)
		}

		for _, p := range postings {
			if p.JobID == "" {
				continue
			}
			candidates = append(candidates, p.toCandidate())
		}
	}

	return candidates, nil
}

func (p *posting) toCandidate() *jobs.Candidate {
	experience := p.experienceRange()
	if experience == nil {
		experience = jobs.ParseExperience(p.Description)
	}

	return &jobs.Candidate{
		ID:          jobs.CandidateID(jobs.SourceJSearch, p.JobID),
		Title:       p.Title,
		Company:     p.Employer,
		Location:    joinNonEmpty(p.City, p.Country),
		URL:         p.ApplyLink,
		Source:      jobs.SourceJSearch,
		Description: p.Description,
		Experience:  experience,
		Skills:      p.Skills,
	}
}

// experienceRange converts the structured months requirement into a
// degenerate range in years, or nil when the field is absent.
func (p *posting) experienceRange() *jobs.ExperienceRange {
	if p.Experience.RequiredMonths <= 0 {
		return nil
	}
	years := p.Experience.RequiredMonths / 12
	return &jobs.ExperienceRange{Min: years, Max: years}
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			kept = append(kept, strings.TrimSpace(part))
		}
	}
	return strings.Join(kept, ", ")
}
