// Package adzuna queries the Adzuna public job API as a secondary discovery
// source.
package adzuna

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"naukri-agent/internal/jobs"
)

const (
	baseURL  = "https://api.adzuna.com/v1/api/jobs"
	pageSize = 50
	// Pagination ceiling per (role, location) pair.
	maxPages       = 3
	defaultCountry = "in"
)

type Client struct {
	appID  string
	appKey string
	logger *zap.Logger

	HTTPClient *http.Client
	BaseURL    string
	Country    string
}

func New(logger *zap.Logger, appID, appKey, country string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if country == "" {
		country = defaultCountry
	}

	return &Client{
		appID:  appID,
		appKey: appKey,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		BaseURL: baseURL,
		Country: country,
	}
}

// Name is the human-readable source name used in logs.
func (c *Client) Name() string { return "adzuna" }

// Tag is the source tag stamped on every candidate this client returns.
func (c *Client) Tag() string { return jobs.SourceAdzuna }

type searchResponse struct {
	Results []result `json:"results"`
	Count   int      `json:"count"`
}

type result struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	RedirectURL string `json:"redirect_url"`
	Created     string `json:"created"`
}

// Discover runs every query and returns the mapped postings. A failing
// query is logged and skipped; an error comes back only when every query
// failed.
func (c *Client) Discover(ctx context.Context, queries []jobs.Query) (*jobs.Candidates, error) {
	found := &jobs.Candidates{}

	var failures int
	var lastErr error
	for _, q := range queries {
		candidates, err := c.search(ctx, q)
		if err != nil {
			failures++
			lastErr = err
			c.logger.Warn("adzuna query failed",
				zap.String("role", q.Role),
				zap.String("location", q.Location),
				zap.Error(err),
			)
			continue
		}
		found.Append(candidates...)
	}

	if lastErr != nil && failures == len(queries) {
		return nil, fmt.Errorf("all adzuna queries failed: %w", lastErr)
	}

	c.logger.Debug("adzuna discovery done",
		zap.Int("queries", len(queries)),
		zap.Int("found", found.Len()),
	)

	return found, nil
}

// search iterates result pages for one query until a short page signals the
// end or the pagination ceiling is reached.
func (c *Client) search(ctx context.Context, query jobs.Query) ([]*jobs.Candidate, error) {
	var candidates []*jobs.Candidate

	for page := 1; page <= maxPages; page++ {
		batch, err := c.fetchPage(ctx, query, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, r := range batch {
			if r.ID == "" {
				continue
			}
			candidates = append(candidates, r.toCandidate())
		}

		if len(batch) < pageSize {
			break
		}
	}

	return candidates, nil
}

func (c *Client) fetchPage(ctx context.Context, query jobs.Query, page int) ([]result, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", c.BaseURL, c.Country, page)

	params := url.Values{}
	params.Set("app_id", c.appID)
	params.Set("app_key", c.appKey)
	params.Set("results_per_page", strconv.Itoa(pageSize))
	params.Set("what", query.Role)
	if query.Location != "" {
		params.Set("where", query.Location)
	}
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("make request", zap.String("url", endpoint), zap.Int("page", page))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}

	return parsed.Results, nil
}

func (r *result) toCandidate() *jobs.Candidate {
	return &jobs.Candidate{
		ID:          jobs.CandidateID(jobs.SourceAdzuna, r.ID),
		Title:       r.Title,
		Company:     r.Company.DisplayName,
		Location:    r.Location.DisplayName,
		URL:         r.RedirectURL,
		Source:      jobs.SourceAdzuna,
		Description: r.Description,
		Experience:  jobs.ParseExperience(r.Description),
	}
}
