// Package jsearch queries the JSearch aggregator on RapidAPI as a secondary
// discovery source.
package jsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"naukri-agent/internal/jobs"
)

const (
	apiURL     = "https://jsearch.p.rapidapi.com"
	apiHost    = "jsearch.p.rapidapi.com"
	searchPath = "/search"
	// Pages fetched per query. Each JSearch page carries about ten results.
	defaultPages = 1
)

type Client struct {
	key    string
	logger *zap.Logger

	HTTPClient *http.Client
	APIURL     string
	Host       string
	Pages      int
}

func New(logger *zap.Logger, key string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		key:    key,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		APIURL: apiURL,
		Host:   apiHost,
		Pages:  defaultPages,
	}
}

// Name is the human-readable source name used in logs.
func (c *Client) Name() string { return "jsearch" }

// Tag is the source tag stamped on every candidate this client returns.
func (c *Client) Tag() string { return jobs.SourceJSearch }

// Discover runs every query and returns the mapped postings. A failing
// query is logged and skipped; an error comes back only when every query
// failed, so one bad search term does not blank the whole source.
func (c *Client) Discover(ctx context.Context, queries []jobs.Query) (*jobs.Candidates, error) {
	found := &jobs.Candidates{}

	var failures int
	var lastErr error
	for _, q := range queries {
		candidates, err := c.search(ctx, q)
		if err != nil {
			failures++
			lastErr = err
			c.logger.Warn("jsearch query failed",
				zap.String("role", q.Role),
				zap.String("location", q.Location),
				zap.Error(err),
			)
			continue
		}
		found.Append(candidates...)
	}

	if lastErr != nil && failures == len(queries) {
		return nil, fmt.Errorf("all jsearch queries failed: %w", lastErr)
	}

	c.logger.Debug("jsearch discovery done",
		zap.Int("queries", len(queries)),
		zap.Int("found", found.Len()),
	)

	return found, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+path, nil)
	if err != nil {
		return err
	}

	req.Header.Set("X-RapidAPI-Key", c.key)
	req.Header.Set("X-RapidAPI-Host", c.Host)
	req.Header.Set("Accept", "application/json")
	req.URL.RawQuery = q.Encode()

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	return json.Unmarshal(body, target)
}
