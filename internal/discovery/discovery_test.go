package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"naukri-agent/internal/jobs"
)

type stubSource struct {
	name  string
	tag   string
	items []*jobs.Candidate
	err   error
	delay time.Duration
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Tag() string  { return s.tag }

func (s *stubSource) Discover(ctx context.Context, _ []jobs.Query) (*jobs.Candidates, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &jobs.Candidates{Items: s.items}, nil
}

func candidate(source, id, title, company, location string) *jobs.Candidate {
	return &jobs.Candidate{
		ID:       jobs.CandidateID(source, id),
		Title:    title,
		Company:  company,
		Location: location,
		Source:   source,
	}
}

func TestDiscoverMergesDuplicateAcrossSources(t *testing.T) {
	t.Parallel()

	scrape := &stubSource{
		name: "board scrape",
		tag:  jobs.SourceScrape,
		items: []*jobs.Candidate{
			candidate(jobs.SourceScrape, "111", "Golang Developer", "Acme Corp", "Bengaluru"),
		},
	}
	api := &stubSource{
		name: "jsearch",
		tag:  jobs.SourceJSearch,
		items: []*jobs.Candidate{
			// Same posting, different normalization on the API side.
			candidate(jobs.SourceJSearch, "abc", "  golang   developer ", "ACME CORP", "bengaluru"),
			candidate(jobs.SourceJSearch, "def", "Backend Engineer", "Initech", "Pune"),
		},
	}

	merger := NewMerger([]Source{scrape, api}, 0, nil)

	merged, err := merger.Discover(context.Background(), []jobs.Query{{Role: "Golang Developer"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if merged.Len() != 2 {
		t.Fatalf("expected 2 candidates after merge, got %d: %v", merged.Len(), merged.IDs())
	}

	// The scrape record is canonical for the duplicated posting.
	first := merged.Items[0]
	if first.ID != "scrape:111" || first.Source != jobs.SourceScrape {
		t.Fatalf("expected scrape record to win the merge, got %+v", first)
	}

	second := merged.Items[1]
	if second.ID != "api:jsearch:def" {
		t.Fatalf("expected distinct API posting to survive, got %+v", second)
	}
}

func TestDiscoverToleratesSourceFailure(t *testing.T) {
	t.Parallel()

	broken := &stubSource{
		name: "jsearch",
		tag:  jobs.SourceJSearch,
		err:  errors.New("quota exceeded"),
	}
	healthy := &stubSource{
		name: "adzuna",
		tag:  jobs.SourceAdzuna,
		items: []*jobs.Candidate{
			candidate(jobs.SourceAdzuna, "42", "Golang Developer", "Acme Corp", "Bengaluru"),
		},
	}

	merger := NewMerger([]Source{broken, healthy}, 0, nil)

	merged, err := merger.Discover(context.Background(), nil)
	if err != nil {
		t.Fatalf("source failure must not abort discovery: %v", err)
	}
	if merged.Len() != 1 {
		t.Fatalf("expected candidates from the healthy source, got %d", merged.Len())
	}
}

func TestDiscoverAllSourcesFailedYieldsEmptySet(t *testing.T) {
	t.Parallel()

	merger := NewMerger([]Source{
		&stubSource{name: "jsearch", tag: jobs.SourceJSearch, err: errors.New("down")},
		&stubSource{name: "adzuna", tag: jobs.SourceAdzuna, err: errors.New("down too")},
	}, 0, nil)

	merged, err := merger.Discover(context.Background(), nil)
	if err != nil {
		t.Fatalf("all-failed discovery must not error: %v", err)
	}
	if merged.Len() != 0 {
		t.Fatalf("expected empty candidate list, got %d", merged.Len())
	}
}

func TestDiscoverWaitsForAllSourcesBeforeMerging(t *testing.T) {
	t.Parallel()

	fast := &stubSource{
		name: "jsearch",
		tag:  jobs.SourceJSearch,
		items: []*jobs.Candidate{
			candidate(jobs.SourceJSearch, "f1", "Golang Developer", "Acme Corp", "Bengaluru"),
		},
	}
	slow := &stubSource{
		name:  "adzuna",
		tag:   jobs.SourceAdzuna,
		delay: 50 * time.Millisecond,
		items: []*jobs.Candidate{
			candidate(jobs.SourceAdzuna, "s1", "Backend Engineer", "Initech", "Pune"),
		},
	}

	merger := NewMerger([]Source{fast, slow}, 0, nil)

	merged, err := merger.Discover(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merged.Len() != 2 {
		t.Fatalf("expected both sources to be awaited, got %d candidates", merged.Len())
	}
}

func TestDiscoverPerSourceTimeout(t *testing.T) {
	t.Parallel()

	stuck := &stubSource{
		name:  "jsearch",
		tag:   jobs.SourceJSearch,
		delay: time.Hour,
	}
	healthy := &stubSource{
		name: "adzuna",
		tag:  jobs.SourceAdzuna,
		items: []*jobs.Candidate{
			candidate(jobs.SourceAdzuna, "42", "Golang Developer", "Acme Corp", "Bengaluru"),
		},
	}

	merger := NewMerger([]Source{stuck, healthy}, 30*time.Millisecond, nil)

	start := time.Now()
	merged, err := merger.Discover(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timed-out source held up the merge for %v", elapsed)
	}
	if merged.Len() != 1 {
		t.Fatalf("expected candidates from the healthy source, got %d", merged.Len())
	}
}

func TestDiscoverReturnsErrorOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	merger := NewMerger([]Source{
		&stubSource{name: "jsearch", tag: jobs.SourceJSearch},
	}, 0, nil)

	if _, err := merger.Discover(ctx, nil); err == nil {
		t.Fatalf("expected error when context is cancelled")
	}
}

func TestMergeDropsDuplicateWithinOneSource(t *testing.T) {
	t.Parallel()

	src := &stubSource{
		name: "board scrape",
		tag:  jobs.SourceScrape,
		items: []*jobs.Candidate{
			candidate(jobs.SourceScrape, "1", "Golang Developer", "Acme Corp", "Bengaluru"),
			// Overlapping queries can surface the same posting twice.
			candidate(jobs.SourceScrape, "1", "Golang Developer", "Acme Corp", "Bengaluru"),
		},
	}

	merger := NewMerger([]Source{src}, 0, nil)

	merged, err := merger.Discover(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merged.Len() != 1 {
		t.Fatalf("expected within-source duplicate to collapse, got %d", merged.Len())
	}
}
