package discovery

import (
	"context"
	"errors"
	"testing"

	"naukri-agent/internal/board"
	"naukri-agent/internal/jobs"
)

type stubSession struct {
	board.Session

	results map[string]*jobs.Candidates
	errs    map[string]error
}

func (s *stubSession) FindJobs(_ context.Context, q jobs.Query) (*jobs.Candidates, error) {
	if err, ok := s.errs[q.Role]; ok {
		return nil, err
	}
	if found, ok := s.results[q.Role]; ok {
		return found, nil
	}
	return &jobs.Candidates{}, nil
}

func TestScrapeSourceCollectsAllQueries(t *testing.T) {
	t.Parallel()

	session := &stubSession{
		results: map[string]*jobs.Candidates{
			"Golang Developer": {Items: []*jobs.Candidate{
				candidate(jobs.SourceScrape, "1", "Golang Developer", "Acme Corp", "Bengaluru"),
			}},
			"Backend Engineer": {Items: []*jobs.Candidate{
				candidate(jobs.SourceScrape, "2", "Backend Engineer", "Initech", "Pune"),
			}},
		},
	}

	src := NewScrapeSource(session, nil)
	if src.Tag() != jobs.SourceScrape {
		t.Fatalf("unexpected tag: %q", src.Tag())
	}

	found, err := src.Discover(context.Background(), []jobs.Query{
		{Role: "Golang Developer", Location: "Bengaluru"},
		{Role: "Backend Engineer", Location: "Pune"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.Len() != 2 {
		t.Fatalf("expected 2 candidates, got %d", found.Len())
	}
}

func TestScrapeSourceToleratesPartialFailure(t *testing.T) {
	t.Parallel()

	session := &stubSession{
		results: map[string]*jobs.Candidates{
			"Golang Developer": {Items: []*jobs.Candidate{
				candidate(jobs.SourceScrape, "1", "Golang Developer", "Acme Corp", "Bengaluru"),
			}},
		},
		errs: map[string]error{
			"Broken Role": errors.New("selector mismatch"),
		},
	}

	src := NewScrapeSource(session, nil)

	found, err := src.Discover(context.Background(), []jobs.Query{
		{Role: "Broken Role"},
		{Role: "Golang Developer"},
	})
	if err != nil {
		t.Fatalf("expected partial failure to be tolerated, got %v", err)
	}
	if found.Len() != 1 {
		t.Fatalf("expected 1 candidate, got %d", found.Len())
	}
}

func TestScrapeSourceFailsWhenAllQueriesFail(t *testing.T) {
	t.Parallel()

	session := &stubSession{
		errs: map[string]error{
			"Golang Developer": errors.New("search page did not load"),
		},
	}

	src := NewScrapeSource(session, nil)

	if _, err := src.Discover(context.Background(), []jobs.Query{{Role: "Golang Developer"}}); err == nil {
		t.Fatalf("expected error when every query fails")
	}
}
