package adzuna

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"naukri-agent/internal/jobs"
)

const samplePage = `{
  "count": 2,
  "results": [
    {
      "id": "4012345678",
      "title": "Golang Developer",
      "description": "Build services in Go. 2 to 4 years experience required.",
      "company": {"display_name": "Acme Corp"},
      "location": {"display_name": "Bengaluru, Karnataka"},
      "redirect_url": "https://adzuna.example/land/4012345678",
      "created": "2025-08-01T10:00:00Z"
    },
    {
      "id": "4098765432",
      "title": "Site Reliability Engineer",
      "description": "Keep the lights on.",
      "company": {"display_name": "Globex"},
      "location": {"display_name": "Pune, Maharashtra"},
      "redirect_url": "https://adzuna.example/land/4098765432",
      "created": "2025-08-02T10:00:00Z"
    }
  ]
}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(nil, "app-id", "app-key", "in")
	client.BaseURL = server.URL
	client.HTTPClient = server.Client()
	return client
}

func TestDiscoverMapsPostings(t *testing.T) {
	t.Parallel()

	var gotPath, gotAppID, gotWhat, gotWhere string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAppID = r.URL.Query().Get("app_id")
		gotWhat = r.URL.Query().Get("what")
		gotWhere = r.URL.Query().Get("where")
		fmt.Fprint(w, samplePage)
	}))

	found, err := client.Discover(context.Background(), []jobs.Query{{Role: "Golang Developer", Location: "Bengaluru"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/in/search/1" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotAppID != "app-id" {
		t.Fatalf("expected app_id param, got %q", gotAppID)
	}
	if gotWhat != "Golang Developer" || gotWhere != "Bengaluru" {
		t.Fatalf("unexpected search params: what=%q where=%q", gotWhat, gotWhere)
	}

	if found.Len() != 2 {
		t.Fatalf("expected 2 candidates, got %d", found.Len())
	}

	first := found.Items[0]
	if first.ID != "api:adzuna:4012345678" {
		t.Fatalf("unexpected id: %q", first.ID)
	}
	if first.Source != jobs.SourceAdzuna {
		t.Fatalf("unexpected source: %q", first.Source)
	}
	if first.Company != "Acme Corp" || first.Location != "Bengaluru, Karnataka" {
		t.Fatalf("unexpected mapping: %+v", first)
	}
	if first.Experience == nil || first.Experience.Min != 2 || first.Experience.Max != 4 {
		t.Fatalf("expected [2,4] parsed from description, got %+v", first.Experience)
	}

	second := found.Items[1]
	if second.Experience != nil {
		t.Fatalf("expected nil experience for second posting, got %+v", second.Experience)
	}
}

func TestDiscoverStopsOnShortPage(t *testing.T) {
	t.Parallel()

	var requests int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, samplePage)
	}))

	found, err := client.Discover(context.Background(), []jobs.Query{{Role: "Golang Developer"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Two results is below the full page size, so one request suffices.
	if requests != 1 {
		t.Fatalf("expected a single request, got %d", requests)
	}
	if found.Len() != 2 {
		t.Fatalf("expected 2 candidates, got %d", found.Len())
	}
}

func TestDiscoverFailsWhenAllQueriesFail(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.Discover(context.Background(), []jobs.Query{{Role: "Golang Developer"}})
	if err == nil {
		t.Fatalf("expected error when every query fails")
	}
}

func TestDiscoverToleratesPartialFailure(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("what") == "Broken Role" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, samplePage)
	}))

	found, err := client.Discover(context.Background(), []jobs.Query{
		{Role: "Broken Role"},
		{Role: "Golang Developer"},
	})
	if err != nil {
		t.Fatalf("expected partial failure to be tolerated, got %v", err)
	}
	if found.Len() != 2 {
		t.Fatalf("expected candidates from the healthy query, got %d", found.Len())
	}
}
