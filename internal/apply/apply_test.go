package apply

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"naukri-agent/internal/activitylog"
	"naukri-agent/internal/board"
	"naukri-agent/internal/jobs"
	"naukri-agent/internal/store"
)

type fakeSession struct {
	board.Session

	mu          sync.Mutex
	affordances map[string]board.Affordance
	locateErr   map[string]error
	submits     map[string]board.SubmitStatus
	submitErr   map[string]error
	locateCalls []string
	submitCalls []string
	onLocate    func()
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		affordances: make(map[string]board.Affordance),
		locateErr:   make(map[string]error),
		submits:     make(map[string]board.SubmitStatus),
		submitErr:   make(map[string]error),
	}
}

func (f *fakeSession) LocateApplyAffordance(ctx context.Context, c *jobs.Candidate) (board.Affordance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locateCalls = append(f.locateCalls, c.ID)
	if f.onLocate != nil {
		f.onLocate()
	}
	if err := ctx.Err(); err != nil {
		return board.Affordance{}, err
	}
	if err := f.locateErr[c.ID]; err != nil {
		return board.Affordance{}, err
	}
	return f.affordances[c.ID], nil
}

func (f *fakeSession) Submit(ctx context.Context, c *jobs.Candidate) (board.SubmitStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls = append(f.submitCalls, c.ID)
	if err := f.submitErr[c.ID]; err != nil {
		return "", err
	}
	return f.submits[c.ID], nil
}

type memStore struct {
	mu      sync.Mutex
	records map[string]*store.Record
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*store.Record)}
}

func (m *memStore) Get(ctx context.Context, id string) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id], nil
}

func (m *memStore) Put(ctx context.Context, rec *store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errors.New("store unavailable")
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *memStore) Len(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

func (m *memStore) Close() error { return nil }

type memRecorder struct {
	mu        sync.Mutex
	applied   []activitylog.Entry
	skipped   []activitylog.Entry
	external  []activitylog.Entry
	contact   []activitylog.Entry
	onApplied func(activitylog.Entry)
}

func (m *memRecorder) Applied(e activitylog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onApplied != nil {
		m.onApplied(e)
	}
	m.applied = append(m.applied, e)
	return nil
}

func (m *memRecorder) Skipped(e activitylog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped = append(m.skipped, e)
	return nil
}

func (m *memRecorder) External(e activitylog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.external = append(m.external, e)
	return nil
}

func (m *memRecorder) Contact(e activitylog.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contact = append(m.contact, e)
	return nil
}

type countPacer struct {
	waits int
}

func (p *countPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

func eligibleCandidate(id, title, company string) *jobs.Candidate {
	return &jobs.Candidate{
		ID:       id,
		Title:    title,
		Company:  company,
		Location: "Bengaluru",
		URL:      "https://example.com/jobs/" + id,
		Source:   jobs.SourceScrape,
		Verdict:  jobs.Eligible,
	}
}

func TestRunResolvesEveryAffordance(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.affordances["scrape:1"] = board.Affordance{Kind: board.AffordanceInternal}
	session.submits["scrape:1"] = board.SubmitConfirmed
	session.affordances["scrape:2"] = board.Affordance{Kind: board.AffordanceInternal}
	session.submits["scrape:2"] = board.SubmitAlreadyApplied
	session.affordances["scrape:3"] = board.Affordance{Kind: board.AffordanceExternal, ExternalURL: "https://careers.example.com/3"}
	session.affordances["scrape:4"] = board.Affordance{Kind: board.AffordanceNone}

	st := newMemStore()
	recorder := &memRecorder{}
	pacer := &countPacer{}
	engine := New(session, st, recorder, pacer, zap.NewNop())

	candidates := &jobs.Candidates{Items: []*jobs.Candidate{
		eligibleCandidate("scrape:1", "Go Developer", "Acme"),
		eligibleCandidate("scrape:2", "Backend Engineer", "Globex"),
		eligibleCandidate("scrape:3", "Platform Engineer", "Initech"),
		eligibleCandidate("scrape:4", "SRE", "Umbrella"),
	}}

	if err := engine.Run(context.Background(), "cycle-1", candidates); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	wantStatus := map[string]jobs.ApplyStatus{
		"scrape:1": jobs.AppliedDirect,
		"scrape:2": jobs.AlreadyApplied,
		"scrape:3": jobs.RequiresExternalApply,
		"scrape:4": jobs.ApplyFailed,
	}
	for _, c := range candidates.Items {
		if c.Outcome == nil {
			t.Fatalf("candidate %s has no outcome", c.ID)
		}
		if c.Outcome.Status != wantStatus[c.ID] {
			t.Fatalf("candidate %s: got status %q, want %q", c.ID, c.Outcome.Status, wantStatus[c.ID])
		}

		rec, err := st.Get(context.Background(), c.ID)
		if err != nil || rec == nil {
			t.Fatalf("candidate %s missing from store (err %v)", c.ID, err)
		}
		if rec.Status != string(wantStatus[c.ID]) {
			t.Fatalf("candidate %s stored with status %q", c.ID, rec.Status)
		}
	}

	if pacer.waits != 4 {
		t.Fatalf("expected 4 pacer waits, got %d", pacer.waits)
	}

	if external := candidates.Items[2].Outcome.ExternalURL; external != "https://careers.example.com/3" {
		t.Fatalf("unexpected external url %q", external)
	}

	if len(recorder.external) != 1 || recorder.external[0].JobID != "scrape:3" {
		t.Fatalf("unexpected external stream: %+v", recorder.external)
	}
	if recorder.external[0].ExternalURL != "https://careers.example.com/3" {
		t.Fatalf("external entry missing url: %+v", recorder.external[0])
	}

	if len(recorder.applied) != 3 {
		t.Fatalf("expected 3 applied-stream entries, got %d", len(recorder.applied))
	}

	// One activity entry per candidate, never more.
	seen := make(map[string]int)
	for _, e := range recorder.applied {
		seen[e.JobID]++
	}
	for _, e := range recorder.external {
		seen[e.JobID]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("candidate %s logged %d times", id, n)
		}
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 logged candidates, got %d", len(seen))
	}
}

func TestRunContinuesAfterBoardErrors(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.locateErr["scrape:1"] = errors.New("page timed out")
	session.affordances["scrape:2"] = board.Affordance{Kind: board.AffordanceInternal}
	session.submitErr["scrape:2"] = errors.New("confirm dialog never appeared")
	session.affordances["scrape:3"] = board.Affordance{Kind: board.AffordanceInternal}
	session.submits["scrape:3"] = board.SubmitConfirmed

	st := newMemStore()
	recorder := &memRecorder{}
	engine := New(session, st, recorder, &countPacer{}, zap.NewNop())

	candidates := &jobs.Candidates{Items: []*jobs.Candidate{
		eligibleCandidate("scrape:1", "Go Developer", "Acme"),
		eligibleCandidate("scrape:2", "Backend Engineer", "Globex"),
		eligibleCandidate("scrape:3", "Platform Engineer", "Initech"),
	}}

	if err := engine.Run(context.Background(), "cycle-1", candidates); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := candidates.Items[0].Outcome.Status; got != jobs.ApplyFailed {
		t.Fatalf("candidate 1: got %q, want apply failure", got)
	}
	if reason := candidates.Items[0].Outcome.Reason; reason == "" {
		t.Fatal("candidate 1 failure has no reason")
	}
	if got := candidates.Items[1].Outcome.Status; got != jobs.ApplyFailed {
		t.Fatalf("candidate 2: got %q, want apply failure", got)
	}
	if got := candidates.Items[2].Outcome.Status; got != jobs.AppliedDirect {
		t.Fatalf("candidate 3: got %q, want applied", got)
	}

	if n, _ := st.Len(context.Background()); n != 3 {
		t.Fatalf("expected 3 store records, got %d", n)
	}
}

func TestRunStoresOutcomeBeforeLogging(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.affordances["scrape:1"] = board.Affordance{Kind: board.AffordanceInternal}
	session.submits["scrape:1"] = board.SubmitConfirmed

	st := newMemStore()
	recorder := &memRecorder{}
	recorder.onApplied = func(e activitylog.Entry) {
		if rec, _ := st.Get(context.Background(), e.JobID); rec == nil {
			t.Errorf("store record for %s missing when activity log was written", e.JobID)
		}
	}

	engine := New(session, st, recorder, &countPacer{}, zap.NewNop())
	candidates := &jobs.Candidates{Items: []*jobs.Candidate{
		eligibleCandidate("scrape:1", "Go Developer", "Acme"),
	}}

	if err := engine.Run(context.Background(), "cycle-1", candidates); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(recorder.applied) != 1 {
		t.Fatalf("expected 1 applied entry, got %d", len(recorder.applied))
	}
}

func TestRunStopsWhenContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session := newFakeSession()
	st := newMemStore()
	engine := New(session, st, &memRecorder{}, &countPacer{}, zap.NewNop())

	candidates := &jobs.Candidates{Items: []*jobs.Candidate{
		eligibleCandidate("scrape:1", "Go Developer", "Acme"),
	}}

	if err := engine.Run(ctx, "cycle-1", candidates); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if n, _ := st.Len(context.Background()); n != 0 {
		t.Fatalf("canceled run must not write records, got %d", n)
	}
}

func TestRunLeavesNoRecordWhenCanceledMidCandidate(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	session := newFakeSession()
	session.onLocate = cancel

	st := newMemStore()
	recorder := &memRecorder{}
	engine := New(session, st, recorder, &countPacer{}, zap.NewNop())

	candidates := &jobs.Candidates{Items: []*jobs.Candidate{
		eligibleCandidate("scrape:1", "Go Developer", "Acme"),
		eligibleCandidate("scrape:2", "Backend Engineer", "Globex"),
	}}

	if err := engine.Run(ctx, "cycle-1", candidates); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The interrupted candidate stays unrecorded so the next cycle
	// picks it up again.
	if n, _ := st.Len(context.Background()); n != 0 {
		t.Fatalf("expected no store records, got %d", n)
	}
	if len(recorder.applied)+len(recorder.external) != 0 {
		t.Fatal("expected no activity entries for an interrupted candidate")
	}
	if len(session.locateCalls) != 1 {
		t.Fatalf("expected run to stop after first candidate, got calls %v", session.locateCalls)
	}
}

func TestRunAbortsWhenStoreFails(t *testing.T) {
	t.Parallel()

	session := newFakeSession()
	session.affordances["scrape:1"] = board.Affordance{Kind: board.AffordanceInternal}
	session.submits["scrape:1"] = board.SubmitConfirmed

	st := newMemStore()
	st.failPut = true
	engine := New(session, st, &memRecorder{}, &countPacer{}, zap.NewNop())

	candidates := &jobs.Candidates{Items: []*jobs.Candidate{
		eligibleCandidate("scrape:1", "Go Developer", "Acme"),
		eligibleCandidate("scrape:2", "Backend Engineer", "Globex"),
	}}

	err := engine.Run(context.Background(), "cycle-1", candidates)
	if err == nil {
		t.Fatal("expected error when the store is unavailable")
	}

	if len(session.locateCalls) != 1 {
		t.Fatalf("expected run to stop after first candidate, got calls %v", session.locateCalls)
	}
}

func TestRunWithNoCandidates(t *testing.T) {
	t.Parallel()

	pacer := &countPacer{}
	engine := New(newFakeSession(), newMemStore(), &memRecorder{}, pacer, zap.NewNop())

	if err := engine.Run(context.Background(), "cycle-1", &jobs.Candidates{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pacer.waits != 0 {
		t.Fatalf("expected no pacer waits, got %d", pacer.waits)
	}
}
