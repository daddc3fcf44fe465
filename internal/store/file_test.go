package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestFilePutGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "applied.json")

	s, err := NewFile(path, nil)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}

	got, err := s.Get(ctx, "scrape:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil record for unknown id, got %+v", got)
	}

	rec := &Record{
		ID:      "scrape:1",
		Status:  "applied_direct",
		Title:   "Go Developer",
		Company: "Acme",
		Source:  "scrape",
	}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err = s.Get(ctx, "scrape:1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatalf("expected record, got nil")
	}
	if got.Status != "applied_direct" || got.Title != "Go Developer" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.FirstSeen.IsZero() {
		t.Fatalf("expected FirstSeen to be stamped")
	}

	n, err := s.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}
}

func TestFilePutPreservesFirstSeen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "applied.json")

	s, err := NewFile(path, nil)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}

	first := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.Put(ctx, &Record{ID: "scrape:7", Status: "apply_failed", FirstSeen: first}); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Later outcome update must not move FirstSeen.
	if err := s.Put(ctx, &Record{ID: "scrape:7", Status: "applied_direct", FirstSeen: time.Now()}); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := s.Get(ctx, "scrape:7")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "applied_direct" {
		t.Fatalf("expected updated status, got %q", got.Status)
	}
	if !got.FirstSeen.Equal(first) {
		t.Fatalf("expected FirstSeen %v to be preserved, got %v", first, got.FirstSeen)
	}
}

func TestFileSurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "applied.json")

	s, err := NewFile(path, nil)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	if err := s.Put(ctx, &Record{ID: "api:jsearch:a1", Status: "skipped_keyword_mismatch", Reason: "no role match"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, &Record{ID: "scrape:b2", Status: "applied_direct"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Every Put lands on disk before returning, so a process restart sees
	// all records.
	reopened, err := NewFile(path, nil)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}

	n, err := reopened.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 records after reopen, got %d", n)
	}

	got, err := reopened.Get(ctx, "api:jsearch:a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Reason != "no role match" {
		t.Fatalf("unexpected record after reopen: %+v", got)
	}
}

func TestFileRejectsEmptyID(t *testing.T) {
	t.Parallel()

	s, err := NewFile(filepath.Join(t.TempDir(), "applied.json"), nil)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}

	if err := s.Put(context.Background(), &Record{Status: "applied_direct"}); err == nil {
		t.Fatalf("expected error for record without id")
	}
	if err := s.Put(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil record")
	}
}

func TestFileClosedOperationsFail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	s, err := NewFile(filepath.Join(t.TempDir(), "applied.json"), nil)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := s.Get(ctx, "scrape:1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from Get, got %v", err)
	}
	if err := s.Put(ctx, &Record{ID: "scrape:1", Status: "applied_direct"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from Put, got %v", err)
	}
	if _, err := s.Len(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from Len, got %v", err)
	}

	// Closing again is harmless.
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	s, err := Open(ctx, Config{Path: filepath.Join(t.TempDir(), "applied.json")}, nil)
	if err != nil {
		t.Fatalf("opening default backend: %v", err)
	}
	if _, ok := s.(*File); !ok {
		t.Fatalf("expected file backend, got %T", s)
	}

	if _, err := Open(ctx, Config{Backend: "etcd"}, nil); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
