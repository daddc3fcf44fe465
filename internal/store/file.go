package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultFilePath is where the file backend keeps its records when no path
// is configured.
const DefaultFilePath = "applied_jobs.json"

// File is the default backend. It keeps the full record set in memory and
// rewrites the JSON document through a temp file and rename on every Put, so
// a crash mid-write leaves the previous document intact.
type File struct {
	mu      sync.Mutex
	path    string
	records map[string]*Record
	closed  bool
	logger  *zap.Logger
}

// NewFile loads the document at path, or starts empty when it does not
// exist yet.
func NewFile(path string, logger *zap.Logger) (*File, error) {
	if path == "" {
		path = DefaultFilePath
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &File{
		path:    path,
		records: make(map[string]*Record),
		logger:  logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return nil, fmt.Errorf("reading store %q: %w", path, err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &f.records); err != nil {
			return nil, fmt.Errorf("parsing store %q: %w", path, err)
		}
	}

	logger.Debug("store loaded",
		zap.String("path", path),
		zap.Int("records", len(f.records)),
	)

	return f, nil
}

func (f *File) Get(_ context.Context, id string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}

	rec, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (f *File) Put(_ context.Context, rec *Record) error {
	if rec == nil || rec.ID == "" {
		return errors.New("store: record must have an id")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	clone := *rec
	if existing, ok := f.records[rec.ID]; ok {
		clone.FirstSeen = existing.FirstSeen
	} else if clone.FirstSeen.IsZero() {
		clone.FirstSeen = time.Now().UTC()
	}
	f.records[rec.ID] = &clone

	return f.flushLocked()
}

func (f *File) Len(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrClosed
	}
	return len(f.records), nil
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// flushLocked writes the whole document atomically. Callers hold f.mu.
func (f *File) flushLocked() error {
	data, err := json.MarshalIndent(f.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating store directory %q: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp store file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp store file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing store %q: %w", f.path, err)
	}

	return nil
}
