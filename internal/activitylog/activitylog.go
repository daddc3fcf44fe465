// Package activitylog keeps the durable trail of what the agent did: one
// append-only JSONL stream per event category. Every record is
// self-contained, so a single line answers what happened to a posting
// without consulting the other streams.
package activitylog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stream file names inside the activity directory.
const (
	FileApplied  = "applied.jsonl"
	FileSkipped  = "skipped.jsonl"
	FileExternal = "external.jsonl"
	FileContact  = "contact.jsonl"
)

// Entry is one activity record. Unused fields stay off the wire.
type Entry struct {
	Time     time.Time `json:"time"`
	CycleID  string    `json:"cycle_id,omitempty"`
	JobID    string    `json:"job_id"`
	Title    string    `json:"title,omitempty"`
	Company  string    `json:"company,omitempty"`
	Location string    `json:"location,omitempty"`
	URL      string    `json:"url,omitempty"`
	Source   string    `json:"source,omitempty"`
	Status   string    `json:"status"`
	Reason   string    `json:"reason,omitempty"`

	// Contact stream extras.
	RecruiterName string `json:"recruiter_name,omitempty"`
	Message       string `json:"message,omitempty"`

	// External stream extra.
	ExternalURL string `json:"external_url,omitempty"`
}

// Recorder is what the pipeline stages write through.
type Recorder interface {
	Applied(e Entry) error
	Skipped(e Entry) error
	External(e Entry) error
	Contact(e Entry) error
}

// Logger writes the four streams under a single directory. Appends are
// serialized and synced to disk before returning, so records survive a
// crash immediately after the call.
type Logger struct {
	mu     sync.Mutex
	dir    string
	files  map[string]*os.File
	logger *zap.Logger
}

var _ Recorder = (*Logger)(nil)

// New creates dir when needed and returns a Logger writing into it.
func New(dir string, logger *zap.Logger) (*Logger, error) {
	if dir == "" {
		dir = "activity"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating activity directory %q: %w", dir, err)
	}

	return &Logger{
		dir:    dir,
		files:  make(map[string]*os.File),
		logger: logger,
	}, nil
}

// Applied records a confirmed direct application.
func (l *Logger) Applied(e Entry) error {
	return l.append(FileApplied, e)
}

// Skipped records a candidate dropped by eligibility checks.
func (l *Logger) Skipped(e Entry) error {
	return l.append(FileSkipped, e)
}

// External records a posting that needs a manual off-site application.
func (l *Logger) External(e Entry) error {
	return l.append(FileExternal, e)
}

// Contact records a recruiter outreach attempt and its result.
func (l *Logger) Contact(e Entry) error {
	return l.append(FileContact, e)
}

func (l *Logger) append(file string, e Entry) error {
	if e.JobID == "" {
		return errors.New("activitylog: entry must have a job id")
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	data, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("encoding activity entry: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.open(file)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("appending to %s: %w", file, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", file, err)
	}

	l.logger.Debug("activity recorded",
		zap.String("stream", file),
		zap.String("job_id", e.JobID),
		zap.String("status", e.Status),
	)

	return nil
}

// open returns the cached handle for file, creating it on first use.
// Callers hold l.mu.
func (l *Logger) open(file string) (*os.File, error) {
	if f, ok := l.files[file]; ok {
		return f, nil
	}

	f, err := os.OpenFile(filepath.Join(l.dir, file), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening activity stream %s: %w", file, err)
	}
	l.files[file] = f
	return f, nil
}

// Close releases all stream handles.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var errs []error
	for name, f := range l.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
		}
		delete(l.files, name)
	}
	return errors.Join(errs...)
}
