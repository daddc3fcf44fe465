// Package apply drives the per-candidate application state machine against
// an authenticated board session.
package apply

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"naukri-agent/internal/activitylog"
	"naukri-agent/internal/board"
	"naukri-agent/internal/jobs"
	"naukri-agent/internal/logger"
	"naukri-agent/internal/store"
)

// Pacer blocks until the next apply action may start.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Engine applies eligible candidates one at a time. The session is
// stateful, so candidates are never processed concurrently.
type Engine struct {
	session  board.Session
	store    store.Store
	activity activitylog.Recorder
	pacer    Pacer
	logger   *zap.Logger
}

func New(session board.Session, st store.Store, recorder activitylog.Recorder, pacer Pacer, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		session:  session,
		store:    st,
		activity: recorder,
		pacer:    pacer,
		logger:   logger,
	}
}

// Run processes each candidate in order and sets its Outcome. The outcome
// is in the dedup store and the activity log before the next candidate
// starts, so stopping the process between candidates never loses a
// submission record. Board trouble with a single posting marks that
// candidate ApplyFailed and the run continues; only context cancellation
// and store or log write failures abort it.
func (e *Engine) Run(ctx context.Context, cycleID string, candidates *jobs.Candidates) error {
	if candidates.Len() == 0 {
		e.logger.Info("no candidates to apply to")
		return nil
	}

	for _, candidate := range candidates.Items {
		if candidate == nil {
			continue
		}

		if err := e.pacer.Wait(ctx); err != nil {
			return err
		}

		log := logger.WithJobFields(e.logger, candidate.ID, candidate.Title, candidate.Company, candidate.Source)
		log.Info("applying to posting")

		outcome, err := e.applyOne(ctx, candidate)
		if err != nil {
			return err
		}
		candidate.Outcome = outcome

		if err := e.record(ctx, cycleID, candidate); err != nil {
			return fmt.Errorf("recording outcome for %s: %w", candidate.ID, err)
		}

		switch outcome.Status {
		case jobs.ApplyFailed:
			log.Warn("apply failed", zap.String("reason", outcome.Reason))
		case jobs.RequiresExternalApply:
			log.Info("posting requires an external application", zap.String("external_url", outcome.ExternalURL))
		default:
			log.Info("apply finished", zap.String("status", string(outcome.Status)))
		}
	}

	return nil
}

// applyOne walks the state machine for one candidate. A non-nil error is
// returned only for context cancellation; board failures become an
// ApplyFailed outcome so the candidate is recorded and the cycle moves on.
func (e *Engine) applyOne(ctx context.Context, candidate *jobs.Candidate) (*jobs.ApplyOutcome, error) {
	affordance, err := e.session.LocateApplyAffordance(ctx, candidate)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return &jobs.ApplyOutcome{
			Status: jobs.ApplyFailed,
			Reason: fmt.Sprintf("locate apply control: %v", err),
		}, nil
	}

	switch affordance.Kind {
	case board.AffordanceInternal:
		return e.submit(ctx, candidate)
	case board.AffordanceExternal:
		return &jobs.ApplyOutcome{
			Status:      jobs.RequiresExternalApply,
			ExternalURL: affordance.ExternalURL,
		}, nil
	default:
		return &jobs.ApplyOutcome{
			Status: jobs.ApplyFailed,
			Reason: "no known apply control on the posting page",
		}, nil
	}
}

func (e *Engine) submit(ctx context.Context, candidate *jobs.Candidate) (*jobs.ApplyOutcome, error) {
	status, err := e.session.Submit(ctx, candidate)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return &jobs.ApplyOutcome{
			Status: jobs.ApplyFailed,
			Reason: fmt.Sprintf("submit application: %v", err),
		}, nil
	}

	switch status {
	case board.SubmitConfirmed:
		return &jobs.ApplyOutcome{Status: jobs.AppliedDirect}, nil
	case board.SubmitAlreadyApplied:
		return &jobs.ApplyOutcome{Status: jobs.AlreadyApplied}, nil
	default:
		return &jobs.ApplyOutcome{
			Status: jobs.ApplyFailed,
			Reason: fmt.Sprintf("unexpected submit status %q", status),
		}, nil
	}
}

// record persists the outcome, store first so a crash after the submission
// can never lead to a second one.
func (e *Engine) record(ctx context.Context, cycleID string, candidate *jobs.Candidate) error {
	outcome := candidate.Outcome

	if err := e.store.Put(ctx, &store.Record{
		ID:      candidate.ID,
		Status:  string(outcome.Status),
		Title:   candidate.Title,
		Company: candidate.Company,
		URL:     candidate.URL,
		Source:  candidate.Source,
		Reason:  outcome.Reason,
	}); err != nil {
		return fmt.Errorf("store outcome: %w", err)
	}

	entry := activitylog.Entry{
		CycleID:  cycleID,
		JobID:    candidate.ID,
		Title:    candidate.Title,
		Company:  candidate.Company,
		Location: candidate.Location,
		URL:      candidate.URL,
		Source:   candidate.Source,
		Status:   string(outcome.Status),
		Reason:   outcome.Reason,
	}

	if outcome.Status == jobs.RequiresExternalApply {
		entry.ExternalURL = outcome.ExternalURL
		if err := e.activity.External(entry); err != nil {
			return fmt.Errorf("log external application: %w", err)
		}
		return nil
	}

	if err := e.activity.Applied(entry); err != nil {
		return fmt.Errorf("log application: %w", err)
	}
	return nil
}
