// Package outreach contacts the recruiter behind a posting right after a
// direct application went through.
package outreach

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"naukri-agent/internal/activitylog"
	"naukri-agent/internal/ai"
	"naukri-agent/internal/board"
	"naukri-agent/internal/jobs"
	"naukri-agent/internal/linkedin"
	"naukri-agent/internal/logger"
)

// Fallback is the off-board channel tried when the posting page offers no
// way to message the recruiter.
type Fallback interface {
	FindProfile(ctx context.Context, name, company string) (*linkedin.Profile, error)
	SendMessage(ctx context.Context, profile *linkedin.Profile, text string) error
}

// Coordinator runs the outreach steps for candidates that were applied to
// directly. Candidates with any other outcome are never touched.
type Coordinator struct {
	session  board.Session
	drafter  ai.Drafter
	fallback Fallback
	activity activitylog.Recorder
	resume   string
	logger   *zap.Logger
}

// New builds a Coordinator. fallback may be nil when the fallback network
// is not configured; the coordinator then stops after the board channel.
func New(session board.Session, drafter ai.Drafter, fallback Fallback, recorder activitylog.Recorder, resumeSummary string, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Coordinator{
		session:  session,
		drafter:  drafter,
		fallback: fallback,
		activity: recorder,
		resume:   resumeSummary,
		logger:   logger,
	}
}

// Run reaches out for every candidate whose application was submitted on
// the board this cycle. Every attempt lands in the contact stream, found or
// not, so manual follow-up has something to start from.
func (o *Coordinator) Run(ctx context.Context, cycleID string, candidates *jobs.Candidates) error {
	if candidates.Len() == 0 {
		return nil
	}

	for _, candidate := range candidates.Items {
		if candidate == nil || candidate.Outcome == nil || candidate.Outcome.Status != jobs.AppliedDirect {
			continue
		}

		result, message, err := o.reachOne(ctx, candidate)
		if err != nil {
			return err
		}
		candidate.Outreach = result

		entry := activitylog.Entry{
			CycleID:       cycleID,
			JobID:         candidate.ID,
			Title:         candidate.Title,
			Company:       candidate.Company,
			Location:      candidate.Location,
			URL:           candidate.URL,
			Source:        candidate.Source,
			Status:        string(result.Status),
			Reason:        result.Reason,
			RecruiterName: result.RecruiterName,
			Message:       message,
		}
		if err := o.activity.Contact(entry); err != nil {
			return fmt.Errorf("recording outreach for %s: %w", candidate.ID, err)
		}

		log := logger.WithJobFields(o.logger, candidate.ID, candidate.Title, candidate.Company, candidate.Source)
		switch result.Status {
		case jobs.MessageSendFailed:
			log.Warn("outreach failed", zap.String("reason", result.Reason))
		case jobs.ContactNotFound:
			log.Info("no recruiter contact found")
		default:
			log.Info("recruiter contacted",
				zap.String("status", string(result.Status)),
				zap.String("recruiter", result.RecruiterName),
			)
		}
	}

	return nil
}

// reachOne works through the channels for one candidate: board messaging
// first, then the fallback network. The returned message is the text that
// was actually sent, empty when nothing went out. A non-nil error is
// returned only for context cancellation.
func (o *Coordinator) reachOne(ctx context.Context, candidate *jobs.Candidate) (*jobs.OutreachResult, string, error) {
	contact, err := o.session.RecruiterContact(ctx, candidate)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		o.logger.Warn("recruiter lookup failed",
			zap.String(logger.FieldJobID, candidate.ID),
			zap.Error(err),
		)
		contact = nil
	}

	recruiterName := ""
	if contact != nil {
		recruiterName = contact.Name
	}

	if contact != nil && contact.Messageable {
		message, err := o.draft(ctx, candidate, recruiterName)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, "", ctxErr
			}
			return &jobs.OutreachResult{
				Status:        jobs.MessageSendFailed,
				RecruiterName: recruiterName,
				Reason:        fmt.Sprintf("draft message: %v", err),
			}, "", nil
		}

		if err := o.session.SendRecruiterMessage(ctx, candidate, message); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, "", ctxErr
			}
			return &jobs.OutreachResult{
				Status:        jobs.MessageSendFailed,
				RecruiterName: recruiterName,
				Reason:        fmt.Sprintf("send on board: %v", err),
			}, "", nil
		}

		return &jobs.OutreachResult{
			Status:        jobs.ContactedOnPlatform,
			RecruiterName: recruiterName,
		}, message, nil
	}

	if o.fallback != nil {
		profile, err := o.fallback.FindProfile(ctx, recruiterName, candidate.Company)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, "", ctxErr
			}
			o.logger.Warn("fallback profile search failed",
				zap.String(logger.FieldJobID, candidate.ID),
				zap.Error(err),
			)
			profile = nil
		}

		if profile != nil {
			name := profile.Name
			if name == "" {
				name = recruiterName
			}

			message, err := o.draft(ctx, candidate, name)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, "", ctxErr
				}
				return &jobs.OutreachResult{
					Status:        jobs.MessageSendFailed,
					RecruiterName: name,
					Reason:        fmt.Sprintf("draft message: %v", err),
				}, "", nil
			}

			if err := o.fallback.SendMessage(ctx, profile, message); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, "", ctxErr
				}
				return &jobs.OutreachResult{
					Status:        jobs.MessageSendFailed,
					RecruiterName: name,
					Reason:        fmt.Sprintf("send via fallback: %v", err),
				}, "", nil
			}

			return &jobs.OutreachResult{
				Status:        jobs.ContactedViaFallback,
				RecruiterName: name,
			}, message, nil
		}
	}

	return &jobs.OutreachResult{
		Status:        jobs.ContactNotFound,
		RecruiterName: recruiterName,
	}, "", nil
}

func (o *Coordinator) draft(ctx context.Context, candidate *jobs.Candidate, recruiterName string) (string, error) {
	return o.drafter.Draft(ctx, &ai.DraftRequest{
		ResumeSummary: o.resume,
		RecruiterName: recruiterName,
		Role:          candidate.Title,
		Company:       candidate.Company,
		PostingURL:    candidate.URL,
		PostingText:   candidate.Description,
	})
}
