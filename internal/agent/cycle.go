package agent

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"naukri-agent/internal/jobs"
)

// Cycle is the state of one discover, filter, apply, outreach pass. All
// durable effects carry its ID so the activity streams can be correlated
// back to a single run.
type Cycle struct {
	ID      string
	Started time.Time

	Discovered int
	Eligible   int

	Applied        int
	AlreadyApplied int
	External       int
	Failed         int

	Contacted       int
	ContactsMissing int
	SendFailures    int
}

func newCycle() *Cycle {
	return &Cycle{
		ID:      uuid.NewString(),
		Started: time.Now(),
	}
}

// Count tallies the terminal outcomes attached to the candidates.
func (c *Cycle) Count(candidates *jobs.Candidates) {
	if candidates == nil {
		return
	}

	for _, candidate := range candidates.Items {
		if candidate.Outcome != nil {
			switch candidate.Outcome.Status {
			case jobs.AppliedDirect:
				c.Applied++
			case jobs.AlreadyApplied:
				c.AlreadyApplied++
			case jobs.RequiresExternalApply:
				c.External++
			case jobs.ApplyFailed:
				c.Failed++
			}
		}

		if candidate.Outreach != nil {
			switch candidate.Outreach.Status {
			case jobs.ContactedOnPlatform, jobs.ContactedViaFallback:
				c.Contacted++
			case jobs.ContactNotFound:
				c.ContactsMissing++
			case jobs.MessageSendFailed:
				c.SendFailures++
			}
		}
	}
}

// Fields renders the cycle report for the closing log line.
func (c *Cycle) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("discovered", c.Discovered),
		zap.Int("eligible", c.Eligible),
		zap.Int("applied", c.Applied),
		zap.Int("already_applied", c.AlreadyApplied),
		zap.Int("external", c.External),
		zap.Int("failed", c.Failed),
		zap.Int("contacted", c.Contacted),
		zap.Int("contacts_missing", c.ContactsMissing),
		zap.Int("send_failures", c.SendFailures),
		zap.Duration("elapsed", time.Since(c.Started).Round(time.Millisecond)),
	}
}
