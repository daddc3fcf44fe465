// Package board defines the contract a job board automation driver has to
// satisfy. The agent core only talks to these interfaces; the site-specific
// browser work lives in subpackages.
package board

import (
	"context"
	"errors"

	"naukri-agent/internal/jobs"
)

// ErrAuth marks a failed board login. No further progress against the board
// is possible without a session, so callers treat it as fatal for the
// current cycle.
var ErrAuth = errors.New("board authentication failed")

// Credentials for the primary job board account.
type Credentials struct {
	Username string
	Password string
}

// Driver opens authenticated sessions against one job board.
type Driver interface {
	// Login authenticates and returns a live session. Login errors wrap
	// ErrAuth when the credentials were rejected.
	Login(ctx context.Context, creds Credentials) (Session, error)
}

// Session is one authenticated browser session. Implementations are
// stateful and not safe for concurrent use; the pipeline drives a session
// from a single worker.
type Session interface {
	// FindJobs runs one search query and returns the postings on the
	// result page, tagged with the scrape source.
	FindJobs(ctx context.Context, query jobs.Query) (*jobs.Candidates, error)

	// LocateApplyAffordance opens the posting and determines how it can be
	// applied to, trying the known apply control variants in order.
	LocateApplyAffordance(ctx context.Context, c *jobs.Candidate) (Affordance, error)

	// Submit triggers the in-page application for a posting whose
	// affordance was AffordanceInternal.
	Submit(ctx context.Context, c *jobs.Candidate) (SubmitStatus, error)

	// RecruiterContact extracts the recruiter or HR contact shown on the
	// posting page, or (nil, nil) when none is visible.
	RecruiterContact(ctx context.Context, c *jobs.Candidate) (*Contact, error)

	// SendRecruiterMessage delivers text through the board's own messaging
	// surface on the posting page.
	SendRecruiterMessage(ctx context.Context, c *jobs.Candidate, text string) error

	// Close releases the session and its browser resources.
	Close() error
}

// AffordanceKind classifies the apply control found on a posting page.
type AffordanceKind string

const (
	// AffordanceNone means no recognized apply control was found.
	AffordanceNone AffordanceKind = "none"
	// AffordanceInternal is an in-page apply flow the agent can submit.
	AffordanceInternal AffordanceKind = "internal"
	// AffordanceExternal navigates off-site to the employer's own flow.
	AffordanceExternal AffordanceKind = "external"
)

// Affordance is the outcome of locating the apply control on a posting.
type Affordance struct {
	Kind AffordanceKind
	// ExternalURL is the off-site target, set only for AffordanceExternal.
	ExternalURL string
}

// SubmitStatus is the definitive result of an in-page submission attempt.
type SubmitStatus string

const (
	// SubmitConfirmed means the board acknowledged the application.
	SubmitConfirmed SubmitStatus = "confirmed"
	// SubmitAlreadyApplied means the board reports a previous application.
	SubmitAlreadyApplied SubmitStatus = "already_applied"
)

// Contact is a recruiter or HR person referenced by a posting.
type Contact struct {
	Name  string
	Title string
	// Messageable reports whether the posting page exposes a messaging
	// surface for this contact.
	Messageable bool
}
