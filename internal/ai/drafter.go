package ai

import (
	"context"
)

// DraftRequest carries everything a provider needs to write one recruiter
// message. Role and Company are mandatory: the generated message has to
// reference the specific posting, never a generic template.
type DraftRequest struct {
	ResumeSummary string
	RecruiterName string
	Role          string
	Company       string
	PostingURL    string
	PostingText   string
}

// Drafter produces a short personalized outreach message for one posting.
type Drafter interface {
	Draft(ctx context.Context, req *DraftRequest) (string, error)
}
