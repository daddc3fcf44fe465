package jobs

// EligibilityVerdict classifies a candidate before the apply phase.
// Immutable once set.
type EligibilityVerdict string

const (
	Eligible                  EligibilityVerdict = "eligible"
	SkippedAlreadyProcessed   EligibilityVerdict = "skipped_already_processed"
	SkippedKeywordMismatch    EligibilityVerdict = "skipped_keyword_mismatch"
	SkippedExperienceMismatch EligibilityVerdict = "skipped_experience_mismatch"
)

// ApplyStatus is the terminal state of one apply attempt.
type ApplyStatus string

const (
	AppliedDirect         ApplyStatus = "applied_direct"
	RequiresExternalApply ApplyStatus = "requires_external_apply"
	AlreadyApplied        ApplyStatus = "already_applied"
	ApplyFailed           ApplyStatus = "apply_failed"
)

// ApplyOutcome records how the apply phase ended for a candidate. Exactly one
// outcome exists per candidate that reached the apply engine.
type ApplyOutcome struct {
	Status      ApplyStatus
	ExternalURL string // set for RequiresExternalApply
	Reason      string // set for ApplyFailed
}

// OutreachStatus is the terminal state of one recruiter outreach attempt.
type OutreachStatus string

const (
	ContactedOnPlatform  OutreachStatus = "contacted_on_platform"
	ContactedViaFallback OutreachStatus = "contacted_via_fallback"
	ContactNotFound      OutreachStatus = "contact_not_found"
	MessageSendFailed    OutreachStatus = "message_send_failed"
)

// OutreachResult records the recruiter outreach attempt for a candidate that
// was applied directly. MessageSendFailed is kept distinct from
// ContactNotFound so a retryable send problem is never masked as "no contact
// available".
type OutreachResult struct {
	Status        OutreachStatus
	RecruiterName string
	Reason        string // set for MessageSendFailed
}
