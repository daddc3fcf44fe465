package naukri

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"naukri-agent/internal/board"
	"naukri-agent/internal/browser"
	"naukri-agent/internal/jobs"
	"naukri-agent/internal/utils"
)

var errNoApplyControl = errors.New("no apply control located")

// Apply control variants on the posting page, tried in order.
var applyButtonXPaths = []string{
	`//button[contains(., 'Apply')]`,
	`//a[contains(., 'Apply')]`,
	`//span[contains(., 'Apply')]/ancestor::button`,
}

// External postings carry one of these on the apply control.
var externalApplyMarkers = []string{
	"company site",
	"company website",
	"apply on company",
}

// LocateApplyAffordance opens the posting and classifies its apply
// control. The located element is kept for Submit, which runs on the same
// page.
func (s *session) LocateApplyAffordance(ctx context.Context, c *jobs.Candidate) (board.Affordance, error) {
	s.applyEl = nil

	// Postings that do not live on the board at all (API-discovered ones)
	// can only be applied to off-site. Do not drive the board session onto
	// a foreign page just to confirm that.
	if isOffsite(c.URL, s.baseURL) {
		return board.Affordance{Kind: board.AffordanceExternal, ExternalURL: c.URL}, nil
	}

	if err := s.openPosting(ctx, c.ID, c.URL); err != nil {
		return board.Affordance{}, err
	}

	el, err := browser.FirstElementX(ctx, s.page, lookupTimeout, applyButtonXPaths...)
	if err != nil {
		return board.Affordance{Kind: board.AffordanceNone}, nil
	}

	var text, href string
	err = rod.Try(func() {
		text = el.MustText()
		if attr := el.MustAttribute("href"); attr != nil {
			href = *attr
		}
	})
	if err != nil {
		return board.Affordance{}, fmt.Errorf("inspecting apply control: %w", err)
	}

	affordance := classifyAffordance(text, href, s.baseURL)
	if affordance.Kind == board.AffordanceExternal && affordance.ExternalURL == "" {
		// The off-site target only resolves on click, which would start
		// the employer's own flow. Manual follow-up starts from the
		// posting instead.
		affordance.ExternalURL = c.URL
	}

	if affordance.Kind == board.AffordanceInternal {
		s.applyEl = el
	}
	return affordance, nil
}

// Submit clicks the in-page apply control and reads the confirmation off
// the page.
func (s *session) Submit(ctx context.Context, c *jobs.Candidate) (board.SubmitStatus, error) {
	el := s.applyEl
	s.applyEl = nil

	if el == nil || s.currentID != c.ID {
		affordance, err := s.LocateApplyAffordance(ctx, c)
		if err != nil {
			return "", err
		}
		if affordance.Kind != board.AffordanceInternal {
			return "", errNoApplyControl
		}
		el = s.applyEl
		s.applyEl = nil
	}

	var text string
	if err := rod.Try(func() { text = el.MustText() }); err == nil && buttonAlreadyApplied(text) {
		return board.SubmitAlreadyApplied, nil
	}

	err := rod.Try(func() {
		el.MustScrollIntoView()
		el.MustClick()
	})
	if err != nil {
		return "", fmt.Errorf("clicking apply: %w", err)
	}

	// The confirmation banner renders asynchronously.
	if err := utils.WaitFor(ctx, 2*time.Second+utils.Jitter(time.Second)); err != nil {
		return "", err
	}

	html, err := s.page.HTML()
	if err != nil {
		return "", fmt.Errorf("reading page after apply: %w", err)
	}

	status, marker := submitVerdict(html)
	if status == "" {
		return "", fmt.Errorf("apply rejected: page says %q", marker)
	}
	return status, nil
}

// classifyAffordance decides whether an apply control stays on the board
// or leads off-site.
func classifyAffordance(text, href, base string) board.Affordance {
	if href != "" && isOffsite(href, base) {
		return board.Affordance{Kind: board.AffordanceExternal, ExternalURL: href}
	}

	lower := strings.ToLower(text)
	for _, marker := range externalApplyMarkers {
		if strings.Contains(lower, marker) {
			return board.Affordance{Kind: board.AffordanceExternal, ExternalURL: href}
		}
	}

	return board.Affordance{Kind: board.AffordanceInternal}
}

// isOffsite reports whether link leaves the board's domain. Relative links
// and subdomains stay on-site.
func isOffsite(link, base string) bool {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return false
	}
	b, err := url.Parse(base)
	if err != nil {
		return false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	baseHost := strings.TrimPrefix(strings.ToLower(b.Host), "www.")
	return host != baseHost && !strings.HasSuffix(host, "."+baseHost)
}

func buttonAlreadyApplied(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "applied" || strings.Contains(t, "already applied")
}

// submitVerdict classifies the page content after an apply click. An empty
// status means the board refused the application; the marker says why.
func submitVerdict(html string) (board.SubmitStatus, string) {
	lower := strings.ToLower(html)

	for _, marker := range []string{"already applied", "you have applied"} {
		if strings.Contains(lower, marker) {
			return board.SubmitAlreadyApplied, marker
		}
	}
	for _, marker := range []string{"successfully applied", "applied successfully", "application sent"} {
		if strings.Contains(lower, marker) {
			return board.SubmitConfirmed, marker
		}
	}
	for _, marker := range []string{"daily quota", "quota for today", "not able to apply", "could not be completed"} {
		if strings.Contains(lower, marker) {
			return "", marker
		}
	}

	// No contradicting marker after a successful click counts as applied;
	// the posting layouts do not all confirm in words.
	return board.SubmitConfirmed, ""
}
