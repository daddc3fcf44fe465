package naukri

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"go.uber.org/zap"

	"naukri-agent/internal/board"
	"naukri-agent/internal/browser"
	"naukri-agent/internal/jobs"
	"naukri-agent/internal/utils"
)

// Recruiter name variants on the posting page.
var recruiterNameXPaths = []string{
	`//span[contains(@class,'recruiter-name')]`,
	`//div[contains(@class,'recruiter')]/descendant::span[1]`,
	`//a[contains(@href,'recruiter')]/span`,
}

// Messaging surface variants.
var (
	messageBoxXPaths = []string{
		`//textarea`,
		`//div[@contenteditable='true']`,
		`//input[@type='text' or @type='search']`,
	}
	sendButtonXPaths = []string{
		`//button[contains(., 'Send')]`,
		`//span[contains(., 'Send')]/ancestor::button`,
		`//button[contains(@aria-label,'Send')]`,
	}
)

// RecruiterContact reads the recruiter shown on the posting page. Returns
// (nil, nil) when the page names nobody.
func (s *session) RecruiterContact(ctx context.Context, c *jobs.Candidate) (*board.Contact, error) {
	if err := s.openPosting(ctx, c.ID, c.URL); err != nil {
		return nil, err
	}

	name := ""
	for _, xp := range recruiterNameXPaths {
		var text string
		err := rod.Try(func() {
			text = s.page.Context(ctx).Timeout(lookupTimeout).MustElementX(xp).MustText()
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}
		if validRecruiterName(text) {
			name = strings.TrimSpace(text)
			break
		}
	}

	if name == "" {
		s.logger.Debug("no recruiter named on posting", zap.String("job_id", c.ID))
		return nil, nil
	}

	_, boxErr := browser.FirstElementX(ctx, s.page, lookupTimeout, messageBoxXPaths...)
	contact := &board.Contact{
		Name:        name,
		Messageable: boxErr == nil,
	}

	s.logger.Debug("recruiter found",
		zap.String("job_id", c.ID),
		zap.String("recruiter", contact.Name),
		zap.Bool("messageable", contact.Messageable),
	)
	return contact, nil
}

// SendRecruiterMessage types text into the posting page's message box and
// sends it. When no send button exists, Enter submits.
func (s *session) SendRecruiterMessage(ctx context.Context, c *jobs.Candidate, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message text is empty")
	}

	if err := s.openPosting(ctx, c.ID, c.URL); err != nil {
		return err
	}

	box, err := browser.FirstElementX(ctx, s.page, lookupTimeout, messageBoxXPaths...)
	if err != nil {
		return fmt.Errorf("message box not found: %w", err)
	}

	if err := rod.Try(func() {
		box.MustScrollIntoView()
		box.MustClick()
		box.MustInput(text)
	}); err != nil {
		return fmt.Errorf("typing message: %w", err)
	}

	send, err := browser.FirstElementX(ctx, s.page, lookupTimeout, sendButtonXPaths...)
	if err == nil {
		if err := browser.Click(send); err != nil {
			return fmt.Errorf("clicking send: %w", err)
		}
	} else {
		if err := rod.Try(func() { box.MustType(input.Enter) }); err != nil {
			return fmt.Errorf("submitting message: %w", err)
		}
	}

	// Let the send request flush before the page changes.
	if err := utils.WaitFor(ctx, time.Second+utils.Jitter(time.Second)); err != nil {
		return err
	}

	s.logger.Info("recruiter messaged on board", zap.String("job_id", c.ID))
	return nil
}

// validRecruiterName filters out the junk the loose recruiter selectors
// sometimes land on: empty strings, single characters, whole paragraphs.
func validRecruiterName(text string) bool {
	text = strings.TrimSpace(text)
	n := utf8.RuneCountInString(text)
	return n >= 2 && n <= 60
}
