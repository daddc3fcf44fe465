package gemini

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"naukri-agent/internal/ai"
	"naukri-agent/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

// Drafter produces short recruiter outreach messages from posting and
// resume context.
type Drafter struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var systemPrompt string

const (
	defaultMaxLogLength = 200
	// Platform chat widgets reject longer messages, so anything over the
	// limit is cut at a rune boundary.
	maxMessageRunes = 900
)

func NewDrafter(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Drafter {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Drafter{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (d *Drafter) Draft(ctx context.Context, req *ai.DraftRequest) (string, error) {
	if req == nil {
		return "", fmt.Errorf("draft request is required")
	}
	if strings.TrimSpace(req.Role) == "" {
		return "", fmt.Errorf("draft request role is required")
	}
	if strings.TrimSpace(req.Company) == "" {
		return "", fmt.Errorf("draft request company is required")
	}

	message := buildDraftPayload(req)

	d.logger.Debug("gemini draft request",
		zap.String("role", req.Role),
		zap.String("company", req.Company),
		zap.Int("payload_length", utf8.RuneCountInString(message)),
		zap.String("payload_preview", utils.TruncateForLog(message, d.maxLogLen)),
	)

	raw, err := d.generator.GenerateContent(ctx, systemPrompt, message)
	if err != nil {
		return "", err
	}

	d.logger.Debug("gemini draft response",
		zap.String("role", req.Role),
		zap.String("company", req.Company),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, d.maxLogLen)),
	)

	draft := cleanDraft(raw)
	if draft == "" {
		return "", fmt.Errorf("gemini returned an empty draft")
	}

	if !mentionsAny(draft, req.Role, req.Company) {
		return "", fmt.Errorf("draft mentions neither the role nor the company")
	}

	return clipRunes(draft, maxMessageRunes), nil
}

// buildDraftPayload renders the request as a labeled block so the model
// never has to guess which fragment is which.
func buildDraftPayload(req *ai.DraftRequest) string {
	var b strings.Builder

	writeSection := func(label, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(label)
		b.WriteString(":\n")
		b.WriteString(value)
	}

	writeSection("Role", req.Role)
	writeSection("Company", req.Company)
	writeSection("Recruiter name", req.RecruiterName)
	writeSection("Posting URL", req.PostingURL)
	writeSection("Posting details", req.PostingText)
	writeSection("Candidate resume summary", req.ResumeSummary)

	return b.String()
}

// cleanDraft strips markdown fences and quoting the model sometimes wraps
// plain text in.
func cleanDraft(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```text")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
		if idx := strings.LastIndex(cleaned, "```"); idx != -1 {
			cleaned = cleaned[:idx]
		}
	}
	cleaned = strings.Trim(cleaned, "`")
	cleaned = strings.TrimSpace(cleaned)
	if strings.HasPrefix(cleaned, `"`) && strings.HasSuffix(cleaned, `"`) && utf8.RuneCountInString(cleaned) > 1 {
		cleaned = strings.TrimSpace(cleaned[1 : len(cleaned)-1])
	}
	return cleaned
}

func mentionsAny(text string, terms ...string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func clipRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}
