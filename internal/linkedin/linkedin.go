// Package linkedin reaches recruiters through their public profiles when a
// posting exposes no messaging surface of its own.
package linkedin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"go.uber.org/zap"

	"naukri-agent/internal/browser"
	"naukri-agent/internal/utils"
)

const (
	defaultBaseURL = "https://www.linkedin.com"
	navTimeout     = 30 * time.Second
	loginTimeout   = 45 * time.Second
	lookupTimeout  = 5 * time.Second
)

// Selector variants, newest markup first.
var (
	messageButtonSelectors = []string{
		`button[aria-label^="Message"]`,
		`.pv-top-card-v2-ctas button[aria-label*="Message"]`,
		`a[href*="/messaging/compose"]`,
	}
	composerSelectors = []string{
		`div.msg-form__contenteditable`,
		`div[role="textbox"][contenteditable="true"]`,
	}
	sendButtonSelectors = []string{
		`button.msg-form__send-button`,
		`button[type="submit"][class*="msg-form"]`,
	}
)

// Profile is one person found through the people search.
type Profile struct {
	Name     string
	Headline string
	URL      string
}

type Config struct {
	Username string
	Password string
	// BaseURL overrides the site root, used by tests.
	BaseURL  string
	Headless bool
}

// Client drives the fallback network in a browser of its own. Login is
// lazy: the browser starts on the first lookup, not at construction.
type Client struct {
	mu       sync.Mutex
	cfg      Config
	browser  *browser.Browser
	page     *rod.Page
	loggedIn bool
	logger   *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("linkedin credentials are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, logger: logger}, nil
}

// FindProfile looks the recruiter up in the people search. An empty name
// turns the lookup into a recruiter search scoped to the company. Returns
// (nil, nil) when no result matches well enough to message.
func (c *Client) FindProfile(ctx context.Context, name, company string) (*Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	query := searchQuery(name, company)
	target := fmt.Sprintf("%s/search/results/people/?keywords=%s", c.baseURL(), url.QueryEscape(query))
	c.logger.Debug("searching people", zap.String("query", query))

	if err := browser.Navigate(ctx, c.page, target, navTimeout); err != nil {
		return nil, err
	}

	html, err := c.page.HTML()
	if err != nil {
		return nil, fmt.Errorf("reading search results: %w", err)
	}

	profiles, err := parseSearchResults(html, c.baseURL())
	if err != nil {
		return nil, err
	}

	profile := chooseProfile(profiles, name, company)
	if profile == nil {
		c.logger.Debug("no matching profile",
			zap.String("query", query),
			zap.Int("results", len(profiles)),
		)
		return nil, nil
	}

	c.logger.Info("profile found",
		zap.String("name", profile.Name),
		zap.String("url", profile.URL),
	)
	return profile, nil
}

// SendMessage opens the profile and delivers text through its message
// composer.
func (c *Client) SendMessage(ctx context.Context, profile *Profile, text string) error {
	if profile == nil || profile.URL == "" {
		return errors.New("a profile with a url is required")
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("message text is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLoggedIn(ctx); err != nil {
		return err
	}
	if err := browser.Navigate(ctx, c.page, profile.URL, navTimeout); err != nil {
		return err
	}

	btn, err := browser.FirstElement(ctx, c.page, lookupTimeout, messageButtonSelectors...)
	if err != nil {
		return fmt.Errorf("message button on %s: %w", profile.URL, err)
	}
	if err := browser.Click(btn); err != nil {
		return fmt.Errorf("opening composer: %w", err)
	}

	box, err := browser.FirstElement(ctx, c.page, lookupTimeout, composerSelectors...)
	if err != nil {
		return fmt.Errorf("message composer: %w", err)
	}
	if err := rod.Try(func() {
		box.MustClick()
		box.MustInput(text)
	}); err != nil {
		return fmt.Errorf("typing message: %w", err)
	}

	send, err := browser.FirstElement(ctx, c.page, lookupTimeout, sendButtonSelectors...)
	if err != nil {
		return fmt.Errorf("send button: %w", err)
	}
	if err := browser.Click(send); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	// Let the send request flush before the page goes away.
	if err := utils.WaitFor(ctx, 2*time.Second); err != nil {
		return err
	}

	c.logger.Info("message sent via fallback network", zap.String("profile", profile.URL))
	return nil
}

// Close shuts the fallback browser down. The client can be reused; the next
// call logs in again.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loggedIn = false
	c.page = nil
	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.browser = nil
	return err
}

// ensureLoggedIn starts the browser on first use and signs in. Callers hold
// c.mu.
func (c *Client) ensureLoggedIn(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}

	if c.browser == nil {
		b, err := browser.Launch(browser.Options{Headless: c.cfg.Headless}, c.logger)
		if err != nil {
			return err
		}
		page, err := b.NewPage()
		if err != nil {
			b.Close()
			return err
		}
		c.browser = b
		c.page = page
	}

	if err := browser.Navigate(ctx, c.page, c.baseURL()+"/login", navTimeout); err != nil {
		return err
	}

	err := rod.Try(func() {
		page := c.page.Context(ctx).Timeout(loginTimeout)
		page.MustElement("#username").MustInput(c.cfg.Username)
		page.MustElement("#password").MustInput(c.cfg.Password)
		page.MustElement(`button[type="submit"]`).MustClick()
		page.MustElement(`.search-global-typeahead__input, input[placeholder="Search"], #global-nav`)
	})
	if err != nil {
		return fmt.Errorf("linkedin login failed for %s: %w", c.cfg.Username, err)
	}

	c.loggedIn = true
	c.logger.Info("logged in to fallback network")
	return nil
}

func (c *Client) baseURL() string {
	if c.cfg.BaseURL != "" {
		return strings.TrimRight(c.cfg.BaseURL, "/")
	}
	return defaultBaseURL
}

func searchQuery(name, company string) string {
	name = strings.TrimSpace(name)
	company = strings.TrimSpace(company)
	if name == "" {
		return strings.TrimSpace("recruiter " + company)
	}
	return strings.TrimSpace(name + " " + company)
}

// parseSearchResults pulls the people cards out of a search result page.
func parseSearchResults(html, base string) ([]*Profile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}

	var profiles []*Profile
	seen := make(map[string]bool)

	doc.Find("li.reusable-search__result-container, div.entity-result").Each(func(_ int, s *goquery.Selection) {
		link := s.Find(`a[href*="/in/"]`).First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}

		profileURL := absoluteProfileURL(base, href)
		if profileURL == "" || seen[profileURL] {
			return
		}

		name := strings.TrimSpace(link.Find(`span[aria-hidden="true"]`).First().Text())
		if name == "" {
			name = strings.TrimSpace(link.Text())
		}
		headline := strings.TrimSpace(s.Find(".entity-result__primary-subtitle").First().Text())

		seen[profileURL] = true
		profiles = append(profiles, &Profile{
			Name:     name,
			Headline: headline,
			URL:      profileURL,
		})
	})

	return profiles, nil
}

// absoluteProfileURL normalizes a card link to a bare absolute profile URL.
func absoluteProfileURL(base, href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if !strings.Contains(u.Path, "/in/") {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	if u.IsAbs() {
		return u.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(u).String()
}

// chooseProfile picks the result worth messaging. With a name the match is
// on the name tokens; without one only a recruiting headline tied to the
// company is trusted. Messaging an arbitrary first result is worse than
// reporting no contact.
func chooseProfile(profiles []*Profile, name, company string) *Profile {
	name = strings.ToLower(strings.TrimSpace(name))
	company = strings.ToLower(strings.TrimSpace(company))

	if name != "" {
		tokens := strings.Fields(name)
		for _, p := range profiles {
			if containsAll(strings.ToLower(p.Name), tokens) {
				return p
			}
		}
		for _, p := range profiles {
			if strings.Contains(strings.ToLower(p.Name), tokens[0]) {
				return p
			}
		}
		return nil
	}

	for _, p := range profiles {
		headline := strings.ToLower(p.Headline)
		if company != "" && !strings.Contains(headline, company) {
			continue
		}
		if recruiterHeadline(headline) {
			return p
		}
	}
	return nil
}

var recruiterWords = []string{"recruiter", "recruitment", "talent", "hiring", "human resources", "hr "}

func recruiterHeadline(headline string) bool {
	for _, w := range recruiterWords {
		if strings.Contains(headline, w) {
			return true
		}
	}
	return false
}

func containsAll(s string, tokens []string) bool {
	for _, token := range tokens {
		if !strings.Contains(s, token) {
			return false
		}
	}
	return true
}
