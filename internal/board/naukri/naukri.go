// Package naukri drives naukri.com through a real browser. Selector and
// XPath variants mirror the markup generations the site has shipped; every
// interaction tries them in order.
package naukri

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"go.uber.org/zap"

	"naukri-agent/internal/board"
	"naukri-agent/internal/browser"
	"naukri-agent/internal/utils"
)

const (
	DefaultBaseURL = "https://www.naukri.com"
	loginPath      = "/nlogin/login"

	navTimeout    = 30 * time.Second
	loginTimeout  = 60 * time.Second
	lookupTimeout = 4 * time.Second
	// The site hydrates listings well after the load event fires.
	settleDelay  = 4 * time.Second
	settleJitter = 1500 * time.Millisecond
)

// Login page and logged-in markers.
var (
	loginButtonXPaths = []string{
		`//button[contains(., 'Login')]`,
		`//button[@type='submit']`,
	}
	loggedInSelectors = []string{
		`.nI-gNb-drawer__bar`,
		`.view-profile-wrapper`,
		`a[href*="logout"]`,
	}
)

type Config struct {
	// BaseURL overrides the site root, used by tests.
	BaseURL   string
	Headless  bool
	UserAgent string
}

// Driver opens logged-in sessions against the board.
type Driver struct {
	cfg    Config
	logger *zap.Logger
}

func NewDriver(cfg Config, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Driver{cfg: cfg, logger: logger}
}

// Login starts a browser, signs in and returns the live session. Errors
// from the sign-in interaction wrap board.ErrAuth; without a session no
// board work can proceed.
func (d *Driver) Login(ctx context.Context, creds board.Credentials) (board.Session, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: credentials are not set", board.ErrAuth)
	}

	b, err := browser.Launch(browser.Options{
		Headless:  d.cfg.Headless,
		UserAgent: d.cfg.UserAgent,
	}, d.logger)
	if err != nil {
		return nil, err
	}

	page, err := b.NewPage()
	if err != nil {
		b.Close()
		return nil, err
	}

	s := &session{
		browser: b,
		page:    page,
		baseURL: strings.TrimRight(d.cfg.BaseURL, "/"),
		logger:  d.logger,
	}

	if err := s.login(ctx, creds); err != nil {
		b.Close()
		return nil, err
	}

	return s, nil
}

// session is one signed-in browser session. Methods are not safe for
// concurrent use; the pipeline runs them from a single worker.
type session struct {
	browser *browser.Browser
	page    *rod.Page
	baseURL string
	logger  *zap.Logger

	// currentID is the candidate whose posting page is loaded, used to
	// skip re-navigation between the apply and outreach phases.
	currentID string
	// applyEl is the in-page apply control found by the last
	// LocateApplyAffordance, valid while its posting stays loaded.
	applyEl *rod.Element
}

func (s *session) login(ctx context.Context, creds board.Credentials) error {
	if err := browser.Navigate(ctx, s.page, s.baseURL+loginPath, navTimeout); err != nil {
		return err
	}
	if err := s.settle(ctx); err != nil {
		return err
	}

	err := rod.Try(func() {
		page := s.page.Context(ctx).Timeout(loginTimeout)
		page.MustElement("#usernameField").MustInput(creds.Username)
		page.MustElement("#passwordField").MustInput(creds.Password)
	})
	if err != nil {
		return fmt.Errorf("%w: login form not usable: %v", board.ErrAuth, err)
	}

	btn, err := browser.FirstElementX(ctx, s.page, lookupTimeout, loginButtonXPaths...)
	if err != nil {
		return fmt.Errorf("%w: login button not found: %v", board.ErrAuth, err)
	}
	if err := browser.Click(btn); err != nil {
		return fmt.Errorf("%w: login click failed: %v", board.ErrAuth, err)
	}

	if _, err := browser.FirstElement(ctx, s.page, loginTimeout, loggedInSelectors...); err != nil {
		return fmt.Errorf("%w: no logged-in marker after submit: %v", board.ErrAuth, err)
	}

	s.logger.Info("logged in to board", zap.String("user", creds.Username))
	return nil
}

// openPosting loads the candidate's posting page unless it is already the
// current page.
func (s *session) openPosting(ctx context.Context, id, url string) error {
	if s.currentID == id {
		return nil
	}
	s.currentID = ""

	if err := browser.Navigate(ctx, s.page, url, navTimeout); err != nil {
		return err
	}
	if err := s.settle(ctx); err != nil {
		return err
	}

	s.currentID = id
	return nil
}

// settle pauses for the page to finish rendering, with jitter so the
// timing does not look scripted.
func (s *session) settle(ctx context.Context) error {
	return utils.WaitFor(ctx, settleDelay+utils.Jitter(settleJitter))
}

func (s *session) Close() error {
	s.currentID = ""
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	s.page = nil
	return err
}
