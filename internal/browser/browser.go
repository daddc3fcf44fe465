// Package browser wraps go-rod with the launch flags and stealth setup the
// site drivers share.
package browser

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// Options controls how the browser process is launched.
type Options struct {
	Headless  bool
	UserAgent string
	// Bin overrides the browser binary. Empty means use the system
	// Chrome when found, otherwise let rod download one.
	Bin string
}

// Browser is one managed browser process.
type Browser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	opts     Options
	logger   *zap.Logger
}

// Launch starts a browser process with automation markers disabled.
func Launch(opts Options, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	bin := opts.Bin
	if bin == "" {
		bin = SystemChromePath()
	}
	if bin != "" {
		l = l.Bin(bin)
		logger.Debug("using browser binary", zap.String("path", bin))
	}

	if opts.UserAgent != "" {
		l = l.Set("user-agent", opts.UserAgent)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	logger.Info("browser started", zap.Bool("headless", opts.Headless))

	return &Browser{
		launcher: l,
		browser:  b,
		opts:     opts,
		logger:   logger,
	}, nil
}

// NewPage opens a stealth page with a desktop viewport.
func (b *Browser) NewPage() (*rod.Page, error) {
	page, err := stealth.Page(b.browser)
	if err != nil {
		return nil, fmt.Errorf("creating stealth page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		b.logger.Warn("setting viewport failed", zap.Error(err))
	}

	if b.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: b.opts.UserAgent,
		}); err != nil {
			b.logger.Warn("setting user agent failed", zap.Error(err))
		}
	}

	return page, nil
}

// Close shuts the browser process down and removes its temp data.
func (b *Browser) Close() error {
	if b == nil || b.browser == nil {
		return nil
	}

	err := rod.Try(func() {
		b.browser.MustClose()
	})
	b.launcher.Cleanup()
	if err != nil {
		return fmt.Errorf("closing browser: %w", err)
	}
	return nil
}

// Navigate loads target and waits for the load event.
func Navigate(ctx context.Context, page *rod.Page, target string, timeout time.Duration) error {
	err := rod.Try(func() {
		page.Context(ctx).Timeout(timeout).MustNavigate(target).MustWaitLoad()
	})
	if err != nil {
		return fmt.Errorf("navigating to %s: %w", target, err)
	}
	return nil
}

// FirstElement tries each selector variant in order and returns the first
// match. Sites change their markup between visits, so callers pass every
// variant they have seen.
func FirstElement(ctx context.Context, page *rod.Page, timeout time.Duration, selectors ...string) (*rod.Element, error) {
	for _, sel := range selectors {
		var el *rod.Element
		err := rod.Try(func() {
			el = page.Context(ctx).Timeout(timeout).MustElement(sel)
		})
		if err == nil {
			return el, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}
	return nil, fmt.Errorf("no element matched %d selector variants", len(selectors))
}

// FirstElementX is FirstElement for XPath expressions.
func FirstElementX(ctx context.Context, page *rod.Page, timeout time.Duration, expressions ...string) (*rod.Element, error) {
	for _, xp := range expressions {
		var el *rod.Element
		err := rod.Try(func() {
			el = page.Context(ctx).Timeout(timeout).MustElementX(xp)
		})
		if err == nil {
			return el, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}
	return nil, fmt.Errorf("no element matched %d xpath variants", len(expressions))
}

// Click clicks el and tolerates the re-render races rod raises as panics.
func Click(el *rod.Element) error {
	return rod.Try(func() {
		el.MustClick()
	})
}

// SystemChromePath finds an installed Chrome or Chromium binary.
func SystemChromePath() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		if _, err := os.Stat(bin); err == nil {
			return bin
		}
	}
	if bin := os.Getenv("CHROME_PATH"); bin != "" {
		if _, err := os.Stat(bin); err == nil {
			return bin
		}
	}

	for _, path := range []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/opt/google/chrome/chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
