package crawler

import (
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"carscout/internal/config"
)

// spoofJS overrides the navigator properties the source site inspects.
// Injected before any page script runs.
const spoofJS = `
Object.defineProperty(navigator, 'webdriver', {
	get: () => undefined
});
Object.defineProperty(navigator, 'languages', {
	get: () => ['he-IL', 'en-US']
});
Object.defineProperty(navigator, 'plugins', {
	get: () => [1, 2, 3, 4]
});`

// Session owns the browser for the duration of one crawl. The persistent
// profile directory is a singleton resource, so a Session must not be
// shared across crawls.
type Session struct {
	browser *rod.Browser
	cfg     *config.CrawlConfig
	logger  *slog.Logger
}

// NewSession launches a Chromium instance against the configured
// persistent profile and connects to it.
func NewSession(cfg *config.CrawlConfig, logger *slog.Logger) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		UserDataDir(cfg.UserDataDir).
		Set("disable-blink-features", "AutomationControlled")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	s := &Session{
		browser: browser,
		cfg:     cfg,
		logger:  logger.With("component", "browser_session"),
	}
	s.logger.Info("browser session ready",
		"user_data_dir", cfg.UserDataDir,
		"headless", cfg.Headless,
	)
	return s, nil
}

// NewPage opens a stealth-patched page with the navigator spoof installed.
func (s *Session) NewPage() (*rod.Page, error) {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, fmt.Errorf("stealth page: %w", err)
	}
	if _, err := page.EvalOnNewDocument(spoofJS); err != nil {
		s.logger.Warn("navigator spoof injection failed", "error", err)
	}
	return page, nil
}

// Close shuts down the browser and releases the profile.
func (s *Session) Close() error {
	if s.browser != nil {
		return s.browser.Close()
	}
	return nil
}
