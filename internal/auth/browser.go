package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/shortmidia/clint-exporter/internal/config"
)

// browserSession owns a chromedp allocator plus the login choreography
// shared by every browser-driven token strategy.
type browserSession struct {
	cfg       config.BrowserConfig
	email     string
	password  string
	graphHost string
}

func newBrowserSession(cfg config.BrowserConfig, email, password, graphURL string) (*browserSession, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("operator email/password not configured")
	}
	parsed, err := url.Parse(graphURL)
	if err != nil {
		return nil, fmt.Errorf("parse graph url: %w", err)
	}
	return &browserSession{
		cfg:       cfg,
		email:     email,
		password:  password,
		graphHost: parsed.Hostname(),
	}, nil
}

// newTab builds a fresh browser tab context with the session's navigation
// timeout applied. The returned cancel tears down the whole browser.
func (s *browserSession) newTab(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	timeoutCtx, timeoutCancel := context.WithTimeout(taskCtx, s.navTimeout()+s.settle()+30*time.Second)

	cancel := func() {
		timeoutCancel()
		taskCancel()
		allocCancel()
	}
	return timeoutCtx, cancel
}

// loginActions navigates to the login page, fills the form, and submits.
func (s *browserSession) loginActions() []chromedp.Action {
	return []chromedp.Action{
		chromedp.Navigate(s.cfg.LoginPageURL),
		chromedp.WaitVisible(s.cfg.EmailSelector, chromedp.ByQuery),
		chromedp.SendKeys(s.cfg.EmailSelector, s.email, chromedp.ByQuery),
		chromedp.SendKeys(s.cfg.PasswordSelector, s.password, chromedp.ByQuery),
		chromedp.Click(s.cfg.SubmitSelector, chromedp.ByQuery),
		// The app fires its GraphQL traffic shortly after the redirect.
		chromedp.Sleep(s.settle()),
		chromedp.Navigate(s.cfg.LoginPageURL),
		chromedp.Sleep(s.settle()),
	}
}

func (s *browserSession) navTimeout() time.Duration {
	if s.cfg.NavTimeoutSeconds > 0 {
		return time.Duration(s.cfg.NavTimeoutSeconds) * time.Second
	}
	return 30 * time.Second
}

func (s *browserSession) settle() time.Duration {
	if s.cfg.SettleSeconds > 0 {
		return time.Duration(s.cfg.SettleSeconds) * time.Second
	}
	return 5 * time.Second
}

func headerValue(headers map[string]any, key string) string {
	for k, v := range headers {
		if !strings.EqualFold(k, key) {
			continue
		}
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
