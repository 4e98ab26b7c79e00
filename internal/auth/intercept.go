package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/chromedp"

	"github.com/shortmidia/clint-exporter/internal/clock"
	"github.com/shortmidia/clint-exporter/internal/config"
)

// InterceptProvider captures the bearer token by pausing the browser's
// in-flight requests to the GraphQL host during an automated login and
// reading the authorization header off them before letting them continue.
type InterceptProvider struct {
	session *browserSession
	clock   clock.Clock
}

// NewInterceptProvider builds the fetch-domain interception strategy.
func NewInterceptProvider(cfg config.BrowserConfig, email, password, graphURL string, clk clock.Clock) (*InterceptProvider, error) {
	session, err := newBrowserSession(cfg, email, password, graphURL)
	if err != nil {
		return nil, err
	}
	return &InterceptProvider{session: session, clock: clk}, nil
}

// Name identifies the strategy in logs.
func (p *InterceptProvider) Name() string { return "browser-intercept" }

// Acquire runs the login flow with request interception enabled and returns
// the most recently intercepted credential.
func (p *InterceptProvider) Acquire(ctx context.Context) (Credential, error) {
	tabCtx, cancel := p.session.newTab(ctx)
	defer cancel()

	captured := &tokenCapture{}

	chromedp.ListenTarget(tabCtx, func(ev any) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		// Continue every paused request off the listener goroutine;
		// stalling them would hang the login flow.
		go func() {
			execCtx := cdp.WithExecutor(tabCtx, chromedp.FromContext(tabCtx).Target)
			if strings.Contains(paused.Request.URL, p.session.graphHost) {
				auth := headerValue(paused.Request.Headers, "authorization")
				if token, ok := bearerToken(auth); ok {
					captured.record(Credential{
						Token:      token,
						OwnerID:    headerValue(paused.Request.Headers, "x-hasura-owner-id"),
						AcquiredAt: p.clock.Now(),
					})
				}
			}
			_ = fetch.ContinueRequest(paused.RequestID).Do(execCtx)
		}()
	})

	actions := append([]chromedp.Action{fetch.Enable()}, p.session.loginActions()...)
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if cred, ok := captured.latest(); ok {
			// The login flow often times out after the token has
			// already crossed the wire; the capture still counts.
			return cred, nil
		}
		return Credential{}, fmt.Errorf("intercept login flow: %w", err)
	}

	if cred, ok := captured.latest(); ok {
		return cred, nil
	}
	return Credential{}, fmt.Errorf("no authorized request to %s observed within %s", p.session.graphHost, p.session.settle())
}

// tokenCapture keeps the most recent credential seen by a listener.
type tokenCapture struct {
	mu   sync.Mutex
	cred Credential
	seen bool
	last time.Time
}

func (c *tokenCapture) record(cred Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = cred
	c.seen = true
	c.last = cred.AcquiredAt
}

func (c *tokenCapture) latest() (Credential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cred, c.seen
}

// bearerToken extracts the token from an "Authorization: Bearer x.y.z"
// value, requiring the JWT shape the upstream uses.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if !LooksLikeJWT(token) {
		return "", false
	}
	return token, true
}
