package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/shortmidia/clint-exporter/internal/clock"
	"github.com/shortmidia/clint-exporter/internal/config"
)

// CaptureProvider captures the bearer token passively: it watches the
// browser's outbound request stream during an automated login and lifts
// the authorization header off any request bound for the GraphQL host.
// Unlike InterceptProvider it never pauses traffic.
type CaptureProvider struct {
	session *browserSession
	clock   clock.Clock
}

// NewCaptureProvider builds the passive request-capture strategy.
func NewCaptureProvider(cfg config.BrowserConfig, email, password, graphURL string, clk clock.Clock) (*CaptureProvider, error) {
	session, err := newBrowserSession(cfg, email, password, graphURL)
	if err != nil {
		return nil, err
	}
	return &CaptureProvider{session: session, clock: clk}, nil
}

// Name identifies the strategy in logs.
func (p *CaptureProvider) Name() string { return "browser-capture" }

// Acquire runs the login flow while recording request headers and returns
// the most recent credential observed on the wire.
func (p *CaptureProvider) Acquire(ctx context.Context) (Credential, error) {
	tabCtx, cancel := p.session.newTab(ctx)
	defer cancel()

	captured := &tokenCapture{}
	urls := &requestURLIndex{byID: map[network.RequestID]string{}}

	chromedp.ListenTarget(tabCtx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			urls.put(e.RequestID, e.Request.URL)
			if !strings.Contains(e.Request.URL, p.session.graphHost) {
				return
			}
			auth := headerValue(e.Request.Headers, "authorization")
			if token, ok := bearerToken(auth); ok {
				captured.record(Credential{
					Token:      token,
					OwnerID:    headerValue(e.Request.Headers, "x-hasura-owner-id"),
					AcquiredAt: p.clock.Now(),
				})
			}
		case *network.EventRequestWillBeSentExtraInfo:
			// ExtraInfo carries the raw header set including headers the
			// renderer adds late; correlate back to the URL by request id.
			if !strings.Contains(urls.get(e.RequestID), p.session.graphHost) {
				return
			}
			auth := headerValue(e.Headers, "authorization")
			if token, ok := bearerToken(auth); ok {
				captured.record(Credential{
					Token:      token,
					OwnerID:    headerValue(e.Headers, "x-hasura-owner-id"),
					AcquiredAt: p.clock.Now(),
				})
			}
		}
	})

	actions := append([]chromedp.Action{network.Enable()}, p.session.loginActions()...)
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if cred, ok := captured.latest(); ok {
			return cred, nil
		}
		return Credential{}, fmt.Errorf("capture login flow: %w", err)
	}

	if cred, ok := captured.latest(); ok {
		return cred, nil
	}
	return Credential{}, fmt.Errorf("no authorized request to %s observed", p.session.graphHost)
}

// requestURLIndex remembers request id → URL so ExtraInfo events, which
// carry headers but no URL, can be matched to the GraphQL host.
type requestURLIndex struct {
	mu   sync.Mutex
	byID map[network.RequestID]string
}

func (i *requestURLIndex) put(id network.RequestID, url string) {
	i.mu.Lock()
	i.byID[id] = url
	i.mu.Unlock()
}

func (i *requestURLIndex) get(id network.RequestID) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.byID[id]
}
