package auth

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/shortmidia/clint-exporter/internal/clock"
	"github.com/shortmidia/clint-exporter/internal/config"
)

// storageKeyCandidates are the localStorage keys the web app has been seen
// to store its session token under, tried in order before falling back to
// scanning every key.
var storageKeyCandidates = []string{
	"token",
	"auth_token",
	"jwt_token",
	"accessToken",
	"jwtToken",
	"authToken",
	"userToken",
	"clint_token",
	"clintJWT",
	"user_session",
	"session",
}

// extractTokenJS probes the known keys first, then scans all of
// localStorage for a JWT-shaped value, returning the matched token or "".
const extractTokenJS = `(() => {
	const known = %s;
	const shape = /eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+/;
	for (const key of known) {
		const value = localStorage.getItem(key);
		if (value && value.includes('eyJ')) {
			const match = value.match(shape);
			if (match) return match[0];
		}
	}
	for (let i = 0; i < localStorage.length; i++) {
		const value = localStorage.getItem(localStorage.key(i));
		if (typeof value === 'string') {
			const match = value.match(shape);
			if (match) return match[0];
		}
	}
	return '';
})()`

// StorageProvider logs in with an automated browser and reads the token out
// of the app's client-side storage.
type StorageProvider struct {
	session *browserSession
	clock   clock.Clock
}

// NewStorageProvider builds the localStorage extraction strategy.
func NewStorageProvider(cfg config.BrowserConfig, email, password, graphURL string, clk clock.Clock) (*StorageProvider, error) {
	session, err := newBrowserSession(cfg, email, password, graphURL)
	if err != nil {
		return nil, err
	}
	return &StorageProvider{session: session, clock: clk}, nil
}

// Name identifies the strategy in logs.
func (p *StorageProvider) Name() string { return "browser-storage" }

// Acquire performs the login and evaluates the storage probe script.
func (p *StorageProvider) Acquire(ctx context.Context) (Credential, error) {
	tabCtx, cancel := p.session.newTab(ctx)
	defer cancel()

	var token string
	actions := append(p.session.loginActions(),
		chromedp.Evaluate(fmt.Sprintf(extractTokenJS, jsStringArray(storageKeyCandidates)), &token),
	)
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return Credential{}, fmt.Errorf("storage login flow: %w", err)
	}
	if !LooksLikeJWT(token) {
		return Credential{}, fmt.Errorf("no JWT-shaped value found in client storage")
	}

	cred := Credential{Token: token, AcquiredAt: p.clock.Now()}
	cred.EnrichOwnerID()
	return cred, nil
}

func jsStringArray(items []string) string {
	out := "["
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%q", item)
	}
	return out + "]"
}
