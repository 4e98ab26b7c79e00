package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shortmidia/clint-exporter/internal/clock"
)

// LoginProvider trades the operator's email and password for a token
// through the REST login endpoint. No browser involved; this is the last
// dynamic rung before the static fallback.
type LoginProvider struct {
	loginURL string
	email    string
	password string
	client   *http.Client
	clock    clock.Clock
}

// NewLoginProvider builds the password-login strategy.
func NewLoginProvider(loginURL, email, password string, client *http.Client, clk clock.Clock) *LoginProvider {
	return &LoginProvider{
		loginURL: loginURL,
		email:    email,
		password: password,
		client:   client,
		clock:    clk,
	}
}

// Name identifies the strategy in logs.
func (p *LoginProvider) Name() string { return "rest-login" }

// Acquire posts the credentials and reads the token field of the response.
func (p *LoginProvider) Acquire(ctx context.Context) (Credential, error) {
	if p.email == "" || p.password == "" {
		return Credential{}, fmt.Errorf("operator email/password not configured")
	}

	body, err := json.Marshal(map[string]string{
		"email":    p.email,
		"password": p.password,
	})
	if err != nil {
		return Credential{}, fmt.Errorf("marshal login body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.loginURL, bytes.NewReader(body))
	if err != nil {
		return Credential{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Credential{}, fmt.Errorf("read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Credential{}, fmt.Errorf("login status %d: %s", resp.StatusCode, payload)
	}

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return Credential{}, fmt.Errorf("decode login response: %w", err)
	}
	if parsed.Token == "" {
		return Credential{}, fmt.Errorf("login succeeded but response carries no token")
	}

	cred := Credential{Token: parsed.Token, AcquiredAt: p.clock.Now()}
	cred.EnrichOwnerID()
	return cred, nil
}
