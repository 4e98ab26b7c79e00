// Package api is the thin client for the upstream GraphQL endpoint.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/shortmidia/clint-exporter/internal/config"
)

// HeaderSource supplies ready-to-use auth headers for outbound calls. It is
// consulted per request so a mid-run refresh is picked up transparently.
type HeaderSource interface {
	Headers(ctx context.Context) http.Header
}

// Client posts {query, variables} bodies to the GraphQL endpoint with the
// browser-parity header set the upstream expects.
type Client struct {
	graphURL   string
	appURL     string
	userAgent  string
	httpClient *http.Client
	headers    HeaderSource
	logger     *zap.Logger
}

// NewClient builds a Client with the uniform API timeout applied.
func NewClient(cfg config.APIConfig, headers HeaderSource, logger *zap.Logger) *Client {
	return &Client{
		graphURL:   cfg.GraphURL,
		appURL:     cfg.AppURL,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		headers:    headers,
		logger:     logger,
	}
}

// HTTPClient exposes the underlying client so artifact downloads share the
// same timeout policy.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

type graphqlRequest struct {
	Query     string `json:"query"`
	Variables any    `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// Do executes one GraphQL operation and unmarshals the data object into
// out. A transport error, non-200 status, or GraphQL-level error is
// returned as an error; the full request and response bodies go to the
// debug log for diagnosis.
func (c *Client) Do(ctx context.Context, query string, variables any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build graphql request: %w", err)
	}
	c.applyHeaders(ctx, req)

	c.logger.Debug("graphql request", zap.ByteString("payload", body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graphql post: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read graphql response: %w", err)
	}

	c.logger.Debug("graphql response",
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", payload))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graphql status %d: %s", resp.StatusCode, payload)
	}

	var envelope graphqlEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("decode graphql envelope: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("graphql error: %s", envelope.Errors[0].Message)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode graphql data: %w", err)
		}
	}
	return nil
}

// applyHeaders merges the auth headers with the headers the web app itself
// sends, captured from a browser session. Some of them matter to the
// upstream's CORS and bot filtering.
func (c *Client) applyHeaders(ctx context.Context, req *http.Request) {
	for key, values := range c.headers.Headers(ctx) {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Origin", c.appURL)
	req.Header.Set("Referer", c.appURL+"/")
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-site")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}
