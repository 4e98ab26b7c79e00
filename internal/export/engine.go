package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shortmidia/clint-exporter/internal/api"
	"github.com/shortmidia/clint-exporter/internal/config"
)

// exportMutation is the bulk-export operation as the web app issues it.
const exportMutation = `
mutation exporterExport($typeEXPORTER_EXPORT: String, $bulkParamsEXPORTER_EXPORT: jsonb!)  {
  exporter_export(type: $typeEXPORTER_EXPORT, bulkParams: $bulkParamsEXPORTER_EXPORT){
    success
    message
    payload
  }
}
`

// Attempt records one (origin, candidate) trial.
type Attempt struct {
	Candidate int    `json:"total_bulk"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// Result is the outcome of exporting one origin: either the artifact URL
// from the first successful candidate, or the last error after exhausting
// the candidate list.
type Result struct {
	Origin      api.Origin
	Success     bool
	Candidate   int
	ArtifactURL string
	LastError   string
	Attempts    []Attempt
}

// GraphQLClient is the slice of api.Client the engine needs.
type GraphQLClient interface {
	Do(ctx context.Context, query string, variables any, out any) error
}

// Engine drives the candidate loop for one origin at a time.
type Engine struct {
	client     GraphQLClient
	policy     *Policy
	maxRetries int
	backoff    time.Duration
	sleep      func(time.Duration)
	logger     *zap.Logger
}

// NewEngine builds an Engine from configuration.
func NewEngine(client GraphQLClient, policy *Policy, cfg config.ExportConfig, logger *zap.Logger) *Engine {
	return &Engine{
		client:     client,
		policy:     policy,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.RetryBackoffSecs) * time.Second,
		sleep:      time.Sleep,
		logger:     logger,
	}
}

type exportResponse struct {
	ExporterExport struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Payload json.RawMessage `json:"payload"`
	} `json:"exporter_export"`
}

// Export requests a downloadable artifact URL for the origin's complete
// deal set. Candidates are tried strictly in policy order; the first
// structured success wins and the rest are skipped.
func (e *Engine) Export(ctx context.Context, origin api.Origin) Result {
	result := Result{Origin: origin}
	candidates := e.policy.CandidatesFor(origin.ID, origin.Name)

	for _, candidate := range candidates {
		e.logger.Info("trying export candidate",
			zap.String("origin", origin.Name),
			zap.Int("total_bulk", candidate))
		attemptsTotal.Inc()

		url, err := e.tryCandidate(ctx, origin, candidate)
		if err != nil {
			e.logger.Warn("export candidate failed",
				zap.String("origin", origin.Name),
				zap.Int("total_bulk", candidate),
				zap.Error(err))
			result.Attempts = append(result.Attempts, Attempt{Candidate: candidate, Error: err.Error()})
			result.LastError = err.Error()
			continue
		}

		result.Attempts = append(result.Attempts, Attempt{Candidate: candidate, Success: true})
		result.Success = true
		result.Candidate = candidate
		result.ArtifactURL = url
		result.LastError = ""
		successTotal.Inc()
		return result
	}

	e.logger.Error("all export candidates exhausted",
		zap.String("origin", origin.Name),
		zap.String("origin_id", origin.ID),
		zap.String("last_error", result.LastError))
	exhaustedTotal.Inc()
	return result
}

// tryCandidate issues the mutation once (with transport retries) and
// interprets the structured response.
func (e *Engine) tryCandidate(ctx context.Context, origin api.Origin, candidate int) (string, error) {
	variables := map[string]any{
		"typeEXPORTER_EXPORT": "DEAL",
		"bulkParamsEXPORTER_EXPORT": map[string]any{
			"where": map[string]any{
				"_and": []map[string]any{
					{"archived_at": map[string]any{"_is_null": true}},
					{"status": map[string]any{"_in": []string{"OPEN", "WON", "LOST"}}},
					{"origin_id": map[string]any{"_eq": origin.ID}},
				},
			},
			"totalBulk": candidate,
		},
	}

	var data exportResponse
	if err := e.doWithRetry(ctx, variables, &data); err != nil {
		return "", err
	}

	if !data.ExporterExport.Success {
		// Full request and response go to the log; the upstream's failure
		// modes here are undocumented and only diagnosable after the fact.
		payload, _ := json.Marshal(variables)
		e.logger.Error("export mutation reported failure",
			zap.String("origin", origin.Name),
			zap.String("message", data.ExporterExport.Message),
			zap.ByteString("request_variables", payload),
			zap.ByteString("response_payload", data.ExporterExport.Payload))
		return "", fmt.Errorf("export rejected: %s", data.ExporterExport.Message)
	}

	var payload struct {
		CSVURL string `json:"csv_url"`
	}
	if err := json.Unmarshal(data.ExporterExport.Payload, &payload); err != nil {
		return "", fmt.Errorf("decode export payload: %w", err)
	}
	if payload.CSVURL == "" {
		return "", fmt.Errorf("export succeeded but payload carries no csv_url")
	}
	return payload.CSVURL, nil
}

// doWithRetry retries the HTTP call on transport errors with a fixed
// backoff before giving up on the candidate.
func (e *Engine) doWithRetry(ctx context.Context, variables any, out *exportResponse) error {
	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = e.client.Do(ctx, exportMutation, variables, out)
		if lastErr == nil {
			return nil
		}
		if attempt < e.maxRetries {
			e.logger.Warn("export request failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", e.backoff),
				zap.Error(lastErr))
			e.sleep(e.backoff)
		}
	}
	return lastErr
}
