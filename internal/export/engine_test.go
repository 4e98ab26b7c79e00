package export

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shortmidia/clint-exporter/internal/api"
	"github.com/shortmidia/clint-exporter/internal/config"
)

// scriptedClient answers the export mutation per totalBulk value.
type scriptedClient struct {
	calls   []int
	respond func(totalBulk int, out *exportResponse) error
}

func (c *scriptedClient) Do(_ context.Context, _ string, variables any, out any) error {
	vars := variables.(map[string]any)
	bulk := vars["bulkParamsEXPORTER_EXPORT"].(map[string]any)["totalBulk"].(int)
	c.calls = append(c.calls, bulk)
	return c.respond(bulk, out.(*exportResponse))
}

func structuredFailure(out *exportResponse, message string) {
	out.ExporterExport.Success = false
	out.ExporterExport.Message = message
	out.ExporterExport.Payload = json.RawMessage(`{"detail":"upstream refused"}`)
}

func structuredSuccess(out *exportResponse, url string) {
	out.ExporterExport.Success = true
	out.ExporterExport.Payload = json.RawMessage(`{"csv_url":"` + url + `"}`)
}

func newTestEngine(client GraphQLClient, maxRetries int) (*Engine, *[]time.Duration) {
	cfg := config.ExportConfig{MaxRetries: maxRetries, RetryBackoffSecs: 3}
	e := NewEngine(client, DefaultPolicy(), cfg, zap.NewNop())
	var slept []time.Duration
	e.sleep = func(d time.Duration) { slept = append(slept, d) }
	return e, &slept
}

func TestExportStopsAtFirstWorkingCandidate(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{respond: func(bulk int, out *exportResponse) error {
		if bulk == 1000 {
			structuredSuccess(out, "https://cdn.example.com/export.csv")
			return nil
		}
		structuredFailure(out, "tamanho invalido")
		return nil
	}}
	engine, _ := newTestEngine(client, 1)

	res := engine.Export(context.Background(), api.Origin{ID: "o9", Name: "Webinar Outubro"})
	require.True(t, res.Success)
	require.Equal(t, 1000, res.Candidate)
	require.Equal(t, "https://cdn.example.com/export.csv", res.ArtifactURL)
	require.Empty(t, res.LastError)

	// Default candidates, tried strictly in order, stopping at success.
	require.Equal(t, []int{398, 500, 1000}, client.calls)
	require.Len(t, res.Attempts, 3)
	require.False(t, res.Attempts[0].Success)
	require.True(t, res.Attempts[2].Success)
}

func TestExportExhaustsCandidates(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{respond: func(_ int, out *exportResponse) error {
		structuredFailure(out, "limite excedido")
		return nil
	}}
	engine, _ := newTestEngine(client, 1)

	res := engine.Export(context.Background(), api.Origin{ID: "o9", Name: "Webinar Outubro"})
	require.False(t, res.Success)
	require.Contains(t, res.LastError, "limite excedido")
	require.Equal(t, []int{398, 500, 1000}, client.calls)
	require.Len(t, res.Attempts, 3)
}

func TestExportRetriesTransportErrors(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := &scriptedClient{respond: func(_ int, out *exportResponse) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		structuredSuccess(out, "https://cdn.example.com/export.csv")
		return nil
	}}
	engine, slept := newTestEngine(client, 3)

	res := engine.Export(context.Background(), api.Origin{ID: "o1", Name: "Lista Geral"})
	require.True(t, res.Success)
	require.Equal(t, 1000, res.Candidate)
	// Two transport failures, each followed by the fixed backoff.
	require.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, *slept)
	require.Equal(t, []int{1000, 1000, 1000}, client.calls)
}

func TestExportStructuredFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{respond: func(_ int, out *exportResponse) error {
		structuredFailure(out, "recusado")
		return nil
	}}
	engine, slept := newTestEngine(client, 3)

	res := engine.Export(context.Background(), api.Origin{ID: "o9", Name: "Webinar"})
	require.False(t, res.Success)
	// One call per candidate: a structured rejection moves to the next
	// candidate without transport retries.
	require.Equal(t, []int{398, 500, 1000}, client.calls)
	require.Empty(t, *slept)
}

func TestExportRejectsSuccessWithoutURL(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{respond: func(_ int, out *exportResponse) error {
		out.ExporterExport.Success = true
		out.ExporterExport.Payload = json.RawMessage(`{}`)
		return nil
	}}
	engine, _ := newTestEngine(client, 1)

	res := engine.Export(context.Background(), api.Origin{ID: "o9", Name: "Webinar"})
	require.False(t, res.Success)
	require.Contains(t, res.LastError, "no csv_url")
}

func TestExportHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{respond: func(_ int, out *exportResponse) error {
		structuredSuccess(out, "https://cdn.example.com/export.csv")
		return nil
	}}
	engine, _ := newTestEngine(client, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := engine.Export(ctx, api.Origin{ID: "o9", Name: "Webinar"})
	require.False(t, res.Success)
	require.Empty(t, client.calls)
}
