package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

func sampleSummary() *Summary {
	return &Summary{
		ExtractedAt:  "2026-03-15 14:22:07",
		TotalGroups:  1,
		TotalOrigins: 2,
		Groups: []GroupEntry{{
			ID:   "g1",
			Name: "Vendas",
			Origins: []OriginEntry{
				{ID: "o1", Name: "Lista Geral"},
				{ID: "o2", Name: "Compras"},
			},
		}},
		Downloads: []Download{
			{Success: true, File: "Vendas_Lista_Geral_20260315_142207.csv", Rows: 10,
				Group: "Vendas", OriginID: "o1", Origin: "Lista Geral", Status: StatusSuccess},
			{Success: false, Error: "export rejected: limite excedido",
				Group: "Vendas", OriginID: "o2", Origin: "Compras", Status: StatusFailure},
		},
	}
}

func TestSummaryCounters(t *testing.T) {
	t.Parallel()

	s := sampleSummary()
	require.Equal(t, 1, s.Successes())
	require.Equal(t, 1, s.Failures())
	require.Equal(t, "sucesso", StatusFor(true))
	require.Equal(t, "falha", StatusFor(false))
}

func TestWriterEmitsBothFormats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	clk := fakeClock{now: time.Date(2026, 3, 15, 14, 22, 7, 0, time.UTC)}
	w := NewWriter(dir, clk, zap.NewNop())

	jsonPath, textPath, err := w.Write(sampleSummary())
	require.NoError(t, err)
	require.Equal(t, "exportacao_20260315_142207.json", filepath.Base(jsonPath))
	require.Equal(t, "exportacao_20260315_142207.txt", filepath.Base(textPath))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "2026-03-15 14:22:07", decoded["data_extracao"])
	require.Equal(t, float64(1), decoded["total_grupos"])
	require.Equal(t, float64(2), decoded["total_origens"])

	downloads := decoded["downloads"].([]any)
	require.Len(t, downloads, 2)
	first := downloads[0].(map[string]any)
	require.Equal(t, "sucesso", first["status"])
	require.Equal(t, "o1", first["origem_id"])
	require.Equal(t, "Vendas", first["grupo"])
	second := downloads[1].(map[string]any)
	require.Equal(t, "falha", second["status"])
	require.Contains(t, second["error"], "limite excedido")

	text, err := os.ReadFile(textPath)
	require.NoError(t, err)
	body := string(text)
	require.Contains(t, body, "Total de grupos: 1")
	require.Contains(t, body, "Total de origens encontradas: 2")
	require.Contains(t, body, "GRUPO: Vendas")
	require.Contains(t, body, "Origem: Lista Geral (ID: o1)")
	require.Contains(t, body, "Downloads com sucesso: 1")
	require.Contains(t, body, "Downloads com falha: 1")
	require.Contains(t, body, "Status: falha")
}

func TestWriterHandlesEmptyRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	clk := fakeClock{now: time.Date(2026, 3, 15, 14, 22, 7, 0, time.UTC)}
	w := NewWriter(dir, clk, zap.NewNop())

	jsonPath, textPath, err := w.Write(&Summary{ExtractedAt: "2026-03-15 14:22:07"})
	require.NoError(t, err)
	require.FileExists(t, jsonPath)
	require.FileExists(t, textPath)
}
