// Package report renders the per-run extraction summary in the JSON and
// plain-text formats downstream tooling already parses. Field names and
// status values are part of that format and stay in Portuguese.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/shortmidia/clint-exporter/internal/clock"
)

const (
	StatusSuccess = "sucesso"
	StatusFailure = "falha"
)

// OriginEntry is one origin under a group in the report.
type OriginEntry struct {
	ID   string `json:"id"`
	Name string `json:"nome"`
}

// GroupEntry is one processed group with its origins.
type GroupEntry struct {
	ID      string        `json:"id"`
	Name    string        `json:"nome"`
	Origins []OriginEntry `json:"origens"`
}

// Download records the outcome of exporting one origin.
type Download struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	File     string `json:"arquivo,omitempty"`
	Rows     int    `json:"linhas,omitempty"`
	Group    string `json:"grupo"`
	OriginID string `json:"origem_id"`
	Origin   string `json:"origem"`
	Status   string `json:"status"`
}

// Summary is the full run report.
type Summary struct {
	ExtractedAt  string       `json:"data_extracao"`
	TotalGroups  int          `json:"total_grupos"`
	TotalOrigins int          `json:"total_origens"`
	Groups       []GroupEntry `json:"grupos"`
	Downloads    []Download   `json:"downloads"`
}

// Successes counts downloads that completed.
func (s *Summary) Successes() int {
	n := 0
	for _, d := range s.Downloads {
		if d.Success {
			n++
		}
	}
	return n
}

// Failures counts downloads that did not complete.
func (s *Summary) Failures() int {
	return len(s.Downloads) - s.Successes()
}

// StatusFor maps an outcome to its wire value.
func StatusFor(success bool) string {
	if success {
		return StatusSuccess
	}
	return StatusFailure
}

// Writer persists summaries into the results directory. Reports are
// written even when every export failed; partial visibility beats none.
type Writer struct {
	resultsDir string
	clock      clock.Clock
	logger     *zap.Logger
}

// NewWriter builds a Writer targeting resultsDir.
func NewWriter(resultsDir string, clk clock.Clock, logger *zap.Logger) *Writer {
	return &Writer{resultsDir: resultsDir, clock: clk, logger: logger}
}

// Write emits exportacao_<stamp>.json and exportacao_<stamp>.txt and
// returns both paths.
func (w *Writer) Write(summary *Summary) (jsonPath, textPath string, err error) {
	stamp := w.clock.Now().Format("20060102_150405")

	jsonPath = filepath.Join(w.resultsDir, fmt.Sprintf("exportacao_%s.json", stamp))
	data, err := json.MarshalIndent(summary, "", "    ")
	if err != nil {
		return "", "", fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o600); err != nil {
		return "", "", fmt.Errorf("write json report: %w", err)
	}

	textPath = filepath.Join(w.resultsDir, fmt.Sprintf("exportacao_%s.txt", stamp))
	if err := os.WriteFile(textPath, []byte(renderText(summary)), 0o600); err != nil {
		return "", "", fmt.Errorf("write text report: %w", err)
	}

	w.logger.Info("run report written",
		zap.String("json", jsonPath),
		zap.String("text", textPath),
		zap.Int("successes", summary.Successes()),
		zap.Int("failures", summary.Failures()))
	return jsonPath, textPath, nil
}

func renderText(s *Summary) string {
	var b strings.Builder
	rule := strings.Repeat("=", 50)
	dash := strings.Repeat("-", 40)

	fmt.Fprintf(&b, "Exportação de Origens via API - %s\n", s.ExtractedAt)
	fmt.Fprintf(&b, "Total de grupos: %d\n", s.TotalGroups)
	fmt.Fprintf(&b, "Total de origens encontradas: %d\n\n", s.TotalOrigins)

	if len(s.Groups) > 0 {
		b.WriteString("GRUPOS E ORIGENS PROCESSADOS:\n")
		b.WriteString(rule + "\n\n")
		for _, g := range s.Groups {
			fmt.Fprintf(&b, "GRUPO: %s\n", g.Name)
			b.WriteString(dash + "\n")
			if len(g.Origins) == 0 {
				b.WriteString("  Nenhuma origem encontrada neste grupo\n\n")
				continue
			}
			for _, o := range g.Origins {
				fmt.Fprintf(&b, "  • Origem: %s (ID: %s)\n", o.Name, o.ID)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nRESUMO DE DOWNLOADS DE CSV:\n")
	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "Total de origens processadas: %d\n", len(s.Downloads))
	fmt.Fprintf(&b, "Downloads com sucesso: %d\n", s.Successes())
	fmt.Fprintf(&b, "Downloads com falha: %d\n\n", s.Failures())

	b.WriteString("DETALHES DOS DOWNLOADS:\n")
	b.WriteString(dash + "\n")
	for _, d := range s.Downloads {
		fmt.Fprintf(&b, "Origem: %s (Grupo: %s)\n", d.Origin, d.Group)
		fmt.Fprintf(&b, "Status: %s\n", d.Status)
		b.WriteString(dash + "\n")
	}
	return b.String()
}
