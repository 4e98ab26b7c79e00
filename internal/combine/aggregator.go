// Package combine unions the per-origin artifacts into one dataset and
// emits the combined CSV/spreadsheet outputs.
package combine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/shortmidia/clint-exporter/internal/artifact"
	"github.com/shortmidia/clint-exporter/internal/clock"
)

// Column names carried by the combined dataset. These are the wire format
// downstream spreadsheets already consume; do not rename them.
const (
	groupColumn      = "grupo_origem"
	originColumn     = "nome_origem"
	exportTypeColumn = "tipo_exportacao"
	exportTypeValue  = "COMPLETO" // covers OPEN, WON and LOST deals
	unknownGroup     = "Desconhecido"
)

// isCombinedOutput identifies previously emitted combined outputs,
// including the legacy dados_combinados naming, so reruns never accumulate
// stale copies. Glob is unusable here: the bracketed identity prefix would
// be parsed as a character class.
func isCombinedOutput(name string) bool {
	if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".xlsx") {
		return false
	}
	if strings.HasPrefix(name, "dados_combinados_") {
		return true
	}
	return strings.HasPrefix(name, "[") && strings.Contains(name, "]_Dados_Gerais_")
}

// Stats summarizes one combine pass.
type Stats struct {
	FilesCombined int
	FilesSkipped  int
	RowsCombined  int
	ColumnCount   int
	CSVPath       string
	XLSXPath      string
}

// Aggregator merges artifacts with column-set reconciliation. Rows are
// concatenated as-is: duplicates across re-exports of the same origin are
// kept, matching the behavior consumers already rely on (the run-start
// purge of the working directory is what prevents cross-run duplication).
type Aggregator struct {
	csvDir        string
	resultsDir    string
	operatorEmail string
	clock         clock.Clock
	logger        *zap.Logger
}

// NewAggregator builds an Aggregator writing into resultsDir.
func NewAggregator(csvDir, resultsDir, operatorEmail string, clk clock.Clock, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		csvDir:        csvDir,
		resultsDir:    resultsDir,
		operatorEmail: operatorEmail,
		clock:         clk,
		logger:        logger,
	}
}

// Combine purges previous combined outputs, merges every artifact in the
// working directory, re-applies date normalization across the whole table,
// and writes the CSV plus spreadsheet renderings. Spreadsheet failure is
// logged but non-fatal.
func (a *Aggregator) Combine(known []artifact.Info) (Stats, error) {
	a.purgePrevious()

	files, err := filepath.Glob(filepath.Join(a.csvDir, "*.csv"))
	if err != nil {
		return Stats{}, fmt.Errorf("glob artifacts: %w", err)
	}
	if len(files) == 0 {
		return Stats{}, fmt.Errorf("no artifacts to combine in %s", a.csvDir)
	}

	provenance := map[string]artifact.Info{}
	for _, info := range known {
		provenance[info.FileName] = info
	}

	var combined artifact.Table
	stats := Stats{}

	for _, path := range files {
		name := filepath.Base(path)
		group, origin := a.resolveProvenance(name, provenance)

		data, err := os.ReadFile(path)
		if err != nil {
			a.logger.Error("read artifact failed, skipping",
				zap.String("file", name), zap.Error(err))
			stats.FilesSkipped++
			continue
		}
		table, err := artifact.ReadTable(bytes.NewReader(data))
		if err != nil {
			a.logger.Error("parse artifact failed, skipping",
				zap.String("file", name), zap.Error(err))
			stats.FilesSkipped++
			continue
		}

		addConstantColumn(&table, groupColumn, group)
		addConstantColumn(&table, originColumn, origin)
		addConstantColumn(&table, exportTypeColumn, exportTypeValue)

		appendTable(&combined, table)
		stats.FilesCombined++
		stats.RowsCombined += len(table.Rows)

		a.logger.Info("artifact combined",
			zap.String("file", name),
			zap.String("group", group),
			zap.String("origin", origin),
			zap.Int("rows", len(table.Rows)))
	}

	if stats.FilesCombined == 0 {
		return stats, fmt.Errorf("every artifact failed to parse")
	}

	artifact.NormalizeDates(&combined)
	stats.ColumnCount = len(combined.Columns)

	base := a.outputBase()
	stats.CSVPath = filepath.Join(a.resultsDir, base+".csv")
	if err := a.writeCSV(stats.CSVPath, combined); err != nil {
		return stats, err
	}

	stats.XLSXPath = filepath.Join(a.resultsDir, base+".xlsx")
	if err := a.writeXLSX(stats.XLSXPath, combined); err != nil {
		a.logger.Error("spreadsheet emission failed", zap.Error(err))
		stats.XLSXPath = ""
	}

	a.logger.Info("combined dataset written",
		zap.String("csv", stats.CSVPath),
		zap.Int("files", stats.FilesCombined),
		zap.Int("rows", stats.RowsCombined),
		zap.Int("columns", stats.ColumnCount))
	return stats, nil
}

// resolveProvenance prefers the run's own records; for untracked files it
// best-effort parses the GROUP_ORIGIN_TIMESTAMP filename convention.
func (a *Aggregator) resolveProvenance(fileName string, known map[string]artifact.Info) (group, origin string) {
	if info, ok := known[fileName]; ok {
		group = info.GroupName
		if group == "" {
			group = unknownGroup
		}
		return group, info.OriginName
	}
	parts := strings.Split(fileName, "_")
	if len(parts) >= 3 {
		return parts[0], parts[1]
	}
	a.logger.Warn("artifact provenance unknown", zap.String("file", fileName))
	return unknownGroup, strings.TrimSuffix(fileName, ".csv")
}

func (a *Aggregator) purgePrevious() {
	entries, err := os.ReadDir(a.resultsDir)
	if err != nil {
		return
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isCombinedOutput(entry.Name()) {
			continue
		}
		path := filepath.Join(a.resultsDir, entry.Name())
		if err := os.Remove(path); err != nil {
			a.logger.Warn("purge combined output failed",
				zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		a.logger.Info("previous combined outputs removed", zap.Int("count", removed))
	}
}

func (a *Aggregator) outputBase() string {
	identity := strings.ReplaceAll(a.operatorEmail, "@", "_at_")
	return fmt.Sprintf("[%s]_Dados_Gerais_%s", identity, a.clock.Now().Format("02-01-2006"))
}

func (a *Aggregator) writeCSV(path string, table artifact.Table) error {
	var buf bytes.Buffer
	if err := artifact.WriteTable(&buf, table); err != nil {
		return fmt.Errorf("render combined csv: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write combined csv: %w", err)
	}
	return nil
}

func (a *Aggregator) writeXLSX(path string, table artifact.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := setRow(f, sheet, 1, table.Columns); err != nil {
		return err
	}
	for i, row := range table.Rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save spreadsheet: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", rowNum, err)
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("set sheet row %d: %w", rowNum, err)
	}
	return nil
}

// addConstantColumn appends a column filled with value on every row.
func addConstantColumn(t *artifact.Table, name, value string) {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], value)
	}
}

// appendTable concatenates src onto dst, reconciling column sets: columns
// new to dst are added and backfilled empty on prior rows, and src rows
// are re-aligned to dst's column order with empty cells for columns they
// lack.
func appendTable(dst *artifact.Table, src artifact.Table) {
	if len(dst.Columns) == 0 {
		dst.Columns = append(dst.Columns, src.Columns...)
		dst.Rows = append(dst.Rows, src.Rows...)
		return
	}

	for _, col := range src.Columns {
		if dst.ColumnIndex(col) >= 0 {
			continue
		}
		dst.Columns = append(dst.Columns, col)
		for i := range dst.Rows {
			dst.Rows[i] = append(dst.Rows[i], "")
		}
	}

	srcIndex := make([]int, len(dst.Columns))
	for i, col := range dst.Columns {
		srcIndex[i] = src.ColumnIndex(col)
	}
	for _, row := range src.Rows {
		aligned := make([]string, len(dst.Columns))
		for i, from := range srcIndex {
			if from >= 0 && from < len(row) {
				aligned[i] = row[from]
			}
		}
		dst.Rows = append(dst.Rows, aligned)
	}
}
