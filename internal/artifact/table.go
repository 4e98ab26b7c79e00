// Package artifact downloads export files, normalizes their contents, and
// persists them to the working directory.
package artifact

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Table is a simple in-memory CSV: a header row plus data rows. Rows are
// kept ragged-tolerant on read and padded to the column count.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of a column or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// ReadTable parses CSV data into a Table.
func ReadTable(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("csv has no header row")
	}

	table := Table{Columns: records[0]}
	width := len(table.Columns)
	for _, record := range records[1:] {
		row := make([]string, width)
		copy(row, record)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// WriteTable renders the table as CSV.
func WriteTable(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
