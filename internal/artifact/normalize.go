package artifact

import "regexp"

// dateColumns are the timestamp columns exports carry; values there are
// trimmed to the date portion.
var dateColumns = []string{"created_at", "won_at", "lost_at", "purchase_created_at"}

// datePattern matches DD/MM/YYYY optionally followed by HH:MM:SS. Only the
// date capture group survives normalization.
var datePattern = regexp.MustCompile(`^(\d{2}/\d{2}/\d{4})(?:\s+\d{2}:\d{2}:\d{2})?$`)

// TrimDateTime reduces "DD/MM/YYYY HH:MM:SS" to "DD/MM/YYYY". Values that
// do not match pass through unchanged, so the operation is idempotent.
func TrimDateTime(value string) string {
	if m := datePattern.FindStringSubmatch(value); m != nil {
		return m[1]
	}
	return value
}

// NormalizeDates rewrites every recognized date column in place.
func NormalizeDates(t *Table) {
	for _, name := range dateColumns {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			continue
		}
		for _, row := range t.Rows {
			if idx < len(row) {
				row[idx] = TrimDateTime(row[idx])
			}
		}
	}
}
