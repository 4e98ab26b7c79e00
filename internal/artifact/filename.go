package artifact

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)
	// diacriticStripper decomposes to NFD and drops combining marks, so
	// "Imersão" becomes "Imersao" before sanitization.
	diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NormalizeName transliterates a display name into a filename-safe token:
// diacritics stripped, anything non-alphanumeric collapsed to single
// underscores, no leading or trailing underscore.
func NormalizeName(name string) string {
	stripped, _, err := transform.String(diacriticStripper, name)
	if err != nil {
		stripped = name
	}
	cleaned := nonAlphanumeric.ReplaceAllString(stripped, "_")
	return strings.Trim(cleaned, "_")
}

// FileName derives the artifact filename from provenance plus a capture
// timestamp to avoid collisions: <Group>_<Origin>_<YYYYMMDD_HHMMSS>.csv.
func FileName(groupName, originName string, capturedAt time.Time) string {
	base := NormalizeName(originName)
	if groupName != "" {
		base = NormalizeName(groupName) + "_" + base
	}
	return fmt.Sprintf("%s_%s.csv", base, capturedAt.Format("20060102_150405"))
}
