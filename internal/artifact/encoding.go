package artifact

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// decodeAttempt is one rung of the encoding fallback chain. A nil decoder
// means the bytes are used as-is after a UTF-8 validity check.
type decodeAttempt struct {
	name    string
	decoder *encoding.Decoder
}

// fallbackChain mirrors the encodings exports have shown up in: UTF-8,
// then the two Latin-family encodings Brazilian CRM data tends to carry.
var fallbackChain = []decodeAttempt{
	{name: "utf-8", decoder: nil},
	{name: "windows-1252", decoder: charmap.Windows1252.NewDecoder()},
	{name: "iso-8859-1", decoder: charmap.ISO8859_1.NewDecoder()},
}

// DecodeTable tries each encoding in order until the bytes both decode and
// parse as CSV. It returns the table plus the encoding name that worked,
// or an error when every rung fails (callers then keep the raw bytes).
func DecodeTable(data []byte) (Table, string, error) {
	var lastErr error
	for _, attempt := range fallbackChain {
		decoded := data
		if attempt.decoder == nil {
			if !utf8.Valid(data) {
				lastErr = fmt.Errorf("not valid utf-8")
				continue
			}
		} else {
			converted, _, err := transform.Bytes(attempt.decoder, data)
			if err != nil {
				lastErr = fmt.Errorf("decode %s: %w", attempt.name, err)
				continue
			}
			decoded = converted
		}

		table, err := ReadTable(bytes.NewReader(decoded))
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", attempt.name, err)
			continue
		}
		return table, attempt.name, nil
	}
	return Table{}, "", fmt.Errorf("no encoding produced a parsable table: %w", lastErr)
}
