package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// cacheRecord is the on-disk shape of the cached credential. Field names
// match the token_data.json files written by earlier versions of this
// tooling so an existing cache keeps working.
type cacheRecord struct {
	Token     string `json:"jwt_token"`
	OwnerID   string `json:"owner_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// timestampLayouts covers RFC3339 and the fractional-seconds local form the
// previous implementation wrote.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// FileCache persists a single credential record on disk. The slot is
// overwritten on save, never appended.
type FileCache struct {
	path string
}

// NewFileCache returns a cache backed by the given file path.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

// Load reads the cached credential. It fails soft: a missing, unreadable,
// or corrupt record yields (zero, false) so callers re-acquire.
func (c *FileCache) Load() (Credential, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return Credential{}, false
	}
	var rec cacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Credential{}, false
	}
	if rec.Token == "" {
		return Credential{}, false
	}
	acquired, ok := parseTimestamp(rec.Timestamp)
	if !ok {
		return Credential{}, false
	}
	return Credential{
		Token:      rec.Token,
		OwnerID:    rec.OwnerID,
		AcquiredAt: acquired,
	}, true
}

// Save overwrites the cache slot with cred.
func (c *FileCache) Save(cred Credential) error {
	rec := cacheRecord{
		Token:     cred.Token,
		OwnerID:   cred.OwnerID,
		Timestamp: cred.AcquiredAt.Format(time.RFC3339Nano),
	}
	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	if err := os.WriteFile(c.path, payload, 0o600); err != nil {
		return fmt.Errorf("write credential cache %s: %w", c.path, err)
	}
	return nil
}

// Fresh reports whether cred is younger than ttl at time now.
func Fresh(cred Credential, ttl time.Duration, now time.Time) bool {
	if cred.IsZero() {
		return false
	}
	return now.Sub(cred.AcquiredAt) <= ttl
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
