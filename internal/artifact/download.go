package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/shortmidia/clint-exporter/internal/api"
	"github.com/shortmidia/clint-exporter/internal/clock"
)

// Info is the provenance and size metadata of a persisted artifact.
type Info struct {
	Path       string `json:"file_path"`
	FileName   string `json:"file_name"`
	OriginID   string `json:"origin_id"`
	OriginName string `json:"origin_name"`
	GroupName  string `json:"group_name"`
	ByteSize   int    `json:"file_size"`
	RowCount   int    `json:"row_count"`
	Raw        bool   `json:"raw,omitempty"`
}

// Result is the outcome of a download: an Info on success, an error string
// on structured failure. Download failures are values, not errors, so the
// run loop can record them and continue.
type Result struct {
	Success bool
	Info    Info
	Error   string
}

// Downloader fetches export files and normalizes them into the working
// directory.
type Downloader struct {
	httpClient *http.Client
	headers    api.HeaderSource
	csvDir     string
	clock      clock.Clock
	logger     *zap.Logger
}

// NewDownloader builds a Downloader writing into csvDir.
func NewDownloader(httpClient *http.Client, headers api.HeaderSource, csvDir string, clk clock.Clock, logger *zap.Logger) (*Downloader, error) {
	if err := os.MkdirAll(csvDir, 0o750); err != nil {
		return nil, fmt.Errorf("create csv dir %s: %w", csvDir, err)
	}
	return &Downloader{
		httpClient: httpClient,
		headers:    headers,
		csvDir:     csvDir,
		clock:      clk,
		logger:     logger,
	}, nil
}

// Download fetches the artifact at url, decodes it with the encoding
// fallback chain, trims date columns, and persists it under a
// provenance-derived filename. Undecodable bytes are kept raw rather than
// discarded.
func (d *Downloader) Download(ctx context.Context, url string, origin api.Origin) Result {
	d.logger.Info("downloading artifact",
		zap.String("origin", origin.Name),
		zap.String("url", url))

	data, err := d.fetch(ctx, url)
	if err != nil {
		d.logger.Error("artifact download failed",
			zap.String("origin", origin.Name),
			zap.Error(err))
		return Result{Error: err.Error()}
	}

	capturedAt := d.clock.Now()
	fileName := FileName(origin.GroupName(), origin.Name, capturedAt)
	target := filepath.Join(d.csvDir, fileName)

	info := Info{
		Path:       target,
		FileName:   fileName,
		OriginID:   origin.ID,
		OriginName: origin.Name,
		GroupName:  origin.GroupName(),
		ByteSize:   len(data),
	}

	table, encodingName, err := DecodeTable(data)
	if err != nil {
		// Keep the raw bytes; losing data is worse than skipping the
		// normalization pass.
		d.logger.Warn("artifact kept raw, no encoding parsed it",
			zap.String("origin", origin.Name),
			zap.Error(err))
		if werr := os.WriteFile(target, data, 0o600); werr != nil {
			return Result{Error: fmt.Sprintf("write raw artifact: %v", werr)}
		}
		info.Raw = true
		return Result{Success: true, Info: info}
	}

	NormalizeDates(&table)

	var buf bytes.Buffer
	if err := WriteTable(&buf, table); err != nil {
		return Result{Error: fmt.Sprintf("render artifact: %v", err)}
	}
	if err := os.WriteFile(target, buf.Bytes(), 0o600); err != nil {
		return Result{Error: fmt.Sprintf("write artifact: %v", err)}
	}

	info.RowCount = len(table.Rows)
	d.logger.Info("artifact saved",
		zap.String("file", fileName),
		zap.String("encoding", encodingName),
		zap.Int("rows", info.RowCount),
		zap.Int("bytes", info.ByteSize))
	return Result{Success: true, Info: info}
}

func (d *Downloader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	for key, values := range d.headers.Headers(ctx) {
		for _, value := range values {
			req.Header.Set(key, value)
		}
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("download status %d: %s", resp.StatusCode, body)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download body: %w", err)
	}
	return data, nil
}

// PurgeCSVDir removes every CSV left from a previous run so re-exports do
// not duplicate rows in the combined dataset.
func (d *Downloader) PurgeCSVDir() (int, error) {
	matches, err := filepath.Glob(filepath.Join(d.csvDir, "*.csv"))
	if err != nil {
		return 0, fmt.Errorf("glob csv dir: %w", err)
	}
	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			d.logger.Warn("purge old artifact failed", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}
