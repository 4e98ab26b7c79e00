// Package runner sequences a full export run: purge, directory fetch,
// per-origin export and download, run report, and final combine.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shortmidia/clint-exporter/internal/api"
	"github.com/shortmidia/clint-exporter/internal/artifact"
	"github.com/shortmidia/clint-exporter/internal/clock"
	"github.com/shortmidia/clint-exporter/internal/combine"
	"github.com/shortmidia/clint-exporter/internal/export"
	"github.com/shortmidia/clint-exporter/internal/report"
)

// DirectoryClient lists the exportable origins.
type DirectoryClient interface {
	ListOrigins(ctx context.Context) ([]api.Origin, error)
}

// ExportEngine requests a bulk export for one origin.
type ExportEngine interface {
	Export(ctx context.Context, origin api.Origin) export.Result
}

// ArtifactDownloader fetches and normalizes export files.
type ArtifactDownloader interface {
	Download(ctx context.Context, url string, origin api.Origin) artifact.Result
	PurgeCSVDir() (int, error)
}

// Combiner merges downloaded artifacts into the combined outputs.
type Combiner interface {
	Combine(known []artifact.Info) (combine.Stats, error)
}

// SummaryWriter persists the run report.
type SummaryWriter interface {
	Write(summary *report.Summary) (jsonPath, textPath string, err error)
}

// Runner executes one end-to-end export run.
type Runner struct {
	directory  DirectoryClient
	engine     ExportEngine
	downloader ArtifactDownloader
	combiner   Combiner
	reporter   SummaryWriter
	pause      time.Duration
	clock      clock.Clock
	logger     *zap.Logger

	// sleep is swappable in tests.
	sleep func(time.Duration)
}

// New wires a Runner. pause is the delay between consecutive origins,
// keeping request rate well under what the upstream tolerates.
func New(directory DirectoryClient, engine ExportEngine, downloader ArtifactDownloader,
	combiner Combiner, reporter SummaryWriter, pause time.Duration,
	clk clock.Clock, logger *zap.Logger) *Runner {
	return &Runner{
		directory:  directory,
		engine:     engine,
		downloader: downloader,
		combiner:   combiner,
		reporter:   reporter,
		pause:      pause,
		clock:      clk,
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// Run performs a complete export pass. The directory fetch is the only
// fatal step before the loop; per-origin failures are recorded in the
// summary and the run continues. The report is written even when every
// origin failed.
func (r *Runner) Run(ctx context.Context) (*report.Summary, error) {
	runID := uuid.NewString()
	log := r.logger.With(zap.String("run_id", runID))
	log.Info("export run starting")

	if removed, err := r.downloader.PurgeCSVDir(); err != nil {
		log.Warn("purging working directory failed", zap.Error(err))
	} else if removed > 0 {
		log.Info("stale artifacts removed", zap.Int("count", removed))
	}

	origins, err := r.directory.ListOrigins(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch origin directory: %w", err)
	}
	if len(origins) == 0 {
		return nil, fmt.Errorf("origin directory is empty, nothing to export")
	}

	groups, ungrouped := api.GroupOrigins(origins)
	for _, o := range ungrouped {
		log.Warn("origin has no group, skipping",
			zap.String("origin_id", o.ID), zap.String("origin", o.Name))
	}

	total := 0
	for _, g := range groups {
		total += len(g.Origins)
	}

	summary := &report.Summary{
		ExtractedAt:  r.clock.Now().Format("2006-01-02 15:04:05"),
		TotalGroups:  len(groups),
		TotalOrigins: total,
	}
	log.Info("origin directory loaded",
		zap.Int("groups", summary.TotalGroups),
		zap.Int("origins", summary.TotalOrigins),
		zap.Int("ungrouped", len(ungrouped)))

	var downloaded []artifact.Info
	idx := 0
	for _, group := range groups {
		entry := report.GroupEntry{ID: group.ID, Name: group.Name}
		log.Info("processing group",
			zap.String("group", group.Name), zap.Int("origins", len(group.Origins)))

		for _, origin := range group.Origins {
			idx++
			entry.Origins = append(entry.Origins, report.OriginEntry{ID: origin.ID, Name: origin.Name})
			log.Info("processing origin",
				zap.Int("index", idx), zap.Int("total", total),
				zap.String("origin", origin.Name))

			download, info := r.exportOne(ctx, group.Name, origin)
			if info != nil {
				downloaded = append(downloaded, *info)
			}
			summary.Downloads = append(summary.Downloads, download)

			if ctx.Err() != nil {
				log.Warn("run canceled", zap.Error(ctx.Err()))
				break
			}
			if idx < total {
				r.sleep(r.pause)
			}
		}
		summary.Groups = append(summary.Groups, entry)
		if ctx.Err() != nil {
			break
		}
	}

	if _, _, err := r.reporter.Write(summary); err != nil {
		log.Error("writing run report failed", zap.Error(err))
	}

	if len(downloaded) == 0 {
		log.Error("no artifacts downloaded, skipping combine")
		return summary, fmt.Errorf("run produced no artifacts (%d failures)", summary.Failures())
	}

	stats, err := r.combiner.Combine(downloaded)
	if err != nil {
		log.Error("combine failed", zap.Error(err))
		return summary, fmt.Errorf("combine artifacts: %w", err)
	}
	log.Info("export run finished",
		zap.Int("successes", summary.Successes()),
		zap.Int("failures", summary.Failures()),
		zap.Int("combined_rows", stats.RowsCombined),
		zap.String("combined_csv", stats.CSVPath))
	return summary, nil
}

// exportOne runs the export-then-download pipeline for a single origin.
// It returns the report entry and, on success, the downloaded artifact's
// info for the combine pass.
func (r *Runner) exportOne(ctx context.Context, groupName string, origin api.Origin) (report.Download, *artifact.Info) {
	entry := report.Download{
		Group:    groupName,
		OriginID: origin.ID,
		Origin:   origin.Name,
	}

	res := r.engine.Export(ctx, origin)
	if !res.Success {
		entry.Error = res.LastError
		entry.Status = report.StatusFor(false)
		return entry, nil
	}

	dl := r.downloader.Download(ctx, res.ArtifactURL, origin)
	if !dl.Success {
		entry.Error = dl.Error
		entry.Status = report.StatusFor(false)
		return entry, nil
	}

	entry.Success = true
	entry.Status = report.StatusFor(true)
	entry.File = dl.Info.FileName
	entry.Rows = dl.Info.RowCount
	return entry, &dl.Info
}
