package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shortmidia/clint-exporter/internal/api"
	"github.com/shortmidia/clint-exporter/internal/artifact"
	"github.com/shortmidia/clint-exporter/internal/auth"
	"github.com/shortmidia/clint-exporter/internal/clock"
	"github.com/shortmidia/clint-exporter/internal/combine"
	"github.com/shortmidia/clint-exporter/internal/config"
	"github.com/shortmidia/clint-exporter/internal/export"
	"github.com/shortmidia/clint-exporter/internal/logging"
	"github.com/shortmidia/clint-exporter/internal/report"
	"github.com/shortmidia/clint-exporter/internal/runner"
)

// newExportCmd creates the 'export' subcommand, which performs one full
// export run end to end.
func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export all origins and combine the results",
		Long: `Fetches the origin directory, requests a bulk export for every
origin in every group, downloads and normalizes each CSV, combines them
into one dataset (CSV and XLSX), and writes a JSON/text run report.`,
		RunE: runExportCommand,
	}
}

func runExportCommand(cmd *cobra.Command, _ []string) error {
	// Load validates before returning.
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development || devLogging, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // stderr sync failure is unactionable

	run, err := buildRunner(cfg, logger)
	if err != nil {
		return err
	}

	summary, err := run.Run(cmd.Context())
	if err != nil {
		return err
	}
	logger.Info("export complete",
		zap.Int("origins", summary.TotalOrigins),
		zap.Int("successes", summary.Successes()),
		zap.Int("failures", summary.Failures()))
	return nil
}

// buildRunner wires the full pipeline from configuration: credential
// cascade, API client, export engine, downloader, combiner, and reporter.
func buildRunner(cfg config.Config, logger *zap.Logger) (*runner.Runner, error) {
	if err := os.MkdirAll(cfg.Output.ResultsDir, 0o750); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}

	clk := clock.System{}
	cascade, err := buildCascade(cfg, clk, logger)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.API, cascade, logger)
	engine := export.NewEngine(client, export.PolicyFromConfig(cfg.Export), cfg.Export, logger)

	downloader, err := artifact.NewDownloader(client.HTTPClient(), cascade, cfg.Output.CSVDir, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("init downloader: %w", err)
	}

	combiner := combine.NewAggregator(cfg.Output.CSVDir, cfg.Output.ResultsDir, cfg.Auth.Email, clk, logger)
	reporter := report.NewWriter(cfg.Output.ResultsDir, clk, logger)

	return runner.New(client, engine, downloader, combiner, reporter, cfg.OriginPause(), clk, logger), nil
}

// buildCascade assembles the token strategies in priority order. Browser
// strategies need operator credentials; when those are missing the chain
// degrades to the REST login and the static fallback.
func buildCascade(cfg config.Config, clk clock.Clock, logger *zap.Logger) (*auth.Cascade, error) {
	var providers []auth.TokenProvider

	email, password := cfg.Auth.Email, cfg.Auth.Password
	if email != "" && password != "" {
		intercept, err := auth.NewInterceptProvider(cfg.Browser, email, password, cfg.API.GraphURL, clk)
		if err != nil {
			return nil, fmt.Errorf("init intercept strategy: %w", err)
		}
		capture, err := auth.NewCaptureProvider(cfg.Browser, email, password, cfg.API.GraphURL, clk)
		if err != nil {
			return nil, fmt.Errorf("init capture strategy: %w", err)
		}
		storage, err := auth.NewStorageProvider(cfg.Browser, email, password, cfg.API.GraphURL, clk)
		if err != nil {
			return nil, fmt.Errorf("init storage strategy: %w", err)
		}
		login := auth.NewLoginProvider(cfg.API.LoginURL, email, password,
			&http.Client{Timeout: cfg.API.Timeout()}, clk)
		providers = append(providers, intercept, capture, storage, login)
	} else {
		logger.Warn("operator credentials missing, dynamic token strategies disabled")
	}

	cache := auth.NewFileCache(cfg.Auth.CachePath)
	fallback := auth.NewStaticProvider(cfg.Auth.StaticToken)
	return auth.NewCascade(cache, providers, fallback, cfg.TTL(), clk, logger), nil
}
