// Package config loads and validates exporter configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all exporter configuration knobs loaded via Viper.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Browser BrowserConfig `mapstructure:"browser"`
	Export  ExportConfig  `mapstructure:"export"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig locates the upstream GraphQL endpoint and its web app.
type APIConfig struct {
	GraphURL       string `mapstructure:"graph_url"`
	AppURL         string `mapstructure:"app_url"`
	LoginURL       string `mapstructure:"login_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// AuthConfig holds operator credentials and credential-cache behavior.
type AuthConfig struct {
	Email       string `mapstructure:"email"`
	Password    string `mapstructure:"password"`
	CachePath   string `mapstructure:"cache_path"`
	TTLHours    int    `mapstructure:"ttl_hours"`
	StaticToken string `mapstructure:"static_token"`
}

// BrowserConfig controls the headless login flows used to capture tokens.
type BrowserConfig struct {
	Headless          bool   `mapstructure:"headless"`
	LoginPageURL      string `mapstructure:"login_page_url"`
	EmailSelector     string `mapstructure:"email_selector"`
	PasswordSelector  string `mapstructure:"password_selector"`
	SubmitSelector    string `mapstructure:"submit_selector"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	SettleSeconds     int    `mapstructure:"settle_seconds"`
}

// PolicyRule overrides the built-in totalBulk candidate table. Exactly one
// of MatchSubstring or MatchID should be set per rule.
type PolicyRule struct {
	MatchSubstring string `mapstructure:"match_substring"`
	MatchID        string `mapstructure:"match_id"`
	Candidates     []int  `mapstructure:"candidates"`
}

// ExportConfig governs the adaptive bulk-export engine.
type ExportConfig struct {
	MaxRetries        int          `mapstructure:"max_retries"`
	RetryBackoffSecs  int          `mapstructure:"retry_backoff_seconds"`
	PausePerOriginSec int          `mapstructure:"pause_per_origin_seconds"`
	Policies          []PolicyRule `mapstructure:"policies"`
	DefaultCandidates []int        `mapstructure:"default_candidates"`
}

// OutputConfig sets where artifacts, combined files, and reports land.
type OutputConfig struct {
	ResultsDir string `mapstructure:"results_dir"`
	CSVDir     string `mapstructure:"csv_dir"`
}

// LoggingConfig toggles zap development features and the detail log file.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// Load builds a Config from disk/environment. A .env file in the working
// directory is honored first so operator credentials can live there.
func Load(path string) (Config, error) {
	// Ignore a missing .env; env vars may come from the real environment.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CLINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.graph_url", "https://graph.clint.digital/v1/graphql")
	v.SetDefault("api.app_url", "https://app.clint.digital")
	v.SetDefault("api.login_url", "https://api.clint.digital/v1/auth/login")
	v.SetDefault("api.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36")
	v.SetDefault("api.timeout_seconds", 30)

	// Credential keys must be registered even when empty: AutomaticEnv
	// only resolves env vars for keys viper already knows about.
	v.SetDefault("auth.email", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.static_token", "")
	v.SetDefault("auth.cache_path", "token_data.json")
	v.SetDefault("auth.ttl_hours", 12)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.login_page_url", "https://app.clint.digital/origin")
	v.SetDefault("browser.email_selector", `input[name="email"]`)
	v.SetDefault("browser.password_selector", `input[name="password"]`)
	v.SetDefault("browser.submit_selector", `button[type="submit"]`)
	v.SetDefault("browser.nav_timeout_seconds", 30)
	v.SetDefault("browser.settle_seconds", 5)

	v.SetDefault("export.max_retries", 3)
	v.SetDefault("export.retry_backoff_seconds", 3)
	v.SetDefault("export.pause_per_origin_seconds", 1)
	v.SetDefault("export.default_candidates", []int{398, 500, 1000})

	v.SetDefault("output.results_dir", "resultados_api")
	v.SetDefault("output.csv_dir", "resultados_api/csvs")

	v.SetDefault("logging.development", true)
	v.SetDefault("logging.file", "clint_api_export.log")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.API.GraphURL == "" {
		return fmt.Errorf("api.graph_url must be set")
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be > 0")
	}
	if c.Auth.TTLHours <= 0 {
		return fmt.Errorf("auth.ttl_hours must be > 0")
	}
	if c.Export.MaxRetries <= 0 {
		return fmt.Errorf("export.max_retries must be > 0")
	}
	if len(c.Export.DefaultCandidates) == 0 {
		return fmt.Errorf("export.default_candidates must not be empty")
	}
	for i, rule := range c.Export.Policies {
		if rule.MatchSubstring == "" && rule.MatchID == "" {
			return fmt.Errorf("export.policies[%d]: matcher must be set", i)
		}
		if len(rule.Candidates) == 0 {
			return fmt.Errorf("export.policies[%d]: candidates must not be empty", i)
		}
	}
	return nil
}

// Timeout converts the configured API timeout into a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// OriginPause is the fixed pause imposed between origin exports.
func (c Config) OriginPause() time.Duration {
	return time.Duration(c.Export.PausePerOriginSec) * time.Second
}

// TTL is the credential freshness window.
func (c Config) TTL() time.Duration {
	return time.Duration(c.Auth.TTLHours) * time.Hour
}
