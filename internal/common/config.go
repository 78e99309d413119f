// Package common provides shared utilities for twpulse
package common

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config holds all configuration for twpulse
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	News        NewsConfig      `toml:"news"`
	Clients     ClientsConfig   `toml:"clients"`
	Stocks      StocksConfig    `toml:"stocks"`
	Plots       PlotsConfig     `toml:"plots"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Dashboard   DashboardConfig `toml:"dashboard"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// NewsConfig controls headline, keyword and correlated-news sizing.
type NewsConfig struct {
	HeadlineLimit      int    `toml:"headline_limit"`
	TopKeywords        int    `toml:"top_keywords"`
	CorrelatedKeywords int    `toml:"correlated_keywords"`
	CorrelatedLimit    int    `toml:"correlated_limit"`
	Dictionary         string `toml:"dictionary"` // gse dictionary spec, empty = built-in
}

// ClientsConfig holds upstream API client configurations
type ClientsConfig struct {
	YahooTW      YahooTWConfig      `toml:"yahootw"`
	Cnyes        CnyesConfig        `toml:"cnyes"`
	YahooFinance YahooFinanceConfig `toml:"yahoofinance"`
}

// YahooTWConfig holds the headline page scraper configuration
type YahooTWConfig struct {
	BaseURL   string `toml:"base_url"`
	Selector  string `toml:"selector"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooTWConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout)
}

// CnyesConfig holds the primary keyword-search API configuration
type CnyesConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *CnyesConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout)
}

// YahooFinanceConfig holds the chart and fallback news API configuration
type YahooFinanceConfig struct {
	ChartBaseURL string `toml:"chart_base_url"`
	NewsBaseURL  string `toml:"news_base_url"`
	RateLimit    int    `toml:"rate_limit"`
	Timeout      string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooFinanceConfig) GetTimeout() time.Duration {
	return parseTimeout(c.Timeout)
}

// StocksConfig holds the watch-list and history settings
type StocksConfig struct {
	Watchlist        []string `toml:"watchlist"`
	LookbackDays     int      `toml:"lookback_days"`
	ExchangeSuffixes []string `toml:"exchange_suffixes"`
	SymbolsFile      string   `toml:"symbols_file"` // optional YAML overriding the built-in name table
}

// PlotsConfig holds plot artifact settings
type PlotsConfig struct {
	Dir    string `toml:"dir"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// SchedulerConfig controls the background watch-list plot refresh
type SchedulerConfig struct {
	Enabled     bool   `toml:"enabled"`
	RefreshCron string `toml:"refresh_cron"`
}

// DashboardConfig controls orchestration fan-out
type DashboardConfig struct {
	Concurrency int `toml:"concurrency"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// DefaultTimeout is the per-call upstream timeout when none is configured.
const DefaultTimeout = 10 * time.Second

// validateTimeout accepts an empty value (use the default) or a positive
// Go duration such as "10s".
func validateTimeout(key, s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", key)
	}
	return nil
}

func parseTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// DefaultWatchlist is the fixed set of "hot" symbols analyzed on every render.
var DefaultWatchlist = []string{"2330", "2317", "2303", "2454", "2882", "2603"}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		News: NewsConfig{
			HeadlineLimit:      10,
			TopKeywords:        10,
			CorrelatedKeywords: 3,
			CorrelatedLimit:    5,
		},
		Clients: ClientsConfig{
			YahooTW: YahooTWConfig{
				BaseURL:   "https://tw.stock.yahoo.com",
				Selector:  `a[data-ylk*="t1:a1"]`,
				RateLimit: 2,
				Timeout:   "10s",
			},
			Cnyes: CnyesConfig{
				BaseURL:   "https://api.cnyes.com/media/api/v1",
				RateLimit: 5,
				Timeout:   "10s",
			},
			YahooFinance: YahooFinanceConfig{
				ChartBaseURL: "https://query1.finance.yahoo.com",
				NewsBaseURL:  "https://tw.stock.yahoo.com/_td-stock/api/resource",
				RateLimit:    5,
				Timeout:      "10s",
			},
		},
		Stocks: StocksConfig{
			Watchlist:        append([]string(nil), DefaultWatchlist...),
			LookbackDays:     30,
			ExchangeSuffixes: []string{"TW", "TWO"},
		},
		Plots: PlotsConfig{
			Dir:    "data",
			Width:  900,
			Height: 400,
		},
		Scheduler: SchedulerConfig{
			Enabled:     false,
			RefreshCron: "0 0 14 * * 1-5",
		},
		Dashboard: DashboardConfig{
			Concurrency: 4,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/twpulse.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return config, nil
}

// envOverrides mirrors the subset of Config settable from TWPULSE_* variables.
// Zero values mean "not set".
type envOverrides struct {
	Env         string   `envconfig:"ENV"`
	Host        string   `envconfig:"HOST"`
	Port        int      `envconfig:"PORT"`
	LogLevel    string   `envconfig:"LOG_LEVEL"`
	PlotDir     string   `envconfig:"PLOT_DIR"`
	Watchlist   []string `envconfig:"WATCHLIST"`
	Timeout     string   `envconfig:"TIMEOUT"`
	RefreshCron string   `envconfig:"REFRESH_CRON"`
	Scheduler   string   `envconfig:"SCHEDULER"`
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) error {
	var env envOverrides
	if err := envconfig.Process("TWPULSE", &env); err != nil {
		return err
	}

	if env.Env != "" {
		config.Environment = env.Env
	}
	if env.Host != "" {
		config.Server.Host = env.Host
	}
	if env.Port != 0 {
		config.Server.Port = env.Port
	}
	if env.LogLevel != "" {
		config.Logging.Level = env.LogLevel
	}
	if env.PlotDir != "" {
		config.Plots.Dir = env.PlotDir
	}
	if len(env.Watchlist) > 0 {
		config.Stocks.Watchlist = env.Watchlist
	}
	if env.Timeout != "" {
		config.Clients.YahooTW.Timeout = env.Timeout
		config.Clients.Cnyes.Timeout = env.Timeout
		config.Clients.YahooFinance.Timeout = env.Timeout
	}
	if env.RefreshCron != "" {
		config.Scheduler.RefreshCron = env.RefreshCron
	}
	switch strings.ToLower(env.Scheduler) {
	case "true", "1", "on":
		config.Scheduler.Enabled = true
	case "false", "0", "off":
		config.Scheduler.Enabled = false
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

var symbolPattern = regexp.MustCompile(`^[0-9A-Za-z]{1,10}$`)

// IsValidSymbol reports whether s is a plausible listing code (alphanumeric, at most 10 chars).
func IsValidSymbol(s string) bool {
	return symbolPattern.MatchString(s)
}

// Validate checks the settings whose misconfiguration must abort startup.
func (c *Config) Validate() error {
	if len(c.Stocks.Watchlist) == 0 {
		return fmt.Errorf("stocks.watchlist must not be empty")
	}
	seen := make(map[string]bool, len(c.Stocks.Watchlist))
	for _, sym := range c.Stocks.Watchlist {
		if !IsValidSymbol(sym) {
			return fmt.Errorf("stocks.watchlist: invalid symbol %q", sym)
		}
		if seen[sym] {
			return fmt.Errorf("stocks.watchlist: duplicate symbol %q", sym)
		}
		seen[sym] = true
	}
	if c.Stocks.LookbackDays <= 0 {
		return fmt.Errorf("stocks.lookback_days must be positive")
	}
	if len(c.Stocks.ExchangeSuffixes) == 0 {
		return fmt.Errorf("stocks.exchange_suffixes must not be empty")
	}
	if c.Plots.Dir == "" {
		return fmt.Errorf("plots.dir is required")
	}
	if c.Plots.Width <= 0 || c.Plots.Height <= 0 {
		return fmt.Errorf("plots.width and plots.height must be positive")
	}
	if c.News.CorrelatedKeywords < 0 || c.News.CorrelatedLimit <= 0 || c.News.HeadlineLimit <= 0 {
		return fmt.Errorf("news limits must be positive")
	}
	if c.Dashboard.Concurrency <= 0 {
		return fmt.Errorf("dashboard.concurrency must be positive")
	}
	timeouts := [][2]string{
		{"clients.yahootw.timeout", c.Clients.YahooTW.Timeout},
		{"clients.cnyes.timeout", c.Clients.Cnyes.Timeout},
		{"clients.yahoofinance.timeout", c.Clients.YahooFinance.Timeout},
	}
	for _, t := range timeouts {
		if err := validateTimeout(t[0], t[1]); err != nil {
			return err
		}
	}
	if c.Scheduler.Enabled {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(c.Scheduler.RefreshCron); err != nil {
			return fmt.Errorf("scheduler.refresh_cron: %w", err)
		}
	}
	return nil
}
