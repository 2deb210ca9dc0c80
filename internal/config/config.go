// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob the crawler reads at startup. The CLI exposes
// only the page range; everything here comes from the config file or
// TRACTORCRAWL_* environment variables.
type Config struct {
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Identity IdentityConfig `mapstructure:"identity"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Sink     SinkConfig     `mapstructure:"sink"`
	Specs    SpecsConfig    `mapstructure:"specs"`
	Ops      OpsConfig      `mapstructure:"ops"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CrawlConfig governs the orchestrator and page fetch jobs.
type CrawlConfig struct {
	BaseURL            string  `mapstructure:"base_url"`
	Category           string  `mapstructure:"category"`
	SortTerm           string  `mapstructure:"sort_term"`
	PageLimit          int     `mapstructure:"page_limit"`
	ItemSelector       string  `mapstructure:"item_selector"`
	WaitTimeoutSeconds int     `mapstructure:"wait_timeout_seconds"`
	BatchSize          int     `mapstructure:"batch_size"`
	Workers            int     `mapstructure:"workers"`
	MaxAttempts        int     `mapstructure:"max_attempts"`
	NavQPS             float64 `mapstructure:"nav_qps"`
}

// IdentityConfig governs the egress identity pool.
type IdentityConfig struct {
	Providers           []string `mapstructure:"providers"`
	ProbeURL            string   `mapstructure:"probe_url"`
	RefreshSeconds      int      `mapstructure:"refresh_seconds"`
	EmptyRetrySeconds   int      `mapstructure:"empty_retry_seconds"`
	CandidateCap        int      `mapstructure:"candidate_cap"`
	KeepTarget          int      `mapstructure:"keep_target"`
	ProbeTimeoutSeconds int      `mapstructure:"probe_timeout_seconds"`
	ProbeParallelism    int      `mapstructure:"probe_parallelism"`
	FetchTimeoutSeconds int      `mapstructure:"fetch_timeout_seconds"`
}

// BrowserConfig governs headless session startup.
type BrowserConfig struct {
	WindowWidth        int `mapstructure:"window_width"`
	WindowHeight       int `mapstructure:"window_height"`
	InitTimeoutSeconds int `mapstructure:"init_timeout_seconds"`
	NavTimeoutSeconds  int `mapstructure:"nav_timeout_seconds"`
}

// SinkConfig sets output paths for the flat-file result store.
type SinkConfig struct {
	Dir      string `mapstructure:"dir"`
	JSONFile string `mapstructure:"json_file"`
	CSVFile  string `mapstructure:"csv_file"`
}

// SpecsConfig governs the specification catalog scrape. An empty brand
// list means the full built-in brand set.
type SpecsConfig struct {
	BaseURL             string   `mapstructure:"base_url"`
	Brands              []string `mapstructure:"brands"`
	Workers             int      `mapstructure:"workers"`
	FetchTimeoutSeconds int      `mapstructure:"fetch_timeout_seconds"`
	RequestDelayMillis  int      `mapstructure:"request_delay_millis"`
}

// OpsConfig controls the optional operational HTTP surface.
type OpsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig selects the zap preset and minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRACTORCRAWL")
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
	v.SetDefault("crawl.base_url", "https://www.machinerypete.com/auction_results")
	v.SetDefault("crawl.category", "tractors")
	v.SetDefault("crawl.sort_term", "auction_listing_sold_date_recent_first")
	v.SetDefault("crawl.page_limit", 72)
	v.SetDefault("crawl.item_selector", ".listing-wrapper.US-listing")
	v.SetDefault("crawl.wait_timeout_seconds", 10)
	v.SetDefault("crawl.batch_size", 2)
	v.SetDefault("crawl.workers", 2)
	v.SetDefault("crawl.max_attempts", 3)
	v.SetDefault("crawl.nav_qps", 0.5)

	v.SetDefault("identity.providers", []string{
		"https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/http.txt",
		"https://raw.githubusercontent.com/ShiftyTR/Proxy-List/master/http.txt",
		"https://raw.githubusercontent.com/monosans/proxy-list/main/proxies/http.txt",
	})
	v.SetDefault("identity.probe_url", "https://www.machinerypete.com")
	v.SetDefault("identity.refresh_seconds", 300)
	v.SetDefault("identity.empty_retry_seconds", 30)
	v.SetDefault("identity.candidate_cap", 50)
	v.SetDefault("identity.keep_target", 10)
	v.SetDefault("identity.probe_timeout_seconds", 3)
	v.SetDefault("identity.probe_parallelism", 8)
	v.SetDefault("identity.fetch_timeout_seconds", 10)

	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.init_timeout_seconds", 30)
	v.SetDefault("browser.nav_timeout_seconds", 30)

	v.SetDefault("sink.dir", ".")
	v.SetDefault("sink.json_file", "auction_results.json")
	v.SetDefault("sink.csv_file", "auction_results.csv")

	v.SetDefault("specs.base_url", "https://www.tractordata.com")
	v.SetDefault("specs.workers", 4)
	v.SetDefault("specs.fetch_timeout_seconds", 10)
	v.SetDefault("specs.request_delay_millis", 1000)

	v.SetDefault("ops.enabled", false)
	v.SetDefault("ops.port", 9090)

	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
}

// Validate rejects configurations the crawler cannot run with.
func (c Config) Validate() error {
	if c.Crawl.BaseURL == "" {
		return fmt.Errorf("crawl.base_url must be set")
	}
	if c.Crawl.ItemSelector == "" {
		return fmt.Errorf("crawl.item_selector must be set")
	}
	if c.Crawl.PageLimit <= 0 {
		return fmt.Errorf("crawl.page_limit must be positive, got %d", c.Crawl.PageLimit)
	}
	if c.Crawl.BatchSize <= 0 {
		return fmt.Errorf("crawl.batch_size must be positive, got %d", c.Crawl.BatchSize)
	}
	if c.Crawl.Workers <= 0 {
		return fmt.Errorf("crawl.workers must be positive, got %d", c.Crawl.Workers)
	}
	if c.Crawl.MaxAttempts <= 0 {
		return fmt.Errorf("crawl.max_attempts must be positive, got %d", c.Crawl.MaxAttempts)
	}
	if c.Ops.Enabled && (c.Ops.Port <= 0 || c.Ops.Port > 65535) {
		return fmt.Errorf("ops.port %d out of range", c.Ops.Port)
	}
	return nil
}

// FetchTimeout returns the brand page fetch budget as a duration.
func (c SpecsConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// RequestDelay returns the per-request pacing as a duration.
func (c SpecsConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMillis) * time.Millisecond
}

// EmptyRetryCooldown returns the empty-pool refresh debounce as a duration.
func (c IdentityConfig) EmptyRetryCooldown() time.Duration {
	return time.Duration(c.EmptyRetrySeconds) * time.Second
}

// WaitTimeout returns the item wait budget as a duration.
func (c CrawlConfig) WaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeoutSeconds) * time.Second
}

// RefreshInterval returns the pool refresh interval as a duration.
func (c IdentityConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

// ProbeTimeout returns the probe budget as a duration.
func (c IdentityConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// FetchTimeout returns the candidate list fetch budget as a duration.
func (c IdentityConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// InitTimeout returns the browser startup budget as a duration.
func (c BrowserConfig) InitTimeout() time.Duration {
	return time.Duration(c.InitTimeoutSeconds) * time.Second
}

// NavTimeout returns the navigation budget as a duration.
func (c BrowserConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSeconds) * time.Second
}
