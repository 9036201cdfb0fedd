// Package config loads scrollytell.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in an article directory.
const FileName = "scrollytell.yaml"

// Config represents the scrollytell configuration
type Config struct {
	Title          string                   `yaml:"title"`
	Article        string                   `yaml:"article"` // markdown file, relative to the article directory
	Server         ServerConfig             `yaml:"server"`
	Scroller       ScrollerConfig           `yaml:"scroller"`
	Datasets       map[string]DatasetConfig `yaml:"datasets,omitempty"`
	Visualizations map[string]VizConfig     `yaml:"visualizations,omitempty"`
	Features       FeaturesConfig           `yaml:"features"`
	API            APIConfig                `yaml:"api"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port  int    `yaml:"port"`
	Host  string `yaml:"host"`
	Debug bool   `yaml:"debug"`
}

// Addr is host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ScrollerConfig tunes step activation.
type ScrollerConfig struct {
	// TriggerOffset is the reading line as a fraction of the viewport
	// height. Default 0.5.
	TriggerOffset *float64 `yaml:"trigger_offset,omitempty"`
	// Mode is "landing" (only the step scrolled to fires) or "replay"
	// (every crossed step fires in order).
	Mode string `yaml:"mode,omitempty"`
	// Debounce coalesces scroll reports, e.g. "50ms". Empty disables it.
	Debounce string `yaml:"debounce,omitempty"`
	// MaxRate caps scroll reports per second and session. Default 60.
	MaxRate float64 `yaml:"max_rate,omitempty"`
}

// GetTriggerOffset returns the trigger offset (default: 0.5)
func (s ScrollerConfig) GetTriggerOffset() float64 {
	if s.TriggerOffset == nil {
		return 0.5
	}
	return *s.TriggerOffset
}

// GetMode returns the scroller mode (default: "landing")
func (s ScrollerConfig) GetMode() string {
	if s.Mode == "" {
		return "landing"
	}
	return strings.ToLower(s.Mode)
}

// GetDebounce returns the debounce interval (0 when disabled or invalid)
func (s ScrollerConfig) GetDebounce() time.Duration {
	if s.Debounce == "" {
		return 0
	}
	d, err := time.ParseDuration(s.Debounce)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetMaxRate returns scroll reports allowed per second (default: 60)
func (s ScrollerConfig) GetMaxRate() float64 {
	if s.MaxRate <= 0 {
		return 60
	}
	return s.MaxRate
}

// DatasetConfig defines one named dataset.
type DatasetConfig struct {
	Type       string            `yaml:"type"`                  // "csv", "json", "rest", "sqlite", "pg"
	File       string            `yaml:"file,omitempty"`        // csv/json: path relative to the article directory
	URL        string            `yaml:"url,omitempty"`         // rest: endpoint (env vars expanded)
	Headers    map[string]string `yaml:"headers,omitempty"`     // rest: request headers (env vars expanded)
	// AllowLocal lets a rest dataset reach localhost and private networks.
	AllowLocal bool `yaml:"allow_local,omitempty"`
	ResultPath string            `yaml:"result_path,omitempty"` // rest/json: dot path to the row array, e.g. "data.items"
	DB         string            `yaml:"db,omitempty"`          // sqlite: database file
	Table      string            `yaml:"table,omitempty"`       // sqlite: table to read whole
	Query      string            `yaml:"query,omitempty"`       // sqlite/pg: SELECT statement
	DSN        string            `yaml:"dsn,omitempty"`         // pg: connection string (default: $DATABASE_URL)
	Delimiter  string            `yaml:"delimiter,omitempty"`   // csv: field delimiter (default: ",")
	Timeout    string            `yaml:"timeout,omitempty"`     // per-load timeout (default: 10s)
	Retry      *RetryConfig      `yaml:"retry,omitempty"`
	Cache      *CacheConfig      `yaml:"cache,omitempty"`
}

// RetryConfig configures retry behavior for a dataset
type RetryConfig struct {
	MaxRetries int    `yaml:"max_retries,omitempty"` // Maximum retry attempts (default: 3)
	BaseDelay  string `yaml:"base_delay,omitempty"`  // Initial delay (default: 100ms)
	MaxDelay   string `yaml:"max_delay,omitempty"`   // Maximum delay (default: 5s)
}

// CacheConfig configures caching of a dataset's rows
type CacheConfig struct {
	TTL string `yaml:"ttl,omitempty"` // e.g. "5m"; empty disables caching
}

// GetTimeout returns the parsed timeout duration (default: 10s)
func (c DatasetConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// GetRetryMaxRetries returns the max retries (default: 3, 0 disables retries)
func (c DatasetConfig) GetRetryMaxRetries() int {
	if c.Retry == nil || c.Retry.MaxRetries < 0 {
		return 3
	}
	return c.Retry.MaxRetries
}

// GetRetryBaseDelay returns the base delay (default: 100ms)
func (c DatasetConfig) GetRetryBaseDelay() time.Duration {
	if c.Retry == nil {
		return 100 * time.Millisecond
	}
	return parseDuration(c.Retry.BaseDelay, 100*time.Millisecond)
}

// GetRetryMaxDelay returns the max delay (default: 5s)
func (c DatasetConfig) GetRetryMaxDelay() time.Duration {
	if c.Retry == nil {
		return 5 * time.Second
	}
	return parseDuration(c.Retry.MaxDelay, 5*time.Second)
}

// IsCacheEnabled returns true if caching is enabled for this dataset
func (c DatasetConfig) IsCacheEnabled() bool {
	return c.GetCacheTTL() > 0
}

// GetCacheTTL returns the cache TTL (0 if caching is disabled)
func (c DatasetConfig) GetCacheTTL() time.Duration {
	if c.Cache == nil {
		return 0
	}
	return parseDuration(c.Cache.TTL, 0)
}

// VizConfig holds per-visualization options.
type VizConfig struct {
	Options map[string]string `yaml:"options,omitempty"`
}

// FeaturesConfig holds feature flags
type FeaturesConfig struct {
	HotReload   bool  `yaml:"hot_reload"`
	ErrorBanner bool  `yaml:"error_banner"` // show a banner when visualizations failed to load
	Minify      *bool `yaml:"minify,omitempty"`
}

// IsMinify returns whether scenes are minified before sending (default: true)
func (f FeaturesConfig) IsMinify() bool {
	return f.Minify == nil || *f.Minify
}

// APIConfig holds HTTP API configuration
type APIConfig struct {
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"` // default: 10
	Burst             int     `yaml:"burst,omitempty"`               // default: 20
}

// GetRateLimitRPS returns the rate limit in requests per second (default: 10)
func (c APIConfig) GetRateLimitRPS() float64 {
	if c.RateLimit == nil || c.RateLimit.RequestsPerSecond <= 0 {
		return 10
	}
	return c.RateLimit.RequestsPerSecond
}

// GetRateLimitBurst returns the burst size (default: 20)
func (c APIConfig) GetRateLimitBurst() int {
	if c.RateLimit == nil || c.RateLimit.Burst <= 0 {
		return 20
	}
	return c.RateLimit.Burst
}

// VizOptions returns the options of one visualization (never nil).
func (c *Config) VizOptions(id string) map[string]string {
	if v, ok := c.Visualizations[id]; ok && v.Options != nil {
		return v.Options
	}
	return map[string]string{}
}

// DatasetNames returns configured dataset names, sorted.
func (c *Config) DatasetNames() []string {
	names := make([]string, 0, len(c.Datasets))
	for n := range c.Datasets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var datasetTypes = map[string]bool{"csv": true, "json": true, "rest": true, "sqlite": true, "pg": true}

// Validate reports configuration errors, all of them at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}
	if off := c.Scroller.GetTriggerOffset(); off < 0 || off > 1 {
		errs = append(errs, fmt.Errorf("scroller.trigger_offset: %g not in [0,1]", off))
	}
	switch c.Scroller.GetMode() {
	case "landing", "replay":
	default:
		errs = append(errs, fmt.Errorf("scroller.mode: unknown mode %q", c.Scroller.Mode))
	}
	if c.Scroller.Debounce != "" {
		if _, err := time.ParseDuration(c.Scroller.Debounce); err != nil {
			errs = append(errs, fmt.Errorf("scroller.debounce: %w", err))
		}
	}
	for _, name := range c.DatasetNames() {
		if err := c.Datasets[name].validate(); err != nil {
			errs = append(errs, fmt.Errorf("datasets.%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (c DatasetConfig) validate() error {
	if !datasetTypes[c.Type] {
		return fmt.Errorf("unsupported type %q", c.Type)
	}
	switch c.Type {
	case "csv", "json":
		if c.File == "" {
			return errors.New("file is required")
		}
	case "rest":
		if c.URL == "" {
			return errors.New("url is required")
		}
	case "sqlite":
		if c.Table == "" && c.Query == "" {
			return errors.New("table or query is required")
		}
	case "pg":
		if c.Query == "" {
			return errors.New("query is required")
		}
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Title:   "Scrollytelling",
		Article: "article.md",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Features: FeaturesConfig{
			HotReload: true,
		},
	}
}

// Load loads configuration from a YAML file.
// If the file doesn't exist, returns the default configuration.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// LoadFromDir loads dir/scrollytell.yaml, falling back to defaults.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
