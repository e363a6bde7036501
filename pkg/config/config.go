package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName is used for config discovery, data directories and log fields
const AppName = "skinscraper"

// Config holds all configuration options for the skin scraper
type Config struct {
	Crawl      CrawlConfig      `yaml:"crawl" json:"crawl"`
	Fetch      FetchConfig      `yaml:"fetch" json:"fetch"`
	Selectors  SelectorConfig   `yaml:"selectors" json:"selectors"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" json:"rate_limit"`
	Retry      RetryConfig      `yaml:"retry" json:"retry"`
	Output     OutputConfig     `yaml:"output" json:"output"`
	Classify   ClassifyConfig   `yaml:"classify" json:"classify"`
	Analysis   AnalysisConfig   `yaml:"analysis" json:"analysis"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Database   DatabaseConfig   `yaml:"database" json:"database"`
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// CrawlConfig describes what to crawl
type CrawlConfig struct {
	BaseURL          string `yaml:"base_url" json:"base_url"`
	Pages            int    `yaml:"pages" json:"pages"`
	SearchTerm       string `yaml:"search_term" json:"search_term"`
	MaxAdvisoryPages int    `yaml:"max_advisory_pages" json:"max_advisory_pages"`
}

// FetchConfig holds settings for the static and rendered fetchers
type FetchConfig struct {
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent  string        `yaml:"user_agent" json:"user_agent"`
	Renderer   string        `yaml:"renderer" json:"renderer"`
	ChromePath string        `yaml:"chrome_path" json:"chrome_path"`
	RenderWait time.Duration `yaml:"render_wait" json:"render_wait"`
	Headless   bool          `yaml:"headless" json:"headless"`
}

// SelectorConfig holds the CSS selectors used against the target site
type SelectorConfig struct {
	ListingLink string `yaml:"listing_link" json:"listing_link"`
	ImageInput  string `yaml:"image_input" json:"image_input"`
	ImageAttr   string `yaml:"image_attr" json:"image_attr"`
	Tag         string `yaml:"tag" json:"tag"`
	Pagination  string `yaml:"pagination" json:"pagination"`
}

// RateLimitConfig holds the politeness delay between item-level requests
type RateLimitConfig struct {
	Delay time.Duration `yaml:"delay" json:"delay"`
	Burst int           `yaml:"burst" json:"burst"`
}

// RetryConfig holds retry settings for image downloads
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// OutputConfig holds the destination storage area and artifact locations
type OutputConfig struct {
	Directory    string `yaml:"directory" json:"directory"`
	TagMapFile   string `yaml:"tag_map_file" json:"tag_map_file"`
	ArtifactsDir string `yaml:"artifacts_dir" json:"artifacts_dir"`
}

// ClassifyConfig holds tag classification settings
type ClassifyConfig struct {
	TopN      int    `yaml:"top_n" json:"top_n"`
	Order     string `yaml:"order" json:"order"`
	ClampTopN bool   `yaml:"clamp_top_n" json:"clamp_top_n"`
}

// AnalysisConfig holds image statistics settings
type AnalysisConfig struct {
	Workers       int `yaml:"workers" json:"workers"`
	HistogramBins int `yaml:"histogram_bins" json:"histogram_bins"`
	PreviewScale  int `yaml:"preview_scale" json:"preview_scale"`
}

// CacheConfig selects an optional cache for static page fetches
type CacheConfig struct {
	Backend string        `yaml:"backend" json:"backend"`
	Addr    string        `yaml:"addr" json:"addr"`
	DB      int           `yaml:"db" json:"db"`
	TTL     time.Duration `yaml:"ttl" json:"ttl"`
}

// DatabaseConfig holds the crawl history store settings
type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Driver  string `yaml:"driver" json:"driver"`
	DSN     string `yaml:"dsn" json:"dsn"`
}

// CheckpointConfig holds resume settings
type CheckpointConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Directory string `yaml:"directory" json:"directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			BaseURL:          "https://www.minecraftskins.com/",
			Pages:            1,
			MaxAdvisoryPages: 50,
		},
		Fetch: FetchConfig{
			Timeout:    30 * time.Second,
			UserAgent:  "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			Renderer:   "chrome",
			RenderWait: 2 * time.Second,
			Headless:   true,
		},
		Selectors: SelectorConfig{
			ListingLink: "div.skin-img a",
			ImageInput:  "input#image-link-code",
			ImageAttr:   "value",
			Tag:         "div.tags a",
			Pagination:  "div.pagination li",
		},
		RateLimit: RateLimitConfig{
			Delay: 1 * time.Second,
			Burst: 1,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    30 * time.Second,
			Multiplier:  2.0,
		},
		Output: OutputConfig{
			Directory:    filepath.Join("data", "skins"),
			TagMapFile:   filepath.Join("data", "tags.json"),
			ArtifactsDir: filepath.Join("data", "artifacts"),
		},
		Classify: ClassifyConfig{
			TopN:      10,
			Order:     "alphabetical",
			ClampTopN: true,
		},
		Analysis: AnalysisConfig{
			Workers:       4,
			HistogramBins: 32,
			PreviewScale:  8,
		},
		Cache: CacheConfig{
			Backend: "none",
			TTL:     time.Hour,
		},
		Database: DatabaseConfig{
			Enabled: true,
			Driver:  "sqlite",
		},
		Checkpoint: CheckpointConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DataDir returns the per-user data directory
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ConfigDir returns the per-user configuration directory
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// CheckpointDir returns the configured checkpoint directory or the XDG default
func (c *Config) CheckpointDir() string {
	if c.Checkpoint.Directory != "" {
		return c.Checkpoint.Directory
	}
	return filepath.Join(DataDir(), "checkpoints")
}

// DatabaseDSN returns the configured DSN, defaulting sqlite to the data directory
func (c *Config) DatabaseDSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	if c.Database.Driver == "sqlite" {
		return filepath.Join(DataDir(), "crawl.db")
	}
	return ""
}

// LoadFromEnv loads configuration from SKINSCRAPER_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("SKINSCRAPER_URL"); v != "" {
		c.Crawl.BaseURL = v
	}
	if v := os.Getenv("SKINSCRAPER_PAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SKINSCRAPER_PAGES: %w", err))
		} else {
			c.Crawl.Pages = n
		}
	}
	if v := os.Getenv("SKINSCRAPER_SEARCH"); v != "" {
		c.Crawl.SearchTerm = v
	}
	if v := os.Getenv("SKINSCRAPER_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SKINSCRAPER_DELAY: %w", err))
		} else {
			c.RateLimit.Delay = d
		}
	}
	if v := os.Getenv("SKINSCRAPER_RENDERER"); v != "" {
		c.Fetch.Renderer = v
	}
	if v := os.Getenv("SKINSCRAPER_CHROME_PATH"); v != "" {
		c.Fetch.ChromePath = v
	}
	if v := os.Getenv("SKINSCRAPER_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("SKINSCRAPER_TAG_MAP"); v != "" {
		c.Output.TagMapFile = v
	}
	if v := os.Getenv("SKINSCRAPER_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("SKINSCRAPER_CACHE_ADDR"); v != "" {
		c.Cache.Addr = v
	}
	if v := os.Getenv("SKINSCRAPER_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("SKINSCRAPER_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("SKINSCRAPER_TOP_N"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SKINSCRAPER_TOP_N: %w", err))
		} else {
			c.Classify.TopN = n
		}
	}
	if v := os.Getenv("SKINSCRAPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".skinscraper.yaml",
		".skinscraper.yml",
		filepath.Join(ConfigDir(), "config.yaml"),
		filepath.Join(ConfigDir(), "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Crawl.BaseURL == "" {
		errs = append(errs, errors.New("base URL is required"))
	} else if !strings.HasSuffix(c.Crawl.BaseURL, "/") {
		errs = append(errs, errors.New("base URL must end with '/'"))
	}
	if c.Crawl.Pages <= 0 {
		errs = append(errs, errors.New("page count must be positive"))
	}

	switch c.Fetch.Renderer {
	case "chrome", "static":
	default:
		errs = append(errs, fmt.Errorf("unknown renderer %q", c.Fetch.Renderer))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}

	if c.Selectors.ListingLink == "" || c.Selectors.ImageInput == "" {
		errs = append(errs, errors.New("listing and image selectors are required"))
	}

	if c.RateLimit.Delay < 0 {
		errs = append(errs, errors.New("delay cannot be negative"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.TagMapFile == "" {
		errs = append(errs, errors.New("tag map file is required"))
	}

	if c.Classify.TopN <= 0 {
		errs = append(errs, errors.New("top_n must be positive"))
	}
	switch c.Classify.Order {
	case "alphabetical", "first-seen", "frequency":
	default:
		errs = append(errs, fmt.Errorf("unknown classify order %q", c.Classify.Order))
	}

	if c.Analysis.Workers <= 0 {
		errs = append(errs, errors.New("analysis workers must be positive"))
	}

	switch c.Cache.Backend {
	case "none", "", "memory":
	case "redis", "memcache", "memcached":
		if c.Cache.Addr == "" {
			errs = append(errs, fmt.Errorf("cache backend %q requires an address", c.Cache.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}

	if c.Database.Enabled {
		switch c.Database.Driver {
		case "sqlite":
		case "postgres":
			if c.Database.DSN == "" {
				errs = append(errs, errors.New("postgres requires a DSN"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["url"].(string); ok && v != "" {
		c.Crawl.BaseURL = v
	}
	if v, ok := flags["pages"].(int); ok {
		c.Crawl.Pages = v
	}
	if v, ok := flags["search"].(string); ok {
		c.Crawl.SearchTerm = v
	}
	if v, ok := flags["delay"].(time.Duration); ok {
		c.RateLimit.Delay = v
	}
	if v, ok := flags["renderer"].(string); ok && v != "" {
		c.Fetch.Renderer = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["tag-map"].(string); ok && v != "" {
		c.Output.TagMapFile = v
	}
	if v, ok := flags["artifacts"].(string); ok && v != "" {
		c.Output.ArtifactsDir = v
	}
	if v, ok := flags["top-n"].(int); ok {
		c.Classify.TopN = v
	}
	if v, ok := flags["order"].(string); ok && v != "" {
		c.Classify.Order = v
	}
	if v, ok := flags["db"].(bool); ok {
		c.Database.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment (including .env) > config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are not an error
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(ConfigDir(), ".env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
