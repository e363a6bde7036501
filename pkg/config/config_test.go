package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://www.minecraftskins.com/", cfg.Crawl.BaseURL)
	assert.Equal(t, 50, cfg.Crawl.MaxAdvisoryPages)
	assert.Equal(t, time.Second, cfg.RateLimit.Delay)
	assert.Equal(t, 10, cfg.Classify.TopN)
	assert.Equal(t, "alphabetical", cfg.Classify.Order)
	assert.Equal(t, "input#image-link-code", cfg.Selectors.ImageInput)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SKINSCRAPER_URL", "https://skins.example/")
	t.Setenv("SKINSCRAPER_PAGES", "7")
	t.Setenv("SKINSCRAPER_SEARCH", "dragon")
	t.Setenv("SKINSCRAPER_DELAY", "250ms")
	t.Setenv("SKINSCRAPER_RENDERER", "static")
	t.Setenv("SKINSCRAPER_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "https://skins.example/", cfg.Crawl.BaseURL)
	assert.Equal(t, 7, cfg.Crawl.Pages)
	assert.Equal(t, "dragon", cfg.Crawl.SearchTerm)
	assert.Equal(t, 250*time.Millisecond, cfg.RateLimit.Delay)
	assert.Equal(t, "static", cfg.Fetch.Renderer)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("SKINSCRAPER_PAGES", "many")
	t.Setenv("SKINSCRAPER_DELAY", "soon")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SKINSCRAPER_PAGES")
	assert.Contains(t, err.Error(), "SKINSCRAPER_DELAY")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
		},
		{
			name:    "empty url",
			modify:  func(c *Config) { c.Crawl.BaseURL = "" },
			wantErr: "base URL is required",
		},
		{
			name:    "missing trailing slash",
			modify:  func(c *Config) { c.Crawl.BaseURL = "https://skins.example" },
			wantErr: "must end with '/'",
		},
		{
			name:    "zero pages",
			modify:  func(c *Config) { c.Crawl.Pages = 0 },
			wantErr: "page count must be positive",
		},
		{
			name:    "unknown renderer",
			modify:  func(c *Config) { c.Fetch.Renderer = "firefox" },
			wantErr: "unknown renderer",
		},
		{
			name:    "redis without address",
			modify:  func(c *Config) { c.Cache.Backend = "redis" },
			wantErr: "requires an address",
		},
		{
			name:    "memcache without address",
			modify:  func(c *Config) { c.Cache.Backend = "memcache" },
			wantErr: "requires an address",
		},
		{
			name: "redis with address",
			modify: func(c *Config) {
				c.Cache.Backend = "redis"
				c.Cache.Addr = "localhost:6379"
			},
		},
		{
			name:    "postgres without dsn",
			modify:  func(c *Config) { c.Database.Driver = "postgres" },
			wantErr: "postgres requires a DSN",
		},
		{
			name:    "bad order",
			modify:  func(c *Config) { c.Classify.Order = "random" },
			wantErr: "unknown classify order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Crawl.BaseURL = ""
	cfg.Crawl.Pages = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL is required")
	assert.Contains(t, err.Error(), "page count must be positive")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"url":      "https://flags.example/",
		"pages":    3,
		"search":   "cat",
		"delay":    500 * time.Millisecond,
		"renderer": "static",
		"top-n":    4,
		"db":       false,
	})

	assert.Equal(t, "https://flags.example/", cfg.Crawl.BaseURL)
	assert.Equal(t, 3, cfg.Crawl.Pages)
	assert.Equal(t, "cat", cfg.Crawl.SearchTerm)
	assert.Equal(t, 500*time.Millisecond, cfg.RateLimit.Delay)
	assert.Equal(t, "static", cfg.Fetch.Renderer)
	assert.Equal(t, 4, cfg.Classify.TopN)
	assert.False(t, cfg.Database.Enabled)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Crawl.Pages = 12
	cfg.Crawl.SearchTerm = "knight"
	cfg.RateLimit.Delay = 3 * time.Second
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 12, loaded.Crawl.Pages)
	assert.Equal(t, "knight", loaded.Crawl.SearchTerm)
	assert.Equal(t, 3*time.Second, loaded.RateLimit.Delay)
}

func TestLoadFromFileYAMLDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
crawl:
  base_url: https://yaml.example/
  pages: 2
rate_limit:
  delay: 1500ms
selectors:
  tag: ul.tag-list li
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))
	assert.Equal(t, "https://yaml.example/", cfg.Crawl.BaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.RateLimit.Delay)
	assert.Equal(t, "ul.tag-list li", cfg.Selectors.Tag)
	// untouched sections keep their defaults
	assert.Equal(t, "div.skin-img a", cfg.Selectors.ListingLink)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawl:\n  pages: 5\n  search_term: file\n"), 0644))
	t.Setenv("SKINSCRAPER_SEARCH", "env")

	cfg, err := Load(path, map[string]interface{}{"pages": 9})
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Crawl.Pages)
	assert.Equal(t, "env", cfg.Crawl.SearchTerm)
}

func TestLoadFailsValidation(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestDatabaseDSNDefault(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join(DataDir(), "crawl.db"), cfg.DatabaseDSN())

	cfg.Database.DSN = "postgres://u@localhost/skins"
	assert.Equal(t, "postgres://u@localhost/skins", cfg.DatabaseDSN())
}
