package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skinscraper/internal/sample"
	"skinscraper/pkg/config"
	"skinscraper/pkg/crawldb"
	"skinscraper/pkg/crawler"
	"skinscraper/pkg/logger"
	"skinscraper/pkg/storage"
	"skinscraper/pkg/ui"
)

func silenceUI(t *testing.T) {
	t.Helper()
	ui.SetOutput(io.Discard)
	t.Cleanup(func() { ui.SetOutput(os.Stdout) })
}

// serveSample serves the bundled fixture site over HTTP
func serveSample(t *testing.T) (baseURL string, pages int) {
	t.Helper()

	var site interface {
		Download(ctx context.Context, url string) ([]byte, error)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := site.Download(r.Context(), baseURL+strings.TrimPrefix(r.URL.Path, "/"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		if strings.HasSuffix(r.URL.Path, ".png") {
			w.Header().Set("Content-Type", "image/png")
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)

	baseURL = srv.URL + "/"
	fixture, pages, err := sample.Site(baseURL)
	require.NoError(t, err)
	site = fixture
	return baseURL, pages
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Crawl.BaseURL = baseURL
	cfg.Fetch.Renderer = "static"
	cfg.RateLimit.Delay = 0
	cfg.Output.Directory = filepath.Join(dir, "skins")
	cfg.Output.TagMapFile = filepath.Join(dir, "tags.json")
	cfg.Output.ArtifactsDir = filepath.Join(dir, "artifacts")
	cfg.Checkpoint.Directory = filepath.Join(dir, "checkpoints")
	cfg.Database.DSN = filepath.Join(dir, "crawl.db")
	cfg.Cache.Backend = "memory"
	cfg.Analysis.PreviewScale = 2
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestCrawlSetupOverHTTP(t *testing.T) {
	silenceUI(t)
	baseURL, pages := serveSample(t)
	cfg := testConfig(t, baseURL)
	log := logger.NewTestLogger()

	setup, err := newCrawlSetup(cfg, log, nil, true)
	require.NoError(t, err)

	discovered, err := setup.coordinator.DiscoverPages(context.Background(), baseURL, "")
	require.NoError(t, err)
	assert.Equal(t, pages, discovered)

	res, err := setup.coordinator.Crawl(context.Background(), crawler.Request{BaseURL: baseURL, Pages: pages})
	require.NoError(t, err)
	setup.Close()

	assert.Len(t, res.Records, 6)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, "obtained 6 images from 2 pages", res.Summary())

	tags, err := storage.ReadTagMap(cfg.Output.TagMapFile)
	require.NoError(t, err)
	want, err := sample.TagMap()
	require.NoError(t, err)
	assert.Equal(t, len(want), len(tags))
	assert.Equal(t, want[1], tags[1])

	db, err := crawldb.Open(cfg.Database.Driver, cfg.DatabaseDSN())
	require.NoError(t, err)
	defer db.Close()

	runs, err := db.Runs(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, crawler.StatusCompleted, runs[0].Status)
	assert.Equal(t, 6, runs[0].Images)
	assert.Equal(t, 1, runs[0].Duplicates)
}

func TestCrawlSetupSurvivesMissingDatabase(t *testing.T) {
	silenceUI(t)
	cfg := testConfig(t, "https://example.invalid/")
	cfg.Database.Driver = "postgres"
	cfg.Database.DSN = "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"
	log := logger.NewTestLogger()

	setup, err := newCrawlSetup(cfg, log, nil, true)
	require.NoError(t, err)
	defer setup.Close()
	assert.True(t, log.HasMessage("Crawl history unavailable, continuing without it"))
}

func TestSamplePipeline(t *testing.T) {
	silenceUI(t)
	cfg := testConfig(t, "https://example.invalid/")
	work := t.TempDir()
	imageDir := filepath.Join(work, "skins")
	tagMapPath := filepath.Join(work, "tags.json")
	log := logger.NewTestLogger()

	require.NoError(t, crawlSample(context.Background(), imageDir, tagMapPath, log))

	images, err := storage.ListImages(imageDir)
	require.NoError(t, err)
	assert.Len(t, images, 6)

	artifacts, err := runAnalysis(context.Background(), cfg, analysisJob{
		Title:        "Sample",
		ImageDir:     imageDir,
		TagMapPath:   tagMapPath,
		ArtifactsDir: cfg.Output.ArtifactsDir,
	}, log)
	require.NoError(t, err)

	for _, name := range []string{"stats.csv", "histogram.png", "frequencies.csv", "classes.csv", "report.md"} {
		assert.FileExists(t, filepath.Join(cfg.Output.ArtifactsDir, name))
	}
	assert.FileExists(t, filepath.Join(cfg.Output.ArtifactsDir, "previews", "0.png"))
	assert.Contains(t, artifacts, filepath.Join(cfg.Output.ArtifactsDir, "report.md"))
	assert.True(t, log.HasMessage("Vocabulary size lowered to the number of distinct tags"))

	classes, err := os.ReadFile(filepath.Join(cfg.Output.ArtifactsDir, "classes.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(classes), "3,no_tags,no_tags,")
}

func TestAnalysisWithoutTagMap(t *testing.T) {
	silenceUI(t)
	cfg := testConfig(t, "https://example.invalid/")
	set, err := sample.Extract(t.TempDir())
	require.NoError(t, err)
	log := logger.NewTestLogger()

	_, err = runAnalysis(context.Background(), cfg, analysisJob{
		Title:        "No tags",
		ImageDir:     set.ImageDir,
		TagMapPath:   filepath.Join(t.TempDir(), "missing.json"),
		ArtifactsDir: cfg.Output.ArtifactsDir,
	}, log)
	require.NoError(t, err)

	assert.True(t, log.HasMessage("Tag map not found, skipping classification"))
	assert.NoFileExists(t, filepath.Join(cfg.Output.ArtifactsDir, "classes.csv"))
	assert.FileExists(t, filepath.Join(cfg.Output.ArtifactsDir, "report.md"))
}

func TestParsePages(t *testing.T) {
	n, all, err := parsePages("3")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.False(t, all)

	_, all, err = parsePages("ALL")
	require.NoError(t, err)
	assert.True(t, all)

	for _, bad := range []string{"0", "-2", "many", ""} {
		_, _, err := parsePages(bad)
		assert.Error(t, err, bad)
	}
}
