package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"skinscraper/pkg/analysis"
	"skinscraper/pkg/cache"
	"skinscraper/pkg/classify"
	"skinscraper/pkg/config"
	"skinscraper/pkg/crawldb"
	"skinscraper/pkg/crawler"
	"skinscraper/pkg/export"
	"skinscraper/pkg/extract"
	"skinscraper/pkg/fetcher"
	"skinscraper/pkg/logger"
	"skinscraper/pkg/ratelimit"
	"skinscraper/pkg/storage"
	"skinscraper/pkg/ui"
)

// crawlSetup owns the coordinator and every resource opened for it
type crawlSetup struct {
	coordinator *crawler.Coordinator
	closers     []io.Closer
}

func (s *crawlSetup) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
}

// newCrawlSetup wires the live fetchers, optional page cache, crawl history
// and checkpoints from cfg.
func newCrawlSetup(cfg *config.Config, log logger.Logger, progress crawler.Progress, history bool) (*crawlSetup, error) {
	setup := &crawlSetup{}

	httpFetcher := fetcher.NewHTTPFetcher(nil, cfg.Fetch.UserAgent, cfg.Fetch.Timeout)
	var static fetcher.Fetcher = httpFetcher

	pageCache, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if pageCache != nil {
		setup.closers = append(setup.closers, pageCache)
		static = fetcher.NewCached(httpFetcher, pageCache, cfg.Cache.TTL, log)
	}

	renderer, err := fetcher.NewSessionFactory(cfg.Fetch, static)
	if err != nil {
		setup.Close()
		return nil, err
	}

	var recorder crawler.Recorder
	if history && cfg.Database.Enabled {
		db, err := crawldb.Open(cfg.Database.Driver, cfg.DatabaseDSN())
		if err != nil {
			log.WithError(err).Warn("Crawl history unavailable, continuing without it")
		} else {
			setup.closers = append(setup.closers, db)
			recorder = db
		}
	}

	checkpointDir := ""
	if cfg.Checkpoint.Enabled {
		checkpointDir = cfg.CheckpointDir()
	}

	coordinator, err := crawler.New(crawler.Options{
		Static:           static,
		Downloader:       httpFetcher,
		Renderer:         renderer,
		Limiter:          ratelimit.NewPacer(cfg.RateLimit.Delay, cfg.RateLimit.Burst),
		Storage:          storage.NewManager(cfg.Output.Directory),
		TagMapPath:       cfg.Output.TagMapFile,
		Selectors:        extract.FromConfig(cfg.Selectors),
		Retry:            cfg.Retry,
		CheckpointDir:    checkpointDir,
		Recorder:         recorder,
		Progress:         progress,
		Logger:           log,
		MaxAdvisoryPages: cfg.Crawl.MaxAdvisoryPages,
	})
	if err != nil {
		setup.Close()
		return nil, err
	}
	setup.coordinator = coordinator
	return setup, nil
}

// analysisJob describes one analyze pass
type analysisJob struct {
	Title        string
	ImageDir     string
	TagMapPath   string
	ArtifactsDir string
}

// classifyTagMap classifies tagMap with the configured vocabulary and writes
// frequencies.csv and classes.csv.
func classifyTagMap(cfg *config.Config, tagMap storage.TagMap, artifactsDir string, log logger.Logger) (*classify.Result, int, []string, error) {
	order, err := classify.ParseOrder(cfg.Classify.Order)
	if err != nil {
		return nil, 0, nil, err
	}

	topN := cfg.Classify.TopN
	if cfg.Classify.ClampTopN {
		distinct := len(classify.Frequencies(tagMap))
		if clamped := classify.ClampTopN(topN, distinct); clamped != topN {
			log.WithFields(map[string]interface{}{
				"top_n":    topN,
				"distinct": distinct,
			}).Info("Vocabulary size lowered to the number of distinct tags")
			topN = clamped
		}
	}

	res, err := classify.Classify(tagMap, topN, order)
	if err != nil {
		return nil, 0, nil, err
	}

	freqPath := filepath.Join(artifactsDir, "frequencies.csv")
	if err := export.ToFile(freqPath, func(w io.Writer) error {
		return export.WriteFrequencies(w, res.Frequencies)
	}); err != nil {
		return nil, 0, nil, err
	}

	classesPath := filepath.Join(artifactsDir, "classes.csv")
	if err := export.ToFile(classesPath, func(w io.Writer) error {
		return export.WriteAssignments(w, res.Assignments)
	}); err != nil {
		return nil, 0, nil, err
	}

	log.WithFields(map[string]interface{}{
		"tags":    len(res.Frequencies),
		"images":  len(res.Assignments),
		"classes": len(res.Targets),
	}).Info("Tags classified")

	return res, topN, []string{freqPath, classesPath}, nil
}

// runAnalysis writes stats.csv, histogram.png, previews/, the classification
// tables when a tag map exists, and report.md.
func runAnalysis(ctx context.Context, cfg *config.Config, job analysisJob, log logger.Logger) ([]string, error) {
	start := time.Now()
	logger.LogComponentStart(log, "analysis", map[string]interface{}{
		"images":    job.ImageDir,
		"artifacts": job.ArtifactsDir,
		"workers":   cfg.Analysis.Workers,
	})

	stats, err := analysis.AnalyzeDir(ctx, job.ImageDir, cfg.Analysis.Workers, log)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		ui.PrintWarning("No images found in " + job.ImageDir)
	}

	var artifacts []string

	statsPath := filepath.Join(job.ArtifactsDir, "stats.csv")
	if err := export.ToFile(statsPath, func(w io.Writer) error {
		return export.WriteStats(w, stats)
	}); err != nil {
		return nil, err
	}
	artifacts = append(artifacts, statsPath)

	histPath := filepath.Join(job.ArtifactsDir, "histogram.png")
	bins := cfg.Analysis.HistogramBins
	if err := analysis.WritePNG(histPath, analysis.Histogram(analysis.Brightnesses(stats), bins, bins*16, 240)); err != nil {
		return nil, err
	}
	artifacts = append(artifacts, histPath)

	previewDir := filepath.Join(job.ArtifactsDir, "previews")
	n, err := analysis.WritePreviews(ctx, job.ImageDir, previewDir, cfg.Analysis.PreviewScale, cfg.Analysis.Workers, log)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		artifacts = append(artifacts, previewDir+string(filepath.Separator))
	}

	var (
		res  *classify.Result
		topN int
	)
	tagMap, err := storage.ReadTagMap(job.TagMapPath)
	switch {
	case err == nil:
		var written []string
		res, topN, written, err = classifyTagMap(cfg, tagMap, job.ArtifactsDir, log)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, written...)
	case errors.Is(err, os.ErrNotExist):
		log.WithField("path", job.TagMapPath).Warn("Tag map not found, skipping classification")
	default:
		return nil, err
	}

	reportPath := filepath.Join(job.ArtifactsDir, "report.md")
	order, _ := classify.ParseOrder(cfg.Classify.Order)
	report := export.Report{
		Title:          job.Title,
		GeneratedAt:    time.Now(),
		ImageDir:       job.ImageDir,
		TagMapPath:     job.TagMapPath,
		TopN:           topN,
		Order:          order,
		Classification: res,
		Stats:          stats,
		Artifacts:      relativeTo(job.ArtifactsDir, artifacts),
	}
	if err := export.ToFile(reportPath, func(w io.Writer) error {
		return export.WriteReport(w, report)
	}); err != nil {
		return nil, err
	}
	artifacts = append(artifacts, reportPath)

	logger.LogComponentStop(log, "analysis", fmt.Sprintf("%d images in %s", len(stats), time.Since(start).Round(time.Millisecond)))
	return artifacts, nil
}

func relativeTo(base string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if rel, err := filepath.Rel(base, p); err == nil {
			out = append(out, rel)
		} else {
			out = append(out, p)
		}
	}
	return out
}
