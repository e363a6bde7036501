package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"skinscraper/internal/sample"
	"skinscraper/pkg/crawler"
	"skinscraper/pkg/logger"
	"skinscraper/pkg/storage"
	"skinscraper/pkg/ui"
)

// sampleBaseURL is the address the bundled fixture site is served under
const sampleBaseURL = "https://sample.skinscraper.invalid/"

var (
	testArtifacts string
	testSkipCrawl bool
	testKeep      bool
)

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:     "test",
	Aliases: []string{"test-project"},
	Short:   "Run the whole pipeline over the bundled sample set",
	Long: `Run the pipeline end to end without touching the network.

The bundled skins are served from an in-memory copy of the site whose listing
pages overlap, so the crawl downloads, deduplicates and tags them exactly as
'data' would. The result is then classified and analyzed, and every artifact
is written to <artifacts>/test.

With --skip-crawl the bundled images and tag map are extracted directly.`,
	Args: cobra.NoArgs,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().StringVar(&testArtifacts, "artifacts", "", "artifacts directory (a test/ subdirectory is used)")
	testCmd.Flags().BoolVar(&testSkipCrawl, "skip-crawl", false, "extract the sample set instead of crawling the fixture site")
	testCmd.Flags().BoolVar(&testKeep, "keep", false, "keep the temporary image directory")
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(map[string]interface{}{
		"artifacts": testArtifacts,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workDir, err := os.MkdirTemp("", "skinscraper-test-")
	if err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}
	if testKeep {
		ui.PrintInfo("Work directory", workDir)
	} else {
		defer os.RemoveAll(workDir)
	}

	var imageDir, tagMapPath string
	if testSkipCrawl {
		set, err := sample.Extract(workDir)
		if err != nil {
			return err
		}
		imageDir, tagMapPath = set.ImageDir, set.TagMapPath
		ui.PrintInfo("Sample images", fmt.Sprintf("%d", set.Images))
	} else {
		imageDir = filepath.Join(workDir, "skins")
		tagMapPath = filepath.Join(workDir, "tags.json")
		if err := crawlSample(ctx, imageDir, tagMapPath, log); err != nil {
			return err
		}
	}

	artifacts, err := runAnalysis(ctx, cfg, analysisJob{
		Title:        "Sample set analysis",
		ImageDir:     imageDir,
		TagMapPath:   tagMapPath,
		ArtifactsDir: filepath.Join(cfg.Output.ArtifactsDir, "test"),
	}, log)
	if err != nil {
		return err
	}

	for _, path := range artifacts {
		ui.PrintSuccess("Wrote " + path)
	}
	return nil
}

// crawlSample crawls the in-memory fixture site into imageDir
func crawlSample(ctx context.Context, imageDir, tagMapPath string, log logger.Logger) error {
	site, pages, err := sample.Site(sampleBaseURL)
	if err != nil {
		return err
	}

	coordinator, err := crawler.New(crawler.Options{
		Static:     site,
		Downloader: site,
		Renderer:   site,
		Storage:    storage.NewManager(imageDir),
		TagMapPath: tagMapPath,
		Progress:   ui.NewCrawlProgress(verbose),
		Logger:     log,
	})
	if err != nil {
		return err
	}

	discovered, err := coordinator.DiscoverPages(ctx, sampleBaseURL, "")
	if err != nil {
		return err
	}
	if discovered != pages {
		log.WithFields(map[string]interface{}{
			"expected":   pages,
			"discovered": discovered,
		}).Warn("Sample site pagination mismatch")
	}

	_, err = coordinator.Crawl(ctx, crawler.Request{
		BaseURL: sampleBaseURL,
		Pages:   discovered,
	})
	return err
}
