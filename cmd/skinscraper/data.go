package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"skinscraper/pkg/crawler"
	"skinscraper/pkg/ui"
)

var (
	// Data command flags
	crawlURL      string
	crawlPages    string
	crawlSearch   string
	crawlDelay    time.Duration
	crawlRenderer string
	crawlOutput   string
	crawlTagMap   string
	crawlResume   bool
	crawlNoDB     bool
	crawlNotify   bool
)

// dataCmd represents the data command
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Crawl listing pages and download every distinct skin",
	Long: `Crawl the listing pages of the skin site, render each profile page for its
tags, and download every distinct skin image into the output directory.

Images are named by a dense zero-based index. The tag map written next to them
maps each index to the tags shown on the profile page. Listing pages are
fetched one at a time with a fixed delay between item requests.

A failure on an individual profile is reported and skipped. A listing page that
cannot be fetched ends the crawl; the tag map is still written, and when
checkpoints are enabled the crawl can be continued with --resume.`,
	Example: `  # Crawl the first page of the front listing
  skinscraper data

  # Crawl three pages of search results for "knight"
  skinscraper data --pages 3 --search knight

  # Crawl every listing page the site reports
  skinscraper data --pages all --delay 2s

  # Continue an interrupted crawl
  skinscraper data --pages 10 --resume`,
	Args: cobra.NoArgs,
	RunE: runData,
}

func init() {
	rootCmd.AddCommand(dataCmd)

	dataCmd.Flags().StringVarP(&crawlURL, "url", "u", "", "base URL of the skin site, ending in '/'")
	dataCmd.Flags().StringVarP(&crawlPages, "pages", "p", "", "number of listing pages to crawl, or 'all'")
	dataCmd.Flags().StringVarP(&crawlSearch, "search", "s", "", "search term; crawls the search results instead of the front listing")
	dataCmd.Flags().DurationVar(&crawlDelay, "delay", 0, "pause between item requests (default from config, 1s)")
	dataCmd.Flags().StringVar(&crawlRenderer, "renderer", "", "profile page renderer: chrome or static")
	dataCmd.Flags().StringVarP(&crawlOutput, "output", "o", "", "directory for downloaded images")
	dataCmd.Flags().StringVar(&crawlTagMap, "tag-map", "", "path of the tag map file")
	dataCmd.Flags().BoolVar(&crawlResume, "resume", false, "continue from the last checkpoint for this listing")
	dataCmd.Flags().BoolVar(&crawlNoDB, "no-db", false, "do not record this run in the crawl history")
	dataCmd.Flags().BoolVar(&crawlNotify, "notify", false, "send a desktop notification when the crawl ends")
}

// parsePages returns the page count, or 0 with all set for "all"
func parsePages(s string) (pages int, all bool, err error) {
	if strings.EqualFold(s, "all") {
		return 0, true, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false, fmt.Errorf("--pages must be a positive integer or 'all', got %q", s)
	}
	return n, false, nil
}

func runData(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"url":      crawlURL,
		"search":   crawlSearch,
		"renderer": crawlRenderer,
		"output":   crawlOutput,
		"tag-map":  crawlTagMap,
	}
	if cmd.Flags().Changed("delay") {
		flags["delay"] = crawlDelay
	}
	if crawlNoDB {
		flags["db"] = false
	}

	discover := false
	if cmd.Flags().Changed("pages") {
		pages, all, err := parsePages(crawlPages)
		if err != nil {
			return err
		}
		if all {
			discover = true
		} else {
			flags["pages"] = pages
		}
	}

	cfg, log, err := loadConfig(flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := ui.NewCrawlProgress(verbose)
	setup, err := newCrawlSetup(cfg, log, progress, true)
	if err != nil {
		return err
	}
	defer setup.Close()

	pages := cfg.Crawl.Pages
	if discover {
		pages, err = setup.coordinator.DiscoverPages(ctx, cfg.Crawl.BaseURL, cfg.Crawl.SearchTerm)
		if err != nil {
			return fmt.Errorf("failed to discover page count: %w", err)
		}
		ui.PrintInfo("Listing pages", strconv.Itoa(pages))
	}

	ui.PrintInfo("Listing", crawler.ListingRoot(cfg.Crawl.BaseURL, cfg.Crawl.SearchTerm))
	ui.PrintInfo("Output", cfg.Output.Directory)

	res, err := setup.coordinator.Crawl(ctx, crawler.Request{
		BaseURL:    cfg.Crawl.BaseURL,
		Pages:      pages,
		SearchTerm: cfg.Crawl.SearchTerm,
		Resume:     crawlResume,
	})

	if crawlNotify {
		ui.NewNotifier().CrawlFinished(res, err)
	}
	if err != nil {
		if res != nil && cfg.Checkpoint.Enabled && res.PagesCompleted > 0 {
			ui.PrintWarning("Crawl stopped; continue it with --resume")
		}
		return err
	}

	if len(res.Records) > 0 {
		ui.PrintSuccess(fmt.Sprintf("Images saved to %s, tags to %s", cfg.Output.Directory, cfg.Output.TagMapFile))
	}
	return nil
}
