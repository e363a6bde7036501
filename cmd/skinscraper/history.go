package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"skinscraper/pkg/crawldb"
	"skinscraper/pkg/ui"
)

var (
	historyLimit int
	historyRun   int64
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent crawl runs",
	Long: `List recent crawl runs from the crawl history database, newest first.

With --run, list the images saved by that run together with their tags.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "number of runs to list")
	historyCmd.Flags().Int64Var(&historyRun, "run", 0, "show the images saved by this run")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(nil)
	if err != nil {
		return err
	}

	db, err := crawldb.Open(cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	w := tabwriter.NewWriter(ui.Output(), 0, 0, 2, ' ', 0)

	if historyRun > 0 {
		images, err := db.Images(ctx, historyRun)
		if err != nil {
			return err
		}
		if len(images) == 0 {
			ui.PrintWarning(fmt.Sprintf("Run %d saved no images", historyRun))
			return nil
		}
		fmt.Fprintln(w, "INDEX\tPAGE\tTAGS\tSOURCE")
		for _, img := range images {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", img.Index, img.Page, strings.Join(img.Tags, ", "), img.SourceURL)
		}
		return w.Flush()
	}

	runs, err := db.Runs(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.PrintWarning("No crawl runs recorded yet")
		return nil
	}

	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tLISTING\tPAGES\tIMAGES\tDUPS\tSKIPPED\tDURATION")
	for _, r := range runs {
		listing := r.ListingRoot
		if r.Resumed {
			listing += " (resumed)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\t%d\t%d\t%d\t%s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Status,
			listing,
			r.PagesAttempted, r.Pages,
			r.Images, r.Duplicates, r.Skipped,
			r.Duration().Round(time.Second))
	}
	return w.Flush()
}
