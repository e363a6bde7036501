package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"skinscraper/pkg/storage"
	"skinscraper/pkg/ui"
)

var (
	classifyTopN       int
	classifyOrder      string
	classifyTagMapPath string
	classifyArtifacts  string
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Build the tag frequency and per-image class tables",
	Long: `Read the tag map written by 'data' and classify every image.

Tags are counted case-insensitively. Each image's popular tag is its tag with
the highest overall count; the first one listed wins ties. The top-n most
frequent tags form the vocabulary: images whose popular tag falls outside it
get the class "other", images without tags get "no_tags". Every class is
given an integer target.

Writes frequencies.csv and classes.csv to the artifacts directory.`,
	Example: `  # Keep the ten most frequent tags, targets in alphabetical order
  skinscraper classify

  # Keep five tags and number them by frequency
  skinscraper classify --top-n 5 --order frequency`,
	Args: cobra.NoArgs,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().IntVarP(&classifyTopN, "top-n", "n", 0, "vocabulary size (default from config, 10)")
	classifyCmd.Flags().StringVar(&classifyOrder, "order", "", "target numbering: alphabetical, first-seen or frequency")
	classifyCmd.Flags().StringVar(&classifyTagMapPath, "tag-map", "", "path of the tag map file")
	classifyCmd.Flags().StringVar(&classifyArtifacts, "artifacts", "", "directory for the generated tables")
}

func runClassify(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"order":     classifyOrder,
		"tag-map":   classifyTagMapPath,
		"artifacts": classifyArtifacts,
	}
	if cmd.Flags().Changed("top-n") {
		flags["top-n"] = classifyTopN
	}

	cfg, log, err := loadConfig(flags)
	if err != nil {
		return err
	}

	tagMap, err := storage.ReadTagMap(cfg.Output.TagMapFile)
	if err != nil {
		return fmt.Errorf("%w (run 'skinscraper data' first)", err)
	}

	res, topN, written, err := classifyTagMap(cfg, tagMap, cfg.Output.ArtifactsDir, log)
	if err != nil {
		return err
	}

	ui.PrintInfo("Images", fmt.Sprintf("%d", len(res.Assignments)))
	ui.PrintInfo("Distinct tags", fmt.Sprintf("%d", len(res.Frequencies)))
	ui.PrintInfo("Vocabulary", fmt.Sprintf("%d", topN))

	counts := res.ClassCounts()
	var lines []string
	for _, name := range res.TargetNames() {
		lines = append(lines, fmt.Sprintf("  %3d  %-20s %d", res.Targets[name], name, counts[name]))
	}
	if !ui.Quiet() {
		fmt.Fprintln(ui.Output(), strings.Join(lines, "\n"))
	}

	for _, path := range written {
		ui.PrintSuccess("Wrote " + path)
	}
	return nil
}
