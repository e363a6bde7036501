package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"skinscraper/pkg/ui"
)

var (
	analyzeOutput    string
	analyzeTagMap    string
	analyzeArtifacts string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute image statistics, a brightness histogram, previews and a report",
	Long: `Analyze the downloaded images and write the derived artifacts:

  stats.csv        brightness, variance and hue per image
  histogram.png    brightness histogram
  previews/        front view composited from each skin's sprite sheet
  frequencies.csv  tag frequency table (when a tag map exists)
  classes.csv      per-image class assignment (when a tag map exists)
  report.md        summary of all of the above`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(map[string]interface{}{
			"output":    analyzeOutput,
			"tag-map":   analyzeTagMap,
			"artifacts": analyzeArtifacts,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		artifacts, err := runAnalysis(ctx, cfg, analysisJob{
			Title:        "Skin analysis",
			ImageDir:     cfg.Output.Directory,
			TagMapPath:   cfg.Output.TagMapFile,
			ArtifactsDir: cfg.Output.ArtifactsDir,
		}, log)
		if err != nil {
			return err
		}

		for _, path := range artifacts {
			ui.PrintSuccess("Wrote " + path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "directory of downloaded images")
	analyzeCmd.Flags().StringVar(&analyzeTagMap, "tag-map", "", "path of the tag map file")
	analyzeCmd.Flags().StringVar(&analyzeArtifacts, "artifacts", "", "directory for the generated artifacts")
}
