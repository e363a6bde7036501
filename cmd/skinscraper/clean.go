package main

import (
	"github.com/spf13/cobra"

	"skinscraper/pkg/storage"
	"skinscraper/pkg/ui"
)

var (
	cleanOutput string
	cleanTagMap string
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove downloaded images and the tag map",
	Long: `Remove the image output directory and the tag map file.

Checkpoints and the crawl history are left in place.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(map[string]interface{}{
			"output":  cleanOutput,
			"tag-map": cleanTagMap,
		})
		if err != nil {
			return err
		}

		mgr := storage.NewManager(cfg.Output.Directory)
		n, _ := mgr.Count()
		if err := mgr.Clean(cfg.Output.TagMapFile); err != nil {
			return err
		}

		log.WithFields(map[string]interface{}{
			"directory": cfg.Output.Directory,
			"tag_map":   cfg.Output.TagMapFile,
			"images":    n,
		}).Info("Output area cleaned")
		ui.PrintSuccess("Removed " + cfg.Output.Directory + " and " + cfg.Output.TagMapFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", "", "directory of downloaded images")
	cleanCmd.Flags().StringVar(&cleanTagMap, "tag-map", "", "path of the tag map file")
}
