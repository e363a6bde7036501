package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"skinscraper/pkg/config"
	"skinscraper/pkg/logger"
	"skinscraper/pkg/ui"
)

var (
	// Version information
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "skinscraper",
	Short: "Crawl skin listings, deduplicate images and classify their tags",
	Long: `skinscraper crawls a paginated skin-sharing site, downloads every distinct
skin image with the tags attached to it, and derives tag frequency tables,
per-image classes, image statistics and previews for exploratory analysis.

Commands:
  data      run the crawl
  clean     wipe downloaded images and the tag map
  classify  build the tag frequency and class tables
  analyze   compute image statistics, histogram, previews and a report
  test      run the pipeline over the bundled sample set`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetNoColor(noColor)
		ui.SetQuiet(quiet)
		logger.NoColor = noColor

		if showsLogo(cmd) {
			ui.PrintLogo()
		}
	},
}

// showsLogo reports whether cmd is a direct subcommand of the root that
// should print the banner
func showsLogo(cmd *cobra.Command) bool {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return false
	}
	return cmd.HasParent() && !cmd.Parent().HasParent()
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		if strings.HasPrefix(err.Error(), "unknown command") {
			_ = rootCmd.Usage()
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .skinscraper.yaml or $XDG_CONFIG_HOME/skinscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors and the summary")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "also print duplicate items")

	rootCmd.SetVersionTemplate(`skinscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges flags over the file, environment and defaults and
// initializes the process logger from the result.
func loadConfig(flags map[string]interface{}) (*config.Config, logger.Logger, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	} else if quiet {
		flags["log-level"] = "error"
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.GetLogger(), nil
}
