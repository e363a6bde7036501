package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"skinscraper/pkg/cache"
	"skinscraper/pkg/classify"
	"skinscraper/pkg/config"
	"skinscraper/pkg/ui"
)

// defaultConfigFile is written by 'config init' and found first on load
const defaultConfigFile = ".skinscraper.yaml"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage skinscraper configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (SKINSCRAPER_*, also read from .env)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every default",
	Long: `Write a configuration file holding the default value of every option.

The file is created in the current directory as '.skinscraper.yaml'
unless a different path is specified with the --config flag.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from every source and check it.

Besides value ranges this checks that the output, artifacts and log
directories can be created.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = defaultConfigFile
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	if !ui.Quiet() {
		fmt.Fprintln(ui.Output(), "\nNext steps:")
		fmt.Fprintln(ui.Output(), "1. Adjust the crawl settings and selectors in the file")
		fmt.Fprintln(ui.Output(), "2. Run 'skinscraper config validate' to check the configuration")
		fmt.Fprintln(ui.Output(), "3. Start crawling with 'skinscraper data'")
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Output())
	fmt.Fprint(ui.Output(), string(data))

	fmt.Fprintln(ui.Output(), "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(ui.Output(), "1. Command line flags")
	fmt.Fprintln(ui.Output(), "2. Environment variables (SKINSCRAPER_*)")
	if configFile != "" {
		fmt.Fprintf(ui.Output(), "3. Configuration file: %s\n", configFile)
	} else {
		fmt.Fprintln(ui.Output(), "3. Configuration file: (discovered or none)")
	}
	fmt.Fprintln(ui.Output(), "4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	var problems, warnings []string

	for _, dir := range []string{cfg.Output.Directory, filepath.Dir(cfg.Output.TagMapFile), cfg.Output.ArtifactsDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create %s: %v", dir, err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0750); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if _, err := classify.ParseOrder(cfg.Classify.Order); err != nil {
		problems = append(problems, err.Error())
	}
	if c, err := cache.New(cfg.Cache); err != nil {
		problems = append(problems, err.Error())
	} else if c != nil {
		_ = c.Close()
	}

	if cfg.Crawl.MaxAdvisoryPages > 0 && cfg.Crawl.Pages > cfg.Crawl.MaxAdvisoryPages {
		warnings = append(warnings, fmt.Sprintf("pages (%d) above the advisory limit of %d", cfg.Crawl.Pages, cfg.Crawl.MaxAdvisoryPages))
	}
	if cfg.RateLimit.Delay == 0 {
		warnings = append(warnings, "no delay between item requests")
	}
	if cfg.Fetch.Renderer == "static" {
		warnings = append(warnings, "static renderer: tags rendered by scripts will be missing")
	}

	for _, w := range warnings {
		ui.PrintWarning("Warning: " + w)
	}
	if len(problems) > 0 {
		for _, p := range problems {
			ui.PrintError("Error", p)
		}
		return fmt.Errorf("configuration has %d problem(s)", len(problems))
	}

	ui.PrintSuccess("Configuration is valid")
	return nil
}
