// Command carscout scrapes used-car listings, prices them against a
// trained model, and ranks them by value for money.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"carscout/internal/config"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "carscout",
		Short: "carscout — used-car listing scraper and value-for-money ranker",
		Long: `carscout crawls a car-listing site through a real browser, cleans and
enriches the scraped listings, prices each one with a trained model, and
ranks the results by value for money.

The crawl runs in a supervised child process so a wedged browser can
always be recovered; progress is reported through a shared progress file.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(rankCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates the configuration for a command run.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates the structured logger. Logs always go to stderr:
// stdout is reserved for data in the crawl child.
func setupLogger(cfg *config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("carscout %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Crawl:\n")
			fmt.Printf("  Site Base URL:     %s\n", cfg.Crawl.SiteBaseURL)
			fmt.Printf("  Headless:          %v\n", cfg.Crawl.Headless)
			fmt.Printf("  Profile Dir:       %s\n", cfg.Crawl.UserDataDir)
			fmt.Printf("  Page Timeout:      %s\n", cfg.Crawl.PageWaitTimeout)
			fmt.Printf("  Detail Timeout:    %s\n", cfg.Crawl.DetailWaitTimeout)
			fmt.Printf("  Break Every:       %d listings\n", cfg.Crawl.BreakEvery)
			fmt.Printf("\nProgress:\n")
			fmt.Printf("  Path:              %s\n", cfg.Progress.Path)
			fmt.Printf("  Poll Interval:     %s\n", cfg.Progress.PollInterval)
			fmt.Printf("\nReference Data:\n")
			fmt.Printf("  Aggregates:        %s\n", cfg.Refdata.AggregatesPath)
			fmt.Printf("\nPipeline:\n")
			fmt.Printf("  Outlier Ratio:     %.1f\n", cfg.Pipeline.OutlierRatio)
			fmt.Printf("\nValuation:\n")
			fmt.Printf("  Preprocessor:      %s\n", cfg.Valuation.PreprocessorPath)
			fmt.Printf("  Model:             %s\n", cfg.Valuation.ModelPath)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Output Path:       %s\n", cfg.Storage.OutputPath)
			fmt.Printf("  Archive Raw:       %v\n", cfg.Storage.ArchiveRaw)
			return nil
		},
	}
}
