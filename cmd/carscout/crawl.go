package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"carscout/internal/config"
	"carscout/internal/crawler"
	"carscout/internal/progress"
)

var (
	crawlURL     string
	crawlPages   int
	progressFile string
)

// crawlCmd creates the "crawl" subcommand: the browser-owning child
// process that "scrape" supervises. It prints the raw record array to
// stdout and reports progress through the progress file. Runnable
// directly for debugging a crawl without the supervisor.
func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "crawl",
		Short:  "Run the browser crawl and print raw records to stdout",
		Hidden: true,
		RunE:   runCrawl,
	}

	cmd.Flags().StringVar(&crawlURL, "url", "", "search-result URL with a page= parameter")
	cmd.Flags().IntVar(&crawlPages, "pages", 1, "number of result pages to crawl")
	cmd.Flags().StringVar(&progressFile, "progress-file", "", "progress file path (defaults to config)")
	cmd.MarkFlagRequired("url")

	return cmd
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(&cfg.Logging)

	if err := config.ValidateSearchURL(crawlURL); err != nil {
		return fmt.Errorf("invalid search URL %q: %w", crawlURL, err)
	}
	if progressFile == "" {
		progressFile = cfg.Progress.Path
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := crawler.NewSession(&cfg.Crawl, logger)
	if err != nil {
		return fmt.Errorf("browser session: %w", err)
	}
	defer session.Close()

	tracker := progress.NewTracker(progressFile, logger)
	c := crawler.New(&cfg.Crawl, session, tracker, logger)

	records, err := c.Crawl(ctx, crawlURL, crawlPages)
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	// stdout carries exactly one JSON array; everything else is on stderr.
	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return nil
}
