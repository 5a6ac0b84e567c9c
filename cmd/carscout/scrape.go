package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"carscout/internal/config"
	"carscout/internal/fetch"
	"carscout/internal/listing"
	"carscout/internal/pipeline"
	"carscout/internal/refdata"
	"carscout/internal/runner"
	"carscout/internal/storage"
	"carscout/internal/valuation"
)

var (
	scrapeURL   string
	scrapePages int
	outputPath  string
	outputType  string
	aggregates  string
	topN        int
	archiveFlag bool
)

// scrapeCmd creates the "scrape" subcommand: supervised crawl followed by
// the full cleaning, valuation, and ranking pipeline.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Crawl listings and rank them by value for money",
		Long: `Scrape runs the browser crawl in a supervised child process, then
cleans the records, joins them with the per-title market aggregates,
prices each listing with the trained model, and writes the ranking.`,
		RunE: runScrape,
	}

	cmd.Flags().StringVar(&scrapeURL, "url", "", "search-result URL with a page= parameter")
	cmd.Flags().IntVar(&scrapePages, "pages", 1, "number of result pages to crawl")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path")
	cmd.Flags().StringVarP(&outputType, "format", "f", "", "output format: json, csv, xlsx, postgres")
	cmd.Flags().StringVar(&aggregates, "aggregates", "", "per-title aggregate table (CSV path or URL)")
	cmd.Flags().IntVar(&topN, "top", 10, "number of top deals to print")
	cmd.Flags().BoolVar(&archiveFlag, "archive", false, "archive the raw record set to MongoDB")
	cmd.MarkFlagRequired("url")

	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScrapeOverrides(cfg)
	logger := setupLogger(&cfg.Logging)

	if err := config.ValidateSearchURL(scrapeURL); err != nil {
		return fmt.Errorf("invalid search URL %q: %w", scrapeURL, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := runner.NewRunner(cfg, logger)
	if err != nil {
		return fmt.Errorf("create runner: %w", err)
	}

	start := time.Now()
	records, err := r.Run(ctx, scrapeURL, scrapePages)
	if err != nil {
		return fmt.Errorf("supervised crawl: %w", err)
	}
	logger.Info("crawl produced records", "count", len(records), "elapsed", time.Since(start))

	if cfg.Storage.ArchiveRaw {
		if err := archiveRaw(ctx, cfg, logger, records); err != nil {
			// Archiving is best effort; the run continues on local data.
			logger.Warn("raw archive failed", "error", err)
		}
	}

	evaluated, err := evaluate(ctx, cfg, logger, records)
	if err != nil {
		return err
	}
	if err := writeResults(cfg, logger, evaluated); err != nil {
		return err
	}

	printTopListings(evaluated, topN)
	fmt.Printf("\nDone in %s: %d listings scraped, %d ranked, output in %s\n",
		time.Since(start).Round(time.Second), len(records), len(evaluated), cfg.Storage.OutputPath)
	return nil
}

// evaluate runs the post-crawl half of the pipeline: aggregates, cleaning,
// prediction, scoring, ranking.
func evaluate(ctx context.Context, cfg *config.Config, logger *slog.Logger, records listing.RecordSet) ([]*valuation.EvaluatedListing, error) {
	client := fetch.NewClient(30*time.Second, logger)
	table, err := refdata.NewLoader(client, logger).Load(ctx, cfg.Refdata.AggregatesPath)
	if err != nil {
		return nil, fmt.Errorf("load aggregates: %w", err)
	}

	rows := pipeline.NewCleaner(&cfg.Pipeline, table, logger).Clean(records)

	predictor, err := valuation.LoadPredictor(cfg.Valuation.PreprocessorPath, cfg.Valuation.ModelPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load model artifacts: %w", err)
	}
	evaluated, err := valuation.NewEvaluator(predictor, logger).Evaluate(rows)
	if err != nil {
		return nil, fmt.Errorf("evaluate listings: %w", err)
	}

	valuation.Rank(evaluated)
	return evaluated, nil
}

// writeResults persists the ranking through the configured backend.
func writeResults(cfg *config.Config, logger *slog.Logger, evaluated []*valuation.EvaluatedListing) error {
	writer, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	if err := writer.Write(evaluated); err != nil {
		writer.Close()
		return fmt.Errorf("write results: %w", err)
	}
	return writer.Close()
}

// archiveRaw stores the untouched record set in MongoDB under a fresh
// run ID.
func archiveRaw(ctx context.Context, cfg *config.Config, logger *slog.Logger, records listing.RecordSet) error {
	archiver, err := storage.NewArchiver(cfg.Storage.MongoURI, cfg.Storage.MongoDatabase, cfg.Storage.MongoCollection, logger)
	if err != nil {
		return err
	}
	defer archiver.Close()
	return archiver.ArchiveRaw(ctx, uuid.NewString(), records)
}

// printTopListings renders the best deals as a console table.
func printTopListings(evaluated []*valuation.EvaluatedListing, n int) {
	if len(evaluated) == 0 {
		fmt.Println("\nNo listings survived cleaning — nothing to rank.")
		return
	}
	if n > len(evaluated) {
		n = len(evaluated)
	}

	fmt.Printf("\nTop %d deals:\n", n)
	fmt.Printf("%-4s %-34s %10s %10s %8s %-17s\n", "#", "Title", "Price", "Predicted", "VFM", "Verdict")
	for i, ev := range evaluated[:n] {
		vfm := "-"
		if ev.VFMScore != nil {
			vfm = fmt.Sprintf("%.2f", *ev.VFMScore)
		}
		fmt.Printf("%-4d %-34s %10.0f %10.0f %8s %-17s\n",
			i+1, truncate(ev.Row.Title, 34), ev.Row.Price, ev.PredictedPrice, vfm, ev.Recommendation)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

// applyScrapeOverrides applies command-line flag values to the config.
func applyScrapeOverrides(cfg *config.Config) {
	if outputPath != "" {
		cfg.Storage.OutputPath = outputPath
	}
	if outputType != "" {
		cfg.Storage.Type = outputType
	}
	if aggregates != "" {
		cfg.Refdata.AggregatesPath = aggregates
	}
	if archiveFlag {
		cfg.Storage.ArchiveRaw = true
	}
}
