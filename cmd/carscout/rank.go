package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"carscout/internal/listing"
)

var rankInput string

// rankCmd creates the "rank" subcommand: re-run cleaning and valuation on
// a previously saved raw record array without touching the browser.
func rankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank previously scraped raw records",
		Long: `Rank loads a raw record array saved from an earlier crawl and runs the
cleaning, valuation, and ranking pipeline on it. Useful for retrying a
run with different aggregates or model artifacts.`,
		RunE: runRank,
	}

	cmd.Flags().StringVarP(&rankInput, "input", "i", "", "raw record JSON array file")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path")
	cmd.Flags().StringVarP(&outputType, "format", "f", "", "output format: json, csv, xlsx, postgres")
	cmd.Flags().StringVar(&aggregates, "aggregates", "", "per-title aggregate table (CSV path or URL)")
	cmd.Flags().IntVar(&topN, "top", 10, "number of top deals to print")
	cmd.MarkFlagRequired("input")

	return cmd
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScrapeOverrides(cfg)
	logger := setupLogger(&cfg.Logging)

	data, err := os.ReadFile(rankInput)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	var records listing.RecordSet
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decode input %s: %w", rankInput, err)
	}
	logger.Info("raw records loaded", "path", rankInput, "count", len(records))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	evaluated, err := evaluate(ctx, cfg, logger, records)
	if err != nil {
		return err
	}
	if err := writeResults(cfg, logger, evaluated); err != nil {
		return err
	}

	printTopListings(evaluated, topN)
	fmt.Printf("\n%d listings ranked, output in %s\n", len(evaluated), cfg.Storage.OutputPath)
	return nil
}
