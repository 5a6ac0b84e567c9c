// Package storage persists ranked valuation results to files or databases
// and archives raw crawl output.
package storage

import (
	"fmt"
	"log/slog"
	"strconv"

	"carscout/internal/config"
	"carscout/internal/valuation"
)

// Writer is the interface for all result backends.
type Writer interface {
	// Write persists the ranked listings, best value first.
	Write(listings []*valuation.EvaluatedListing) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}

// resultColumns is the fixed column order for tabular backends.
var resultColumns = []string{
	"rank",
	"listing_id",
	"title",
	"price",
	"predicted_price",
	"price_diff_pct",
	"price_diff_vs_error",
	"vfm_score",
	"recommendation",
	"mileage",
	"months_on_road",
	"months_to_test",
	"url",
}

// New creates the configured result backend.
func New(cfg *config.StorageConfig, logger *slog.Logger) (Writer, error) {
	switch cfg.Type {
	case "json":
		return NewJSONWriter(cfg.OutputPath, logger)
	case "csv":
		return NewCSVWriter(cfg.OutputPath, logger)
	case "xlsx":
		return NewExcelWriter(cfg.OutputPath, logger)
	case "postgres":
		return NewPostgresWriter(cfg.PostgresDSN, logger)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// resultDoc flattens one evaluated listing into a name-to-value map with
// explicit nulls for unscored fields.
func resultDoc(rank int, ev *valuation.EvaluatedListing) map[string]any {
	return map[string]any{
		"rank":                rank,
		"listing_id":          ev.Row.ListingID,
		"title":               ev.Row.Title,
		"price":               ev.Row.Price,
		"predicted_price":     ev.PredictedPrice,
		"price_diff_pct":      ev.PriceDiffPct,
		"price_diff_vs_error": ev.PriceDiffVsError,
		"vfm_score":           ev.VFMScore,
		"recommendation":      ev.Recommendation,
		"mileage":             ev.Row.Mileage,
		"months_on_road":      ev.Row.MonthsOnRoad,
		"months_to_test":      ev.Row.MonthsToTest,
		"url":                 ev.Row.URL,
	}
}

// resultStrings renders one listing in resultColumns order for CSV and
// spreadsheet rows. Nil values render as empty cells.
func resultStrings(rank int, ev *valuation.EvaluatedListing) []string {
	doc := resultDoc(rank, ev)
	row := make([]string, len(resultColumns))
	for i, col := range resultColumns {
		row[i] = cellString(doc[col])
	}
	return row
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case *float64:
		if t == nil {
			return ""
		}
		return strconv.FormatFloat(*t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
