// Package refdata loads the per-title market aggregate table the pipeline
// joins listings against.
package refdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"carscout/internal/fetch"
)

// TitleAggregate holds the market averages for one listing title.
type TitleAggregate struct {
	Title           string
	AvgPrice        float64
	AvgMileage      float64
	AvgMonthsOnRoad float64

	// StdErrorPct is the model's historical error spread for this title,
	// in percent. Nil when the source table has no such column.
	StdErrorPct *float64
}

// Table maps normalized titles to their aggregates.
type Table map[string]*TitleAggregate

// Lookup returns the aggregate for a raw title, or nil when the title is
// not covered by the table.
func (t Table) Lookup(title string) *TitleAggregate {
	return t[NormalizeTitle(title)]
}

// NormalizeTitle trims and collapses internal whitespace so join keys
// survive the site's inconsistent spacing.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}

// Loader reads aggregate tables from local files or HTTP endpoints.
type Loader struct {
	client *fetch.Client
	logger *slog.Logger
}

// NewLoader creates a Loader. client may be nil when only local paths are
// used.
func NewLoader(client *fetch.Client, logger *slog.Logger) *Loader {
	return &Loader{
		client: client,
		logger: logger.With("component", "refdata"),
	}
}

// Load reads the aggregate table from a local CSV path or an http(s) URL.
func (l *Loader) Load(ctx context.Context, source string) (Table, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if l.client == nil {
			return nil, fmt.Errorf("remote aggregate source %q requires an HTTP client", source)
		}
		body, err := l.client.Get(ctx, source)
		if err != nil {
			return nil, err
		}
		return l.parse(strings.NewReader(string(body)), source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open aggregate table: %w", err)
	}
	defer f.Close()
	return l.parse(f, source)
}

// parse reads a header-mapped CSV. Required columns: title plus the
// averages, under either the exported "_by_title" names or the short
// forms. std_error_pct is optional.
func (l *Loader) parse(r io.Reader, source string) (Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", source, err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	titleCol, err := requireColumn(cols, source, "title")
	if err != nil {
		return nil, err
	}
	priceCol, err := requireColumn(cols, source, "avg_price_by_title", "avg_price")
	if err != nil {
		return nil, err
	}
	mileageCol, err := requireColumn(cols, source, "avg_mileage_by_title", "avg_mileage")
	if err != nil {
		return nil, err
	}
	monthsCol, err := requireColumn(cols, source, "avg_months_on_road_by_title", "avg_months_on_road")
	if err != nil {
		return nil, err
	}
	errCol, hasErrCol := findColumn(cols, "std_error_pct")

	table := make(Table)
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", source, line+1, err)
		}
		line++

		title := NormalizeTitle(row[titleCol])
		if title == "" {
			continue
		}

		agg := &TitleAggregate{Title: title}
		if agg.AvgPrice, err = parseFloat(row[priceCol]); err != nil {
			l.logger.Warn("skipping aggregate row", "line", line, "column", "avg_price", "error", err)
			continue
		}
		if agg.AvgMileage, err = parseFloat(row[mileageCol]); err != nil {
			l.logger.Warn("skipping aggregate row", "line", line, "column", "avg_mileage", "error", err)
			continue
		}
		if agg.AvgMonthsOnRoad, err = parseFloat(row[monthsCol]); err != nil {
			l.logger.Warn("skipping aggregate row", "line", line, "column", "avg_months_on_road", "error", err)
			continue
		}
		if hasErrCol {
			if v, err := parseFloat(row[errCol]); err == nil {
				agg.StdErrorPct = &v
			}
		}

		table[title] = agg
	}

	l.logger.Info("aggregate table loaded", "source", source, "titles", len(table))
	return table, nil
}

// findColumn returns the index of the first header name present.
func findColumn(cols map[string]int, names ...string) (int, bool) {
	for _, name := range names {
		if i, ok := cols[name]; ok {
			return i, true
		}
	}
	return -1, false
}

func requireColumn(cols map[string]int, source string, names ...string) (int, error) {
	if i, ok := findColumn(cols, names...); ok {
		return i, nil
	}
	if len(names) > 1 {
		return -1, fmt.Errorf("aggregate table %s missing column %q (or %q)", source, names[0], names[1])
	}
	return -1, fmt.Errorf("aggregate table %s missing column %q", source, names[0])
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
