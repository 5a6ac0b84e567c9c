// Package pipeline turns raw listing records into typed, joined, outlier
// filtered rows ready for valuation.
package pipeline

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"carscout/internal/config"
	"carscout/internal/listing"
	"carscout/internal/refdata"
)

// Row is one cleaned listing joined with its title's market aggregate.
// Pointer fields are nil when the listing did not carry the source value.
type Row struct {
	Record *listing.Record

	ListingID string
	Title     string
	URL       string

	Price        float64
	Mileage      *float64
	EngineVolume *float64

	UploadDate *time.Time
	TestDate   *time.Time
	OnRoadDate *time.Time

	MonthsOnRoad *float64
	MonthsToTest *float64

	Agg          *refdata.TitleAggregate
	MileageVsAvg *float64
	MonthsVsAvg  *float64
}

// Features exposes the row as a name-to-value map for the valuation
// model. Numeric fields come through as float64, missing ones as nil;
// categorical attributes come through as their raw strings.
func (r *Row) Features() map[string]any {
	f := map[string]any{
		"price":           r.Price,
		"mileage":         floatOrNil(r.Mileage),
		"engine_volume":   floatOrNil(r.EngineVolume),
		"months_on_road":  floatOrNil(r.MonthsOnRoad),
		"months_to_test":  floatOrNil(r.MonthsToTest),
		"mileage_vs_avg":  floatOrNil(r.MileageVsAvg),
		"months_vs_avg":   floatOrNil(r.MonthsVsAvg),
		"avg_price":       r.Agg.AvgPrice,
		"avg_mileage":     r.Agg.AvgMileage,
		"avg_months":      r.Agg.AvgMonthsOnRoad,
	}
	for _, key := range listing.AttributeKeys {
		if _, taken := f[key]; taken {
			continue
		}
		f[key] = nil
		if r.Record != nil {
			if v := r.Record.Attr(key); v != nil {
				f[key] = *v
			}
		}
	}
	return f
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// Cleaner applies the fixed cleaning sequence: dedup, numeric coercion,
// date parsing, derived ages, aggregate join, and price-outlier removal.
type Cleaner struct {
	cfg    *config.PipelineConfig
	table  refdata.Table
	logger *slog.Logger
}

// NewCleaner creates a Cleaner over the loaded aggregate table.
func NewCleaner(cfg *config.PipelineConfig, table refdata.Table, logger *slog.Logger) *Cleaner {
	return &Cleaner{
		cfg:    cfg,
		table:  table,
		logger: logger.With("component", "cleaner"),
	}
}

// Clean converts the record set into rows. Records without a parseable
// price, without an aggregate match, or with an outlier price are dropped
// and counted in the log summary.
func (c *Cleaner) Clean(records listing.RecordSet) []*Row {
	unique := records.Dedup()

	var (
		rows         = make([]*Row, 0, len(unique))
		droppedPrice int
		droppedJoin  int
		droppedRange int
	)

	for _, rec := range unique {
		row, ok := c.buildRow(rec)
		if !ok {
			droppedPrice++
			continue
		}

		row.Agg = c.table.Lookup(row.Title)
		if row.Agg == nil {
			droppedJoin++
			continue
		}
		if c.isPriceOutlier(row) {
			droppedRange++
			continue
		}

		c.deriveRatios(row)
		rows = append(rows, row)
	}

	c.logger.Info("cleaning finished",
		"input", len(records),
		"unique", len(unique),
		"kept", len(rows),
		"dropped_price", droppedPrice,
		"dropped_no_aggregate", droppedJoin,
		"dropped_outlier", droppedRange,
	)
	return rows
}

// buildRow coerces one record's raw strings. Only a missing or
// unparseable price rejects the record; every other field degrades to nil.
func (c *Cleaner) buildRow(rec *listing.Record) (*Row, bool) {
	price, ok := parsePrice(rec.Price)
	if !ok {
		return nil, false
	}

	row := &Row{
		Record: rec,
		URL:    rec.URL,
		Price:  price,
	}
	if rec.ListingID != nil {
		row.ListingID = *rec.ListingID
	}
	if rec.Title != nil {
		row.Title = refdata.NormalizeTitle(*rec.Title)
	}

	row.Mileage = parseNumeric(rec.Mileage)
	row.EngineVolume = parseNumeric(rec.EngineVolume)

	if rec.UploadDate != nil {
		if t, err := parseUploadDate(*rec.UploadDate); err == nil {
			row.UploadDate = &t
		} else {
			c.logger.Debug("upload date unparseable", "url", rec.URL, "raw", *rec.UploadDate)
		}
	}
	if rec.TestDate != nil {
		if t, err := parseTestDate(*rec.TestDate); err == nil {
			row.TestDate = &t
		}
	}

	rawOnRoad, rawYear := "", ""
	if rec.OnRoadDate != nil {
		rawOnRoad = *rec.OnRoadDate
	}
	if rec.YearSummary != nil {
		rawYear = *rec.YearSummary
	}
	if t, err := parseOnRoadDate(rawOnRoad, rawYear); err == nil {
		row.OnRoadDate = &t
	}

	// Ages anchor on the upload date, not on the clock: a record scraped
	// weeks later must clean to the same row.
	if row.UploadDate != nil {
		if row.OnRoadDate != nil {
			m := monthsBetween(*row.OnRoadDate, *row.UploadDate)
			row.MonthsOnRoad = &m
		}
		if row.TestDate != nil {
			m := monthsBetween(*row.UploadDate, *row.TestDate)
			if m < 0 {
				m = 0 // expired test reads as zero months left, not negative
			}
			row.MonthsToTest = &m
		}
	}

	return row, true
}

// isPriceOutlier reports whether the price sits outside the open interval
// (avg/R, avg*R) for the configured ratio R.
func (c *Cleaner) isPriceOutlier(row *Row) bool {
	r := c.cfg.OutlierRatio
	if r <= 1 || row.Agg.AvgPrice <= 0 {
		return false
	}
	ratio := row.Price / row.Agg.AvgPrice
	return ratio >= r || ratio <= 1/r
}

// deriveRatios fills the relative-to-average features. A zero average
// leaves the ratio nil rather than dividing by zero.
func (c *Cleaner) deriveRatios(row *Row) {
	if row.Mileage != nil && row.Agg.AvgMileage != 0 {
		v := *row.Mileage / row.Agg.AvgMileage
		row.MileageVsAvg = &v
	}
	if row.MonthsOnRoad != nil && row.Agg.AvgMonthsOnRoad != 0 {
		v := *row.MonthsOnRoad / row.Agg.AvgMonthsOnRoad
		row.MonthsVsAvg = &v
	}
}

// parsePrice strips everything but digits and the decimal point before
// parsing. Nil, empty, or non-numeric input rejects the listing.
func parsePrice(raw *string) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, *raw)
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// parseNumeric handles comma-grouped integers like "78,000". Unparseable
// input degrades to nil.
func parseNumeric(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	cleaned := strings.ReplaceAll(strings.TrimSpace(*raw), ",", "")
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}
