// Package extract turns a rendered listing detail page into a flat,
// uniformly-keyed listing record.
package extract

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"carscout/internal/listing"
)

// Fixed page contract: class names and attributes the source site renders.
const (
	adNumberSelector  = "div.report-ad_adNumber__b1TZP"
	createdAtSelector = "span.report-ad_createdAt__MhAb0"
	priceSelector     = `span[data-testid="price"]`

	// Positional summary values (year, owner count). The page offers no
	// stable per-field attribute here, only document order.
	summaryXPath = `//*[contains(@class, "details-item_itemValue")]`

	// createdAtPrefix is the "published on" label glued to the upload date.
	createdAtPrefix = "פורסם ב"
)

// labelToKey translates the site's Hebrew field labels to internal keys.
// Unrecognized labels are ignored; every key in this table's value set
// appears in the output record, null when absent from the page.
var labelToKey = map[string]string{
	"קילומטראז׳":          "mileage",
	"צבע":                 "color",
	"בעלות נוכחית":        "ownership",
	"טסט עד":              "test_date",
	"בעלות קודמת":         "previous_ownership",
	"תיבת הילוכים":        "transmission",
	"תאריך עליה לכביש":    "on_road_date",
	"סוג מנוע":            "fuel_type",
	"מרכב":                "body_type",
	"מושבים":              "seats",
	"כוח סוס":             "horsepower",
	"נפח מנוע":            "engine_volume",
	"צריכת דלק משולבת":    "fuel_consumption",
	"סוג הנעה":            "drive_type",
	"מערכת הנעה":          "drive_system",
}

// Error wraps a page-level extraction failure.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract error for %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Extractor parses rendered listing pages into records.
type Extractor struct {
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Extractor.
func New(logger *slog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With("component", "extractor"),
		now:    time.Now,
	}
}

// Extract parses a rendered detail page into a Record. Individual missing
// fields become nil; only an unparseable document is an error. A malformed
// or absent price is returned as nil, never raised — the cleaning pipeline
// owns numeric coercion.
func (e *Extractor) Extract(pageHTML, pageURL string) (*listing.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, &Error{URL: pageURL, Err: fmt.Errorf("parse document: %w", err)}
	}

	rec := &listing.Record{URL: pageURL}

	rec.ListingID = textOf(doc.Find(adNumberSelector).First())
	rec.Title = textOf(doc.Find("h1").First())
	rec.UploadDate = e.extractUploadDate(doc)
	rec.Price = normalizePrice(doc.Find(priceSelector).First())
	rec.ScrapeDate = listing.Str(e.now().Format("02/01/2006"))

	e.extractSummary(pageHTML, rec)
	e.extractLabeledFields(doc, rec)

	return rec, nil
}

// extractUploadDate pulls the created-at span, stripping the publish
// prefix and the zero-width joiners the page embeds.
func (e *Extractor) extractUploadDate(doc *goquery.Document) *string {
	sel := doc.Find(createdAtSelector).First()
	if sel.Length() == 0 {
		return nil
	}
	text := strings.ReplaceAll(sel.Text(), "\u200d", "")
	text = strings.TrimSpace(strings.ReplaceAll(text, createdAtPrefix, ""))
	if text == "" {
		return nil
	}
	return listing.Str(text)
}

// extractSummary reads the two positional summary values: year summary
// first, owner count second. Fewer than two rendered values means nil,
// not an error — the page offers no fallback.
func (e *Extractor) extractSummary(pageHTML string, rec *listing.Record) {
	root, err := htmlquery.Parse(strings.NewReader(pageHTML))
	if err != nil {
		e.logger.Debug("summary parse failed", "url", rec.URL, "error", err)
		return
	}
	nodes, err := htmlquery.QueryAll(root, summaryXPath)
	if err != nil {
		e.logger.Debug("summary query failed", "url", rec.URL, "error", err)
		return
	}
	if len(nodes) > 0 {
		if v := nodeText(nodes[0]); v != "" {
			rec.YearSummary = listing.Str(v)
		}
	}
	if len(nodes) > 1 {
		if v := nodeText(nodes[1]); v != "" {
			rec.OwnerCount = listing.Str(v)
		}
	}
}

// extractLabeledFields walks the dd label elements, translating each label
// through the Hebrew table and reading the value from the next sibling
// element.
func (e *Extractor) extractLabeledFields(doc *goquery.Document, rec *listing.Record) {
	doc.Find("dd").Each(func(i int, sel *goquery.Selection) {
		label := strings.TrimSpace(sel.Text())
		key, known := labelToKey[label]
		if !known {
			return
		}
		value := sel.Next()
		if value.Length() == 0 {
			return
		}
		if v := strings.TrimSpace(value.Text()); v != "" {
			rec.SetAttr(key, listing.Str(v))
		}
	})
}

// normalizePrice strips the thousands separators and currency symbol from
// the raw price text. Empty or absent → nil.
func normalizePrice(sel *goquery.Selection) *string {
	if sel.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(sel.Text())
	text = strings.ReplaceAll(text, ",", "")
	text = strings.ReplaceAll(text, "₪", "")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return listing.Str(text)
}

func nodeText(n *html.Node) string {
	return strings.TrimSpace(htmlquery.InnerText(n))
}

func textOf(sel *goquery.Selection) *string {
	if sel.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(sel.Text())
	if text == "" {
		return nil
	}
	return listing.Str(text)
}
