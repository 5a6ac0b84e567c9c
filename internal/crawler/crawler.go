// Package crawler drives the browser through paginated search results and
// per-listing detail pages, producing the raw record set.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"carscout/internal/config"
	"carscout/internal/extract"
	"carscout/internal/listing"
	"carscout/internal/progress"
)

var pageTokenRe = regexp.MustCompile(`page=\d+`)

// PageError is a fatal pagination failure: listing anchors never rendered
// on a search-result page, so that page's links cannot be collected.
type PageError struct {
	Page int
	URL  string
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("search page %d (%s): %v", e.Page, e.URL, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// Crawler collects listing URLs across result pages, visits each unique
// listing once, and reports progress through the channel file after every
// visit. Listing visits are sequential on purpose: concurrent fetches
// raise the block risk on the source site.
type Crawler struct {
	cfg       *config.CrawlConfig
	session   *Session
	extractor *extract.Extractor
	tracker   *progress.Tracker
	logger    *slog.Logger
	rng       *rand.Rand
}

// New creates a Crawler over an exclusively-owned browser session.
func New(cfg *config.CrawlConfig, session *Session, tracker *progress.Tracker, logger *slog.Logger) *Crawler {
	return &Crawler{
		cfg:       cfg,
		session:   session,
		extractor: extract.New(logger),
		tracker:   tracker,
		logger:    logger.With("component", "crawler"),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Crawl visits result pages 1..pages of the search URL, deduplicates the
// collected listing links, extracts every unique listing, and returns the
// records that carried a price. A pagination timeout is fatal; a single
// listing's failure is logged and skipped.
func (c *Crawler) Crawl(ctx context.Context, searchURL string, pages int) (listing.RecordSet, error) {
	if pages < 1 {
		return nil, fmt.Errorf("page count must be >= 1, got %d", pages)
	}

	page, err := c.session.NewPage()
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	urls, err := c.collectListingURLs(ctx, page, searchURL, pages)
	if err != nil {
		return nil, err
	}

	dedup := NewDeduplicator(len(urls))
	unique := dedup.Filter(urls)
	c.logger.Info("listing links collected",
		"pages", pages,
		"links", len(urls),
		"unique", len(unique),
	)

	total := len(unique)
	if err := c.tracker.Write(0, total); err != nil {
		c.logger.Warn("progress write failed", "error", err)
	}

	records := make(listing.RecordSet, 0, total)
	for i, listingURL := range unique {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		rec, err := c.visit(page, listingURL)

		// current counts failures too: the supervisor tracks visits,
		// not successes.
		if werr := c.tracker.Write(i+1, total); werr != nil {
			c.logger.Warn("progress write failed", "error", werr)
		}

		switch {
		case err != nil:
			c.logger.Warn("listing skipped", "url", listingURL, "error", err)
		case !rec.HasPrice():
			c.logger.Debug("listing without price dropped", "url", listingURL)
		default:
			records = append(records, rec)
		}

		c.pause(ctx, c.cfg.ListingDelayMin, c.cfg.ListingDelayMax)
		if c.cfg.BreakEvery > 0 && (i+1)%c.cfg.BreakEvery == 0 {
			c.logger.Info("taking a longer break", "visited", i+1, "total", total)
			c.pause(ctx, c.cfg.BreakMin, c.cfg.BreakMax)
		}
	}

	c.logger.Info("crawl finished", "visited", total, "records", len(records))
	return records, nil
}

// collectListingURLs walks the result pages and gathers every listing
// anchor href, absolutized against the site base URL.
func (c *Crawler) collectListingURLs(ctx context.Context, page *rod.Page, searchURL string, pages int) ([]string, error) {
	var urls []string

	for n := 1; n <= pages; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageURL := SubstitutePage(searchURL, n)
		c.logger.Info("loading search page", "page", n, "url", pageURL)

		if err := page.Timeout(c.cfg.PageWaitTimeout).Navigate(pageURL); err != nil {
			return nil, &PageError{Page: n, URL: pageURL, Err: fmt.Errorf("navigate: %w", err)}
		}
		// Anchors not rendering within the timeout aborts the crawl:
		// there is no partial-link fallback for a result page.
		if _, err := page.Timeout(c.cfg.PageWaitTimeout).Element(c.cfg.ListingLinkSelector); err != nil {
			return nil, &PageError{Page: n, URL: pageURL, Err: fmt.Errorf("wait for listing anchors: %w", err)}
		}

		anchors, err := page.Elements(c.cfg.ListingLinkSelector)
		if err != nil {
			return nil, &PageError{Page: n, URL: pageURL, Err: fmt.Errorf("query anchors: %w", err)}
		}
		for _, a := range anchors {
			href, err := a.Attribute("href")
			if err != nil || href == nil || *href == "" {
				continue
			}
			urls = append(urls, c.absolutize(*href))
		}

		c.pause(ctx, c.cfg.PageDelayMin, c.cfg.PageDelayMax)
	}

	return urls, nil
}

// visit loads one detail page, waits for the field containers, and
// extracts the record.
func (c *Crawler) visit(page *rod.Page, listingURL string) (*listing.Record, error) {
	if err := page.Timeout(c.cfg.DetailWaitTimeout).Navigate(listingURL); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	if _, err := page.Timeout(c.cfg.DetailWaitTimeout).Element(c.cfg.DetailReadySelector); err != nil {
		return nil, fmt.Errorf("wait for detail fields: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("page content: %w", err)
	}

	return c.extractor.Extract(html, listingURL)
}

// absolutize resolves relative "item/..." hrefs against the site base.
func (c *Crawler) absolutize(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(c.cfg.SiteBaseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// pause sleeps for a uniformly random duration in [min, max], returning
// early on context cancellation.
func (c *Crawler) pause(ctx context.Context, min, max time.Duration) {
	d := min
	if max > min {
		d = min + time.Duration(c.rng.Int63n(int64(max-min)))
	}
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// SubstitutePage replaces the page-number token in a search URL, or
// appends one when the URL carries no token.
func SubstitutePage(searchURL string, page int) string {
	token := fmt.Sprintf("page=%d", page)
	if pageTokenRe.MatchString(searchURL) {
		return pageTokenRe.ReplaceAllString(searchURL, token)
	}
	sep := "?"
	if strings.Contains(searchURL, "?") {
		sep = "&"
	}
	return searchURL + sep + token
}
