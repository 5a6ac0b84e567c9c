package config

import (
	"fmt"
	"net/url"
	"regexp"
)

var pageTokenRe = regexp.MustCompile(`page=\d+`)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Crawl.SiteBaseURL == "" {
		return fmt.Errorf("crawl.site_base_url must not be empty")
	}
	if _, err := url.Parse(cfg.Crawl.SiteBaseURL); err != nil {
		return fmt.Errorf("invalid crawl.site_base_url: %w", err)
	}
	if cfg.Crawl.ListingLinkSelector == "" {
		return fmt.Errorf("crawl.listing_link_selector must not be empty")
	}
	if cfg.Crawl.DetailReadySelector == "" {
		return fmt.Errorf("crawl.detail_ready_selector must not be empty")
	}
	if cfg.Crawl.PageWaitTimeout <= 0 {
		return fmt.Errorf("crawl.page_wait_timeout must be > 0")
	}
	if cfg.Crawl.DetailWaitTimeout <= 0 {
		return fmt.Errorf("crawl.detail_wait_timeout must be > 0")
	}
	if cfg.Crawl.PageDelayMin < 0 || cfg.Crawl.ListingDelayMin < 0 {
		return fmt.Errorf("crawl delays must be >= 0")
	}
	if cfg.Crawl.PageDelayMax < cfg.Crawl.PageDelayMin {
		return fmt.Errorf("crawl.page_delay_max must be >= crawl.page_delay_min")
	}
	if cfg.Crawl.ListingDelayMax < cfg.Crawl.ListingDelayMin {
		return fmt.Errorf("crawl.listing_delay_max must be >= crawl.listing_delay_min")
	}
	if cfg.Crawl.BreakEvery < 0 {
		return fmt.Errorf("crawl.break_every must be >= 0, got %d", cfg.Crawl.BreakEvery)
	}

	if cfg.Progress.Path == "" {
		return fmt.Errorf("progress.path must not be empty")
	}
	if cfg.Progress.PollInterval <= 0 {
		return fmt.Errorf("progress.poll_interval must be > 0")
	}

	if cfg.Pipeline.OutlierRatio <= 1 {
		return fmt.Errorf("pipeline.outlier_ratio must be > 1, got %g", cfg.Pipeline.OutlierRatio)
	}

	validStorageTypes := map[string]bool{
		"json": true, "csv": true, "xlsx": true, "postgres": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: json, csv, xlsx, postgres)", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "postgres" && cfg.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
	}
	if cfg.Storage.ArchiveRaw && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is required when storage.archive_raw is set")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateSearchURL checks that a search-results URL is crawlable: http(s),
// with a host and a page-number token to substitute.
func ValidateSearchURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	if !pageTokenRe.MatchString(rawURL) {
		return fmt.Errorf("URL must contain a page=N token (e.g. ...&page=1)")
	}
	return nil
}
