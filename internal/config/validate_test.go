package config

import (
	"strings"
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty base url", func(c *Config) { c.Crawl.SiteBaseURL = "" }, "site_base_url"},
		{"zero page timeout", func(c *Config) { c.Crawl.PageWaitTimeout = 0 }, "page_wait_timeout"},
		{"inverted delays", func(c *Config) { c.Crawl.ListingDelayMax = c.Crawl.ListingDelayMin - 1 }, "listing_delay_max"},
		{"outlier ratio of one", func(c *Config) { c.Pipeline.OutlierRatio = 1 }, "outlier_ratio"},
		{"unknown storage type", func(c *Config) { c.Storage.Type = "parquet" }, "storage.type"},
		{"postgres without dsn", func(c *Config) { c.Storage.Type = "postgres" }, "postgres_dsn"},
		{"archive without mongo", func(c *Config) { c.Storage.ArchiveRaw = true }, "mongo_uri"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateSearchURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://www.yad2.co.il/vehicles/cars?model=3866&page=1", true},
		{"http://example.com?page=12&year=2019", true},
		{"https://example.com/cars", false},
		{"ftp://example.com?page=1", false},
		{"https://?page=1", false},
	}
	for _, tt := range tests {
		err := ValidateSearchURL(tt.url)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateSearchURL(%q): err=%v, want ok=%v", tt.url, err, tt.ok)
		}
	}
}
