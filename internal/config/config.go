package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for carscout.
type Config struct {
	Crawl     CrawlConfig     `mapstructure:"crawl"     yaml:"crawl"`
	Progress  ProgressConfig  `mapstructure:"progress"  yaml:"progress"`
	Refdata   RefdataConfig   `mapstructure:"refdata"   yaml:"refdata"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"  yaml:"pipeline"`
	Valuation ValuationConfig `mapstructure:"valuation" yaml:"valuation"`
	Storage   StorageConfig   `mapstructure:"storage"   yaml:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// CrawlConfig controls the browser-driven crawl of search and detail pages.
type CrawlConfig struct {
	// SiteBaseURL resolves relative "item/..." hrefs collected from
	// search-result pages.
	SiteBaseURL string `mapstructure:"site_base_url" yaml:"site_base_url"`

	// ListingLinkSelector matches listing anchors on a search-result page.
	ListingLinkSelector string `mapstructure:"listing_link_selector" yaml:"listing_link_selector"`

	// DetailReadySelector is the element whose presence marks a detail
	// page as rendered.
	DetailReadySelector string `mapstructure:"detail_ready_selector" yaml:"detail_ready_selector"`

	// UserDataDir is the persistent browser profile. The profile is a
	// singleton resource: only one crawl may run against it at a time.
	UserDataDir string `mapstructure:"user_data_dir" yaml:"user_data_dir"`

	// Headless false keeps the browser visible so a human can clear a
	// CAPTCHA mid-crawl.
	Headless bool `mapstructure:"headless" yaml:"headless"`

	PageWaitTimeout   time.Duration `mapstructure:"page_wait_timeout"   yaml:"page_wait_timeout"`
	DetailWaitTimeout time.Duration `mapstructure:"detail_wait_timeout" yaml:"detail_wait_timeout"`

	// Randomized politeness delays between navigations.
	PageDelayMin    time.Duration `mapstructure:"page_delay_min"    yaml:"page_delay_min"`
	PageDelayMax    time.Duration `mapstructure:"page_delay_max"    yaml:"page_delay_max"`
	ListingDelayMin time.Duration `mapstructure:"listing_delay_min" yaml:"listing_delay_min"`
	ListingDelayMax time.Duration `mapstructure:"listing_delay_max" yaml:"listing_delay_max"`

	// Every BreakEvery listings the crawler takes a longer randomized
	// pause. 0 disables the breaks.
	BreakEvery int           `mapstructure:"break_every" yaml:"break_every"`
	BreakMin   time.Duration `mapstructure:"break_min"   yaml:"break_min"`
	BreakMax   time.Duration `mapstructure:"break_max"   yaml:"break_max"`
}

// ProgressConfig controls the file-based progress channel.
type ProgressConfig struct {
	Path         string        `mapstructure:"path"          yaml:"path"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// RefdataConfig locates the per-title aggregate reference table.
type RefdataConfig struct {
	// AggregatesPath is a local CSV path or an http(s) URL.
	AggregatesPath string `mapstructure:"aggregates_path" yaml:"aggregates_path"`
}

// PipelineConfig controls the cleaning stages.
type PipelineConfig struct {
	// OutlierRatio R drops rows whose avg-price/price ratio falls outside
	// the open interval (1/R, R). Heuristic bound, kept configurable.
	OutlierRatio float64 `mapstructure:"outlier_ratio" yaml:"outlier_ratio"`
}

// ValuationConfig locates the pre-trained model artifacts.
type ValuationConfig struct {
	PreprocessorPath string `mapstructure:"preprocessor_path" yaml:"preprocessor_path"`
	ModelPath        string `mapstructure:"model_path"        yaml:"model_path"`
}

// StorageConfig controls where evaluated listings are written.
type StorageConfig struct {
	// Type selects the result writer: json, csv, xlsx, postgres.
	Type       string `mapstructure:"type"        yaml:"type"`
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`

	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`

	// ArchiveRaw stores the raw record set in MongoDB before cleaning.
	ArchiveRaw      bool   `mapstructure:"archive_raw"      yaml:"archive_raw"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			SiteBaseURL:         "https://www.yad2.co.il/",
			ListingLinkSelector: `a[href^='item/']`,
			DetailReadySelector: "dd",
			UserDataDir:         ".carscout_profile",
			Headless:            false,
			PageWaitTimeout:     30 * time.Second,
			DetailWaitTimeout:   10 * time.Second,
			PageDelayMin:        500 * time.Millisecond,
			PageDelayMax:        2 * time.Second,
			ListingDelayMin:     500 * time.Millisecond,
			ListingDelayMax:     1 * time.Second,
			BreakEvery:          77,
			BreakMin:            10 * time.Second,
			BreakMax:            20 * time.Second,
		},
		Progress: ProgressConfig{
			Path:         "progress.json",
			PollInterval: 10 * time.Second,
		},
		Refdata: RefdataConfig{
			AggregatesPath: "title_aggregates.csv",
		},
		Pipeline: PipelineConfig{
			OutlierRatio: 10,
		},
		Valuation: ValuationConfig{
			PreprocessorPath: "artifacts/preprocessor.json",
			ModelPath:        "artifacts/model.json",
		},
		Storage: StorageConfig{
			Type:            "json",
			OutputPath:      "./output/results.json",
			MongoDatabase:   "carscout",
			MongoCollection: "raw_listings",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
