package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flag overrides are applied by the command layer on top.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("CARSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("carscout")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".carscout"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// No config file anywhere is fine; a file that exists but does
		// not parse is an error no matter how it was found.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("crawl.site_base_url", cfg.Crawl.SiteBaseURL)
	v.SetDefault("crawl.listing_link_selector", cfg.Crawl.ListingLinkSelector)
	v.SetDefault("crawl.detail_ready_selector", cfg.Crawl.DetailReadySelector)
	v.SetDefault("crawl.user_data_dir", cfg.Crawl.UserDataDir)
	v.SetDefault("crawl.headless", cfg.Crawl.Headless)
	v.SetDefault("crawl.page_wait_timeout", cfg.Crawl.PageWaitTimeout)
	v.SetDefault("crawl.detail_wait_timeout", cfg.Crawl.DetailWaitTimeout)
	v.SetDefault("crawl.page_delay_min", cfg.Crawl.PageDelayMin)
	v.SetDefault("crawl.page_delay_max", cfg.Crawl.PageDelayMax)
	v.SetDefault("crawl.listing_delay_min", cfg.Crawl.ListingDelayMin)
	v.SetDefault("crawl.listing_delay_max", cfg.Crawl.ListingDelayMax)
	v.SetDefault("crawl.break_every", cfg.Crawl.BreakEvery)
	v.SetDefault("crawl.break_min", cfg.Crawl.BreakMin)
	v.SetDefault("crawl.break_max", cfg.Crawl.BreakMax)

	v.SetDefault("progress.path", cfg.Progress.Path)
	v.SetDefault("progress.poll_interval", cfg.Progress.PollInterval)

	v.SetDefault("refdata.aggregates_path", cfg.Refdata.AggregatesPath)

	v.SetDefault("pipeline.outlier_ratio", cfg.Pipeline.OutlierRatio)

	v.SetDefault("valuation.preprocessor_path", cfg.Valuation.PreprocessorPath)
	v.SetDefault("valuation.model_path", cfg.Valuation.ModelPath)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.postgres_dsn", cfg.Storage.PostgresDSN)
	v.SetDefault("storage.archive_raw", cfg.Storage.ArchiveRaw)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
