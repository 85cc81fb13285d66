package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig
	Scrape    ScrapeConfig
	Consensus ConsensusConfig
	Extractor ExtractorConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig holds catalog persistence and publishing configuration
type CatalogConfig struct {
	DataDir           string        `mapstructure:"data_dir"`
	AllowedCategories []string      `mapstructure:"allowed_categories"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

// ScrapeConfig holds extraction orchestration configuration
type ScrapeConfig struct {
	Workers      int           `mapstructure:"workers"`
	StoreTimeout time.Duration `mapstructure:"store_timeout"`
	ShopifyRPS   float64       `mapstructure:"shopify_rps"`
}

// ConsensusConfig holds dual-pass validation thresholds
type ConsensusConfig struct {
	AutoMergeThreshold    float64       `mapstructure:"auto_merge_threshold"`
	WarnThreshold         float64       `mapstructure:"warn_threshold"`
	SpotCheckLimit        int           `mapstructure:"spot_check_limit"`
	PriceTolerancePercent float64       `mapstructure:"price_tolerance_percent"`
	PassTimeout           time.Duration `mapstructure:"pass_timeout"`
	MinImagePercent       float64       `mapstructure:"min_image_percent"`
	MinPricePercent       float64       `mapstructure:"min_price_percent"`
}

// ExtractorConfig holds extraction-service configuration
type ExtractorConfig struct {
	BaseURL string  `mapstructure:"base_url"`
	RPS     float64 `mapstructure:"rps"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/snowdeal/")

	v.SetEnvPrefix("SNOWDEAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "3001")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("catalog.data_dir", "./data")
	v.SetDefault("catalog.allowed_categories", []string{"snowboard"})
	v.SetDefault("catalog.cache_ttl", "15s")

	v.SetDefault("scrape.workers", 3)
	v.SetDefault("scrape.store_timeout", "5m")
	v.SetDefault("scrape.shopify_rps", 2.0)

	v.SetDefault("consensus.auto_merge_threshold", 10.0)
	v.SetDefault("consensus.warn_threshold", 30.0)
	v.SetDefault("consensus.spot_check_limit", 20)
	v.SetDefault("consensus.price_tolerance_percent", 5.0)
	v.SetDefault("consensus.pass_timeout", "2m")
	v.SetDefault("consensus.min_image_percent", 50.0)
	v.SetDefault("consensus.min_price_percent", 80.0)

	v.SetDefault("extractor.base_url", "http://localhost:3100")
	v.SetDefault("extractor.rps", 1.0)

	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if config.Catalog.DataDir == "" {
		return fmt.Errorf("catalog data dir is required")
	}
	if config.Scrape.Workers < 1 {
		return fmt.Errorf("scrape workers must be at least 1, got: %d", config.Scrape.Workers)
	}
	if config.Consensus.AutoMergeThreshold >= config.Consensus.WarnThreshold {
		return fmt.Errorf("auto merge threshold (%.1f) must be below warn threshold (%.1f)",
			config.Consensus.AutoMergeThreshold, config.Consensus.WarnThreshold)
	}
	if config.Extractor.BaseURL == "" {
		return fmt.Errorf("extractor base URL is required")
	}
	return nil
}
