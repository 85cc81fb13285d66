package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cleanupEnv := func() {
		os.Unsetenv("SNOWDEAL_SERVER_PORT")
		os.Unsetenv("SNOWDEAL_SERVER_ENVIRONMENT")
		os.Unsetenv("SNOWDEAL_CATALOG_DATA_DIR")
		os.Unsetenv("SNOWDEAL_SCRAPE_WORKERS")
		os.Unsetenv("SNOWDEAL_CONSENSUS_AUTO_MERGE_THRESHOLD")
		os.Unsetenv("SNOWDEAL_CONSENSUS_WARN_THRESHOLD")
		os.Unsetenv("SNOWDEAL_EXTRACTOR_BASE_URL")
		os.Unsetenv("SNOWDEAL_RATELIMIT_PER_IP")
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "3001" {
			t.Errorf("Server.Port = %s, want 3001", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Catalog.DataDir != "./data" {
			t.Errorf("Catalog.DataDir = %s, want ./data", cfg.Catalog.DataDir)
		}
		if len(cfg.Catalog.AllowedCategories) != 1 || cfg.Catalog.AllowedCategories[0] != "snowboard" {
			t.Errorf("Catalog.AllowedCategories = %v, want [snowboard]", cfg.Catalog.AllowedCategories)
		}
		if cfg.Scrape.Workers != 3 {
			t.Errorf("Scrape.Workers = %d, want 3", cfg.Scrape.Workers)
		}
		if cfg.Consensus.AutoMergeThreshold != 10 {
			t.Errorf("Consensus.AutoMergeThreshold = %v, want 10", cfg.Consensus.AutoMergeThreshold)
		}
		if cfg.Consensus.WarnThreshold != 30 {
			t.Errorf("Consensus.WarnThreshold = %v, want 30", cfg.Consensus.WarnThreshold)
		}
		if cfg.Consensus.PassTimeout != 2*time.Minute {
			t.Errorf("Consensus.PassTimeout = %v, want 2m", cfg.Consensus.PassTimeout)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("SNOWDEAL_SERVER_PORT", "9090")
		os.Setenv("SNOWDEAL_SERVER_ENVIRONMENT", "production")
		os.Setenv("SNOWDEAL_CATALOG_DATA_DIR", "/var/lib/snowdeal")
		os.Setenv("SNOWDEAL_SCRAPE_WORKERS", "5")
		os.Setenv("SNOWDEAL_EXTRACTOR_BASE_URL", "http://extractor:3100")
		os.Setenv("SNOWDEAL_RATELIMIT_PER_IP", "200")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Catalog.DataDir != "/var/lib/snowdeal" {
			t.Errorf("Catalog.DataDir = %s, want /var/lib/snowdeal", cfg.Catalog.DataDir)
		}
		if cfg.Scrape.Workers != 5 {
			t.Errorf("Scrape.Workers = %d, want 5", cfg.Scrape.Workers)
		}
		if cfg.Extractor.BaseURL != "http://extractor:3100" {
			t.Errorf("Extractor.BaseURL = %s, want http://extractor:3100", cfg.Extractor.BaseURL)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
	})

	t.Run("fails validation when thresholds are inverted", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("SNOWDEAL_CONSENSUS_AUTO_MERGE_THRESHOLD", "50")
		os.Setenv("SNOWDEAL_CONSENSUS_WARN_THRESHOLD", "30")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error for inverted thresholds")
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: "3001"},
			Catalog: CatalogConfig{DataDir: "./data"},
			Scrape:  ScrapeConfig{Workers: 3},
			Consensus: ConsensusConfig{
				AutoMergeThreshold: 10,
				WarnThreshold:      30,
			},
			Extractor: ExtractorConfig{BaseURL: "http://localhost:3100"},
		}
	}

	t.Run("validates successfully with all required fields", func(t *testing.T) {
		if err := validate(valid()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	t.Run("fails when port is empty", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = ""
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for empty port")
		}
	})

	t.Run("fails when data dir is empty", func(t *testing.T) {
		cfg := valid()
		cfg.Catalog.DataDir = ""
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for empty data dir")
		}
	})

	t.Run("fails for zero workers", func(t *testing.T) {
		cfg := valid()
		cfg.Scrape.Workers = 0
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for zero workers")
		}
	})

	t.Run("fails when extractor base URL is empty", func(t *testing.T) {
		cfg := valid()
		cfg.Extractor.BaseURL = ""
		if err := validate(cfg); err == nil {
			t.Error("validate() error = nil, want error for empty extractor URL")
		}
	})
}
