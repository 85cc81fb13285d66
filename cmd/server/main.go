package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/snowdeal/backend/config"
	httpDelivery "github.com/snowdeal/backend/internal/delivery/http"
	"github.com/snowdeal/backend/internal/domain"
	"github.com/snowdeal/backend/internal/infrastructure/cache"
	"github.com/snowdeal/backend/internal/infrastructure/catalogstore"
	"github.com/snowdeal/backend/internal/infrastructure/render"
	"github.com/snowdeal/backend/internal/infrastructure/shopify"
	"github.com/snowdeal/backend/internal/logger"
	"github.com/snowdeal/backend/internal/usecase"
)

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("snowdeal-backend")
	log.Info("starting",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"dataDir", cfg.Catalog.DataDir)

	store, err := catalogstore.NewFileStore(cfg.Catalog.DataDir)
	if err != nil {
		log.Error("failed to open data dir", "error", err)
		os.Exit(1)
	}

	extractor := render.NewClient(cfg.Extractor.BaseURL, cfg.Extractor.RPS, log)
	shopifyClient := shopify.NewClient(cfg.Scrape.ShopifyRPS, log)

	adapters := map[domain.ExtractionMethod]domain.Adapter{
		domain.MethodHTTP:                 extractor.Adapter(domain.MethodHTTP),
		domain.MethodRendered:             extractor.Adapter(domain.MethodRendered),
		domain.MethodRenderedHighAccuracy: extractor.Adapter(domain.MethodRenderedHighAccuracy),
		domain.MethodShopifyAPI:           shopifyClient,
	}

	validator := usecase.NewValidator(adapters, usecase.ConsensusConfig{
		AutoMergeThreshold:    cfg.Consensus.AutoMergeThreshold,
		WarnThreshold:         cfg.Consensus.WarnThreshold,
		SpotCheckLimit:        cfg.Consensus.SpotCheckLimit,
		PriceTolerancePercent: cfg.Consensus.PriceTolerancePercent,
		PassTimeout:           cfg.Consensus.PassTimeout,
		MinImagePercent:       cfg.Consensus.MinImagePercent,
		MinPricePercent:       cfg.Consensus.MinPricePercent,
	}, log)

	service := usecase.NewCatalogService(
		store, store, store,
		adapters,
		validator,
		usecase.CatalogServiceConfig{
			Workers:           cfg.Scrape.Workers,
			AllowedCategories: cfg.Catalog.AllowedCategories,
		},
		log,
	)

	responseCache := cache.NewMemory()
	handler := httpDelivery.NewHandler(service, responseCache, cfg.Catalog.CacheTTL, log)
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server listening", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
