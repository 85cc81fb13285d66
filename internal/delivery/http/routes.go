package http

import (
	"github.com/gin-gonic/gin"

	"github.com/snowdeal/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))

	router.GET("/health", handler.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/products", handler.GetProducts)
		api.GET("/status", handler.GetStatus)
		api.POST("/scrape", handler.TriggerScrape)
		api.POST("/classify", handler.Classify)

		stores := api.Group("/stores")
		{
			stores.GET("", handler.ListStores)
			stores.POST("", handler.AddStore)
			stores.DELETE("/:id", handler.RemoveStore)
			stores.POST("/:id/confirm", handler.ConfirmStore)
		}
	}

	return router
}
