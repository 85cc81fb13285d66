package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/snowdeal/backend/internal/domain"
	"github.com/snowdeal/backend/internal/infrastructure/cache"
	"github.com/snowdeal/backend/internal/usecase"
)

const productsCacheKey = "catalog:products"

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service  *usecase.CatalogService
	cache    *cache.Memory
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *usecase.CatalogService, responseCache *cache.Memory, cacheTTL time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Second
	}
	return &Handler{
		service:  service,
		cache:    responseCache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "snowdeal-backend",
		"version": "1.0.0",
	})
}

// productsView is the published catalog document: the snapshot without the
// raw listings, which stay server-side.
type productsView struct {
	LastUpdated   time.Time                 `json:"lastUpdated"`
	TotalProducts int                       `json:"totalProducts"`
	Stores        []domain.StoreInfo        `json:"stores"`
	ExchangeRates map[string]float64        `json:"exchangeRates"`
	Products      []domain.CanonicalProduct `json:"products"`
}

// GetProducts serves the published catalog, cached briefly between reads.
func (h *Handler) GetProducts(c *gin.Context) {
	if body, err := h.cache.Get(productsCacheKey); err == nil {
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
		return
	}

	snapshot, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	view := productsView{
		LastUpdated:   snapshot.LastUpdated,
		TotalProducts: snapshot.TotalProducts,
		Stores:        snapshot.Stores,
		ExchangeRates: snapshot.ExchangeRates,
		Products:      snapshot.Products,
	}
	body, err := json.Marshal(view)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.cache.Set(productsCacheKey, body, h.cacheTTL)
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// ListStores returns built-in and custom stores.
func (h *Handler) ListStores(c *gin.Context) {
	stores, err := h.service.Stores(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stores": stores})
}

type addStoreRequest struct {
	URL   string `json:"url" binding:"required"`
	Name  string `json:"name"`
	Force bool   `json:"force"`
}

// AddStore validates a new store with two extraction passes and either adds
// it or returns a confirmation-required preview.
func (h *Handler) AddStore(c *gin.Context) {
	var req addStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	result, err := h.service.AddStore(c.Request.Context(), req.URL, req.Name, req.Force)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.cache.Clear()

	if result.RequiresConfirmation {
		c.JSON(http.StatusAccepted, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// ConfirmStore applies a pending consensus preview by its pending id.
func (h *Handler) ConfirmStore(c *gin.Context) {
	result, err := h.service.ConfirmStore(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.cache.Clear()
	c.JSON(http.StatusCreated, result)
}

// RemoveStore deletes a custom store and its listings.
func (h *Handler) RemoveStore(c *gin.Context) {
	if err := h.service.RemoveStore(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	h.cache.Clear()
	c.JSON(http.StatusOK, gin.H{"removed": c.Param("id")})
}

type scrapeRequest struct {
	Stores []string `json:"stores"`
}

// TriggerScrape starts a catalog refresh in the background. Overlapping
// refreshes are rejected.
func (h *Handler) TriggerScrape(c *gin.Context) {
	var req scrapeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	if refreshing, _ := h.service.Busy(); refreshing {
		c.JSON(http.StatusConflict, gin.H{"error": "a refresh is already running"})
		return
	}

	go func() {
		if _, err := h.service.RefreshAll(context.Background(), req.Stores); err != nil {
			if !errors.Is(err, domain.ErrOperationInProgress) {
				h.logger.Error("background refresh failed", "error", err)
			}
			return
		}
		h.cache.Clear()
	}()

	c.JSON(http.StatusAccepted, gin.H{"started": true})
}

// GetStatus reports operation progress and catalog state.
func (h *Handler) GetStatus(c *gin.Context) {
	refreshing, addingStore := h.service.Busy()
	c.JSON(http.StatusOK, gin.H{
		"refreshing":    refreshing,
		"addingStore":   addingStore,
		"catalogExists": h.service.CatalogExists(),
		"progress":      h.service.Progress(),
	})
}

type classifyRequest struct {
	Key      string `json:"key"`
	Category string `json:"category" binding:"required"`
	Keyword  string `json:"keyword"`
}

// Classify records a manual category override for a product, or teaches the
// classifier a keyword when one is supplied instead of a product key.
func (h *Handler) Classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
		return
	}

	var err error
	switch {
	case req.Keyword != "":
		err = h.service.LearnKeyword(c.Request.Context(), req.Category, req.Keyword)
	case req.Key != "":
		err = h.service.Classify(c.Request.Context(), req.Key, req.Category)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "key or keyword is required"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.cache.Clear()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// fail maps domain errors onto HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrStoreNotFound), errors.Is(err, domain.ErrNoPendingConsensus),
		errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrBuiltinStore):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrOperationInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNoListings):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrStoreUnreachable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
