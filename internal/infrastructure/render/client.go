package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/snowdeal/backend/internal/domain"
	"github.com/snowdeal/backend/internal/usecase"
)

// Client talks to the extraction service, which fetches a store page either
// as plain HTTP or through a headless browser and returns the structured
// listings it found. One Client serves all three modes; Adapter binds a
// mode to the domain Adapter interface.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewClient creates an extraction-service client. Rendered passes can take
// minutes on paginated stores, so the HTTP timeout is generous; callers
// bound individual passes with their context.
func NewClient(baseURL string, rps float64, logger *slog.Logger) *Client {
	if rps <= 0 {
		rps = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		baseURL:     baseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 2),
		logger:      logger,
	}
}

// Adapter returns a domain adapter bound to one extraction mode.
func (c *Client) Adapter(method domain.ExtractionMethod) domain.Adapter {
	return &modeAdapter{client: c, method: method}
}

type modeAdapter struct {
	client *Client
	method domain.ExtractionMethod
}

func (a *modeAdapter) Method() domain.ExtractionMethod { return a.method }

func (a *modeAdapter) Fetch(ctx context.Context, store domain.StoreConfig) ([]domain.RawListing, error) {
	return a.client.extract(ctx, store, a.method)
}

type extractRequest struct {
	URL      string `json:"url"`
	Mode     string `json:"mode"`
	Currency string `json:"currency"`
}

type extractResponse struct {
	Listings []extractedListing `json:"listings"`
	Error    string             `json:"error,omitempty"`
}

type extractedListing struct {
	Title      string `json:"title"`
	Brand      string `json:"brand"`
	Price      string `json:"price"`
	SalePrice  string `json:"salePrice"`
	ImageURL   string `json:"imageUrl"`
	ProductURL string `json:"productUrl"`
	Breadcrumb string `json:"breadcrumb"`
}

func (c *Client) extract(ctx context.Context, store domain.StoreConfig, method domain.ExtractionMethod) ([]domain.RawListing, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(extractRequest{
		URL:      store.BaseURL,
		Mode:     string(method),
		Currency: store.Currency,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "snowdeal/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Both sentinels stay on the chain: the validator distinguishes a
		// timed-out pass from an unreachable source with errors.Is.
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read extraction response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: extraction service status %d", domain.ErrStoreUnreachable, resp.StatusCode)
	}

	var parsed extractResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrStoreUnreachable, parsed.Error)
	}

	listings := make([]domain.RawListing, 0, len(parsed.Listings))
	seen := make(map[string]bool, len(parsed.Listings))
	for _, e := range parsed.Listings {
		listing, ok := c.toListing(store, e)
		if !ok || seen[listing.ProductURL] {
			continue
		}
		seen[listing.ProductURL] = true
		listings = append(listings, listing)
	}

	c.logger.Info("extraction pass finished",
		"store", store.ID, "mode", string(method), "listings", len(listings))
	return listings, nil
}

// toListing normalizes one extracted row: parse and convert prices, resolve
// the brand against the curated list when the extractor gave none, and carry
// breadcrumb text for classification.
func (c *Client) toListing(store domain.StoreConfig, e extractedListing) (domain.RawListing, bool) {
	if e.Title == "" || e.ProductURL == "" {
		return domain.RawListing{}, false
	}

	original, currency := usecase.ParsePrice(e.Price, store.Currency)
	sale, saleCurrency := usecase.ParsePrice(e.SalePrice, store.Currency)
	if sale == nil {
		sale, saleCurrency = original, currency
	}
	if original == nil {
		original = sale
	}
	if sale == nil {
		return domain.RawListing{}, false
	}

	brand := e.Brand
	name := e.Title
	if brand == "" {
		brand, name = usecase.ExtractBrand(e.Title)
	}

	priceJPY := usecase.ConvertToReference(*sale, saleCurrency)

	listing := domain.RawListing{
		Store:         store.ID,
		StoreName:     store.Name,
		Currency:      saleCurrency,
		Brand:         brand,
		Name:          name,
		OriginalPrice: original,
		SalePrice:     sale,
		PriceJPY:      &priceJPY,
		Discount:      usecase.DiscountPercent(original, sale),
		ImageURL:      e.ImageURL,
		ProductURL:    e.ProductURL,
		ScrapedAt:     time.Now().UTC(),
	}
	if e.Breadcrumb != "" {
		listing.Meta = map[string]string{domain.MetaBreadcrumb: e.Breadcrumb}
	}
	return listing, true
}
