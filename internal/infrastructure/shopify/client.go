package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/snowdeal/backend/internal/domain"
	"github.com/snowdeal/backend/internal/usecase"
)

const (
	maxPages = 10
	pageSize = 250
)

// skipKeywords marks hardware consumables that pollute board listings on
// platform collections; titles containing one are dropped before pricing.
var skipKeywords = []string{
	"puck", "screw", "stomp", "leash", "lock", "wax", "tool", "bag only", "strap",
}

// Client extracts listings from stores running the Shopify platform via the
// public products.json endpoint. Paginated reads are rate limited to stay
// polite with storefront APIs.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewClient creates a platform API client. The limiter defaults to 2
// requests per second with a small burst when rps is zero.
func NewClient(rps float64, logger *slog.Logger) *Client {
	if rps <= 0 {
		rps = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 5),
		logger:      logger,
	}
}

// Method reports the extraction method this adapter implements.
func (c *Client) Method() domain.ExtractionMethod {
	return domain.MethodShopifyAPI
}

type productsResponse struct {
	Products []shopifyProduct `json:"products"`
}

type shopifyProduct struct {
	Title       string           `json:"title"`
	Handle      string           `json:"handle"`
	Vendor      string           `json:"vendor"`
	ProductType string           `json:"product_type"`
	Images      []shopifyImage   `json:"images"`
	Variants    []shopifyVariant `json:"variants"`
}

type shopifyImage struct {
	Src string `json:"src"`
}

type shopifyVariant struct {
	Price          string `json:"price"`
	CompareAtPrice string `json:"compare_at_price"`
	Available      bool   `json:"available"`
}

// Fetch pages through the store's products.json and converts each product
// into a raw listing with prices normalized to the reference currency.
func (c *Client) Fetch(ctx context.Context, store domain.StoreConfig) ([]domain.RawListing, error) {
	collection, base, err := collectionEndpoint(store.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnreachable, err)
	}

	var listings []domain.RawListing
	seen := make(map[string]bool)

	for page := 1; page <= maxPages; page++ {
		products, err := c.fetchPage(ctx, collection, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			c.logger.Warn("page fetch failed, keeping partial results",
				"store", store.ID, "page", page, "error", err)
			break
		}
		if len(products) == 0 {
			break
		}

		for _, p := range products {
			listing, ok := c.toListing(store, base, p)
			if !ok || seen[listing.ProductURL] {
				continue
			}
			seen[listing.ProductURL] = true
			listings = append(listings, listing)
		}

		if len(products) < pageSize {
			break
		}
	}

	c.logger.Info("platform extraction finished",
		"store", store.ID, "listings", len(listings))
	return listings, nil
}

func (c *Client) fetchPage(ctx context.Context, collection string, page int) ([]shopifyProduct, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("page", strconv.Itoa(page))
	reqURL := fmt.Sprintf("%s/products.json?%s", collection, params.Encode())

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", "snowdeal/1.0")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Keep the cause on the chain so a context deadline stays
			// recognizable to errors.Is; retrying a dead context is pointless.
			lastErr = fmt.Errorf("%w: %w", domain.ErrStoreUnreachable, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("%w: status %d", domain.ErrStoreUnreachable, resp.StatusCode)
			if resp.StatusCode == http.StatusNotFound {
				return nil, lastErr
			}
			time.Sleep(time.Duration(attempt*500) * time.Millisecond)
			continue
		}

		var parsed productsResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("failed to decode products page: %w", err)
		}
		return parsed.Products, nil
	}
	return nil, lastErr
}

func (c *Client) toListing(store domain.StoreConfig, base string, p shopifyProduct) (domain.RawListing, bool) {
	title := strings.TrimSpace(p.Title)
	if title == "" || p.Handle == "" {
		return domain.RawListing{}, false
	}
	lower := strings.ToLower(title)
	for _, kw := range skipKeywords {
		if strings.Contains(lower, kw) {
			return domain.RawListing{}, false
		}
	}

	variant, ok := pickVariant(p.Variants)
	if !ok {
		return domain.RawListing{}, false
	}

	sale := parseVariantPrice(variant.Price)
	original := parseVariantPrice(variant.CompareAtPrice)
	if sale == nil {
		return domain.RawListing{}, false
	}
	if original == nil {
		original = sale
	}

	brand := strings.TrimSpace(p.Vendor)
	name := title
	if brand == "" {
		brand, name = usecase.ExtractBrand(title)
	} else if rest := stripBrandPrefix(title, brand); rest != "" {
		name = rest
	}

	priceJPY := usecase.ConvertToReference(*sale, store.Currency)

	listing := domain.RawListing{
		Store:         store.ID,
		StoreName:     store.Name,
		Currency:      store.Currency,
		Brand:         brand,
		Name:          name,
		OriginalPrice: original,
		SalePrice:     sale,
		PriceJPY:      &priceJPY,
		Discount:      usecase.DiscountPercent(original, sale),
		ProductURL:    base + "/products/" + p.Handle,
		ScrapedAt:     time.Now().UTC(),
	}
	if len(p.Images) > 0 {
		listing.ImageURL = p.Images[0].Src
	}
	if p.ProductType != "" {
		listing.Meta = map[string]string{domain.MetaPlatformType: p.ProductType}
	}
	return listing, true
}

// pickVariant prefers the first available variant and falls back to the
// first one listed.
func pickVariant(variants []shopifyVariant) (shopifyVariant, bool) {
	if len(variants) == 0 {
		return shopifyVariant{}, false
	}
	for _, v := range variants {
		if v.Available {
			return v, true
		}
	}
	return variants[0], true
}

func parseVariantPrice(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

func stripBrandPrefix(title, brand string) string {
	upper := strings.ToUpper(title)
	ub := strings.ToUpper(brand)
	idx := strings.Index(upper, ub)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(title[:idx] + title[idx+len(ub):])
}

// collectionEndpoint normalizes a store URL into the collection endpoint to
// page through plus the bare origin for building product URLs.
func collectionEndpoint(rawURL string) (collection, origin string, err error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", "", fmt.Errorf("incomplete url %q", rawURL)
	}

	origin = parsed.Scheme + "://" + parsed.Host
	path := strings.TrimSuffix(parsed.Path, "/")
	path = strings.TrimSuffix(path, "/products.json")
	if path == "" || !strings.Contains(path, "/collections/") {
		// No explicit collection; page the whole catalog.
		return origin, origin, nil
	}
	return origin + path, origin, nil
}
