package domain

import "time"

// ExtractionMethod identifies one extraction strategy for a store.
type ExtractionMethod string

const (
	// MethodHTTP fetches and parses listing pages without JavaScript rendering.
	MethodHTTP ExtractionMethod = "http"
	// MethodShopifyAPI reads the platform's products.json collection API.
	MethodShopifyAPI ExtractionMethod = "shopify-api"
	// MethodRendered drives a headless browser before extraction.
	MethodRendered ExtractionMethod = "rendered"
	// MethodRenderedHighAccuracy is the rendered pass with slower, more
	// exhaustive scrolling and pagination.
	MethodRenderedHighAccuracy ExtractionMethod = "rendered-high-accuracy"
)

// RequiresRendering reports whether the method depends on JavaScript
// execution at the source site.
func (m ExtractionMethod) RequiresRendering() bool {
	return m == MethodRendered || m == MethodRenderedHighAccuracy
}

// StoreConfig describes one store known to the catalog. Built-in entries are
// immutable; custom entries are added and removed by the caller.
type StoreConfig struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Country    string           `json:"country"`
	Currency   string           `json:"currency"`
	BaseURL    string           `json:"baseUrl"`
	Type       string           `json:"type"` // "builtin" or "custom"
	Method     ExtractionMethod `json:"method,omitempty"`
	Categories []string         `json:"categories,omitempty"`
	AddedAt    time.Time        `json:"addedAt,omitempty"`
}

// Info projects the config into its published registry form.
func (s StoreConfig) Info() StoreInfo {
	return StoreInfo{
		ID:       s.ID,
		Name:     s.Name,
		Currency: s.Currency,
		Country:  s.Country,
		Type:     s.Type,
		BaseURL:  s.BaseURL,
	}
}

// BuiltInStores returns the immutable built-in store registry.
func BuiltInStores() map[string]StoreConfig {
	return map[string]StoreConfig{
		"murasaki": {
			ID:       "murasaki",
			Name:     "Murasaki Sports",
			Country:  "JP",
			Currency: "JPY",
			BaseURL:  "https://www.murasaki.jp/Form/Product/ProductList.aspx",
			Type:     "builtin",
			Method:   MethodHTTP,
		},
		"northshore": {
			ID:       "northshore",
			Name:     "North Shore",
			Country:  "CA",
			Currency: "CAD",
			BaseURL:  "https://shop.northshoreskiandboard.com/collections/mens-snowboard",
			Type:     "builtin",
			Method:   MethodShopifyAPI,
		},
	}
}
