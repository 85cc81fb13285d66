package domain

import "time"

// UnknownBrand is the sentinel used when no curated brand matched a title.
// Listings carrying it key on the full title and are less likely to merge
// across stores; that is an accepted limitation of substring brand matching.
const UnknownBrand = "unknown-brand"

// Well-known keys for adapter-supplied listing metadata.
const (
	MetaPlatformType = "platformType" // platform-native product type, e.g. Shopify product_type
	MetaBreadcrumb   = "breadcrumb"   // breadcrumb trail text from the listing page
)

// RawListing is one observation of a product at one store by one extraction
// pass. It is immutable once produced by an adapter.
type RawListing struct {
	Store         string            `json:"store"`
	StoreName     string            `json:"storeName"`
	Currency      string            `json:"currency"`
	Brand         string            `json:"brand"`
	Name          string            `json:"name"`
	OriginalPrice *float64          `json:"originalPrice"`
	SalePrice     *float64          `json:"salePrice"`
	PriceJPY      *float64          `json:"priceJPY"` // sale price converted to the reference currency
	Discount      *int              `json:"discount"` // percent off, derived from original vs sale price
	ImageURL      string            `json:"imageUrl"`
	ProductURL    string            `json:"productUrl"`
	Meta          map[string]string `json:"meta,omitempty"`
	ScrapedAt     time.Time         `json:"scrapedAt"`
}

// MetaValue returns the metadata value for key, or "" when absent.
func (l RawListing) MetaValue(key string) string {
	if l.Meta == nil {
		return ""
	}
	return l.Meta[key]
}

// HasKnownBrand reports whether the listing carries a recognized brand.
func (l RawListing) HasKnownBrand() bool {
	return l.Brand != "" && l.Brand != UnknownBrand
}
