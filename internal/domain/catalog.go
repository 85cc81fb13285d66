package domain

import "time"

// Category identifiers form a closed set; everything the classifier cannot
// place lands in CategoryUncategorized.
const (
	CategorySnowboard     = "snowboard"
	CategorySki           = "ski"
	CategoryBinding       = "binding"
	CategoryBoots         = "boots"
	CategoryHelmet        = "helmet"
	CategoryGoggle        = "goggle"
	CategoryWear          = "wear"
	CategoryAccessory     = "accessory"
	CategoryUncategorized = "uncategorized"
)

// Offer is the per-store projection of a raw listing inside a canonical
// product. The JSON field names match the persisted snapshot document.
type Offer struct {
	Store         string    `json:"store"`
	StoreName     string    `json:"storeName"`
	Currency      string    `json:"currency"`
	OriginalPrice *float64  `json:"originalPrice"`
	SalePrice     *float64  `json:"salePrice"`
	PriceJPY      *float64  `json:"priceJPY"`
	Discount      *int      `json:"discount"`
	ProductURL    string    `json:"productUrl"`
	Categories    []string  `json:"categories,omitempty"`
	ScrapedAt     time.Time `json:"scrapedAt"`
}

// CanonicalProduct groups raw listings believed to be the same physical item
// across stores. It is rebuilt from scratch on every resolution pass.
type CanonicalProduct struct {
	Key            string   `json:"key"`
	Brand          string   `json:"brand"`
	Name           string   `json:"name"`
	NormalizedName string   `json:"normalizedName"`
	ImageURL       string   `json:"imageUrl"`
	Offers         []Offer  `json:"stores"` // ascending by reference price, missing price last
	LowestPrice    *float64 `json:"lowestPrice"`
	HighestPrice   *float64 `json:"highestPrice"`
	LowestStore    string   `json:"lowestStore"`
	OfferCount     int      `json:"storeCount"`
	Categories     []string `json:"categories"`
}

// HasCategory reports whether the product holds the given category.
func (p CanonicalProduct) HasCategory(category string) bool {
	for _, c := range p.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// StoreInfo is the registry projection published in the snapshot.
type StoreInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Country  string `json:"country"`
	Type     string `json:"type"`
	BaseURL  string `json:"baseUrl"`
}

// CatalogSnapshot is the persisted catalog document. It is always read and
// replaced as an atomic whole, never patched.
type CatalogSnapshot struct {
	LastUpdated      time.Time          `json:"lastUpdated"`
	TotalRawProducts int                `json:"totalRawProducts"`
	TotalProducts    int                `json:"totalProducts"`
	Stores           []StoreInfo        `json:"stores"`
	ExchangeRates    map[string]float64 `json:"exchangeRates"`
	Products         []CanonicalProduct `json:"products"`
	RawProducts      []RawListing       `json:"rawProducts"`
}

// Normalize materializes optional collections so loaded documents never
// expose nil slices or maps to the rest of the core.
func (s *CatalogSnapshot) Normalize() {
	if s.Stores == nil {
		s.Stores = []StoreInfo{}
	}
	if s.ExchangeRates == nil {
		s.ExchangeRates = map[string]float64{}
	}
	if s.Products == nil {
		s.Products = []CanonicalProduct{}
	}
	if s.RawProducts == nil {
		s.RawProducts = []RawListing{}
	}
	for i := range s.Products {
		if s.Products[i].Categories == nil {
			s.Products[i].Categories = []string{CategoryUncategorized}
		}
		if s.Products[i].Offers == nil {
			s.Products[i].Offers = []Offer{}
		}
	}
}
