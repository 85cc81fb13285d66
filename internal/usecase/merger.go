package usecase

import (
	"log/slog"
	"sort"

	"github.com/snowdeal/backend/internal/domain"
)

// Merger folds raw listings into canonical product records. Merging is a
// pure recompute over the full raw-listing set: the same input, in any
// order, produces the same products up to offer ordering.
type Merger struct {
	classifier *Classifier
	logger     *slog.Logger
}

// NewMerger creates a merger that classifies listings with the given
// classifier.
func NewMerger(classifier *Classifier, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{classifier: classifier, logger: logger}
}

// Merge groups listings by canonical key and builds one canonical product
// per group with per-store offers sorted ascending by reference price.
// Listings whose converted price is outside the plausible range are dropped
// here, counted, and never reach the catalog.
func (m *Merger) Merge(listings []domain.RawListing) []domain.CanonicalProduct {
	groups := make(map[string][]domain.RawListing)
	keys := make([]string, 0)
	dropped := 0

	for _, listing := range listings {
		if listing.ProductURL == "" {
			continue
		}
		if listing.SalePrice != nil && !IsReasonablePrice(*listing.SalePrice, listing.Currency) {
			dropped++
			continue
		}
		key := CanonicalKey(listing.Brand, listing.Name)
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], listing)
	}

	if dropped > 0 {
		m.logger.Warn("dropped listings with implausible prices", "count", dropped)
	}

	sort.Strings(keys)

	products := make([]domain.CanonicalProduct, 0, len(keys))
	for _, key := range keys {
		products = append(products, m.buildProduct(key, groups[key]))
	}
	return products
}

func (m *Merger) buildProduct(key string, group []domain.RawListing) domain.CanonicalProduct {
	// Order group members deterministically so representative fields (brand,
	// name, image) do not depend on input order.
	sort.SliceStable(group, func(i, j int) bool {
		if group[i].Store != group[j].Store {
			return group[i].Store < group[j].Store
		}
		return group[i].ProductURL < group[j].ProductURL
	})

	first := group[0]
	product := domain.CanonicalProduct{
		Key:            key,
		Brand:          first.Brand,
		Name:           first.Name,
		NormalizedName: NormalizedName(first.Brand, first.Name),
	}

	categorySet := make(map[string]bool)
	for _, listing := range group {
		if product.ImageURL == "" && listing.ImageURL != "" {
			product.ImageURL = listing.ImageURL
		}

		category := m.classifier.Classify(listing)
		offerCategories := []string(nil)
		if category != domain.CategoryUncategorized {
			categorySet[category] = true
			offerCategories = []string{category}
		}

		product.Offers = append(product.Offers, domain.Offer{
			Store:         listing.Store,
			StoreName:     listing.StoreName,
			Currency:      listing.Currency,
			OriginalPrice: listing.OriginalPrice,
			SalePrice:     listing.SalePrice,
			PriceJPY:      listing.PriceJPY,
			Discount:      listing.Discount,
			ProductURL:    listing.ProductURL,
			Categories:    offerCategories,
			ScrapedAt:     listing.ScrapedAt,
		})
	}

	// Missing reference price sorts last; ties break on store then URL so
	// repeated merges order identically.
	sort.SliceStable(product.Offers, func(i, j int) bool {
		pi, pj := refPriceOrInf(product.Offers[i]), refPriceOrInf(product.Offers[j])
		if pi != pj {
			return pi < pj
		}
		if product.Offers[i].Store != product.Offers[j].Store {
			return product.Offers[i].Store < product.Offers[j].Store
		}
		return product.Offers[i].ProductURL < product.Offers[j].ProductURL
	})

	for _, offer := range product.Offers {
		if offer.PriceJPY == nil {
			continue
		}
		if product.LowestPrice == nil || *offer.PriceJPY < *product.LowestPrice {
			v := *offer.PriceJPY
			product.LowestPrice = &v
		}
		if product.HighestPrice == nil || *offer.PriceJPY > *product.HighestPrice {
			v := *offer.PriceJPY
			product.HighestPrice = &v
		}
	}

	product.LowestStore = product.Offers[0].StoreName
	product.OfferCount = len(product.Offers)

	if len(categorySet) == 0 {
		categorySet[domain.CategoryUncategorized] = true
	}

	product.Categories = make([]string, 0, len(categorySet))
	for cat := range categorySet {
		product.Categories = append(product.Categories, cat)
	}
	sort.Strings(product.Categories)

	return product
}

func refPriceOrInf(offer domain.Offer) float64 {
	if offer.PriceJPY == nil {
		return float64(1 << 62)
	}
	return *offer.PriceJPY
}
