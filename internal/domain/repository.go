package domain

import "context"

// Adapter turns a store's web content into raw listings. Implementations
// must not fail on per-item parse errors; they return an error only when the
// source cannot be reached at all, and an empty slice when the source
// legitimately has no matching items.
type Adapter interface {
	Method() ExtractionMethod
	Fetch(ctx context.Context, store StoreConfig) ([]RawListing, error)
}

// CatalogRepository persists the catalog snapshot as an atomic whole
// document. Load returns an empty, normalized snapshot when none exists.
type CatalogRepository interface {
	Load(ctx context.Context) (*CatalogSnapshot, error)
	Replace(ctx context.Context, snapshot *CatalogSnapshot) error
	Exists() bool
}

// StoreRepository persists caller-added custom stores.
type StoreRepository interface {
	CustomStores(ctx context.Context) (map[string]StoreConfig, error)
	SaveCustomStores(ctx context.Context, stores map[string]StoreConfig) error
}

// ClassificationRepository persists manual category overrides (canonical
// key -> category id) and operator-supplied learned keywords per category.
// The classifier consults it read-only; the classify operation writes it.
type ClassificationRepository interface {
	Overrides(ctx context.Context) (map[string]string, error)
	SetOverride(ctx context.Context, key, category string) error
	LearnedKeywords(ctx context.Context) (map[string][]string, error)
	AddLearnedKeyword(ctx context.Context, category, keyword string) error
}
