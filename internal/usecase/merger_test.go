package usecase

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/snowdeal/backend/internal/domain"
)

func fp(v float64) *float64 { return &v }

func listing(store, brand, name, url string, priceJPY float64) domain.RawListing {
	return domain.RawListing{
		Store:      store,
		StoreName:  store,
		Currency:   "JPY",
		Brand:      brand,
		Name:       name,
		SalePrice:  fp(priceJPY),
		PriceJPY:   fp(priceJPY),
		ProductURL: url,
		ScrapedAt:  time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func newTestMerger() *Merger {
	return NewMerger(NewClassifier(nil, nil), nil)
}

func TestMergeGroupsAcrossStores(t *testing.T) {
	m := newTestMerger()

	listings := []domain.RawListing{
		listing("murasaki", "BURTON", "Custom Snowboard 158cm 2023", "https://a.example/custom", 70000),
		listing("northshore", "BURTON", "Custom Snowboard", "https://b.example/custom", 65000),
		listing("murasaki", "CAPITA", "D.O.A. Snowboard", "https://a.example/doa", 62000),
	}

	products := m.Merge(listings)
	if len(products) != 2 {
		t.Fatalf("Merge() produced %d products, want 2", len(products))
	}

	var custom *domain.CanonicalProduct
	for i := range products {
		if products[i].Key == "burton-custom-snowboard" {
			custom = &products[i]
		}
	}
	if custom == nil {
		t.Fatalf("Merge() did not group the Custom listings, got keys %v", []string{products[0].Key, products[1].Key})
	}

	if custom.OfferCount != 2 {
		t.Errorf("OfferCount = %d, want 2", custom.OfferCount)
	}
	if custom.LowestPrice == nil || *custom.LowestPrice != 65000 {
		t.Errorf("LowestPrice = %v, want 65000", custom.LowestPrice)
	}
	if custom.HighestPrice == nil || *custom.HighestPrice != 70000 {
		t.Errorf("HighestPrice = %v, want 70000", custom.HighestPrice)
	}
	if custom.LowestStore != "northshore" {
		t.Errorf("LowestStore = %q, want northshore", custom.LowestStore)
	}
	if custom.Offers[0].Store != "northshore" {
		t.Errorf("Offers[0].Store = %q, offers must sort ascending by reference price", custom.Offers[0].Store)
	}
	if !custom.HasCategory(domain.CategorySnowboard) {
		t.Errorf("Categories = %v, want snowboard", custom.Categories)
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	m := newTestMerger()

	listings := []domain.RawListing{
		listing("a", "BURTON", "Custom Snowboard", "https://a.example/1", 70000),
		listing("b", "BURTON", "Custom Snowboard 158", "https://b.example/1", 65000),
		listing("c", "BURTON", "Custom Snowboard 2024", "https://c.example/1", 68000),
		listing("a", "JONES", "Mountain Twin Snowboard", "https://a.example/2", 72000),
		listing("b", "JONES", "Mountain Twin Snowboard", "https://b.example/2", 71000),
	}

	want := m.Merge(listings)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 5; i++ {
		shuffled := append([]domain.RawListing(nil), listings...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := m.Merge(shuffled)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Merge() is order dependent:\n got %+v\nwant %+v", got, want)
		}
	}
}

func TestMergeDropsImplausiblePrices(t *testing.T) {
	m := newTestMerger()

	listings := []domain.RawListing{
		listing("a", "BURTON", "Custom Snowboard", "https://a.example/1", 70000),
		listing("b", "BURTON", "Custom Snowboard", "https://b.example/1", 500),     // below range
		listing("c", "BURTON", "Custom Snowboard", "https://c.example/1", 900000), // above range
	}

	products := m.Merge(listings)
	if len(products) != 1 {
		t.Fatalf("Merge() produced %d products, want 1", len(products))
	}
	if products[0].OfferCount != 1 {
		t.Errorf("OfferCount = %d, want 1 after dropping implausible prices", products[0].OfferCount)
	}
}

func TestMergeSkipsListingsWithoutURL(t *testing.T) {
	m := newTestMerger()

	l := listing("a", "BURTON", "Custom Snowboard", "", 70000)
	if products := m.Merge([]domain.RawListing{l}); len(products) != 0 {
		t.Errorf("Merge() produced %d products from a URL-less listing, want 0", len(products))
	}
}

func TestMergeMissingPriceSortsLast(t *testing.T) {
	m := newTestMerger()

	noPrice := listing("zzz", "BURTON", "Custom Snowboard", "https://z.example/1", 0)
	noPrice.SalePrice = nil
	noPrice.PriceJPY = nil

	listings := []domain.RawListing{
		noPrice,
		listing("aaa", "BURTON", "Custom Snowboard", "https://a.example/1", 70000),
	}

	products := m.Merge(listings)
	if len(products) != 1 {
		t.Fatalf("Merge() produced %d products, want 1", len(products))
	}
	offers := products[0].Offers
	if offers[len(offers)-1].PriceJPY != nil {
		t.Errorf("offer with missing price must sort last, got %+v", offers)
	}
	if products[0].LowestPrice == nil || *products[0].LowestPrice != 70000 {
		t.Errorf("LowestPrice = %v, want 70000 ignoring the priceless offer", products[0].LowestPrice)
	}
}

func TestMergeFallsBackToUncategorized(t *testing.T) {
	m := newTestMerger()

	l := listing("a", "MYSTERY", "Gift Voucher", "https://a.example/gift", 15000)
	products := m.Merge([]domain.RawListing{l})
	if len(products) != 1 {
		t.Fatalf("Merge() produced %d products, want 1", len(products))
	}
	if !reflect.DeepEqual(products[0].Categories, []string{domain.CategoryUncategorized}) {
		t.Errorf("Categories = %v, want [uncategorized]", products[0].Categories)
	}
}
