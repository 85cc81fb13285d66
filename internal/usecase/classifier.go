package usecase

import (
	"strings"

	"github.com/snowdeal/backend/internal/domain"
)

// categoryRule couples one category with the signals that can select it.
// Rules are evaluated in slice order with first match winning, so the
// precedence is data: specific categories (bindings, boots) come before the
// generic ones (snowboard) whose keywords would otherwise mask them.
type categoryRule struct {
	Category     string
	Breadcrumb   []string
	URLFragments []string
	Include      []string
	Exclude      []string
}

var categoryRules = []categoryRule{
	{
		Category:     domain.CategoryBinding,
		Breadcrumb:   []string{"binding", "bindings", "ビンディング", "バインディング"},
		URLFragments: []string{"/bindings", "/binding", "bin_"},
		Include:      []string{"binding", "bindings", "ビンディング", "バインディング"},
	},
	{
		Category:     domain.CategoryBoots,
		Breadcrumb:   []string{"boot", "boots", "ブーツ"},
		URLFragments: []string{"/boots", "/boot"},
		Include:      []string{"boot", "boots", "ブーツ"},
	},
	{
		Category:     domain.CategoryGoggle,
		Breadcrumb:   []string{"goggle", "goggles", "ゴーグル"},
		URLFragments: []string{"/goggles", "/goggle"},
		Include:      []string{"goggle", "goggles", "ゴーグル"},
	},
	{
		Category:     domain.CategoryHelmet,
		Breadcrumb:   []string{"helmet", "helmets", "ヘルメット"},
		URLFragments: []string{"/helmets", "/helmet"},
		Include:      []string{"helmet", "helmets", "ヘルメット"},
	},
	{
		Category:     domain.CategoryWear,
		Breadcrumb:   []string{"wear", "jacket", "pants", "ウェア", "ジャケット", "パンツ"},
		URLFragments: []string{"/wear", "/jackets", "/pants", "/outerwear"},
		Include:      []string{"jacket", "pants", "ウェア", "ジャケット", "パンツ"},
	},
	{
		Category:     domain.CategoryAccessory,
		Breadcrumb:   []string{"accessory", "accessories", "アクセサリー", "小物"},
		URLFragments: []string{"/accessories", "/accessory"},
		Include:      []string{"leash", "stomp pad", "wax", "deck pad", "ケース", "ソールカバー"},
	},
	{
		Category:     domain.CategorySki,
		Breadcrumb:   []string{"ski", "skis", "スキー"},
		URLFragments: []string{"/skis", "/ski"},
		Include:      []string{"ski", "skis", "スキー"},
		Exclude:      []string{"snowboard", "スノーボード"},
	},
	{
		Category:     domain.CategorySnowboard,
		Breadcrumb:   []string{"snowboard", "snowboards", "board", "スノーボード", "スノボ"},
		URLFragments: []string{"/snowboards", "/snowboard", "bid=snow", "/collections/mens-snowboard"},
		Include:      []string{"snowboard", "board", "スノーボード", "板"},
		Exclude:      []string{"binding", "boot", "bag", "case", "sock", "ビンディング", "ブーツ", "ケース"},
	},
}

// platformTypeMap maps platform-native product types (e.g. Shopify
// product_type values) onto the closed category set.
var platformTypeMap = map[string]string{
	"snowboard":          domain.CategorySnowboard,
	"snowboards":         domain.CategorySnowboard,
	"splitboard":         domain.CategorySnowboard,
	"ski":                domain.CategorySki,
	"skis":               domain.CategorySki,
	"binding":            domain.CategoryBinding,
	"bindings":           domain.CategoryBinding,
	"snowboard bindings": domain.CategoryBinding,
	"boot":               domain.CategoryBoots,
	"boots":              domain.CategoryBoots,
	"snowboard boots":    domain.CategoryBoots,
	"goggles":            domain.CategoryGoggle,
	"helmets":            domain.CategoryHelmet,
	"outerwear":          domain.CategoryWear,
	"accessories":        domain.CategoryAccessory,
}

// Classifier assigns each listing to one category using a priority chain of
// signals. Manual overrides always win; learned keywords are additive and
// can never shadow an override.
type Classifier struct {
	overrides map[string]string
	learned   map[string][]string
}

// NewClassifier builds a classifier over the given manual overrides
// (canonical key -> category) and learned keyword lists per category.
func NewClassifier(overrides map[string]string, learned map[string][]string) *Classifier {
	if overrides == nil {
		overrides = map[string]string{}
	}
	if learned == nil {
		learned = map[string][]string{}
	}
	return &Classifier{overrides: overrides, learned: learned}
}

// Classify returns the category id for a listing, or
// domain.CategoryUncategorized when no signal is decisive. It never fails;
// malformed input degrades to the default.
func (c *Classifier) Classify(listing domain.RawListing) string {
	// 1. Manual override by canonical key.
	if cat, ok := c.overrides[CanonicalKey(listing.Brand, listing.Name)]; ok {
		return cat
	}

	// 2. Platform-native type field.
	if t := strings.ToLower(strings.TrimSpace(listing.MetaValue(domain.MetaPlatformType))); t != "" {
		if cat, ok := platformTypeMap[t]; ok {
			return cat
		}
	}

	// 3. Breadcrumb text, specific categories before generic ones.
	if crumb := strings.ToLower(listing.MetaValue(domain.MetaBreadcrumb)); crumb != "" {
		for _, rule := range categoryRules {
			if containsAny(crumb, rule.Breadcrumb) {
				return rule.Category
			}
		}
	}

	// 4. URL path fragments.
	if u := strings.ToLower(listing.ProductURL); u != "" {
		for _, rule := range categoryRules {
			if containsAny(u, rule.URLFragments) {
				return rule.Category
			}
		}
	}

	title := strings.ToLower(listing.Brand + " " + listing.Name)

	// 5. Learned keywords, additive and operator-supplied.
	for _, rule := range categoryRules {
		if containsAny(title, c.learned[rule.Category]) {
			return rule.Category
		}
	}

	// 6. Static include/exclude keyword lists.
	for _, rule := range categoryRules {
		if containsAny(title, rule.Include) && !containsAny(title, rule.Exclude) {
			return rule.Category
		}
	}

	return domain.CategoryUncategorized
}

// FilterPublishable keeps only canonical products holding at least one
// allowed category. Products filtered out here remain in the raw store for
// later manual classification.
func FilterPublishable(products []domain.CanonicalProduct, allowed []string) []domain.CanonicalProduct {
	if len(allowed) == 0 {
		return products
	}
	allowSet := make(map[string]bool, len(allowed))
	for _, cat := range allowed {
		allowSet[cat] = true
	}

	published := make([]domain.CanonicalProduct, 0, len(products))
	for _, p := range products {
		for _, cat := range p.Categories {
			if allowSet[cat] {
				published = append(published, p)
				break
			}
		}
	}
	return published
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
