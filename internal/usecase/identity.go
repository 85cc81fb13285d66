package usecase

import (
	"regexp"
	"strings"

	"github.com/snowdeal/backend/internal/domain"
)

// Package-level compiled regex patterns for identity normalization
var (
	// Model years like "2023", "2023/24", "2023/4"
	yearTokenRegex = regexp.MustCompile(`20\d{2}/?\d{0,2}`)
	// Board sizes like "158", "158CM", "158W" (year tokens are stripped first)
	sizeTokenRegex = regexp.MustCompile(`\d{2,3}(CM|W|M)?`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	nonKeyCharRegex = regexp.MustCompile(`[^a-z0-9]+`)
	dashRunRegex    = regexp.MustCompile(`-+`)
)

// brandPatterns is the curated brand list, tried in order with
// case-insensitive substring containment; first match wins. Multi-word and
// longer names come before the short ones they could collide with. Substring
// matching can still mis-attribute a brand whose name hides inside another
// word; that is a known precision/recall tradeoff kept from the original
// matching design.
var brandPatterns = []string{
	"BURTON", "SALOMON", "NITRO", "JONES", "CAPITA", "GNU", "LIB TECH", "LIBTECH",
	"RIDE", "K2", "ROME", "ARBOR", "NEVER SUMMER", "YES", "BATALEON", "ROSSIGNOL",
	"HEAD", "NIDECKER", "FLOW", "DRAKE", "ENDEAVOR", "KORUA", "AMPLID", "WESTON",
	"SIGNAL", "MARHAR", "SLASH", "PUBLIC", "DINOSAURS WILL DIE", "DWD", "CARDIFF",
	"ACADEMY", "ALLIAN", "DEATH LABEL", "FNTC", "NOVEMBER", "OGASAKA", "YONEX",
	"GRAY", "MOSS", "SCOOTER", "FANATIC", "RICE28", "GENTEMSTICK", "TJ BRAND",
}

// NormalizedName combines brand and name, uppercases, and strips the year
// and size tokens that dominate cross-store title differences for the same
// physical product.
func NormalizedName(brand, name string) string {
	combined := strings.ToUpper(brand + " " + name)
	combined = yearTokenRegex.ReplaceAllString(combined, "")
	combined = sizeTokenRegex.ReplaceAllString(combined, "")
	combined = whitespaceRegex.ReplaceAllString(combined, " ")
	return strings.TrimSpace(combined)
}

// CanonicalKey derives the deterministic identity key for a product. It is
// a pure function of (brand, name), so re-running resolution over the same
// raw input always regroups identically.
func CanonicalKey(brand, name string) string {
	key := strings.ToLower(NormalizedName(brand, name))
	key = nonKeyCharRegex.ReplaceAllString(key, "-")
	key = dashRunRegex.ReplaceAllString(key, "-")
	return strings.Trim(key, "-")
}

// ExtractBrand scans a raw title against the curated brand list and returns
// the brand plus the title with the brand text removed. A miss returns the
// UnknownBrand sentinel and the title untouched; such listings key on the
// full title and may fail to merge across stores.
func ExtractBrand(title string) (brand, remainder string) {
	upper := strings.ToUpper(title)
	for _, b := range brandPatterns {
		idx := strings.Index(upper, b)
		if idx < 0 {
			continue
		}
		rest := title[:idx] + title[idx+len(b):]
		return b, strings.TrimSpace(whitespaceRegex.ReplaceAllString(rest, " "))
	}
	return domain.UnknownBrand, strings.TrimSpace(title)
}
