package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// ReferenceCurrency is the currency all prices are converted to for
// comparison and range checks. The primary market is Japan, so the
// reference unit is JPY with rate 1.
const ReferenceCurrency = "JPY"

// ExchangeRates maps a currency code to its value in reference units.
var ExchangeRates = map[string]float64{
	"JPY": 1,
	"CAD": 110,
	"USD": 150,
	"EUR": 160,
	"GBP": 190,
	"AUD": 100,
	"TWD": 4.8,
}

// Plausible bounds for a single listing in reference units. Converted
// prices outside this range are treated as extraction noise and dropped at
// the merger boundary.
const (
	minReasonablePriceJPY = 10_000
	maxReasonablePriceJPY = 500_000
)

// currencySymbols is scanned in order; compound symbols must come before
// the bare symbols they contain ("CA$" before "A$" before "$").
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"NT$", "TWD"},
	{"TWD", "TWD"},
	{"CA$", "CAD"},
	{"C$", "CAD"},
	{"AU$", "AUD"},
	{"A$", "AUD"},
	{"$", "USD"},
	{"¥", "JPY"},
	{"￥", "JPY"},
	{"€", "EUR"},
	{"£", "GBP"},
}

var nonPriceCharsRegex = regexp.MustCompile(`[^\d.,]`)

// ParsePrice extracts an amount and currency from free-text price strings
// like "¥12,345", "C$ 599.99" or "1.234,56". Currency detection scans the
// symbol table with first match winning, falling back to defaultCurrency.
// Unparsable numeric text yields a nil amount, never an error.
func ParsePrice(text, defaultCurrency string) (*float64, string) {
	if text == "" {
		return nil, defaultCurrency
	}

	currency := defaultCurrency
	for _, entry := range currencySymbols {
		if strings.Contains(text, entry.symbol) {
			currency = entry.code
			break
		}
	}

	// JP storefronts emit full-width digits and separators; fold them to
	// their ASCII forms before numeric extraction.
	folded := width.Fold.String(text)
	cleaned := nonPriceCharsRegex.ReplaceAllString(folded, "")
	numStr := normalizeSeparators(cleaned)

	amount, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return nil, currency
	}
	return &amount, currency
}

// normalizeSeparators disambiguates thousands vs decimal separators. When
// both "," and "." occur, the one appearing later is the decimal point and
// the other is stripped. A lone "," is a decimal point only when exactly
// two digits follow it.
func normalizeSeparators(cleaned string) string {
	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			// European format: 1.234,56
			s := strings.ReplaceAll(cleaned, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		// US format: 1,234.56
		return strings.ReplaceAll(cleaned, ",", "")
	case hasComma:
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) == 2 {
			return parts[0] + "." + parts[1]
		}
		return strings.ReplaceAll(cleaned, ",", "")
	default:
		return cleaned
	}
}

// ConvertToReference converts an amount in the given currency to reference
// units. Unknown currencies pass through at rate 1.
func ConvertToReference(amount float64, currency string) float64 {
	rate, ok := ExchangeRates[currency]
	if !ok {
		rate = 1
	}
	return amount * rate
}

// IsReasonablePrice reports whether the amount, converted to reference
// units, falls inside the plausible range for a single listing.
func IsReasonablePrice(amount float64, currency string) bool {
	ref := ConvertToReference(amount, currency)
	return ref >= minReasonablePriceJPY && ref <= maxReasonablePriceJPY
}

// DiscountPercent derives the rounded percent saved when a sale price
// undercuts the original price, or nil when no discount applies.
func DiscountPercent(originalPrice, salePrice *float64) *int {
	if originalPrice == nil || salePrice == nil {
		return nil
	}
	if *originalPrice <= *salePrice || *originalPrice <= 0 {
		return nil
	}
	d := int((1-*salePrice / *originalPrice)*100 + 0.5)
	return &d
}
