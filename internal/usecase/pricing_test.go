package usecase

import (
	"testing"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		defaultCurr  string
		wantAmount   float64
		wantNil      bool
		wantCurrency string
	}{
		{
			name:         "yen symbol overrides default currency",
			text:         "¥12,345",
			defaultCurr:  "USD",
			wantAmount:   12345,
			wantCurrency: "JPY",
		},
		{
			name:         "full-width yen symbol",
			text:         "￥59,800",
			defaultCurr:  "JPY",
			wantAmount:   59800,
			wantCurrency: "JPY",
		},
		{
			name:         "full-width digits fold to ascii",
			text:         "１２８００円",
			defaultCurr:  "JPY",
			wantAmount:   12800,
			wantCurrency: "JPY",
		},
		{
			name:         "european separators",
			text:         "1.234,56",
			defaultCurr:  "EUR",
			wantAmount:   1234.56,
			wantCurrency: "EUR",
		},
		{
			name:         "us separators",
			text:         "$1,234.56",
			defaultCurr:  "JPY",
			wantAmount:   1234.56,
			wantCurrency: "USD",
		},
		{
			name:         "lone comma with two trailing digits is decimal",
			text:         "599,99",
			defaultCurr:  "EUR",
			wantAmount:   599.99,
			wantCurrency: "EUR",
		},
		{
			name:         "lone comma with three trailing digits is thousands",
			text:         "12,345",
			defaultCurr:  "JPY",
			wantAmount:   12345,
			wantCurrency: "JPY",
		},
		{
			name:         "compound symbol wins over bare dollar",
			text:         "CA$599.99",
			defaultCurr:  "USD",
			wantAmount:   599.99,
			wantCurrency: "CAD",
		},
		{
			name:         "taiwan compound symbol",
			text:         "NT$18,000",
			defaultCurr:  "USD",
			wantAmount:   18000,
			wantCurrency: "TWD",
		},
		{
			name:         "australian compound symbol",
			text:         "AU$ 850.00",
			defaultCurr:  "USD",
			wantAmount:   850,
			wantCurrency: "AUD",
		},
		{
			name:         "bare dollar defaults to usd",
			text:         "$450",
			defaultCurr:  "JPY",
			wantAmount:   450,
			wantCurrency: "USD",
		},
		{
			name:         "no symbol falls back to default",
			text:         "68000",
			defaultCurr:  "JPY",
			wantAmount:   68000,
			wantCurrency: "JPY",
		},
		{
			name:         "empty text yields nil",
			text:         "",
			defaultCurr:  "USD",
			wantNil:      true,
			wantCurrency: "USD",
		},
		{
			name:         "non numeric text yields nil with detected currency",
			text:         "SOLD OUT ¥",
			defaultCurr:  "USD",
			wantNil:      true,
			wantCurrency: "JPY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, currency := ParsePrice(tt.text, tt.defaultCurr)
			if currency != tt.wantCurrency {
				t.Errorf("ParsePrice(%q) currency = %q, want %q", tt.text, currency, tt.wantCurrency)
			}
			if tt.wantNil {
				if amount != nil {
					t.Errorf("ParsePrice(%q) amount = %v, want nil", tt.text, *amount)
				}
				return
			}
			if amount == nil {
				t.Fatalf("ParsePrice(%q) amount = nil, want %v", tt.text, tt.wantAmount)
			}
			if *amount != tt.wantAmount {
				t.Errorf("ParsePrice(%q) amount = %v, want %v", tt.text, *amount, tt.wantAmount)
			}
		})
	}
}

func TestConvertToReference(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		currency string
		want     float64
	}{
		{"jpy is identity", 59800, "JPY", 59800},
		{"usd converts at fixed rate", 400, "USD", 60000},
		{"cad converts at fixed rate", 500, "CAD", 55000},
		{"twd converts at fractional rate", 10000, "TWD", 48000},
		{"unknown currency passes through", 123, "XXX", 123},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertToReference(tt.amount, tt.currency); got != tt.want {
				t.Errorf("ConvertToReference(%v, %q) = %v, want %v", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}

func TestIsReasonablePrice(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		currency string
		want     bool
	}{
		{"typical board price in yen", 68000, "JPY", true},
		{"lower bound inclusive", 10000, "JPY", true},
		{"upper bound inclusive", 500000, "JPY", true},
		{"below range", 9999, "JPY", false},
		{"above range", 500001, "JPY", false},
		{"usd price checked after conversion", 400, "USD", true},
		{"tiny usd price rejected after conversion", 10, "USD", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsReasonablePrice(tt.amount, tt.currency); got != tt.want {
				t.Errorf("IsReasonablePrice(%v, %q) = %v, want %v", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}

func TestDiscountPercent(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		original *float64
		sale     *float64
		want     *int
	}{
		{"thirty percent off", f(100000), f(70000), intPtr(30)},
		{"rounds to nearest percent", f(100000), f(66666), intPtr(33)},
		{"no discount when equal", f(50000), f(50000), nil},
		{"no discount when sale is higher", f(50000), f(60000), nil},
		{"nil original", nil, f(50000), nil},
		{"nil sale", f(50000), nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscountPercent(tt.original, tt.sale)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("DiscountPercent() = %v, want %v", got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("DiscountPercent() = %d, want %d", *got, *tt.want)
			}
		})
	}
}

func intPtr(v int) *int { return &v }
