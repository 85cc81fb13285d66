package usecase

import (
	"testing"

	"github.com/snowdeal/backend/internal/domain"
)

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		name  string
		brand string
		title string
		want  string
	}{
		{
			name:  "plain brand and model",
			brand: "BURTON",
			title: "Custom",
			want:  "burton-custom",
		},
		{
			name:  "size and year tokens are stripped",
			brand: "BURTON",
			title: "Custom 158cm 2023",
			want:  "burton-custom",
		},
		{
			name:  "wide variant suffix is stripped",
			brand: "BURTON",
			title: "Custom 162W",
			want:  "burton-custom",
		},
		{
			name:  "season range token",
			brand: "CAPITA",
			title: "D.O.A. 2023/24",
			want:  "capita-d-o-a",
		},
		{
			name:  "punctuation collapses to single dashes",
			brand: "LIB TECH",
			title: "T.Rice Pro!!",
			want:  "lib-tech-t-rice-pro",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalKey(tt.brand, tt.title); got != tt.want {
				t.Errorf("CanonicalKey(%q, %q) = %q, want %q", tt.brand, tt.title, got, tt.want)
			}
		})
	}
}

func TestCanonicalKeyStability(t *testing.T) {
	// Listings for the same physical board must regroup identically no matter
	// which size or model year the store happened to list.
	variants := []string{
		"Custom 158cm 2023",
		"Custom 154 2024/25",
		"CUSTOM 162W",
		"custom",
	}

	want := CanonicalKey("BURTON", "Custom")
	for _, v := range variants {
		if got := CanonicalKey("BURTON", v); got != want {
			t.Errorf("CanonicalKey(BURTON, %q) = %q, want %q", v, got, want)
		}
	}
}

func TestNormalizedName(t *testing.T) {
	tests := []struct {
		name  string
		brand string
		title string
		want  string
	}{
		{"uppercases and joins", "Burton", "Custom", "BURTON CUSTOM"},
		{"strips year then size", "Burton", "Custom 158cm 2023", "BURTON CUSTOM"},
		{"collapses whitespace left by stripping", "Jones", "Mountain  Twin   2024", "JONES MOUNTAIN TWIN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizedName(tt.brand, tt.title); got != tt.want {
				t.Errorf("NormalizedName(%q, %q) = %q, want %q", tt.brand, tt.title, got, tt.want)
			}
		})
	}
}

func TestExtractBrand(t *testing.T) {
	tests := []struct {
		name          string
		title         string
		wantBrand     string
		wantRemainder string
	}{
		{
			name:          "brand at start",
			title:         "BURTON Custom Snowboard",
			wantBrand:     "BURTON",
			wantRemainder: "Custom Snowboard",
		},
		{
			name:          "brand matched case-insensitively",
			title:         "burton Custom",
			wantBrand:     "BURTON",
			wantRemainder: "Custom",
		},
		{
			name:          "brand in the middle",
			title:         "2023 CAPITA D.O.A.",
			wantBrand:     "CAPITA",
			wantRemainder: "2023 D.O.A.",
		},
		{
			name:          "multi-word brand",
			title:         "LIB TECH Skate Banana",
			wantBrand:     "LIB TECH",
			wantRemainder: "Skate Banana",
		},
		{
			name:          "earlier list entry wins",
			title:         "GNU Riders Choice", // GNU precedes RIDE in the list
			wantBrand:     "GNU",
			wantRemainder: "Riders Choice",
		},
		{
			name:          "no match yields the sentinel",
			title:         "Mystery Powder Board",
			wantBrand:     domain.UnknownBrand,
			wantRemainder: "Mystery Powder Board",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			brand, remainder := ExtractBrand(tt.title)
			if brand != tt.wantBrand {
				t.Errorf("ExtractBrand(%q) brand = %q, want %q", tt.title, brand, tt.wantBrand)
			}
			if remainder != tt.wantRemainder {
				t.Errorf("ExtractBrand(%q) remainder = %q, want %q", tt.title, remainder, tt.wantRemainder)
			}
		})
	}
}
