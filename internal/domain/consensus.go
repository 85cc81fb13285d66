package domain

// ConsensusStatus is the terminal outcome of reconciling two extraction
// passes for one store.
type ConsensusStatus string

const (
	// StatusAutoMerged means the passes agreed closely enough to merge
	// without human involvement.
	StatusAutoMerged ConsensusStatus = "auto_merged"
	// StatusMergedWithWarning means the merge proceeded but the divergence
	// was recorded for review.
	StatusMergedWithWarning ConsensusStatus = "merged_with_warning"
	// StatusRequiresConfirmation means the merge must not be applied to the
	// catalog until the caller explicitly confirms it.
	StatusRequiresConfirmation ConsensusStatus = "requires_confirmation"
	// StatusSkippedSingleSource means the secondary pass was structurally
	// unable to see the site (e.g. it requires rendering) and the primary
	// was accepted outright.
	StatusSkippedSingleSource ConsensusStatus = "skipped_single_source"
	// StatusError means the secondary pass failed; the result must not be
	// applied to the catalog.
	StatusError ConsensusStatus = "error"
)

// PassResult captures one extraction pass.
type PassResult struct {
	Method   ExtractionMethod `json:"method"`
	Count    int              `json:"count"`
	Listings []RawListing     `json:"-"`
}

// PriceDiscrepancy records a sale price disagreement between the two passes
// for the same product URL.
type PriceDiscrepancy struct {
	ProductURL        string  `json:"productUrl"`
	PrimaryPrice      float64 `json:"primaryPrice"`
	SecondaryPrice    float64 `json:"secondaryPrice"`
	DifferencePercent float64 `json:"differencePercent"`
}

// ConsensusDetails is the URL-level breakdown of the reconciliation.
type ConsensusDetails struct {
	OnlyInPrimary      []string           `json:"onlyInPrimary"`
	OnlyInSecondary    []string           `json:"onlyInSecondary"`
	InBoth             []string           `json:"inBoth"`
	PriceDiscrepancies []PriceDiscrepancy `json:"priceDiscrepancies"`
}

// QualityMetrics are field-completeness percentages over the merged set.
type QualityMetrics struct {
	ImagePercent float64 `json:"imagePercent"`
	PricePercent float64 `json:"pricePercent"`
	BrandPercent float64 `json:"brandPercent"`
}

// ConsensusResult is the outcome of validating one store with two
// independent extraction passes. It exists only for the duration of a store
// addition and is discarded after its merged listings are folded in.
type ConsensusResult struct {
	Primary           PassResult       `json:"primary"`
	Secondary         PassResult       `json:"secondary"`
	DifferencePercent float64          `json:"differencePercent"`
	Status            ConsensusStatus  `json:"status"`
	Passed            bool             `json:"passed"`
	Merged            []RawListing     `json:"-"`
	MergedCount       int              `json:"mergedCount"`
	FromPrimary       int              `json:"fromPrimary"`
	FromSecondary     int              `json:"fromSecondary"`
	Warnings          []string         `json:"warnings"`
	Errors            []string         `json:"errors,omitempty"`
	Quality           QualityMetrics   `json:"qualityMetrics"`
	Details           ConsensusDetails `json:"details"`
}
