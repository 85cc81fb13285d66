package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/snowdeal/backend/internal/domain"
)

// ConsensusConfig holds thresholds for the dual-pass validator.
type ConsensusConfig struct {
	// AutoMergeThreshold is the listing-count difference percent below
	// which the passes merge silently.
	AutoMergeThreshold float64
	// WarnThreshold is the difference percent below which the merge still
	// proceeds with a recorded warning; at or above it the result requires
	// explicit confirmation.
	WarnThreshold float64
	// SpotCheckLimit caps how many overlapping URLs get a price comparison.
	SpotCheckLimit int
	// PriceTolerancePercent is the sale-price disagreement that counts as
	// a discrepancy.
	PriceTolerancePercent float64
	// PassTimeout bounds each extraction pass.
	PassTimeout time.Duration
	// MinImagePercent / MinPricePercent are quality floors below which a
	// warning is recorded (status is unaffected).
	MinImagePercent float64
	MinPricePercent float64
}

func (c ConsensusConfig) withDefaults() ConsensusConfig {
	if c.AutoMergeThreshold <= 0 {
		c.AutoMergeThreshold = 10
	}
	if c.WarnThreshold <= 0 {
		c.WarnThreshold = 30
	}
	if c.SpotCheckLimit <= 0 {
		c.SpotCheckLimit = 20
	}
	if c.PriceTolerancePercent <= 0 {
		c.PriceTolerancePercent = 5
	}
	if c.PassTimeout <= 0 {
		c.PassTimeout = 2 * time.Minute
	}
	if c.MinImagePercent <= 0 {
		c.MinImagePercent = 50
	}
	if c.MinPricePercent <= 0 {
		c.MinPricePercent = 80
	}
	return c
}

// Validator cross-checks a store with two structurally different extraction
// passes and decides whether their merged output can be trusted.
type Validator struct {
	adapters map[domain.ExtractionMethod]domain.Adapter
	cfg      ConsensusConfig
	logger   *slog.Logger
}

// NewValidator creates a validator over the registered adapters.
func NewValidator(adapters map[domain.ExtractionMethod]domain.Adapter, cfg ConsensusConfig, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{adapters: adapters, cfg: cfg.withDefaults(), logger: logger}
}

// SecondaryMethod deterministically picks a different extraction method to
// cross-check the primary. The intent is a structurally different path, not
// a repeat: rendering primaries are checked by the high-accuracy rendering
// pass when available, plain fetches by rendering, and platform APIs by a
// plain fetch. Returns "" when no distinct adapter is registered.
func (v *Validator) SecondaryMethod(primary domain.ExtractionMethod) domain.ExtractionMethod {
	candidates := []domain.ExtractionMethod{}
	switch primary {
	case domain.MethodRendered:
		candidates = []domain.ExtractionMethod{domain.MethodRenderedHighAccuracy, domain.MethodHTTP}
	case domain.MethodRenderedHighAccuracy:
		candidates = []domain.ExtractionMethod{domain.MethodHTTP}
	case domain.MethodHTTP:
		candidates = []domain.ExtractionMethod{domain.MethodRendered, domain.MethodShopifyAPI}
	case domain.MethodShopifyAPI:
		candidates = []domain.ExtractionMethod{domain.MethodHTTP, domain.MethodRendered}
	}
	for _, m := range candidates {
		if _, ok := v.adapters[m]; ok && m != primary {
			return m
		}
	}
	return ""
}

// ValidateStore runs the primary and secondary passes concurrently, waits
// for both, and reconciles their outputs. A failed primary pass aborts with
// ErrStoreUnreachable; secondary failures degrade per the consensus rules
// and never panic out of the validator.
func (v *Validator) ValidateStore(ctx context.Context, store domain.StoreConfig) (*domain.ConsensusResult, error) {
	primaryMethod := store.Method
	primaryAdapter, ok := v.adapters[primaryMethod]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter for method %q", domain.ErrInvalidRequest, primaryMethod)
	}
	secondaryMethod := v.SecondaryMethod(primaryMethod)

	var (
		wg                       sync.WaitGroup
		primary, secondary       []domain.RawListing
		primaryErr, secondaryErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		primary, primaryErr = v.runPass(ctx, primaryAdapter, store)
	}()

	if secondaryMethod != "" {
		secondaryAdapter := v.adapters[secondaryMethod]
		wg.Add(1)
		go func() {
			defer wg.Done()
			secondary, secondaryErr = v.runPass(ctx, secondaryAdapter, store)
		}()
	}
	wg.Wait()

	if primaryErr != nil {
		return nil, fmt.Errorf("%w: primary pass (%s): %v", domain.ErrStoreUnreachable, primaryMethod, primaryErr)
	}

	result := &domain.ConsensusResult{
		Primary:  domain.PassResult{Method: primaryMethod, Count: len(primary), Listings: primary},
		Warnings: []string{},
	}

	if secondaryMethod == "" {
		result.Secondary = domain.PassResult{}
		result.Status = domain.StatusSkippedSingleSource
		result.Passed = true
		result.Merged = primary
		result.MergedCount = len(primary)
		result.FromPrimary = len(primary)
		result.Warnings = append(result.Warnings, "no secondary extraction method available; accepted primary pass without cross-check")
		result.Quality = computeQuality(primary)
		return result, nil
	}

	if secondaryErr != nil {
		if errors.Is(secondaryErr, context.DeadlineExceeded) {
			// A timed-out secondary is a zero-result secondary, not a
			// fatal failure of the store addition.
			secondary = nil
			result.Warnings = append(result.Warnings, fmt.Sprintf("secondary pass (%s) timed out; treated as empty", secondaryMethod))
		} else {
			v.logger.Error("secondary pass failed", "store", store.ID, "method", string(secondaryMethod), "error", secondaryErr)
			result.Secondary = domain.PassResult{Method: secondaryMethod}
			result.Status = domain.StatusError
			result.Passed = false
			result.Errors = []string{fmt.Sprintf("secondary pass (%s): %v", secondaryMethod, secondaryErr)}
			return result, nil
		}
	}

	result.Secondary = domain.PassResult{Method: secondaryMethod, Count: len(secondary), Listings: secondary}

	// Rendering special case: a non-rendering cross-check that sees nothing
	// where a rendering primary saw listings means the site requires
	// rendering, not that the passes disagree.
	if primaryMethod.RequiresRendering() && !secondaryMethod.RequiresRendering() &&
		len(secondary) == 0 && len(primary) > 0 {
		result.Status = domain.StatusSkippedSingleSource
		result.Passed = true
		result.Merged = primary
		result.MergedCount = len(primary)
		result.FromPrimary = len(primary)
		result.Warnings = append(result.Warnings, "site requires JavaScript rendering; accepted rendering pass without cross-check")
		result.Quality = computeQuality(primary)
		return result, nil
	}

	v.reconcile(result, primary, secondary)
	return result, nil
}

// runPass executes one extraction pass under the configured timeout,
// converting panics into errors.
func (v *Validator) runPass(ctx context.Context, adapter domain.Adapter, store domain.StoreConfig) (listings []domain.RawListing, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction pass panicked: %v", r)
		}
	}()
	passCtx, cancel := context.WithTimeout(ctx, v.cfg.PassTimeout)
	defer cancel()
	return adapter.Fetch(passCtx, store)
}

// reconcile diffs the two listing sets by product URL, merges them with
// field-level gap filling, classifies the divergence severity, and computes
// the quality metrics.
func (v *Validator) reconcile(result *domain.ConsensusResult, primary, secondary []domain.RawListing) {
	primaryByURL := indexByURL(primary)
	secondaryByURL := indexByURL(secondary)

	var onlyPrimary, onlySecondary, inBoth []string
	for _, l := range primary {
		if _, ok := secondaryByURL[l.ProductURL]; ok {
			inBoth = append(inBoth, l.ProductURL)
		} else {
			onlyPrimary = append(onlyPrimary, l.ProductURL)
		}
	}
	for _, l := range secondary {
		if _, ok := primaryByURL[l.ProductURL]; !ok {
			onlySecondary = append(onlySecondary, l.ProductURL)
		}
	}

	// Union keeps primary order, then secondary-only. Primary wins on
	// conflicting fields; secondary only fills gaps.
	merged := make([]domain.RawListing, 0, len(primary)+len(onlySecondary))
	seen := make(map[string]bool, len(primary))
	for _, l := range primary {
		if seen[l.ProductURL] {
			continue
		}
		seen[l.ProductURL] = true
		if other, ok := secondaryByURL[l.ProductURL]; ok {
			l = fillGaps(l, other)
		}
		merged = append(merged, l)
	}
	for _, l := range secondary {
		if seen[l.ProductURL] {
			continue
		}
		seen[l.ProductURL] = true
		merged = append(merged, l)
	}

	result.Merged = merged
	result.MergedCount = len(merged)
	result.FromPrimary = len(primary)
	result.FromSecondary = len(onlySecondary)
	result.DifferencePercent = differencePercent(len(primary), len(secondary))
	result.Details = domain.ConsensusDetails{
		OnlyInPrimary:      onlyPrimary,
		OnlyInSecondary:    onlySecondary,
		InBoth:             inBoth,
		PriceDiscrepancies: v.spotCheckPrices(inBoth, primaryByURL, secondaryByURL),
	}

	switch {
	case result.DifferencePercent < v.cfg.AutoMergeThreshold:
		result.Status = domain.StatusAutoMerged
		result.Passed = true
	case result.DifferencePercent < v.cfg.WarnThreshold:
		result.Status = domain.StatusMergedWithWarning
		result.Passed = true
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"extraction passes differ by %.1f%% (%s: %d, %s: %d)",
			result.DifferencePercent, result.Primary.Method, len(primary), result.Secondary.Method, len(secondary)))
	default:
		result.Status = domain.StatusRequiresConfirmation
		result.Passed = false
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"extraction passes differ by %.1f%%; confirmation required before the merge is applied",
			result.DifferencePercent))
	}

	for _, d := range result.Details.PriceDiscrepancies {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"price mismatch at %s: %.2f vs %.2f (%.1f%%)",
			d.ProductURL, d.PrimaryPrice, d.SecondaryPrice, d.DifferencePercent))
	}

	result.Quality = computeQuality(merged)
	if result.Quality.ImagePercent < v.cfg.MinImagePercent {
		result.Warnings = append(result.Warnings, fmt.Sprintf("only %.0f%% of merged listings have a usable image", result.Quality.ImagePercent))
	}
	if result.Quality.PricePercent < v.cfg.MinPricePercent {
		result.Warnings = append(result.Warnings, fmt.Sprintf("only %.0f%% of merged listings have a price", result.Quality.PricePercent))
	}
}

// spotCheckPrices compares sale prices for overlapping URLs, up to the
// configured limit, and records entries that disagree beyond tolerance.
func (v *Validator) spotCheckPrices(inBoth []string, primary, secondary map[string]domain.RawListing) []domain.PriceDiscrepancy {
	urls := append([]string(nil), inBoth...)
	sort.Strings(urls)
	if len(urls) > v.cfg.SpotCheckLimit {
		urls = urls[:v.cfg.SpotCheckLimit]
	}

	var discrepancies []domain.PriceDiscrepancy
	for _, u := range urls {
		p, s := primary[u], secondary[u]
		if p.SalePrice == nil || s.SalePrice == nil {
			continue
		}
		a, b := *p.SalePrice, *s.SalePrice
		max := a
		if b > max {
			max = b
		}
		if max <= 0 {
			continue
		}
		diff := (a - b) / max * 100
		if diff < 0 {
			diff = -diff
		}
		if diff > v.cfg.PriceTolerancePercent {
			discrepancies = append(discrepancies, domain.PriceDiscrepancy{
				ProductURL:        u,
				PrimaryPrice:      a,
				SecondaryPrice:    b,
				DifferencePercent: diff,
			})
		}
	}
	return discrepancies
}

// differencePercent is (max-min)/max*100 over the two pass counts, and 0
// when both passes were empty.
func differencePercent(a, b int) float64 {
	max, min := a, b
	if b > a {
		max, min = b, a
	}
	if max == 0 {
		return 0
	}
	return float64(max-min) / float64(max) * 100
}

// fillGaps backfills null or unknown fields on the primary listing from the
// secondary observation of the same URL. Primary's non-null values are
// never overwritten.
func fillGaps(primary, secondary domain.RawListing) domain.RawListing {
	if !primary.HasKnownBrand() && secondary.HasKnownBrand() {
		primary.Brand = secondary.Brand
	}
	if primary.Name == "" {
		primary.Name = secondary.Name
	}
	if primary.SalePrice == nil {
		primary.SalePrice = secondary.SalePrice
	}
	if primary.OriginalPrice == nil {
		primary.OriginalPrice = secondary.OriginalPrice
	}
	if primary.PriceJPY == nil {
		primary.PriceJPY = secondary.PriceJPY
	}
	if primary.Discount == nil {
		primary.Discount = secondary.Discount
	}
	if primary.ImageURL == "" {
		primary.ImageURL = secondary.ImageURL
	}
	for k, val := range secondary.Meta {
		if primary.MetaValue(k) == "" && val != "" {
			if primary.Meta == nil {
				primary.Meta = map[string]string{}
			}
			primary.Meta[k] = val
		}
	}
	return primary
}

// computeQuality measures field completeness over a listing set.
func computeQuality(listings []domain.RawListing) domain.QualityMetrics {
	if len(listings) == 0 {
		return domain.QualityMetrics{}
	}
	var images, prices, brands int
	for _, l := range listings {
		if hasUsableImage(l.ImageURL) {
			images++
		}
		if l.SalePrice != nil {
			prices++
		}
		if l.HasKnownBrand() {
			brands++
		}
	}
	total := float64(len(listings))
	return domain.QualityMetrics{
		ImagePercent: float64(images) / total * 100,
		PricePercent: float64(prices) / total * 100,
		BrandPercent: float64(brands) / total * 100,
	}
}

// hasUsableImage rejects empty URLs and the placeholder images some
// storefronts serve for missing photos.
func hasUsableImage(url string) bool {
	if url == "" {
		return false
	}
	lower := strings.ToLower(url)
	if strings.Contains(lower, "no-image") || strings.Contains(lower, "placeholder") {
		return false
	}
	return !strings.HasSuffix(lower, ".gif")
}

func indexByURL(listings []domain.RawListing) map[string]domain.RawListing {
	m := make(map[string]domain.RawListing, len(listings))
	for _, l := range listings {
		if _, ok := m[l.ProductURL]; !ok {
			m[l.ProductURL] = l
		}
	}
	return m
}
