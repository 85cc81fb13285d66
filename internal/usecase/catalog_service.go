package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/snowdeal/backend/internal/domain"
)

// CatalogServiceConfig holds orchestration settings for catalog operations.
type CatalogServiceConfig struct {
	// Workers bounds how many stores are fetched concurrently during a
	// catalog-wide refresh.
	Workers int
	// AllowedCategories is the publish allow-list; products holding none of
	// these categories stay in the raw store only.
	AllowedCategories []string
	// PreviewSize caps the sample listings returned with add-store results.
	PreviewSize int
	// PendingTTL is how long a confirmation-required preview stays
	// confirmable before it expires.
	PendingTTL time.Duration
}

// Progress is the shared progress-reporting structure. It is updated under
// the service mutex and read as a snapshot copy.
type Progress struct {
	IsRunning        bool      `json:"isRunning"`
	OperationID      string    `json:"operationId,omitempty"`
	CurrentStore     string    `json:"currentStore"`
	CurrentStoreName string    `json:"currentStoreName"`
	StoreIndex       int       `json:"storeIndex"`
	TotalStores      int       `json:"totalStores"`
	ProductsFound    int       `json:"productsFound"`
	StartedAt        time.Time `json:"startedAt,omitempty"`
	Message          string    `json:"message"`
}

// AddStoreResult is the structured outcome of a store addition: either an
// applied store with its consensus, or a confirmation-required preview.
type AddStoreResult struct {
	RequiresConfirmation bool                    `json:"requiresConfirmation,omitempty"`
	PendingID            string                  `json:"pendingId,omitempty"`
	Store                domain.StoreConfig      `json:"store"`
	ProductCount         int                     `json:"productCount"`
	Consensus            *domain.ConsensusResult `json:"validation,omitempty"`
	Preview              []domain.RawListing     `json:"preview,omitempty"`
}

type pendingStore struct {
	store     domain.StoreConfig
	consensus *domain.ConsensusResult
	createdAt time.Time
}

// CatalogService orchestrates the reconciliation pipeline: store addition
// behind consensus validation, catalog-wide refresh, removal, and manual
// classification. Mutating operations are guarded so overlapping
// invocations are rejected instead of interleaving catalog writes.
type CatalogService struct {
	catalog   domain.CatalogRepository
	stores    domain.StoreRepository
	classes   domain.ClassificationRepository
	adapters  map[domain.ExtractionMethod]domain.Adapter
	validator *Validator
	cfg       CatalogServiceConfig
	logger    *slog.Logger

	mu          sync.Mutex
	refreshing  bool
	addingStore bool
	progress    Progress
	pending     map[string]pendingStore
}

// NewCatalogService wires the service with its repositories and adapters.
func NewCatalogService(
	catalog domain.CatalogRepository,
	stores domain.StoreRepository,
	classes domain.ClassificationRepository,
	adapters map[domain.ExtractionMethod]domain.Adapter,
	validator *Validator,
	cfg CatalogServiceConfig,
	logger *slog.Logger,
) *CatalogService {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.PreviewSize <= 0 {
		cfg.PreviewSize = 5
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{
		catalog:   catalog,
		stores:    stores,
		classes:   classes,
		adapters:  adapters,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
		pending:   map[string]pendingStore{},
	}
}

// Snapshot returns the current catalog document.
func (s *CatalogService) Snapshot(ctx context.Context) (*domain.CatalogSnapshot, error) {
	return s.catalog.Load(ctx)
}

// Stores lists built-in and custom stores, ordered by id.
func (s *CatalogService) Stores(ctx context.Context) ([]domain.StoreConfig, error) {
	all, err := s.allStores(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	list := make([]domain.StoreConfig, 0, len(all))
	for _, id := range ids {
		list = append(list, all[id])
	}
	return list, nil
}

// Progress returns a copy of the progress structure.
func (s *CatalogService) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// CatalogExists reports whether a catalog document has been written yet.
func (s *CatalogService) CatalogExists() bool {
	return s.catalog.Exists()
}

// Busy reports whether a refresh or store addition is in flight.
func (s *CatalogService) Busy() (refreshing, addingStore bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshing, s.addingStore
}

// AddStore validates a new store with two extraction passes and, when
// consensus allows, folds its listings into the catalog. A high divergence
// returns a confirmation-required preview instead of mutating anything;
// force skips that hold.
func (s *CatalogService) AddStore(ctx context.Context, rawURL, customName string, force bool) (*AddStoreResult, error) {
	if err := s.begin(&s.addingStore); err != nil {
		return nil, err
	}
	defer s.end(&s.addingStore)

	store, err := s.deriveStoreConfig(rawURL, customName)
	if err != nil {
		return nil, err
	}

	s.setProgress(Progress{
		IsRunning:        true,
		OperationID:      uuid.NewString(),
		CurrentStore:     store.ID,
		CurrentStoreName: store.Name,
		TotalStores:      1,
		StartedAt:        time.Now(),
		Message:          fmt.Sprintf("validating %s with two extraction passes", store.Name),
	})
	defer s.clearProgress()

	consensus, err := s.validator.ValidateStore(ctx, store)
	if err != nil {
		return nil, err
	}

	// A plain fetch that saw nothing may simply mean the site needs
	// rendering; retry once with a rendering primary when available.
	if consensus.Status != domain.StatusError && len(consensus.Merged) == 0 &&
		!store.Method.RequiresRendering() {
		if _, ok := s.adapters[domain.MethodRendered]; ok {
			store.Method = domain.MethodRendered
			consensus, err = s.validator.ValidateStore(ctx, store)
			if err != nil {
				return nil, err
			}
		}
	}

	if consensus.Status == domain.StatusError {
		return nil, fmt.Errorf("%w: %s", domain.ErrStoreUnreachable, strings.Join(consensus.Errors, "; "))
	}
	if len(consensus.Merged) == 0 {
		return nil, domain.ErrNoListings
	}

	if consensus.Status == domain.StatusRequiresConfirmation && !force {
		id := uuid.NewString()
		s.mu.Lock()
		for held, p := range s.pending {
			if time.Since(p.createdAt) > s.cfg.PendingTTL {
				delete(s.pending, held)
			}
		}
		s.pending[id] = pendingStore{store: store, consensus: consensus, createdAt: time.Now()}
		s.mu.Unlock()
		return &AddStoreResult{
			RequiresConfirmation: true,
			PendingID:            id,
			Store:                store,
			ProductCount:         len(consensus.Merged),
			Consensus:            consensus,
			Preview:              s.preview(consensus.Merged),
		}, nil
	}

	return s.applyStoreAddition(ctx, store, consensus)
}

// ConfirmStore applies a previously held consensus preview.
func (s *CatalogService) ConfirmStore(ctx context.Context, pendingID string) (*AddStoreResult, error) {
	if err := s.begin(&s.addingStore); err != nil {
		return nil, err
	}
	defer s.end(&s.addingStore)

	s.mu.Lock()
	held, ok := s.pending[pendingID]
	if ok {
		delete(s.pending, pendingID)
	}
	s.mu.Unlock()
	if !ok || time.Since(held.createdAt) > s.cfg.PendingTTL {
		return nil, domain.ErrNoPendingConsensus
	}
	return s.applyStoreAddition(ctx, held.store, held.consensus)
}

// RemoveStore deletes a custom store and rebuilds the catalog without its
// listings. Built-in stores cannot be removed.
func (s *CatalogService) RemoveStore(ctx context.Context, id string) error {
	if _, builtin := domain.BuiltInStores()[id]; builtin {
		return domain.ErrBuiltinStore
	}

	custom, err := s.stores.CustomStores(ctx)
	if err != nil {
		return err
	}
	if _, ok := custom[id]; !ok {
		return domain.ErrStoreNotFound
	}
	delete(custom, id)
	if err := s.stores.SaveCustomStores(ctx, custom); err != nil {
		return err
	}

	snapshot, err := s.catalog.Load(ctx)
	if err != nil {
		return err
	}
	kept := snapshot.RawProducts[:0:0]
	for _, l := range snapshot.RawProducts {
		if l.Store != id {
			kept = append(kept, l)
		}
	}

	rebuilt, err := s.rebuildSnapshot(ctx, kept)
	if err != nil {
		return err
	}
	return s.catalog.Replace(ctx, rebuilt)
}

// RefreshAll re-extracts every requested store (all stores when ids is
// empty) with bounded concurrency, then recomputes and atomically swaps in
// the whole catalog. A store-level extraction failure is logged and skipped;
// it never aborts the refresh.
func (s *CatalogService) RefreshAll(ctx context.Context, ids []string) (*domain.CatalogSnapshot, error) {
	if err := s.begin(&s.refreshing); err != nil {
		return nil, err
	}
	defer s.end(&s.refreshing)

	all, err := s.allStores(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		for id := range all {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	opID := uuid.NewString()
	s.setProgress(Progress{
		IsRunning:   true,
		OperationID: opID,
		TotalStores: len(ids),
		StartedAt:   time.Now(),
		Message:     "refresh started",
	})
	defer s.clearProgress()

	var (
		collectMu sync.Mutex
		collected []domain.RawListing
		done      int
	)

	jobs := make(chan domain.StoreConfig)
	var wg sync.WaitGroup
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for store := range jobs {
				listings := s.fetchStore(ctx, store)
				collectMu.Lock()
				collected = append(collected, listings...)
				done++
				s.updateProgress(func(p *Progress) {
					p.CurrentStore = store.ID
					p.CurrentStoreName = store.Name
					p.StoreIndex = done
					p.ProductsFound = len(collected)
					p.Message = fmt.Sprintf("fetched %s (%d/%d)", store.Name, done, len(ids))
				})
				collectMu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		store, ok := all[id]
		if !ok {
			s.logger.Warn("skipping unknown store", "store", id)
			continue
		}
		select {
		case jobs <- store:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot, err := s.rebuildSnapshot(ctx, dedupeListings(collected))
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Replace(ctx, snapshot); err != nil {
		return nil, err
	}
	s.logger.Info("catalog refreshed",
		"operation", opID,
		"rawProducts", snapshot.TotalRawProducts,
		"products", snapshot.TotalProducts)
	return snapshot, nil
}

// Classify records a manual category override for a canonical key and
// patches the published product in place. The override persists across
// re-classification runs whether or not the product is currently published.
func (s *CatalogService) Classify(ctx context.Context, key, category string) error {
	if key == "" || !validCategory(category) {
		return domain.ErrInvalidRequest
	}
	if err := s.classes.SetOverride(ctx, key, category); err != nil {
		return err
	}

	snapshot, err := s.catalog.Load(ctx)
	if err != nil {
		return err
	}
	for i := range snapshot.Products {
		if snapshot.Products[i].Key == key {
			snapshot.Products[i].Categories = []string{category}
			// An override out of the allow-list unpublishes the product now,
			// not on the next rebuild.
			snapshot.Products = FilterPublishable(snapshot.Products, s.cfg.AllowedCategories)
			snapshot.TotalProducts = len(snapshot.Products)
			return s.catalog.Replace(ctx, snapshot)
		}
	}
	return nil
}

// LearnKeyword adds an operator-supplied keyword to a category's learned
// list. Learned keywords are additive and never override manual
// classification.
func (s *CatalogService) LearnKeyword(ctx context.Context, category, keyword string) error {
	if keyword == "" || !validCategory(category) {
		return domain.ErrInvalidRequest
	}
	return s.classes.AddLearnedKeyword(ctx, category, keyword)
}

func (s *CatalogService) applyStoreAddition(ctx context.Context, store domain.StoreConfig, consensus *domain.ConsensusResult) (*AddStoreResult, error) {
	custom, err := s.stores.CustomStores(ctx)
	if err != nil {
		return nil, err
	}
	custom[store.ID] = store
	if err := s.stores.SaveCustomStores(ctx, custom); err != nil {
		return nil, err
	}

	snapshot, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	raw := make([]domain.RawListing, 0, len(snapshot.RawProducts)+len(consensus.Merged))
	for _, l := range snapshot.RawProducts {
		if l.Store != store.ID {
			raw = append(raw, l)
		}
	}
	raw = append(raw, consensus.Merged...)

	rebuilt, err := s.rebuildSnapshot(ctx, dedupeListings(raw))
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Replace(ctx, rebuilt); err != nil {
		return nil, err
	}

	s.logger.Info("store added",
		"store", store.ID,
		"listings", len(consensus.Merged),
		"status", string(consensus.Status))
	return &AddStoreResult{
		Store:        store,
		ProductCount: len(consensus.Merged),
		Consensus:    consensus,
		Preview:      s.preview(consensus.Merged),
	}, nil
}

// rebuildSnapshot recomputes the whole catalog document from a raw-listing
// set. The rebuild is a pure function of its input plus the persisted
// classification state.
func (s *CatalogService) rebuildSnapshot(ctx context.Context, raw []domain.RawListing) (*domain.CatalogSnapshot, error) {
	overrides, err := s.classes.Overrides(ctx)
	if err != nil {
		return nil, err
	}
	learned, err := s.classes.LearnedKeywords(ctx)
	if err != nil {
		return nil, err
	}

	merger := NewMerger(NewClassifier(overrides, learned), s.logger)
	products := FilterPublishable(merger.Merge(raw), s.cfg.AllowedCategories)

	all, err := s.allStores(ctx)
	if err != nil {
		return nil, err
	}
	infos := make([]domain.StoreInfo, 0, len(all))
	for _, store := range all {
		infos = append(infos, store.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	snapshot := &domain.CatalogSnapshot{
		LastUpdated:      time.Now().UTC(),
		TotalRawProducts: len(raw),
		TotalProducts:    len(products),
		Stores:           infos,
		ExchangeRates:    ExchangeRates,
		Products:         products,
		RawProducts:      raw,
	}
	snapshot.Normalize()
	return snapshot, nil
}

func (s *CatalogService) fetchStore(ctx context.Context, store domain.StoreConfig) []domain.RawListing {
	adapter, ok := s.adapters[store.Method]
	if !ok {
		adapter, ok = s.adapters[domain.MethodHTTP]
	}
	if !ok {
		s.logger.Warn("no adapter for store", "store", store.ID, "method", string(store.Method))
		return nil
	}
	listings, err := adapter.Fetch(ctx, store)
	if err != nil {
		s.logger.Warn("store fetch failed", "store", store.ID, "error", err)
		return nil
	}
	return listings
}

// deriveStoreConfig builds a custom store config from a listing-page URL:
// id from the hostname, currency guessed from the domain, and the platform
// JSON API as primary method for collection URLs.
func (s *CatalogService) deriveStoreConfig(rawURL, customName string) (domain.StoreConfig, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return domain.StoreConfig{}, fmt.Errorf("%w: invalid store url", domain.ErrInvalidRequest)
	}

	host := strings.ToLower(parsed.Hostname())
	id := strings.TrimPrefix(strings.ReplaceAll(host, ".", "-"), "www-")

	name := customName
	if name == "" {
		name = strings.TrimPrefix(host, "www.")
		if i := strings.Index(name, "."); i > 0 {
			name = name[:i]
		}
		if name != "" {
			name = strings.ToUpper(name[:1]) + name[1:]
		}
	}

	currency := currencyForDomain(host)
	method := domain.MethodHTTP
	if strings.Contains(parsed.Path, "/collections/") {
		method = domain.MethodShopifyAPI
	}

	return domain.StoreConfig{
		ID:       id,
		Name:     name,
		Country:  countryForCurrency(currency),
		Currency: currency,
		BaseURL:  rawURL,
		Type:     "custom",
		Method:   method,
		AddedAt:  time.Now().UTC(),
	}, nil
}

func currencyForDomain(host string) string {
	switch {
	case strings.HasSuffix(host, ".jp") || strings.Contains(host, "base.shop"):
		return "JPY"
	case strings.HasSuffix(host, ".ca"):
		return "CAD"
	case strings.HasSuffix(host, ".au"):
		return "AUD"
	case strings.HasSuffix(host, ".uk"):
		return "GBP"
	case strings.HasSuffix(host, ".eu"), strings.HasSuffix(host, ".de"), strings.HasSuffix(host, ".fr"):
		return "EUR"
	case strings.HasSuffix(host, ".tw"):
		return "TWD"
	default:
		return "USD"
	}
}

func countryForCurrency(currency string) string {
	switch currency {
	case "JPY":
		return "JP"
	case "CAD":
		return "CA"
	case "AUD":
		return "AU"
	case "GBP":
		return "UK"
	case "EUR":
		return "EU"
	case "TWD":
		return "TW"
	default:
		return "US"
	}
}

func (s *CatalogService) allStores(ctx context.Context) (map[string]domain.StoreConfig, error) {
	custom, err := s.stores.CustomStores(ctx)
	if err != nil {
		return nil, err
	}
	all := domain.BuiltInStores()
	for id, store := range custom {
		all[id] = store
	}
	return all, nil
}

func (s *CatalogService) preview(listings []domain.RawListing) []domain.RawListing {
	if len(listings) <= s.cfg.PreviewSize {
		return listings
	}
	return listings[:s.cfg.PreviewSize]
}

func (s *CatalogService) begin(guard *bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *guard {
		return domain.ErrOperationInProgress
	}
	*guard = true
	return nil
}

func (s *CatalogService) end(guard *bool) {
	s.mu.Lock()
	*guard = false
	s.mu.Unlock()
}

func (s *CatalogService) setProgress(p Progress) {
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()
}

func (s *CatalogService) updateProgress(update func(*Progress)) {
	s.mu.Lock()
	update(&s.progress)
	s.mu.Unlock()
}

func (s *CatalogService) clearProgress() {
	s.mu.Lock()
	s.progress = Progress{Message: "idle"}
	s.mu.Unlock()
}

// dedupeListings enforces the (store, productUrl) uniqueness invariant
// across passes, keeping the first observation.
func dedupeListings(listings []domain.RawListing) []domain.RawListing {
	seen := make(map[string]bool, len(listings))
	out := make([]domain.RawListing, 0, len(listings))
	for _, l := range listings {
		key := l.Store + "|" + l.ProductURL
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}

func validCategory(category string) bool {
	switch category {
	case domain.CategorySnowboard, domain.CategorySki, domain.CategoryBinding,
		domain.CategoryBoots, domain.CategoryHelmet, domain.CategoryGoggle,
		domain.CategoryWear, domain.CategoryAccessory, domain.CategoryUncategorized:
		return true
	}
	return false
}
