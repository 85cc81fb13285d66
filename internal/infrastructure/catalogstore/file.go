package catalogstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/snowdeal/backend/internal/domain"
)

const (
	catalogFile        = "catalog.json"
	customStoresFile   = "custom-stores.json"
	classificationFile = "classification.json"
)

// FileStore persists the catalog, custom stores, and classification state as
// JSON documents under one data directory. Every write goes through a temp
// file and rename, so readers never observe a half-written document.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates the data directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Load reads the catalog document, returning an empty normalized snapshot
// when none has been written yet.
func (s *FileStore) Load(ctx context.Context) (*domain.CatalogSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snapshot domain.CatalogSnapshot
	if err := s.readJSON(catalogFile, &snapshot); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			snapshot.Normalize()
			return &snapshot, nil
		}
		return nil, err
	}
	snapshot.Normalize()
	return &snapshot, nil
}

// Replace atomically swaps in a new catalog document.
func (s *FileStore) Replace(ctx context.Context, snapshot *domain.CatalogSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(catalogFile, snapshot)
}

// Exists reports whether a catalog document has ever been written.
func (s *FileStore) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := os.Stat(filepath.Join(s.dir, catalogFile))
	return err == nil
}

// CustomStores returns the persisted custom-store registry, empty when the
// file does not exist.
func (s *FileStore) CustomStores(ctx context.Context) (map[string]domain.StoreConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stores := map[string]domain.StoreConfig{}
	if err := s.readJSON(customStoresFile, &stores); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return stores, nil
}

// SaveCustomStores replaces the custom-store registry.
func (s *FileStore) SaveCustomStores(ctx context.Context, stores map[string]domain.StoreConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(customStoresFile, stores)
}

// classificationState is the on-disk shape of manual overrides and learned
// keywords.
type classificationState struct {
	Overrides       map[string]string   `json:"overrides"`
	LearnedKeywords map[string][]string `json:"learnedKeywords"`
}

func (s *FileStore) loadClassification() (classificationState, error) {
	state := classificationState{
		Overrides:       map[string]string{},
		LearnedKeywords: map[string][]string{},
	}
	if err := s.readJSON(classificationFile, &state); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return state, err
	}
	if state.Overrides == nil {
		state.Overrides = map[string]string{}
	}
	if state.LearnedKeywords == nil {
		state.LearnedKeywords = map[string][]string{}
	}
	return state, nil
}

// Overrides returns the manual category overrides keyed by canonical key.
func (s *FileStore) Overrides(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.loadClassification()
	if err != nil {
		return nil, err
	}
	return state.Overrides, nil
}

// SetOverride records a manual category override.
func (s *FileStore) SetOverride(ctx context.Context, key, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadClassification()
	if err != nil {
		return err
	}
	state.Overrides[key] = category
	return s.writeJSON(classificationFile, state)
}

// LearnedKeywords returns the operator-supplied keyword lists per category.
func (s *FileStore) LearnedKeywords(ctx context.Context) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, err := s.loadClassification()
	if err != nil {
		return nil, err
	}
	return state.LearnedKeywords, nil
}

// AddLearnedKeyword appends a keyword to a category's learned list, skipping
// duplicates.
func (s *FileStore) AddLearnedKeyword(ctx context.Context, category, keyword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadClassification()
	if err != nil {
		return err
	}
	for _, kw := range state.LearnedKeywords[category] {
		if kw == keyword {
			return nil
		}
	}
	state.LearnedKeywords[category] = append(state.LearnedKeywords[category], keyword)
	return s.writeJSON(classificationFile, state)
}

func (s *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
