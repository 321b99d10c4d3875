package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrNoCatalogs means no allergen catalog could be loaded. Fatal at startup:
// the detector cannot run without one.
var ErrNoCatalogs = errors.New("no allergen catalog loaded")

// Registry holds all loaded catalogs and serves them to the detector.
// Loaded catalogs are read-only; Load/Reload swap the whole set atomically,
// so unsynchronized concurrent reads during request handling are safe.
type Registry struct {
	mu          sync.RWMutex
	catalogsDir string
	allergens   *Catalog
	weights     *WeightTable
	products    *ProductTable
	infos       []Info
}

// Info is the public metadata for one loaded catalog directory.
type Info struct {
	ID        string `json:"id"`
	Version   string `json:"version"`
	Kind      string `json:"kind"`
	Source    string `json:"source"`
	SourceURL string `json:"source_url,omitempty"`
	License   string `json:"license"`
	Entries   int    `json:"entries"`
}

// NewRegistry creates a new empty registry for the given directory.
func NewRegistry(catalogsDir string) *Registry {
	return &Registry{catalogsDir: catalogsDir}
}

// Load scans the catalogs directory and loads every catalog dir (a dir with
// a manifest.yaml). Allergen catalogs merge in sorted-id order, so the
// catalog iteration order that breaks score ties stays deterministic across
// reloads. Without at least one allergen entry, Load fails with ErrNoCatalogs.
func (r *Registry) Load() error {
	dirEntries, err := os.ReadDir(r.catalogsDir)
	if err != nil {
		return fmt.Errorf("read catalogs dir %s: %w", r.catalogsDir, err)
	}

	type loaded struct {
		id        string
		allergens *Catalog
		weights   *WeightTable
		products  *ProductTable
		info      Info
	}
	var all []loaded

	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		dir := filepath.Join(r.catalogsDir, de.Name())
		manifestPath := filepath.Join(dir, "manifest.yaml")
		if _, err := os.Stat(manifestPath); err != nil {
			continue
		}
		m, err := LoadManifest(manifestPath)
		if err != nil {
			return fmt.Errorf("load catalog %s: %w", de.Name(), err)
		}

		l := loaded{id: m.ID, info: Info{
			ID:        m.ID,
			Version:   m.Version,
			Kind:      m.Kind,
			Source:    m.Source,
			SourceURL: m.SourceURL,
			License:   m.License,
		}}
		switch m.Kind {
		case KindAllergens:
			c, err := LoadAllergens(dir)
			if err != nil {
				return fmt.Errorf("load catalog %s: %w", de.Name(), err)
			}
			l.allergens = c
			l.info.Entries = c.Len()
		case KindHarmful:
			t, err := LoadWeights(dir)
			if err != nil {
				return fmt.Errorf("load catalog %s: %w", de.Name(), err)
			}
			l.weights = t
			l.info.Entries = t.Len()
		case KindProducts:
			t, err := LoadProducts(dir)
			if err != nil {
				return fmt.Errorf("load catalog %s: %w", de.Name(), err)
			}
			l.products = t
			l.info.Entries = t.Len()
		}
		all = append(all, l)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })

	merged := New(&Manifest{ID: "active", Kind: KindAllergens, Format: FormatSpec{Normalize: "label"}})
	weights := NewWeightTable(&Manifest{ID: "active", Kind: KindHarmful, Format: FormatSpec{Normalize: "label"}})
	products := NewProductTable(&Manifest{ID: "active", Kind: KindProducts})
	infos := make([]Info, 0, len(all))

	for _, l := range all {
		infos = append(infos, l.info)
		switch {
		case l.allergens != nil:
			for _, e := range l.allergens.Entries() {
				if e.Display != "" {
					if merged.Manifest.DisplayNames == nil {
						merged.Manifest.DisplayNames = make(map[string]string)
					}
					merged.Manifest.DisplayNames[e.Key] = e.Display
				}
				merged.Add(e.Key, e.Synonyms...)
			}
		case l.weights != nil:
			for _, iw := range l.weights.Items() {
				// Duplicate ingredients across catalogs: first one wins.
				if err := weights.Add(iw.Ingredient, iw.Weight); err != nil {
					continue
				}
			}
		case l.products != nil:
			for _, code := range l.products.codes {
				p, _ := l.products.Lookup(code)
				products.Add(p)
			}
		}
	}

	// Re-attach display names collected during the merge.
	for i := range merged.entries {
		if merged.entries[i].Display == "" {
			merged.entries[i].Display = merged.Manifest.DisplayNames[merged.entries[i].Key]
		}
	}

	if merged.Len() == 0 {
		return ErrNoCatalogs
	}

	r.mu.Lock()
	r.allergens = merged
	r.weights = weights
	r.products = products
	r.infos = infos
	r.mu.Unlock()
	return nil
}

// Reload reloads all catalogs from disk (SIGHUP hot reload).
func (r *Registry) Reload() error {
	return r.Load()
}

// Allergens returns the merged allergen catalog.
func (r *Registry) Allergens() *Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.allergens
}

// Weights returns the merged harmful-ingredient table.
func (r *Registry) Weights() *WeightTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weights
}

// Products returns the merged product table.
func (r *Registry) Products() *ProductTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.products
}

// ListCatalogs returns metadata for all loaded catalog dirs, sorted by ID.
func (r *Registry) ListCatalogs() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, len(r.infos))
	copy(out, r.infos)
	return out
}

// AllergenCount returns the number of allergens in the merged catalog.
func (r *Registry) AllergenCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.allergens == nil {
		return 0
	}
	return r.allergens.Len()
}

// SynonymCount returns the total number of synonyms in the merged catalog.
func (r *Registry) SynonymCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.allergens == nil {
		return 0
	}
	return r.allergens.SynonymCount()
}
