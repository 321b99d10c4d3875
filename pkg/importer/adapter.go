// Package importer turns external data sources into catalog directories
// that the registry can load.
package importer

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Adapter defines a data source importer that downloads, transforms, and
// writes a catalog directory.
type Adapter interface {
	// ID returns the unique identifier of this adapter (e.g. "off-allergens").
	ID() string
	// CatalogID returns the target catalog ID (e.g. "allergens-off").
	CatalogID() string
	// Description returns a human-readable description.
	Description() string
	// DefaultURL returns the default source URL used for seeding the database.
	// Empty for embedded sources.
	DefaultURL() string
	// License returns the license identifier for this source (e.g. "CC0", "ODbL").
	License() string
	// Import fetches the source from sourceURL, transforms it, and writes
	// data + manifest.yaml into a subdirectory of outputDir named after
	// CatalogID().
	Import(ctx context.Context, sourceURL, outputDir string) error
}

var registry = struct {
	sync.RWMutex
	byID map[string]Adapter
}{byID: make(map[string]Adapter)}

// Register adds an adapter to the package registry. Adapters register
// themselves from init.
func Register(a Adapter) {
	registry.Lock()
	defer registry.Unlock()
	registry.byID[a.ID()] = a
}

// Get returns a registered adapter by ID.
func Get(id string) (Adapter, error) {
	registry.RLock()
	defer registry.RUnlock()
	a, ok := registry.byID[id]
	if !ok {
		return nil, fmt.Errorf("unknown import source: %q", id)
	}
	return a, nil
}

// All returns the registered adapters sorted by ID.
func All() []Adapter {
	registry.RLock()
	defer registry.RUnlock()
	out := make([]Adapter, 0, len(registry.byID))
	for _, a := range registry.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
