package catalog

import (
	"encoding/gob"
	"fmt"
	"os"
)

// The gob payload is the ordered entry slice, so catalog order survives the
// round trip (a map would not preserve it).

// loadGob deserializes entries from a gob-encoded file into the catalog.
func (c *Catalog) loadGob(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open gob file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		return fmt.Errorf("decode gob: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("gob file %s: no entries", path)
	}

	c.entries = entries
	c.index = make(map[string]int, len(entries))
	for i, e := range entries {
		c.index[e.Key] = i
	}
	return nil
}

// SaveGob serializes entries to a gob-encoded file at path. Importers call
// this after building a catalog; terms must already be normalized.
func SaveGob(entries []Entry, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create gob file: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(entries); err != nil {
		return fmt.Errorf("encode gob: %w", err)
	}
	return nil
}
