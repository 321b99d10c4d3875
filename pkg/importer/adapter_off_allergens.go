package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nafeeshossain/allergen-detector/pkg/catalog"
)

func init() {
	Register(&offAllergensAdapter{})
}

// offAllergensAdapter imports the Open Food Facts allergens taxonomy.
// The taxonomy maps language-prefixed keys ("en:milk") to localized
// names and synonym lists; only English entries are kept.
type offAllergensAdapter struct{}

func (a *offAllergensAdapter) ID() string          { return "off-allergens" }
func (a *offAllergensAdapter) CatalogID() string   { return "allergens-off" }
func (a *offAllergensAdapter) Description() string { return "Open Food Facts allergens taxonomy (English entries)" }
func (a *offAllergensAdapter) DefaultURL() string {
	return "https://static.openfoodfacts.org/data/taxonomies/allergens.json"
}
func (a *offAllergensAdapter) License() string { return "ODbL" }

// offTaxon is one taxonomy node.
type offTaxon struct {
	Name     map[string]string   `json:"name"`
	Synonyms map[string][]string `json:"synonyms"`
}

func (a *offAllergensAdapter) Import(ctx context.Context, sourceURL, outputDir string) error {
	dlDir := filepath.Join(outputDir, "_download")
	if err := ensureDir(dlDir); err != nil {
		return err
	}
	defer os.RemoveAll(dlDir)

	jsonPath := filepath.Join(dlDir, "allergens.json")
	if err := downloadFile(ctx, sourceURL, jsonPath); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return err
	}
	var taxonomy map[string]offTaxon
	if err := json.Unmarshal(data, &taxonomy); err != nil {
		return fmt.Errorf("parse taxonomy: %w", err)
	}

	keys := make([]string, 0, len(taxonomy))
	for k := range taxonomy {
		if strings.HasPrefix(k, "en:") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	displayNames := make(map[string]string)
	entries := make([]catalog.Entry, 0, len(keys))
	for _, k := range keys {
		taxon := taxonomy[k]
		key := strings.ReplaceAll(strings.TrimPrefix(k, "en:"), "-", "_")

		seen := make(map[string]bool)
		var syns []catalog.Synonym
		add := func(term string) {
			term = catalog.NormalizeLabel(term)
			if term == "" || seen[term] {
				return
			}
			seen[term] = true
			syns = append(syns, catalog.Synonym{Term: term})
		}
		add(taxon.Name["en"])
		for _, s := range taxon.Synonyms["en"] {
			add(s)
		}
		if len(syns) == 0 {
			continue
		}

		if name := taxon.Name["en"]; name != "" {
			displayNames[key] = name
		}
		entries = append(entries, catalog.Entry{
			Key:      key,
			Display:  displayNames[key],
			Synonyms: syns,
		})
	}

	if len(entries) == 0 {
		return fmt.Errorf("taxonomy %s: no english entries", sourceURL)
	}

	dir := filepath.Join(outputDir, a.CatalogID())
	if err := ensureDir(dir); err != nil {
		return err
	}
	if err := catalog.SaveGob(entries, filepath.Join(dir, "data.gob")); err != nil {
		return fmt.Errorf("save gob: %w", err)
	}

	return writeManifest(dir, &catalog.Manifest{
		ID:           a.CatalogID(),
		Version:      "latest",
		Kind:         catalog.KindAllergens,
		Source:       "Open Food Facts",
		SourceURL:    sourceURL,
		License:      a.License(),
		DataFile:     "data.gob",
		Format:       catalog.FormatSpec{Normalize: "label"},
		DisplayNames: displayNames,
	})
}
