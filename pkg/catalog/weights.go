package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IngredientWeight is one harmful-ingredient penalty.
type IngredientWeight struct {
	Ingredient string `json:"ingredient"`
	Weight     int    `json:"weight"`
}

// WeightTable is the harmful-ingredient table used by the health scorer.
// It has no relation to the allergen catalog.
type WeightTable struct {
	Manifest  *Manifest
	items     []IngredientWeight
	normalize Normalizer
}

// NewWeightTable creates an empty table for the given manifest.
func NewWeightTable(m *Manifest) *WeightTable {
	return &WeightTable{Manifest: m, normalize: GetNormalizer(m.Format.Normalize)}
}

// Add appends an ingredient with its penalty weight. The ingredient is
// normalized; duplicates and non-positive weights are rejected.
func (t *WeightTable) Add(ingredient string, weight int) error {
	ing := t.normalize(strings.TrimSpace(ingredient))
	if ing == "" {
		return fmt.Errorf("empty ingredient")
	}
	if weight <= 0 {
		return fmt.Errorf("ingredient %q: weight %d must be positive", ing, weight)
	}
	for _, have := range t.items {
		if have.Ingredient == ing {
			return fmt.Errorf("duplicate ingredient %q", ing)
		}
	}
	t.items = append(t.items, IngredientWeight{Ingredient: ing, Weight: weight})
	return nil
}

// Items returns the table in file order. Callers must not mutate.
func (t *WeightTable) Items() []IngredientWeight { return t.items }

// Len returns the number of ingredients.
func (t *WeightTable) Len() int { return len(t.items) }

// LoadWeights loads a harmful-ingredient catalog directory.
func LoadWeights(dir string) (*WeightTable, error) {
	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, err
	}
	if m.Kind != KindHarmful {
		return nil, fmt.Errorf("catalog %s: kind %q is not %q", m.ID, m.Kind, KindHarmful)
	}

	f, err := os.Open(filepath.Join(dir, m.DataFile))
	if err != nil {
		return nil, fmt.Errorf("catalog %s: open data file: %w", m.ID, err)
	}
	defer f.Close()

	r, err := newCSVReader(f, &m.Format)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", m.ID, err)
	}

	cols := map[string]int{"ingredient": 0, "weight": 1}
	if m.Format.HasHeader {
		header, err := r.Read()
		if err != nil {
			return nil, fmt.Errorf("catalog %s: read header: %w", m.ID, err)
		}
		if err := resolveColumns(header, cols, "ingredient", "weight"); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", m.ID, err)
		}
	}

	t := NewWeightTable(m)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog %s: read row: %w", m.ID, err)
		}
		ing := field(record, cols["ingredient"])
		if strings.TrimSpace(ing) == "" {
			continue
		}
		w, err := strconv.Atoi(strings.TrimSpace(field(record, cols["weight"])))
		if err != nil {
			return nil, fmt.Errorf("catalog %s: ingredient %q: bad weight: %w", m.ID, ing, err)
		}
		if err := t.Add(ing, w); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", m.ID, err)
		}
	}
	if t.Len() == 0 {
		return nil, fmt.Errorf("catalog %s: no entries", m.ID)
	}
	return t, nil
}
