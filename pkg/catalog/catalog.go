package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Synonym is one surface form of an allergen. WholeWord opts the term into
// boundary-aware matching; the default is unconstrained substring search,
// a documented precision trade-off ("nut" also hits "donut").
type Synonym struct {
	Term      string `json:"term"`
	WholeWord bool   `json:"whole_word,omitempty"`
}

// Entry is one allergen with its synonyms, in catalog order.
type Entry struct {
	Key      string    `json:"key"`
	Display  string    `json:"display,omitempty"`
	Synonyms []Synonym `json:"synonyms"`
}

// Catalog is an ordered, immutable-after-load allergen catalog.
// Synonym terms are stored normalized so matching compares like with like.
type Catalog struct {
	Manifest  *Manifest
	entries   []Entry
	index     map[string]int
	normalize Normalizer
}

// New creates an empty catalog for the given manifest. Used by importers
// and by the registry when merging loaded catalogs.
func New(m *Manifest) *Catalog {
	return &Catalog{
		Manifest:  m,
		index:     make(map[string]int),
		normalize: GetNormalizer(m.Format.Normalize),
	}
}

// Add appends synonyms to an allergen, creating the entry on first use.
// Terms are normalized; duplicates per allergen are dropped.
func (c *Catalog) Add(key string, syns ...Synonym) {
	i, ok := c.index[key]
	if !ok {
		i = len(c.entries)
		c.index[key] = i
		display := ""
		if c.Manifest != nil {
			display = c.Manifest.DisplayNames[key]
		}
		c.entries = append(c.entries, Entry{Key: key, Display: display})
	}
	e := &c.entries[i]
	for _, s := range syns {
		term := c.normalize(strings.TrimSpace(s.Term))
		if term == "" {
			continue
		}
		dup := false
		for _, have := range e.Synonyms {
			if have.Term == term {
				dup = true
				break
			}
		}
		if !dup {
			e.Synonyms = append(e.Synonyms, Synonym{Term: term, WholeWord: s.WholeWord})
		}
	}
}

// Entries returns all allergens in catalog order. Callers must not mutate.
func (c *Catalog) Entries() []Entry { return c.entries }

// Keys returns the allergen keys in catalog order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.entries))
	for i, e := range c.entries {
		keys[i] = e.Key
	}
	return keys
}

// Get returns the entry for an allergen key.
func (c *Catalog) Get(key string) (Entry, bool) {
	i, ok := c.index[key]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Has reports whether the catalog contains the allergen key.
func (c *Catalog) Has(key string) bool {
	_, ok := c.index[key]
	return ok
}

// Len returns the number of allergens.
func (c *Catalog) Len() int { return len(c.entries) }

// SynonymCount returns the total number of synonyms across all allergens.
func (c *Catalog) SynonymCount() int {
	n := 0
	for _, e := range c.entries {
		n += len(e.Synonyms)
	}
	return n
}

// DisplayName returns the human-readable label for a key, falling back to
// the key itself. Display names are presentational only; matching never
// consults them.
func (c *Catalog) DisplayName(key string) string {
	if i, ok := c.index[key]; ok && c.entries[i].Display != "" {
		return c.entries[i].Display
	}
	return key
}

// Normalize applies this catalog's normalizer.
func (c *Catalog) Normalize(s string) string { return c.normalize(s) }

// LoadAllergens loads an allergen catalog directory (manifest.yaml plus
// data.gob or CSV).
func LoadAllergens(dir string) (*Catalog, error) {
	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, err
	}
	if m.Kind != KindAllergens {
		return nil, fmt.Errorf("catalog %s: kind %q is not %q", m.ID, m.Kind, KindAllergens)
	}
	c := New(m)

	// Gob takes priority over CSV.
	gobPath := filepath.Join(dir, "data.gob")
	if _, err := os.Stat(gobPath); err == nil {
		if err := c.loadGob(gobPath); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", m.ID, err)
		}
		return c, nil
	}

	if err := c.loadCSV(filepath.Join(dir, m.DataFile)); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", m.ID, err)
	}
	if len(c.entries) == 0 {
		return nil, fmt.Errorf("catalog %s: no entries", m.ID)
	}
	return c, nil
}

// loadCSV reads rows of allergen,synonym[,whole_word] in file order.
func (c *Catalog) loadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	r, err := newCSVReader(f, &c.Manifest.Format)
	if err != nil {
		return err
	}

	cols := map[string]int{"allergen": 0, "synonym": 1, "whole_word": -1}
	if c.Manifest.Format.HasHeader {
		header, err := r.Read()
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if err := resolveColumns(header, cols, "allergen", "synonym"); err != nil {
			return err
		}
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}
		key := strings.TrimSpace(field(record, cols["allergen"]))
		term := strings.TrimSpace(field(record, cols["synonym"]))
		if key == "" || term == "" {
			continue
		}
		c.Add(key, Synonym{
			Term:      term,
			WholeWord: parseBool(field(record, cols["whole_word"])),
		})
	}
	return nil
}

// newCSVReader builds a csv.Reader honoring the manifest's delimiter and
// encoding (non-UTF-8 sources are transcoded).
func newCSVReader(f io.Reader, spec *FormatSpec) (*csv.Reader, error) {
	var reader io.Reader = f
	if enc := spec.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		reader = transform.NewReader(f, e.NewDecoder())
	}

	r := csv.NewReader(reader)
	if delim := spec.Delimiter; delim != "" {
		r.Comma = []rune(delim)[0]
	}
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	return r, nil
}

// resolveColumns maps logical column names to header indices. Required
// columns must be present; optional ones stay at -1 when absent.
func resolveColumns(header []string, cols map[string]int, required ...string) error {
	for name := range cols {
		cols[name] = -1
	}
	for i, h := range header {
		h = strings.TrimSpace(strings.ToLower(h))
		if _, want := cols[h]; want {
			cols[h] = i
		}
	}
	for _, name := range required {
		if cols[name] < 0 {
			return fmt.Errorf("column %q not found in header %v", name, header)
		}
	}
	return nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func parseBool(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}
