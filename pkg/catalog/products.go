package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Product is one barcode-indexed product with its ingredient text.
type Product struct {
	Barcode     string `json:"barcode"`
	Name        string `json:"name"`
	Ingredients string `json:"ingredients"`
}

// ProductTable maps barcodes to products for the barcode-scan path.
type ProductTable struct {
	Manifest *Manifest
	codes    []string
	byCode   map[string]Product
}

// NewProductTable creates an empty table for the given manifest.
func NewProductTable(m *Manifest) *ProductTable {
	return &ProductTable{Manifest: m, byCode: make(map[string]Product)}
}

// Add inserts a product; an existing barcode is overwritten in place.
func (t *ProductTable) Add(p Product) {
	p.Barcode = strings.TrimSpace(p.Barcode)
	if p.Barcode == "" {
		return
	}
	if _, ok := t.byCode[p.Barcode]; !ok {
		t.codes = append(t.codes, p.Barcode)
	}
	t.byCode[p.Barcode] = p
}

// Lookup returns the product for a barcode.
func (t *ProductTable) Lookup(barcode string) (Product, bool) {
	p, ok := t.byCode[strings.TrimSpace(barcode)]
	return p, ok
}

// Len returns the number of products.
func (t *ProductTable) Len() int { return len(t.codes) }

// LoadProducts loads a product catalog directory.
func LoadProducts(dir string) (*ProductTable, error) {
	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, err
	}
	if m.Kind != KindProducts {
		return nil, fmt.Errorf("catalog %s: kind %q is not %q", m.ID, m.Kind, KindProducts)
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

	cols := map[string]int{"barcode": 0, "name": 1, "ingredients": 2}
	if m.Format.HasHeader {
		header, err := r.Read()
		if err != nil {
			return nil, fmt.Errorf("catalog %s: read header: %w", m.ID, err)
		}
		if err := resolveColumns(header, cols, "barcode", "ingredients"); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", m.ID, err)
		}
	}

	t := NewProductTable(m)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog %s: read row: %w", m.ID, err)
		}
		t.Add(Product{
			Barcode:     field(record, cols["barcode"]),
			Name:        strings.TrimSpace(field(record, cols["name"])),
			Ingredients: strings.TrimSpace(field(record, cols["ingredients"])),
		})
	}
	return t, nil
}
