package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog kinds. Each kind has a fixed CSV column set.
const (
	KindAllergens = "allergens" // allergen,synonym[,whole_word]
	KindHarmful   = "harmful"   // ingredient,weight
	KindProducts  = "products"  // barcode,name,ingredients
)

// Manifest describes one catalog directory: its source, format, and kind.
type Manifest struct {
	ID           string            `yaml:"id" json:"id"`
	Version      string            `yaml:"version" json:"version"`
	Kind         string            `yaml:"kind" json:"kind"`
	Source       string            `yaml:"source" json:"source"`
	SourceURL    string            `yaml:"source_url" json:"source_url,omitempty"`
	License      string            `yaml:"license" json:"license"`
	DataFile     string            `yaml:"data_file" json:"data_file"`
	Format       FormatSpec        `yaml:"format" json:"-"`
	DisplayNames map[string]string `yaml:"display_names" json:"-"`
}

// FormatSpec describes the CSV layout and the normalizer applied to terms.
type FormatSpec struct {
	Delimiter string `yaml:"delimiter"`
	Encoding  string `yaml:"encoding"`
	HasHeader bool   `yaml:"has_header"`
	Normalize string `yaml:"normalize"`
}

// LoadManifest reads and parses a manifest.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest %s: missing id", path)
	}
	switch m.Kind {
	case KindAllergens, KindHarmful, KindProducts:
	case "":
		m.Kind = KindAllergens
	default:
		return nil, fmt.Errorf("manifest %s: unknown kind %q", path, m.Kind)
	}
	if m.DataFile == "" {
		m.DataFile = "data.csv"
	}
	return &m, nil
}
