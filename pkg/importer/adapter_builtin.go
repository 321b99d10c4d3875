package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nafeeshossain/allergen-detector/pkg/catalog"
)

func init() {
	Register(&builtinDefaultsAdapter{})
}

// builtinDefaultsAdapter writes the embedded default catalogs: the 13
// common allergens with their synonyms, the harmful-ingredient weight
// table, and a small demo product/barcode table. No network access.
type builtinDefaultsAdapter struct{}

func (a *builtinDefaultsAdapter) ID() string          { return "builtin-defaults" }
func (a *builtinDefaultsAdapter) CatalogID() string   { return "allergens-default" }
func (a *builtinDefaultsAdapter) Description() string { return "Embedded default catalogs (allergens, harmful ingredients, demo products)" }
func (a *builtinDefaultsAdapter) DefaultURL() string  { return "" }
func (a *builtinDefaultsAdapter) License() string     { return "CC0" }

var defaultAllergens = []struct {
	key      string
	synonyms []string
}{
	{"milk", []string{"milk", "lactose", "whey", "casein", "sodium caseinate", "caseinate", "milk protein", "milk solids"}},
	{"egg", []string{"egg", "eggs", "albumen", "albumin", "egg white", "egg yolk", "ovomucoid"}},
	{"peanut", []string{"peanut", "groundnut", "peanuts"}},
	{"tree_nuts", []string{"almond", "cashew", "walnut", "hazelnut", "pistachio", "pecan", "brazil nut", "macadamia"}},
	{"soy", []string{"soy", "soya", "soybean", "soy protein", "soy lecithin", "soya lecithin", "lecithin (e322)"}},
	{"wheat", []string{"wheat", "gluten", "spelt", "rye", "barley", "semolina", "triticale"}},
	{"fish", []string{"fish", "anchovy", "salmon", "tuna", "cod", "haddock", "pollock"}},
	{"shellfish", []string{"shrimp", "prawn", "crab", "lobster", "crustacean", "shellfish", "scampi"}},
	{"sesame", []string{"sesame", "sesamum", "tahini"}},
	{"mustard", []string{"mustard", "mustard seed", "mustard flour"}},
	{"sulfites", []string{"sulphite", "sulfite", "sulfur dioxide", "e220", "e221", "e222", "e223", "e224", "e225", "e226", "e227", "e228"}},
	{"celery", []string{"celery", "celeriac"}},
	{"lupin", []string{"lupin", "lupine"}},
}

var defaultDisplayNames = map[string]string{
	"milk":      "Milk / Dairy",
	"egg":       "Egg",
	"peanut":    "Peanut",
	"tree_nuts": "Tree nuts",
	"soy":       "Soy",
	"wheat":     "Wheat / Gluten",
	"fish":      "Fish",
	"shellfish": "Shellfish / Crustaceans",
	"sesame":    "Sesame",
	"mustard":   "Mustard",
	"sulfites":  "Sulfites",
	"celery":    "Celery",
	"lupin":     "Lupin",
}

// Short terms that false-positive inside longer words ("cod" in "cocoa
// powder codes", "rye" in "surimi") match on word boundaries only.
var wholeWordTerms = map[string]bool{
	"cod": true,
	"rye": true,
}

var defaultHarmful = []catalog.IngredientWeight{
	{Ingredient: "sugar", Weight: 20},
	{Ingredient: "high fructose corn syrup", Weight: 25},
	{Ingredient: "sodium benzoate", Weight: 15},
	{Ingredient: "potassium sorbate", Weight: 12},
	{Ingredient: "trans fat", Weight: 30},
	{Ingredient: "partially hydrogenated", Weight: 30},
	{Ingredient: "artificial sweetener", Weight: 15},
	{Ingredient: "monosodium glutamate", Weight: 10},
}

var demoProducts = []catalog.Product{
	{Barcode: "8901234567890", Name: "Chocolate Bar", Ingredients: "Milk, Sugar, Cocoa, Peanut oil"},
	{Barcode: "8909876543210", Name: "Oat Milk", Ingredients: "Water, Oats, Salt"},
	{Barcode: "8901111111111", Name: "Plain Water", Ingredients: ""},
}

const builtinVersion = "2026-08"

func (a *builtinDefaultsAdapter) Import(_ context.Context, _ string, outputDir string) error {
	if err := a.writeAllergens(outputDir); err != nil {
		return err
	}
	if err := a.writeHarmful(outputDir); err != nil {
		return err
	}
	return a.writeProducts(outputDir)
}

func (a *builtinDefaultsAdapter) writeAllergens(outputDir string) error {
	dir := filepath.Join(outputDir, a.CatalogID())
	if err := ensureDir(dir); err != nil {
		return err
	}

	rows := [][]string{{"allergen", "synonym", "whole_word"}}
	for _, al := range defaultAllergens {
		for _, syn := range al.synonyms {
			ww := ""
			if wholeWordTerms[syn] {
				ww = "true"
			}
			rows = append(rows, []string{al.key, syn, ww})
		}
	}
	if err := writeCSV(filepath.Join(dir, "data.csv"), ',', rows); err != nil {
		return err
	}

	return writeManifest(dir, &catalog.Manifest{
		ID:           a.CatalogID(),
		Version:      builtinVersion,
		Kind:         catalog.KindAllergens,
		Source:       "Embedded defaults",
		License:      a.License(),
		DataFile:     "data.csv",
		Format:       catalog.FormatSpec{Delimiter: ",", HasHeader: true, Normalize: "label"},
		DisplayNames: defaultDisplayNames,
	})
}

func (a *builtinDefaultsAdapter) writeHarmful(outputDir string) error {
	dir := filepath.Join(outputDir, "harmful-default")
	if err := ensureDir(dir); err != nil {
		return err
	}

	rows := [][]string{{"ingredient", "weight"}}
	for _, iw := range defaultHarmful {
		rows = append(rows, []string{iw.Ingredient, strconv.Itoa(iw.Weight)})
	}
	if err := writeCSV(filepath.Join(dir, "data.csv"), ',', rows); err != nil {
		return err
	}

	return writeManifest(dir, &catalog.Manifest{
		ID:       "harmful-default",
		Version:  builtinVersion,
		Kind:     catalog.KindHarmful,
		Source:   "Embedded defaults",
		License:  a.License(),
		DataFile: "data.csv",
		Format:   catalog.FormatSpec{Delimiter: ",", HasHeader: true, Normalize: "label"},
	})
}

func (a *builtinDefaultsAdapter) writeProducts(outputDir string) error {
	dir := filepath.Join(outputDir, "products-demo")
	if err := ensureDir(dir); err != nil {
		return err
	}

	// Ingredient lists contain commas, so the products table uses ";".
	rows := [][]string{{"barcode", "name", "ingredients"}}
	for _, p := range demoProducts {
		rows = append(rows, []string{p.Barcode, p.Name, p.Ingredients})
	}
	if err := writeCSV(filepath.Join(dir, "data.csv"), ';', rows); err != nil {
		return err
	}

	return writeManifest(dir, &catalog.Manifest{
		ID:       "products-demo",
		Version:  builtinVersion,
		Kind:     catalog.KindProducts,
		Source:   "Embedded demo products",
		License:  a.License(),
		DataFile: "data.csv",
		Format:   catalog.FormatSpec{Delimiter: ";", HasHeader: true},
	})
}

func writeCSV(path string, comma rune, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = comma
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
