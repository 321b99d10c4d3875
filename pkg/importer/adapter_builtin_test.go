package importer

import (
	"context"
	"testing"

	"github.com/nafeeshossain/allergen-detector/pkg/catalog"
)

func TestBuiltinDefaults_Import(t *testing.T) {
	dir := t.TempDir()

	a, err := Get("builtin-defaults")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := a.Import(context.Background(), "", dir); err != nil {
		t.Fatalf("Import: %v", err)
	}

	// The written directories must load as a full registry.
	reg := catalog.NewRegistry(dir)
	if err := reg.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	al := reg.Allergens()
	if al.Len() != 13 {
		t.Errorf("allergens = %d, want 13", al.Len())
	}
	if got := al.DisplayName("milk"); got != "Milk / Dairy" {
		t.Errorf("DisplayName(milk) = %q", got)
	}
	entry, ok := al.Get("sulfites")
	if !ok {
		t.Fatal("sulfites entry missing")
	}
	if len(entry.Synonyms) != 12 {
		t.Errorf("sulfites synonyms = %d, want 12", len(entry.Synonyms))
	}

	// The short terms prone to substring false positives are whole-word.
	fish, _ := al.Get("fish")
	for _, s := range fish.Synonyms {
		if s.Term == "cod" && !s.WholeWord {
			t.Error("cod should be whole-word")
		}
	}

	if n := reg.Weights().Len(); n != 8 {
		t.Errorf("harmful weights = %d, want 8", n)
	}

	p, ok := reg.Products().Lookup("8901234567890")
	if !ok {
		t.Fatal("demo barcode 8901234567890 missing")
	}
	if p.Name != "Chocolate Bar" {
		t.Errorf("product name = %q", p.Name)
	}
	if _, ok := reg.Products().Lookup("8901111111111"); !ok {
		t.Error("product with empty ingredients should still load")
	}
}
