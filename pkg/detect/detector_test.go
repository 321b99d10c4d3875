package detect

import (
	"reflect"
	"testing"

	"github.com/nafeeshossain/allergen-detector/pkg/catalog"
)

// testCatalog builds a small in-memory allergen catalog. Catalog order:
// milk, egg, peanut, tree_nuts, soy, wheat.
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	m := &catalog.Manifest{
		ID:     "test",
		Kind:   catalog.KindAllergens,
		Format: catalog.FormatSpec{Normalize: "label"},
		DisplayNames: map[string]string{
			"milk":      "Milk / Dairy",
			"tree_nuts": "Tree nuts",
			"wheat":     "Wheat / Gluten",
		},
	}
	c := catalog.New(m)
	c.Add("milk", catalog.Synonym{Term: "milk"}, catalog.Synonym{Term: "casein"})
	c.Add("egg", catalog.Synonym{Term: "egg"})
	c.Add("peanut", catalog.Synonym{Term: "peanut"})
	c.Add("tree_nuts", catalog.Synonym{Term: "nuts"}, catalog.Synonym{Term: "almond"})
	c.Add("soy", catalog.Synonym{Term: "soy"}, catalog.Synonym{Term: "lecithin"})
	c.Add("wheat", catalog.Synonym{Term: "gluten"}, catalog.Synonym{Term: "wheat"})
	return c
}

func testWeights(t *testing.T) *catalog.WeightTable {
	t.Helper()
	m := &catalog.Manifest{ID: "test-harmful", Kind: catalog.KindHarmful, Format: catalog.FormatSpec{Normalize: "label"}}
	w := catalog.NewWeightTable(m)
	for _, iw := range []catalog.IngredientWeight{
		{Ingredient: "sugar", Weight: 20},
		{Ingredient: "trans fat", Weight: 30},
		{Ingredient: "monosodium glutamate", Weight: 10},
	} {
		if err := w.Add(iw.Ingredient, iw.Weight); err != nil {
			t.Fatalf("Add(%q): %v", iw.Ingredient, err)
		}
	}
	return w
}

func TestDetectDirectMentions(t *testing.T) {
	d := New(testCatalog(t), testWeights(t))

	res := d.Detect("Contains milk, peanut oil and soy lecithin", nil, Options{})

	high := map[string]int{}
	for _, m := range res.Matches {
		if m.Severity == SeverityHigh {
			high[m.Allergen] = m.Score
		}
	}
	for _, key := range []string{"milk", "peanut", "soy"} {
		if high[key] != 100 {
			t.Errorf("high[%s] = %d, want 100", key, high[key])
		}
	}
}

func TestDetectMayContainBlanket(t *testing.T) {
	cat := testCatalog(t)
	d := New(cat, nil)

	res := d.Detect("may contain traces of nuts", nil, Options{})

	var highTreeNuts bool
	medium := map[string]bool{}
	for _, m := range res.Matches {
		if m.Severity == SeverityHigh && m.Allergen == "tree_nuts" {
			highTreeNuts = true
		}
		if m.Severity == SeverityMedium {
			if medium[m.Allergen] {
				t.Errorf("allergen %q tagged medium twice", m.Allergen)
			}
			medium[m.Allergen] = true
			if m.Matched != "may contain" {
				t.Errorf("medium matched = %q, want %q", m.Matched, "may contain")
			}
		}
	}
	if !highTreeNuts {
		t.Error("tree_nuts not tagged high despite direct mention of nuts")
	}
	// Blanket warning tags every catalog allergen.
	if len(medium) != cat.Len() {
		t.Errorf("medium entries = %d, want %d (one per catalog allergen)", len(medium), cat.Len())
	}
}

func TestDetectFreeFromClaim(t *testing.T) {
	d := New(testCatalog(t), nil)

	res := d.Detect("gluten-free crackers", nil, Options{})

	var low *MatchHit
	for i, m := range res.Matches {
		if m.Severity == SeverityLow {
			if low != nil {
				t.Fatalf("more than one low entry: %+v", res.Matches)
			}
			low = &res.Matches[i]
		}
	}
	if low == nil {
		t.Fatal("no low entry for gluten-free")
	}
	if low.Allergen != "wheat" || low.Matched != "gluten-free" {
		t.Errorf("low = %+v, want wheat / gluten-free", *low)
	}
}

func TestDetectEmptyInput(t *testing.T) {
	d := New(testCatalog(t), testWeights(t))

	res := d.Detect("", nil, Options{})

	if len(res.Matches) != 0 {
		t.Errorf("matches = %+v, want empty", res.Matches)
	}
	if res.HealthScore != 100 {
		t.Errorf("health score = %d, want 100", res.HealthScore)
	}
	if len(res.HealthFound) != 0 {
		t.Errorf("health found = %+v, want empty", res.HealthFound)
	}
	if res.NormalizedText != "" {
		t.Errorf("normalized = %q, want empty", res.NormalizedText)
	}
}

func TestDetectHealthScore(t *testing.T) {
	d := New(testCatalog(t), testWeights(t))

	res := d.Detect("contains sugar and trans fat", nil, Options{})

	if res.HealthScore != 50 {
		t.Errorf("health score = %d, want 50", res.HealthScore)
	}
	want := []catalog.IngredientWeight{
		{Ingredient: "sugar", Weight: 20},
		{Ingredient: "trans fat", Weight: 30},
	}
	if !reflect.DeepEqual(res.HealthFound, want) {
		t.Errorf("health found = %+v, want %+v", res.HealthFound, want)
	}
}

func TestHealthScoreClampsAtZero(t *testing.T) {
	m := &catalog.Manifest{ID: "heavy", Kind: catalog.KindHarmful, Format: catalog.FormatSpec{Normalize: "label"}}
	w := catalog.NewWeightTable(m)
	w.Add("sugar", 60)
	w.Add("trans fat", 70)

	score, _ := scoreHealth(w, "sugar and trans fat syrup")
	if score != 0 {
		t.Errorf("score = %d, want 0 (clamped)", score)
	}
}

// The final score must not depend on table iteration order.
func TestHealthScoreOrderIndependent(t *testing.T) {
	text := "sugar, trans fat and monosodium glutamate"

	forward := testWeights(t)
	reverse := catalog.NewWeightTable(&catalog.Manifest{ID: "rev", Kind: catalog.KindHarmful, Format: catalog.FormatSpec{Normalize: "label"}})
	items := forward.Items()
	for i := len(items) - 1; i >= 0; i-- {
		reverse.Add(items[i].Ingredient, items[i].Weight)
	}

	a, _ := scoreHealth(forward, text)
	b, _ := scoreHealth(reverse, text)
	if a != b {
		t.Errorf("score differs by iteration order: %d vs %d", a, b)
	}
}

func TestDetectRelevance(t *testing.T) {
	d := New(testCatalog(t), nil)

	res := d.Detect("milk and peanut cookie", []string{"peanut"}, Options{})

	if !reflect.DeepEqual(res.Relevant, []string{"peanut"}) {
		t.Errorf("relevant = %v, want [peanut]", res.Relevant)
	}

	// relevant ⊆ user ∩ detected, with equality.
	detected := map[string]bool{}
	for _, m := range res.Matches {
		detected[m.Allergen] = true
	}
	for _, key := range res.Relevant {
		if !detected[key] {
			t.Errorf("relevant %q was not detected", key)
		}
	}
}

func TestDetectRelevanceEmptyProfile(t *testing.T) {
	d := New(testCatalog(t), nil)

	res := d.Detect("milk chocolate", nil, Options{})
	if len(res.Relevant) != 0 {
		t.Errorf("relevant = %v, want empty without a profile", res.Relevant)
	}
	if res.Message == "" {
		t.Error("expected generic detection message")
	}
}

func TestDetectMatchesRankedByScore(t *testing.T) {
	d := New(testCatalog(t), nil)

	res := d.Detect("milk with peanvt pieces", nil, Options{FuzzyThreshold: 91})

	for i := 1; i < len(res.Matches); i++ {
		if res.Matches[i-1].Score < res.Matches[i].Score {
			t.Fatalf("matches not ranked descending: %+v", res.Matches)
		}
	}
}

func TestDetectMessageFiltersByProfile(t *testing.T) {
	d := New(testCatalog(t), nil)

	res := d.Detect("contains milk and egg", []string{"egg"}, Options{})
	if want := "High risk: egg"; res.Message != want {
		t.Errorf("message = %q, want %q", res.Message, want)
	}

	res = d.Detect("contains milk", []string{"egg"}, Options{})
	if want := "No allergens from your profile detected."; res.Message != want {
		t.Errorf("message = %q, want %q", res.Message, want)
	}

	res = d.Detect("plain water", []string{"egg"}, Options{})
	if want := "No allergens detected."; res.Message != want {
		t.Errorf("message = %q, want %q", res.Message, want)
	}
}
