// Package detect turns normalized label text into a confidence-ranked,
// severity-tagged allergen report with a weighted health score.
//
// The pipeline is pure over the loaded catalogs: once the text is
// normalized, nothing in here can fail, and an empty match list is a true
// negative, never an error.
package detect

import (
	"sort"
	"strings"

	"github.com/nafeeshossain/allergen-detector/pkg/catalog"
)

// ScanResult is the full report for one piece of label text.
type ScanResult struct {
	RawText        string `json:"raw_text"`
	NormalizedText string `json:"normalized_text"`

	// Matches is the severity-tagged set, ranked by descending score with
	// catalog order breaking ties. An allergen appears at most once per
	// severity tier.
	Matches []MatchHit `json:"matches"`

	// Allergens carries the underlying per-term hit lists, one element per
	// matched allergen, each sorted by descending score.
	Allergens []AllergenHits `json:"allergens"`

	// Relevant is the intersection of detected allergens and the caller's
	// profile, in catalog order.
	Relevant []string `json:"relevant"`

	HealthScore int                        `json:"health_score"`
	HealthFound []catalog.IngredientWeight `json:"health_found"`

	// Message is a severity-grouped human summary of the scan.
	Message string `json:"message"`
}

// Detector runs the detection pipeline against one catalog snapshot.
// Safe for concurrent use; it never mutates the catalogs.
type Detector struct {
	catalog *catalog.Catalog
	weights *catalog.WeightTable
}

// New creates a Detector over an allergen catalog and an optional
// harmful-ingredient table (nil disables health scoring deductions).
func New(cat *catalog.Catalog, weights *catalog.WeightTable) *Detector {
	return &Detector{catalog: cat, weights: weights}
}

// Detect runs the full pipeline: normalize, match, classify severity, score
// health, filter by the caller's allergen profile. Empty rawText is valid
// and produces an empty match set with health score 100.
func (d *Detector) Detect(rawText string, userAllergens []string, opts Options) *ScanResult {
	opts = opts.withDefaults()
	text := d.catalog.Normalize(rawText)

	found := matchAllergens(d.catalog, text, opts)
	matches := classify(ruleInput{cat: d.catalog, text: text, found: found})
	rankMatches(matches)

	healthScore, healthFound := scoreHealth(d.weights, text)
	relevant := relevantAllergens(d.catalog, matches, userAllergens)

	return &ScanResult{
		RawText:        rawText,
		NormalizedText: text,
		Matches:        matches,
		Allergens:      found,
		Relevant:       relevant,
		HealthScore:    healthScore,
		HealthFound:    healthFound,
		Message:        buildMessage(d.catalog, matches, userAllergens),
	}
}

// rankMatches sorts by descending score; the stable sort keeps the rule
// emission order (which follows catalog order) for equal scores.
func rankMatches(matches []MatchHit) {
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
}

// relevantAllergens intersects detected allergen keys with the caller's
// profile, preserving catalog order. Nil or empty profile means nothing is
// relevant.
func relevantAllergens(cat *catalog.Catalog, matches []MatchHit, userAllergens []string) []string {
	relevant := []string{}
	if len(userAllergens) == 0 || len(matches) == 0 {
		return relevant
	}

	profile := make(map[string]bool, len(userAllergens))
	for _, a := range userAllergens {
		profile[a] = true
	}
	detected := make(map[string]bool, len(matches))
	for _, m := range matches {
		detected[m.Allergen] = true
	}

	for _, key := range cat.Keys() {
		if detected[key] && profile[key] {
			relevant = append(relevant, key)
		}
	}
	return relevant
}

// buildMessage summarizes the scan per severity tier. With a user profile
// present, only profile allergens appear; without one, all detections are
// reported generically.
func buildMessage(cat *catalog.Catalog, matches []MatchHit, userAllergens []string) string {
	if len(matches) == 0 {
		return "No allergens detected."
	}

	if len(userAllergens) == 0 {
		seen := make(map[string]bool)
		var names []string
		for _, m := range matches {
			if !seen[m.Allergen] {
				seen[m.Allergen] = true
				names = append(names, cat.DisplayName(m.Allergen))
			}
		}
		return "Detected allergens: " + strings.Join(names, ", ")
	}

	profile := make(map[string]bool, len(userAllergens))
	for _, a := range userAllergens {
		profile[a] = true
	}

	tierNames := func(sev Severity) []string {
		var names []string
		for _, m := range matches {
			if m.Severity == sev && profile[m.Allergen] {
				names = append(names, cat.DisplayName(m.Allergen))
			}
		}
		return names
	}

	var parts []string
	if high := tierNames(SeverityHigh); len(high) > 0 {
		parts = append(parts, "High risk: "+strings.Join(high, ", "))
	}
	if medium := tierNames(SeverityMedium); len(medium) > 0 {
		parts = append(parts, "Medium risk (possible traces): "+strings.Join(medium, ", "))
	}
	if low := tierNames(SeverityLow); len(low) > 0 {
		parts = append(parts, "Low risk (labelled free): "+strings.Join(low, ", "))
	}

	if len(parts) == 0 {
		return "No allergens from your profile detected."
	}
	return strings.Join(parts, "\n")
}
