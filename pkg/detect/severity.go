package detect

import (
	"strings"

	"github.com/nafeeshossain/allergen-detector/pkg/catalog"
)

// Severity tiers a detection by risk confidence: a direct mention, an
// ambiguous cross-contamination warning, or an explicit absence claim.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// MatchHit is one severity-tagged detection.
type MatchHit struct {
	Allergen string   `json:"allergen"`
	Matched  string   `json:"matched"`
	Score    int      `json:"score"`
	Severity Severity `json:"severity"`
}

// ruleInput is everything a severity rule may consult.
type ruleInput struct {
	cat   *catalog.Catalog
	text  string // normalized
	found []AllergenHits
}

// rule emits zero or more severity-tagged entries. Rules are independent;
// an allergen can acquire entries in several tiers, one per tier at most.
type rule struct {
	name  string
	apply func(in ruleInput) []MatchHit
}

// severityRules run in order. Adding a tier means adding a rule, not
// touching control flow.
var severityRules = []rule{
	{name: "direct-mention", apply: directMention},
	{name: "blanket-warning", apply: blanketWarning},
	{name: "absence-claim", apply: absenceClaim},
}

func classify(in ruleInput) []MatchHit {
	entries := []MatchHit{}
	for _, r := range severityRules {
		entries = append(entries, r.apply(in)...)
	}
	return entries
}

// directMention tags every matched allergen high, carrying its
// best-scoring term.
func directMention(in ruleInput) []MatchHit {
	out := make([]MatchHit, 0, len(in.found))
	for _, a := range in.found {
		out = append(out, MatchHit{
			Allergen: a.Allergen,
			Matched:  a.Hits[0].Term,
			Score:    a.Hits[0].Score,
			Severity: SeverityHigh,
		})
	}
	return out
}

var warningPhrases = []string{"may contain", "produced in a facility"}

// blanketWarning tags every catalog allergen medium when a
// cross-contamination phrase appears anywhere in the text. Deliberately
// conservative: the phrase is not tied to nearby allergen mentions.
func blanketWarning(in ruleInput) []MatchHit {
	phrase := ""
	for _, p := range warningPhrases {
		if strings.Contains(in.text, p) {
			phrase = p
			break
		}
	}
	if phrase == "" {
		return nil
	}

	entries := in.cat.Entries()
	out := make([]MatchHit, 0, len(entries))
	for _, e := range entries {
		out = append(out, MatchHit{
			Allergen: e.Key,
			Matched:  phrase,
			Score:    100,
			Severity: SeverityMedium,
		})
	}
	return out
}

// absenceClaim tags an allergen low when the text claims its absence:
// "<synonym> free" or "<synonym>-free". One entry per allergen.
func absenceClaim(in ruleInput) []MatchHit {
	if !strings.Contains(in.text, "free from") && !strings.Contains(in.text, "-free") {
		return nil
	}

	var out []MatchHit
	for _, e := range in.cat.Entries() {
		for _, syn := range e.Synonyms {
			if strings.Contains(in.text, syn.Term+" free") || strings.Contains(in.text, syn.Term+"-free") {
				out = append(out, MatchHit{
					Allergen: e.Key,
					Matched:  syn.Term + "-free",
					Score:    100,
					Severity: SeverityLow,
				})
				break
			}
		}
	}
	return out
}
