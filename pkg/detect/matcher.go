package detect

import (
	"sort"
	"strings"

	"github.com/nafeeshossain/allergen-detector/pkg/catalog"
)

// Matching strategies. The substring path is always available; fuzzy
// matching layers on top of it to tolerate OCR misreads.
type Strategy string

const (
	StrategyExact Strategy = "exact"
	StrategyFuzzy Strategy = "fuzzy"
	StrategyBoth  Strategy = "both"
)

// DefaultFuzzyThreshold is the minimum fuzzy score accepted as a hit.
const DefaultFuzzyThreshold = 88

// Options configure a single detection run.
type Options struct {
	// Strategy selects the matching paths. Default is both.
	Strategy Strategy `json:"strategy,omitempty"`
	// FuzzyThreshold accepts fuzzy hits scoring at or above it (0..100).
	// Default 88. A hit exactly at the threshold is included.
	FuzzyThreshold int `json:"fuzzy_threshold,omitempty"`
	// TokenFuzzy compares single-word synonyms against whitespace tokens
	// instead of sliding over the whole text. Higher precision, lower
	// recall across token boundaries.
	TokenFuzzy bool `json:"token_fuzzy,omitempty"`
}

func (o Options) withDefaults() Options {
	switch o.Strategy {
	case StrategyExact, StrategyFuzzy, StrategyBoth:
	default:
		o.Strategy = StrategyBoth
	}
	if o.FuzzyThreshold <= 0 || o.FuzzyThreshold > 100 {
		o.FuzzyThreshold = DefaultFuzzyThreshold
	}
	return o
}

// TermHit is one synonym that cleared matching, with its confidence.
type TermHit struct {
	Term  string `json:"term"`
	Score int    `json:"score"`
}

// AllergenHits collects every clearing synonym of one allergen,
// sorted by descending score.
type AllergenHits struct {
	Allergen string    `json:"allergen"`
	Display  string    `json:"display,omitempty"`
	Hits     []TermHit `json:"hits"`
}

func (a AllergenHits) best() int {
	if len(a.Hits) == 0 {
		return 0
	}
	return a.Hits[0].Score
}

// matchAllergens scans the normalized text against every catalog entry.
// Result order: best hit score descending, catalog order on ties.
func matchAllergens(cat *catalog.Catalog, text string, opts Options) []AllergenHits {
	var out []AllergenHits
	if text == "" {
		return out
	}

	for _, e := range cat.Entries() {
		var hits []TermHit
		for _, syn := range e.Synonyms {
			if score, ok := scoreSynonym(text, syn, opts); ok {
				hits = append(hits, TermHit{Term: syn.Term, Score: score})
			}
		}
		if len(hits) == 0 {
			continue
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
		out = append(out, AllergenHits{Allergen: e.Key, Display: e.Display, Hits: hits})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].best() > out[j].best() })
	return out
}

// scoreSynonym scores one synonym against the text. Exact presence wins at
// 100; otherwise the fuzzy score counts when it clears the threshold.
func scoreSynonym(text string, syn catalog.Synonym, opts Options) (int, bool) {
	if syn.Term == "" {
		return 0, false
	}
	if opts.Strategy != StrategyFuzzy && containsTerm(text, syn) {
		return 100, true
	}
	if opts.Strategy != StrategyExact {
		score := fuzzyScore(text, syn.Term, opts)
		if score >= opts.FuzzyThreshold {
			return score, true
		}
	}
	return 0, false
}

// fuzzyScore picks the fuzzy comparison scope: whole-text windows
// (canonical) or per-token for single-word synonyms.
func fuzzyScore(text, term string, opts Options) int {
	if opts.TokenFuzzy && !strings.ContainsRune(term, ' ') {
		best := 0
		tr := []rune(term)
		for _, tok := range strings.Fields(text) {
			if r := fuzzRatio([]rune(tok), tr); r > best {
				best = r
			}
		}
		return best
	}
	return partialRatio(text, term)
}

// containsTerm reports whether the synonym occurs in the text, honoring the
// per-synonym whole-word flag.
func containsTerm(text string, syn catalog.Synonym) bool {
	if !syn.WholeWord {
		return strings.Contains(text, syn.Term)
	}
	for start := 0; ; {
		i := strings.Index(text[start:], syn.Term)
		if i < 0 {
			return false
		}
		i += start
		if !isWordByte(text, i-1) && !isWordByte(text, i+len(syn.Term)) {
			return true
		}
		start = i + 1
	}
}

// isWordByte treats a-z and 0-9 as word characters; everything else,
// including the string edges, is a boundary.
func isWordByte(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
