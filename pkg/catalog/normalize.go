package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer transforms text before matching.
type Normalizer func(string) string

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeLabel normalizes raw OCR output into text suitable for substring
// and fuzzy search: lowercase, accents stripped, every rune outside the label
// allow-set {a-z 0-9 whitespace - ( ) / . %} removed, whitespace runs
// collapsed to one space, result trimmed. The allow-set keeps punctuation
// that carries meaning on labels ("E220", "gluten-free", "soy (lecithin)").
// Idempotent; empty input yields empty output.
func NormalizeLabel(s string) string {
	s, _, _ = transform.String(stripAccents, strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9',
			r == '-', r == '(', r == ')', r == '/', r == '.', r == '%':
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		default:
			// OCR noise glyph, dropped.
		}
	}
	return b.String()
}

// NormalizeLowercaseASCII lowercases and strips accents (e.g. Soja, Müsli -> musli).
func NormalizeLowercaseASCII(s string) string {
	result, _, _ := transform.String(stripAccents, strings.ToLower(s))
	return result
}

// NormalizeLowercaseUTF8 lowercases but preserves accents.
func NormalizeLowercaseUTF8(s string) string {
	return strings.ToLower(s)
}

// NormalizeNone returns the text unchanged.
func NormalizeNone(s string) string {
	return s
}

// GetNormalizer returns the normalizer for the given mode.
// Default is label.
func GetNormalizer(mode string) Normalizer {
	switch mode {
	case "label":
		return NormalizeLabel
	case "lowercase_ascii":
		return NormalizeLowercaseASCII
	case "lowercase_utf8":
		return NormalizeLowercaseUTF8
	case "none":
		return NormalizeNone
	default:
		return NormalizeLabel
	}
}
