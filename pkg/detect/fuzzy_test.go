package detect

import "testing"

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"milk", "", 4},
		{"", "soy", 3},
		{"peanut", "peanut", 0},
		{"peanut", "peanvt", 1},
		{"gluten", "gluton", 1},
		{"kitten", "sitting", 3},
		{"sulfite", "sulphite", 2}, // substitute f, insert h
	}
	for _, tt := range tests {
		got := levenshtein([]rune(tt.a), []rune(tt.b))
		if got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFuzzRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"peanut", "peanut", 100},
		{"peanut", "peanvt", 91}, // dist 1 over 12 runes
		{"", "", 100},
		// Fully distinct equal-length strings bottom out at 50, not 0:
		// dist 3 over a length sum of 6. The floor is why useful
		// thresholds sit well above 50.
		{"abc", "xyz", 50},
	}
	for _, tt := range tests {
		got := fuzzRatio([]rune(tt.a), []rune(tt.b))
		if got != tt.want {
			t.Errorf("fuzzRatio(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPartialRatio(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		term  string
		want  int
	}{
		{"exact window", "contains peanut oil", "peanut", 100},
		{"one misread", "contains peanvt oil", "peanut", 91},
		{"text shorter than term", "soy", "soybean", 60},
		{"empty text", "", "milk", 0},
		{"empty term", "milk", "", 0},
	}
	for _, tt := range tests {
		got := partialRatio(tt.text, tt.term)
		if got != tt.want {
			t.Errorf("%s: partialRatio(%q, %q) = %d, want %d", tt.name, tt.text, tt.term, got, tt.want)
		}
	}
}
