package catalog

import "testing"

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"", ""},
		{"MILK", "milk"},
		{"Soy  (Lecithin)", "soy (lecithin)"},
		{"gluten-free", "gluten-free"},
		{"E220, E221", "e220 e221"},
		{"sulphur\tdioxide\n5%", "sulphur dioxide 5%"},
		{"  trimmed  ", "trimmed"},
		{"café au lait", "cafe au lait"},
		{"milk*!?solids", "milksolids"},
		{"whey • powder", "whey powder"},
	}
	for _, tt := range tests {
		got := NormalizeLabel(tt.input)
		if got != tt.want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeLabelIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"Contains: MILK, peanut oil & soy!",
		"gluten-free (certified) 100%",
		"Élodie's café — mixed / nuts",
		"a  b\t\tc\nd",
	}
	for _, in := range inputs {
		once := NormalizeLabel(in)
		twice := NormalizeLabel(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestGetNormalizer(t *testing.T) {
	tests := []struct {
		mode, input, want string
	}{
		{"label", "Café!", "cafe"},
		{"lowercase_ascii", "Élodie", "elodie"},
		{"lowercase_utf8", "Élodie", "élodie"},
		{"none", "AsIs", "AsIs"},
		{"", "OCR Noise!", "ocr noise"}, // default is label
	}
	for _, tt := range tests {
		got := GetNormalizer(tt.mode)(tt.input)
		if got != tt.want {
			t.Errorf("GetNormalizer(%q)(%q) = %q, want %q", tt.mode, tt.input, got, tt.want)
		}
	}
}
