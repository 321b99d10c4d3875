package detect

// Approximate matching tolerant of OCR misreads (character substitutions,
// dropped strokes). Scores are 0..100; 100 means identical.

// partialRatio returns the best similarity of term against all same-length
// rune windows of text. With text shorter than the term, the two strings are
// compared whole.
func partialRatio(text, term string) int {
	tr := []rune(text)
	sr := []rune(term)
	if len(tr) == 0 || len(sr) == 0 {
		return 0
	}
	if len(tr) <= len(sr) {
		return fuzzRatio(tr, sr)
	}

	best := 0
	for i := 0; i+len(sr) <= len(tr); i++ {
		if r := fuzzRatio(tr[i:i+len(sr)], sr); r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// fuzzRatio is the normalized edit-distance similarity
// (l1+l2-dist)/(l1+l2) scaled to 0..100.
func fuzzRatio(a, b []rune) int {
	la, lb := len(a), len(b)
	if la == 0 && lb == 0 {
		return 100
	}
	dist := levenshtein(a, b)
	return int(float64(la+lb-dist) / float64(la+lb) * 100.0)
}

// levenshtein computes edit distance with a single rolling row.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(a); i++ {
		prev := i
		for j := 1; j <= len(b); j++ {
			var val int
			if a[i-1] == b[j-1] {
				val = row[j-1]
			} else {
				val = min3(row[j-1]+1, prev+1, row[j]+1)
			}
			row[j-1] = prev
			prev = val
		}
		row[len(b)] = prev
	}
	return row[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
