package detect

import (
	"strings"

	"github.com/nafeeshossain/allergen-detector/pkg/catalog"
)

// scoreHealth runs the weighted-deduction pass over the harmful-ingredient
// table: exact substring only, score starts at 100 and clamps at 0. The
// score does not depend on table order; the found list follows it.
func scoreHealth(table *catalog.WeightTable, text string) (int, []catalog.IngredientWeight) {
	score := 100
	found := []catalog.IngredientWeight{}
	if table == nil || text == "" {
		return score, found
	}

	for _, iw := range table.Items() {
		if strings.Contains(text, iw.Ingredient) {
			score -= iw.Weight
			found = append(found, iw)
		}
	}
	if score < 0 {
		score = 0
	}
	return score, found
}
