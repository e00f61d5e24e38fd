package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/verte-zerg/neurlyn/internal/model"
)

// TopTraits returns up to n non-medium traits ordered by distance from the
// population mean, formatted as "trait (level)".
func TopTraits(scores map[string]model.TraitScore, n int) []string {
	if n <= 0 || len(scores) == 0 {
		return nil
	}
	items := make([]model.TraitScore, 0, len(scores))
	for _, s := range scores {
		if s.Level == model.LevelMedium {
			continue
		}
		items = append(items, s)
	}
	sort.Slice(items, func(i, j int) bool {
		di := math.Abs(items[i].Raw - 50)
		dj := math.Abs(items[j].Raw - 50)
		if di == dj {
			return items[i].Trait < items[j].Trait
		}
		return di > dj
	})
	if n > len(items) {
		n = len(items)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("%s (%s)", items[i].Trait, items[i].Level))
	}
	return out
}
