package engine

import (
	"sort"
	"strings"

	"github.com/miradorstack/mirador-pm/internal/models"
)

// MineVariants groups cases by their end-to-end activity path and returns the
// topN most frequent paths. Percent is relative to the total case count.
func MineVariants(view CaseView, topN int) []models.Variant {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if len(view.Cases) == 0 {
		return []models.Variant{}
	}

	counts := make(map[string]int, len(view.Cases))
	for _, c := range view.Cases {
		activities := make([]string, 0, len(c.Events))
		for _, event := range c.Events {
			activities = append(activities, event.Activity)
		}
		counts[strings.Join(activities, " → ")]++
	}

	total := float64(len(view.Cases))
	variants := make([]models.Variant, 0, len(counts))
	for path, count := range counts {
		variants = append(variants, models.Variant{
			Path:    path,
			Count:   count,
			Percent: float64(count) / total * 100,
		})
	}
	sort.Slice(variants, func(i, j int) bool {
		if variants[i].Count != variants[j].Count {
			return variants[i].Count > variants[j].Count
		}
		return variants[i].Path < variants[j].Path
	})
	if len(variants) > topN {
		variants = variants[:topN]
	}
	return variants
}
