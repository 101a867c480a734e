package engine

import (
	"sort"

	"github.com/miradorstack/mirador-pm/internal/models"
	"github.com/miradorstack/mirador-pm/internal/utils"
)

// Summarize reduces the filtered event collection into headline counts. A
// case active on several days counts once per day.
func Summarize(events []models.Event, topN int) models.Summary {
	if topN <= 0 {
		topN = DefaultTopN
	}

	cases := make(map[string]struct{})
	resources := make(map[string]struct{})
	activities := make(map[string]int)
	daily := make(map[string]map[string]struct{})

	for _, event := range events {
		cases[event.CaseID] = struct{}{}
		resources[event.Resource] = struct{}{}
		activities[event.Activity]++

		day := utils.DayKey(event.Timestamp)
		if daily[day] == nil {
			daily[day] = make(map[string]struct{})
		}
		daily[day][event.CaseID] = struct{}{}
	}

	summary := models.Summary{
		TotalEvents:    len(events),
		TotalCases:     len(cases),
		TotalResources: len(resources),
		TopActivities:  make([]models.ActivityCount, 0, len(activities)),
		CasesPerDay:    make([]models.DailyCases, 0, len(daily)),
	}

	for activity, count := range activities {
		summary.TopActivities = append(summary.TopActivities, models.ActivityCount{Activity: activity, Count: count})
	}
	sort.Slice(summary.TopActivities, func(i, j int) bool {
		left, right := summary.TopActivities[i], summary.TopActivities[j]
		if left.Count != right.Count {
			return left.Count > right.Count
		}
		return left.Activity < right.Activity
	})
	if len(summary.TopActivities) > topN {
		summary.TopActivities = summary.TopActivities[:topN]
	}

	for day, active := range daily {
		summary.CasesPerDay = append(summary.CasesPerDay, models.DailyCases{Day: day, Cases: len(active)})
	}
	sort.Slice(summary.CasesPerDay, func(i, j int) bool {
		return summary.CasesPerDay[i].Day < summary.CasesPerDay[j].Day
	})
	return summary
}
