package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/miradorstack/mirador-pm/internal/anomaly"
	"github.com/miradorstack/mirador-pm/internal/models"
	"github.com/miradorstack/mirador-pm/internal/utils"
)

// DefaultTopN bounds ranked views when the caller does not configure a limit.
const DefaultTopN = 8

// BottleneckAnalyzer ranks transitions by mean duration and resources by
// error pressure. Error counts come from the configured anomaly source.
type BottleneckAnalyzer struct {
	logger *slog.Logger
	source anomaly.Source
	topN   int
}

// NewBottleneckAnalyzer constructs an analyzer. A nil source disables error
// attribution.
func NewBottleneckAnalyzer(logger *slog.Logger, source anomaly.Source, topN int) *BottleneckAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if source == nil {
		source = anomaly.NopSource{}
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &BottleneckAnalyzer{logger: logger, source: source, topN: topN}
}

// Analyze produces the transition ranking and the per-resource profiles. A
// failing anomaly source degrades to zero error counts instead of failing
// the whole analysis.
func (a *BottleneckAnalyzer) Analyze(ctx context.Context, view CaseView) (models.BottleneckReport, []models.ResourceProfile) {
	durations := make(map[string][]float64)
	workload := make(map[string]int)

	for _, c := range view.Cases {
		for i, event := range c.Events {
			workload[event.Resource]++
			if i == 0 {
				continue
			}
			prev := c.Events[i-1]
			hours := utils.HoursBetween(prev.Timestamp, event.Timestamp)
			key := fmt.Sprintf("%s → %s", prev.Activity, event.Activity)
			durations[key] = append(durations[key], hours)
		}
	}

	return buildBottleneckReport(durations, a.topN), a.buildResourceProfiles(ctx, workload)
}

func buildBottleneckReport(durations map[string][]float64, topN int) models.BottleneckReport {
	all := make([]models.BottleneckEntry, 0, len(durations))
	for key, samples := range durations {
		avg := mean(samples)
		all = append(all, models.BottleneckEntry{
			Transition:       key,
			AvgDurationHours: avg,
			MaxDurationHours: maxSample(samples),
			Occurrences:      len(samples),
			Variability:      stdDev(samples, avg),
		})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Transition < all[j].Transition })

	top := append([]models.BottleneckEntry(nil), all...)
	sort.Slice(top, func(i, j int) bool {
		if top[i].AvgDurationHours != top[j].AvgDurationHours {
			return top[i].AvgDurationHours > top[j].AvgDurationHours
		}
		return top[i].Transition < top[j].Transition
	})
	if len(top) > topN {
		top = top[:topN]
	}
	return models.BottleneckReport{Top: top, All: all}
}

func (a *BottleneckAnalyzer) buildResourceProfiles(ctx context.Context, workload map[string]int) []models.ResourceProfile {
	errorCounts, err := a.source.ErrorsByResource(ctx, workload)
	if err != nil {
		a.logger.Warn("anomaly source unavailable, reporting zero errors", slog.Any("error", err))
		errorCounts = nil
	}

	profiles := make([]models.ResourceProfile, 0, len(workload))
	for resource, load := range workload {
		errs := errorCounts[resource]
		rate := 0.0
		if load > 0 {
			rate = clamp(float64(errs)/float64(load)*100, 0, 100)
		}
		profiles = append(profiles, models.ResourceProfile{
			Resource:  resource,
			Workload:  load,
			Errors:    errs,
			ErrorRate: rate,
		})
	}
	sort.Slice(profiles, func(i, j int) bool {
		left, right := profiles[i], profiles[j]
		if left.ErrorRate != right.ErrorRate {
			return left.ErrorRate > right.ErrorRate
		}
		if left.Workload != right.Workload {
			return left.Workload > right.Workload
		}
		return left.Resource < right.Resource
	})
	return profiles
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func maxSample(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func stdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(values)))
}
