package engine

import (
	"fmt"
	"math"

	"github.com/miradorstack/mirador-pm/internal/models"
)

// Stock thresholds for conformance scoring.
const (
	DefaultExtraSlack    = 2
	DefaultMissingSlack  = 1
	DefaultOrderPenalty  = 0.1
	DefaultConformingMin = 0.8
	DefaultPartialMin    = 0.5
)

// ConformanceConfig carries the reference flow and the scoring thresholds.
type ConformanceConfig struct {
	IdealFlow     []string
	ExtraSlack    int
	MissingSlack  int
	OrderPenalty  float64
	ConformingMin float64
	PartialMin    float64
}

// DefaultConformanceConfig returns a config with the stock thresholds.
func DefaultConformanceConfig(idealFlow []string) ConformanceConfig {
	return ConformanceConfig{
		IdealFlow:     idealFlow,
		ExtraSlack:    DefaultExtraSlack,
		MissingSlack:  DefaultMissingSlack,
		OrderPenalty:  DefaultOrderPenalty,
		ConformingMin: DefaultConformingMin,
		PartialMin:    DefaultPartialMin,
	}
}

// Validate rejects reference flows the checker cannot score against.
func (c ConformanceConfig) Validate() error {
	if len(c.IdealFlow) == 0 {
		return fmt.Errorf("%w: reference flow is empty", ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(c.IdealFlow))
	for _, label := range c.IdealFlow {
		if label == "" {
			return fmt.Errorf("%w: reference flow contains an empty label", ErrInvalidInput)
		}
		if _, dup := seen[label]; dup {
			return fmt.Errorf("%w: reference flow repeats %q", ErrInvalidInput, label)
		}
		seen[label] = struct{}{}
	}
	return nil
}

// CheckConformance scores every case against the reference flow and tallies
// each deviation kind once per case.
func CheckConformance(view CaseView, cfg ConformanceConfig) (models.ConformanceReport, error) {
	if err := cfg.Validate(); err != nil {
		return models.ConformanceReport{}, err
	}

	index := make(map[string]int, len(cfg.IdealFlow))
	for i, label := range cfg.IdealFlow {
		index[label] = i
	}

	report := models.ConformanceReport{
		Results:         make([]models.ConformanceResult, 0, len(view.Cases)),
		DeviationCounts: make(map[string]int),
	}
	for _, c := range view.Cases {
		result := scoreCase(c, cfg, index)
		report.Results = append(report.Results, result)
		for _, deviation := range result.Deviations {
			report.DeviationCounts[deviation]++
		}
	}
	return report, nil
}

func scoreCase(c Case, cfg ConformanceConfig, index map[string]int) models.ConformanceResult {
	n := len(c.Events)
	m := len(cfg.IdealFlow)

	covered := 0
	for _, event := range c.Events {
		if _, ok := index[event.Activity]; ok {
			covered++
		}
	}
	// Repeated activities each count, so raw coverage can exceed one.
	coverage := float64(covered) / float64(m)

	deviations := make([]string, 0, 3)
	if n > m+cfg.ExtraSlack {
		deviations = append(deviations, models.DeviationExtraActivities)
	}
	if n < m-cfg.MissingSlack {
		deviations = append(deviations, models.DeviationMissingActivities)
	}

	violations := 0
	for i := 1; i < n; i++ {
		prevIdx, prevOK := index[c.Events[i-1].Activity]
		currIdx, currOK := index[c.Events[i].Activity]
		if prevOK && currOK && currIdx < prevIdx {
			violations++
		}
	}
	if violations > 0 {
		deviations = append(deviations, models.DeviationWrongOrder)
	}

	score := clamp(coverage-cfg.OrderPenalty*float64(violations), 0, 1)

	status := models.StatusNonConforming
	switch {
	case score >= cfg.ConformingMin && len(deviations) == 0:
		status = models.StatusConforming
	case score >= cfg.PartialMin:
		status = models.StatusPartial
	}

	return models.ConformanceResult{
		CaseID:     c.ID,
		Status:     status,
		Score:      int(math.Round(score * 100)),
		Deviations: deviations,
	}
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
