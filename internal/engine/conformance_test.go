package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/miradorstack/mirador-pm/internal/models"
)

func sequenceView(t *testing.T, caseID string, activities []string) CaseView {
	t.Helper()
	events := make([]models.Event, 0, len(activities))
	for i, activity := range activities {
		events = append(events, evt(caseID, activity, "alice", testBase.Add(time.Duration(i)*time.Hour)))
	}
	view, err := BuildCases(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return view
}

func TestCheckConformanceExactMatch(t *testing.T) {
	view := sequenceView(t, "c1", []string{"X", "Y", "Z"})
	cfg := DefaultConformanceConfig([]string{"X", "Y", "Z"})

	report, err := CheckConformance(view, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := report.Results[0]
	if result.Score != 100 {
		t.Fatalf("expected score 100, got %d", result.Score)
	}
	if result.Status != models.StatusConforming {
		t.Fatalf("expected conforming, got %s", result.Status)
	}
	if len(result.Deviations) != 0 {
		t.Fatalf("expected no deviations, got %v", result.Deviations)
	}
	if len(report.DeviationCounts) != 0 {
		t.Fatalf("expected empty tally, got %v", report.DeviationCounts)
	}
}

func TestCheckConformanceFullInversion(t *testing.T) {
	view := sequenceView(t, "c1", []string{"Z", "Y", "X"})
	cfg := DefaultConformanceConfig([]string{"X", "Y", "Z"})

	report, err := CheckConformance(view, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := report.Results[0]
	// Two adjacent inversions cost 0.2, leaving 80.
	if result.Score != 80 {
		t.Fatalf("expected score 80, got %d", result.Score)
	}
	// A flagged deviation blocks conforming status regardless of score.
	if result.Status != models.StatusPartial {
		t.Fatalf("expected partially-conforming, got %s", result.Status)
	}
	if len(result.Deviations) != 1 || result.Deviations[0] != models.DeviationWrongOrder {
		t.Fatalf("expected wrong-order deviation, got %v", result.Deviations)
	}
	if report.DeviationCounts[models.DeviationWrongOrder] != 1 {
		t.Fatalf("expected tally 1, got %v", report.DeviationCounts)
	}
}

func TestCheckConformanceStructuralDeviations(t *testing.T) {
	cfg := DefaultConformanceConfig([]string{"X", "Y", "Z"})

	long := sequenceView(t, "c1", []string{"X", "Y", "Z", "Q", "Q", "Q"})
	report, err := CheckConformance(long, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := report.Results[0].Deviations; len(got) != 1 || got[0] != models.DeviationExtraActivities {
		t.Fatalf("expected extra-activities deviation, got %v", got)
	}

	short := sequenceView(t, "c2", []string{"X"})
	report, err = CheckConformance(short, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := report.Results[0]
	if len(result.Deviations) != 1 || result.Deviations[0] != models.DeviationMissingActivities {
		t.Fatalf("expected missing-activities deviation, got %v", result.Deviations)
	}
	// Coverage 1/3 leaves the case below the partial threshold.
	if result.Score != 33 || result.Status != models.StatusNonConforming {
		t.Fatalf("expected 33 non-conforming, got %d %s", result.Score, result.Status)
	}
}

func TestCheckConformanceUnknownActivities(t *testing.T) {
	view := sequenceView(t, "c1", []string{"Other", "Noise"})
	cfg := DefaultConformanceConfig([]string{"X", "Y", "Z"})

	report, err := CheckConformance(view, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := report.Results[0]
	if result.Score != 0 || result.Status != models.StatusNonConforming {
		t.Fatalf("expected 0 non-conforming, got %d %s", result.Score, result.Status)
	}
}

func TestCheckConformanceCoverageClamped(t *testing.T) {
	// Four hits against a three-step reference would push raw coverage
	// past one without the clamp.
	view := sequenceView(t, "c1", []string{"X", "X", "X", "X"})
	cfg := DefaultConformanceConfig([]string{"X", "Y", "Z"})

	report, err := CheckConformance(view, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := report.Results[0]
	if result.Score != 100 {
		t.Fatalf("expected clamped score 100, got %d", result.Score)
	}
	if result.Status != models.StatusConforming {
		t.Fatalf("expected conforming, got %s", result.Status)
	}
}

func TestCheckConformanceScoreBounds(t *testing.T) {
	cfg := DefaultConformanceConfig([]string{"X", "Y"})
	sequences := [][]string{
		{"X"},
		{"Y", "X"},
		{"X", "Y", "X", "Y", "X", "Y"},
		{"Unrelated"},
	}
	for _, seq := range sequences {
		report, err := CheckConformance(sequenceView(t, "c1", seq), cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		score := report.Results[0].Score
		if score < 0 || score > 100 {
			t.Fatalf("sequence %v: score %d out of range", seq, score)
		}
	}
}

func TestCheckConformanceCustomThresholds(t *testing.T) {
	cfg := ConformanceConfig{
		IdealFlow:     []string{"X", "Y", "Z"},
		ExtraSlack:    0,
		MissingSlack:  0,
		OrderPenalty:  0.5,
		ConformingMin: 0.9,
		PartialMin:    0.2,
	}
	view := sequenceView(t, "c1", []string{"X", "Z", "Y", "Q"})

	report, err := CheckConformance(view, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result := report.Results[0]
	// Coverage 1.0, one inversion at half weight, one extra event over the
	// zero-slack limit.
	if result.Score != 50 {
		t.Fatalf("expected score 50, got %d", result.Score)
	}
	if result.Status != models.StatusPartial {
		t.Fatalf("expected partially-conforming, got %s", result.Status)
	}
	if len(result.Deviations) != 2 {
		t.Fatalf("expected extra and wrong-order deviations, got %v", result.Deviations)
	}
}

func TestCheckConformanceTallyPerCase(t *testing.T) {
	events := []models.Event{
		evt("c1", "Z", "alice", testBase),
		evt("c1", "Y", "alice", testBase.Add(1*time.Hour)),
		evt("c1", "X", "alice", testBase.Add(2*time.Hour)),
		evt("c2", "Y", "bob", testBase),
		evt("c2", "X", "bob", testBase.Add(1*time.Hour)),
		evt("c2", "Z", "bob", testBase.Add(2*time.Hour)),
	}
	view, err := BuildCases(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	report, err := CheckConformance(view, DefaultConformanceConfig([]string{"X", "Y", "Z"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Each case trips wrong-order once, however many inversions it holds.
	if report.DeviationCounts[models.DeviationWrongOrder] != 2 {
		t.Fatalf("expected tally 2, got %v", report.DeviationCounts)
	}
}

func TestCheckConformanceEmptyView(t *testing.T) {
	report, err := CheckConformance(CaseView{}, DefaultConformanceConfig([]string{"X"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Results) != 0 {
		t.Fatalf("expected no results, got %d", len(report.Results))
	}
}

func TestConformanceConfigValidate(t *testing.T) {
	cases := []ConformanceConfig{
		DefaultConformanceConfig(nil),
		DefaultConformanceConfig([]string{"X", ""}),
		DefaultConformanceConfig([]string{"X", "Y", "X"}),
	}
	for i, cfg := range cases {
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
	if err := DefaultConformanceConfig([]string{"X", "Y"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
