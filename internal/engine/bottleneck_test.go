package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/miradorstack/mirador-pm/internal/anomaly"
	"github.com/miradorstack/mirador-pm/internal/models"
)

func TestAnalyzeBottlenecks(t *testing.T) {
	events := []models.Event{
		evt("c1", "A", "alice", testBase),
		evt("c1", "B", "bob", testBase.Add(1*time.Hour)),
		evt("c2", "A", "alice", testBase),
		evt("c2", "B", "bob", testBase.Add(3*time.Hour)),
		evt("c3", "B", "bob", testBase),
		evt("c3", "C", "carol", testBase.Add(30*time.Minute)),
	}
	view, err := BuildCases(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	analyzer := NewBottleneckAnalyzer(nil, nil, 0)
	report, profiles := analyzer.Analyze(context.Background(), view)

	if len(report.All) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(report.All))
	}
	// The full set is ordered by transition key.
	ab := report.All[0]
	if ab.Transition != "A → B" {
		t.Fatalf("expected A → B first in full set, got %s", ab.Transition)
	}
	if ab.Occurrences != 2 || ab.AvgDurationHours != 2.0 || ab.MaxDurationHours != 3.0 {
		t.Fatalf("unexpected A → B stats: %+v", ab)
	}
	// Durations 1h and 3h around a 2h mean.
	if ab.Variability != 1.0 {
		t.Fatalf("expected population stddev 1.0, got %v", ab.Variability)
	}

	if report.Top[0].Transition != "A → B" {
		t.Fatalf("expected slowest transition ranked first, got %s", report.Top[0].Transition)
	}

	if len(profiles) != 3 {
		t.Fatalf("expected 3 resource profiles, got %d", len(profiles))
	}
	// Zero errors everywhere, so workload decides the order.
	if profiles[0].Resource != "bob" || profiles[0].Workload != 3 {
		t.Fatalf("expected bob with workload 3 first, got %+v", profiles[0])
	}
	for _, profile := range profiles {
		if profile.Errors != 0 || profile.ErrorRate != 0 {
			t.Fatalf("nop source must yield zero errors, got %+v", profile)
		}
	}
}

func TestAnalyzeTopNTruncation(t *testing.T) {
	events := []models.Event{
		evt("c1", "A", "alice", testBase),
		evt("c1", "B", "alice", testBase.Add(3*time.Hour)),
		evt("c1", "C", "alice", testBase.Add(5*time.Hour)),
		evt("c1", "D", "alice", testBase.Add(6*time.Hour)),
	}
	view, err := BuildCases(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	analyzer := NewBottleneckAnalyzer(nil, nil, 2)
	report, _ := analyzer.Analyze(context.Background(), view)

	if len(report.Top) != 2 {
		t.Fatalf("expected top view truncated to 2, got %d", len(report.Top))
	}
	if len(report.All) != 3 {
		t.Fatalf("expected full set of 3, got %d", len(report.All))
	}
	if report.Top[0].Transition != "A → B" || report.Top[1].Transition != "B → C" {
		t.Fatalf("unexpected ranking: %+v", report.Top)
	}
}

func TestAnalyzeResourceErrors(t *testing.T) {
	events := []models.Event{
		evt("c1", "A", "alice", testBase),
		evt("c1", "B", "alice", testBase.Add(1*time.Hour)),
		evt("c2", "A", "bob", testBase),
		evt("c3", "A", "carol", testBase),
	}
	view, err := BuildCases(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	source := anomaly.StaticSource{Counts: map[string]int{"alice": 1, "carol": 5}}
	analyzer := NewBottleneckAnalyzer(nil, source, 0)
	_, profiles := analyzer.Analyze(context.Background(), view)

	byResource := make(map[string]models.ResourceProfile)
	for _, profile := range profiles {
		byResource[profile.Resource] = profile
	}
	if got := byResource["alice"]; got.Workload != 2 || got.Errors != 1 || got.ErrorRate != 50 {
		t.Fatalf("unexpected alice profile: %+v", got)
	}
	if got := byResource["bob"]; got.Errors != 0 || got.ErrorRate != 0 {
		t.Fatalf("unexpected bob profile: %+v", got)
	}
	// Error rate is capped even when the feed over-reports.
	if got := byResource["carol"]; got.ErrorRate != 100 {
		t.Fatalf("expected clamped rate 100, got %+v", got)
	}
	if profiles[0].Resource != "carol" {
		t.Fatalf("expected highest error rate first, got %s", profiles[0].Resource)
	}
}

func TestAnalyzeSourceFailure(t *testing.T) {
	events := []models.Event{
		evt("c1", "A", "alice", testBase),
		evt("c1", "B", "alice", testBase.Add(1*time.Hour)),
	}
	view, err := BuildCases(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	failing := anomaly.SourceFunc(func(context.Context, map[string]int) (map[string]int, error) {
		return nil, fmt.Errorf("incident backend down")
	})
	analyzer := NewBottleneckAnalyzer(nil, failing, 0)
	report, profiles := analyzer.Analyze(context.Background(), view)

	if len(report.All) != 1 {
		t.Fatalf("transition stats must survive a failing source, got %+v", report)
	}
	if len(profiles) != 1 || profiles[0].Errors != 0 || profiles[0].ErrorRate != 0 {
		t.Fatalf("expected degraded zero-error profile, got %+v", profiles)
	}
}

func TestAnalyzeEmptyView(t *testing.T) {
	analyzer := NewBottleneckAnalyzer(nil, nil, 0)
	report, profiles := analyzer.Analyze(context.Background(), CaseView{})
	if len(report.Top) != 0 || len(report.All) != 0 || len(profiles) != 0 {
		t.Fatalf("expected empty outputs, got %+v and %+v", report, profiles)
	}
}
