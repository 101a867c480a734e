package api

import (
	"time"

	"github.com/miradorstack/mirador-pm/internal/models"
)

// Wire payloads keep the JSON surface decoupled from the domain structs.

// AnalysisResponse is the JSON shape of a full analysis snapshot.
type AnalysisResponse struct {
	AnalysisID  string             `json:"analysis_id"`
	Revision    int64              `json:"revision"`
	GeneratedAt time.Time          `json:"generated_at"`
	Flow        flowGraphPayload   `json:"flow"`
	Conformance conformancePayload `json:"conformance"`
	Bottlenecks bottleneckPayload  `json:"bottlenecks"`
	Resources   []resourcePayload  `json:"resources"`
	Variants    []variantPayload   `json:"variants"`
	Summary     summaryPayload     `json:"summary"`
}

type flowNodePayload struct {
	Activity  string   `json:"activity"`
	Frequency int      `json:"frequency"`
	Resources []string `json:"resources"`
}

type flowEdgePayload struct {
	From             string  `json:"from"`
	To               string  `json:"to"`
	Frequency        int     `json:"frequency"`
	AvgDurationHours float64 `json:"avg_duration_hours"`
}

type flowGraphPayload struct {
	Nodes         []flowNodePayload `json:"nodes"`
	Edges         []flowEdgePayload `json:"edges"`
	ReversedPairs int               `json:"reversed_pairs"`
}

type conformanceResultPayload struct {
	CaseID     string   `json:"case_id"`
	Status     string   `json:"status"`
	Score      int      `json:"score"`
	Deviations []string `json:"deviations"`
}

type conformancePayload struct {
	Results         []conformanceResultPayload `json:"results"`
	DeviationCounts map[string]int             `json:"deviation_counts"`
}

type bottleneckEntryPayload struct {
	Transition       string  `json:"transition"`
	AvgDurationHours float64 `json:"avg_duration_hours"`
	MaxDurationHours float64 `json:"max_duration_hours"`
	Occurrences      int     `json:"occurrences"`
	Variability      float64 `json:"variability"`
}

type bottleneckPayload struct {
	Top []bottleneckEntryPayload `json:"top"`
	All []bottleneckEntryPayload `json:"all"`
}

type resourcePayload struct {
	Resource  string  `json:"resource"`
	Workload  int     `json:"workload"`
	Errors    int     `json:"errors"`
	ErrorRate float64 `json:"error_rate"`
}

type variantPayload struct {
	Path    string  `json:"path"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type activityCountPayload struct {
	Activity string `json:"activity"`
	Count    int    `json:"count"`
}

type dailyCasesPayload struct {
	Day   string `json:"day"`
	Cases int    `json:"cases"`
}

type summaryPayload struct {
	TotalEvents    int                    `json:"total_events"`
	TotalCases     int                    `json:"total_cases"`
	TotalResources int                    `json:"total_resources"`
	TopActivities  []activityCountPayload `json:"top_activities"`
	CasesPerDay    []dailyCasesPayload    `json:"cases_per_day"`
}

// ToAnalysisResponse maps a domain snapshot onto the wire shape.
func ToAnalysisResponse(snapshot models.AnalysisSnapshot) AnalysisResponse {
	return AnalysisResponse{
		AnalysisID:  snapshot.AnalysisID,
		Revision:    snapshot.Revision,
		GeneratedAt: snapshot.GeneratedAt,
		Flow:        toFlowPayload(snapshot.Flow),
		Conformance: toConformancePayload(snapshot.Conformance),
		Bottlenecks: toBottleneckPayload(snapshot.Bottlenecks),
		Resources:   toResourcePayloads(snapshot.Resources),
		Variants:    toVariantPayloads(snapshot.Variants),
		Summary:     toSummaryPayload(snapshot.Summary),
	}
}

func toFlowPayload(graph models.FlowGraph) flowGraphPayload {
	payload := flowGraphPayload{
		Nodes:         make([]flowNodePayload, 0, len(graph.Nodes)),
		Edges:         make([]flowEdgePayload, 0, len(graph.Edges)),
		ReversedPairs: graph.ReversedPairs,
	}
	for _, node := range graph.Nodes {
		payload.Nodes = append(payload.Nodes, flowNodePayload{
			Activity:  node.Activity,
			Frequency: node.Frequency,
			Resources: append([]string(nil), node.Resources...),
		})
	}
	for _, edge := range graph.Edges {
		payload.Edges = append(payload.Edges, flowEdgePayload{
			From:             edge.From,
			To:               edge.To,
			Frequency:        edge.Frequency,
			AvgDurationHours: edge.AvgDurationHours,
		})
	}
	return payload
}

func toConformancePayload(report models.ConformanceReport) conformancePayload {
	payload := conformancePayload{
		Results:         make([]conformanceResultPayload, 0, len(report.Results)),
		DeviationCounts: map[string]int{},
	}
	for _, result := range report.Results {
		payload.Results = append(payload.Results, conformanceResultPayload{
			CaseID:     result.CaseID,
			Status:     string(result.Status),
			Score:      result.Score,
			Deviations: append([]string(nil), result.Deviations...),
		})
	}
	for kind, count := range report.DeviationCounts {
		payload.DeviationCounts[kind] = count
	}
	return payload
}

func toBottleneckPayload(report models.BottleneckReport) bottleneckPayload {
	return bottleneckPayload{
		Top: toBottleneckEntries(report.Top),
		All: toBottleneckEntries(report.All),
	}
}

func toBottleneckEntries(entries []models.BottleneckEntry) []bottleneckEntryPayload {
	out := make([]bottleneckEntryPayload, 0, len(entries))
	for _, entry := range entries {
		out = append(out, bottleneckEntryPayload{
			Transition:       entry.Transition,
			AvgDurationHours: entry.AvgDurationHours,
			MaxDurationHours: entry.MaxDurationHours,
			Occurrences:      entry.Occurrences,
			Variability:      entry.Variability,
		})
	}
	return out
}

func toResourcePayloads(profiles []models.ResourceProfile) []resourcePayload {
	out := make([]resourcePayload, 0, len(profiles))
	for _, profile := range profiles {
		out = append(out, resourcePayload{
			Resource:  profile.Resource,
			Workload:  profile.Workload,
			Errors:    profile.Errors,
			ErrorRate: profile.ErrorRate,
		})
	}
	return out
}

func toVariantPayloads(variants []models.Variant) []variantPayload {
	out := make([]variantPayload, 0, len(variants))
	for _, variant := range variants {
		out = append(out, variantPayload{
			Path:    variant.Path,
			Count:   variant.Count,
			Percent: variant.Percent,
		})
	}
	return out
}

func toSummaryPayload(summary models.Summary) summaryPayload {
	payload := summaryPayload{
		TotalEvents:    summary.TotalEvents,
		TotalCases:     summary.TotalCases,
		TotalResources: summary.TotalResources,
		TopActivities:  make([]activityCountPayload, 0, len(summary.TopActivities)),
		CasesPerDay:    make([]dailyCasesPayload, 0, len(summary.CasesPerDay)),
	}
	for _, activity := range summary.TopActivities {
		payload.TopActivities = append(payload.TopActivities, activityCountPayload{
			Activity: activity.Activity,
			Count:    activity.Count,
		})
	}
	for _, day := range summary.CasesPerDay {
		payload.CasesPerDay = append(payload.CasesPerDay, dailyCasesPayload{
			Day:   day.Day,
			Cases: day.Cases,
		})
	}
	return payload
}
