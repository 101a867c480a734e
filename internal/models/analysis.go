package models

import "time"

// FlowNode aggregates every occurrence of one activity.
type FlowNode struct {
	Activity  string
	Frequency int
	Resources []string
}

// FlowEdge is a directly-follows transition between two activities.
type FlowEdge struct {
	From             string
	To               string
	Frequency        int
	AvgDurationHours float64
}

// FlowGraph is the mined activity network for one slice of the event log.
type FlowGraph struct {
	Nodes         []FlowNode
	Edges         []FlowEdge
	ReversedPairs int
}

// ConformanceStatus classifies how closely a case follows the reference flow.
type ConformanceStatus string

const (
	StatusConforming    ConformanceStatus = "conforming"
	StatusPartial       ConformanceStatus = "partially-conforming"
	StatusNonConforming ConformanceStatus = "non-conforming"
)

// Deviation labels attached to conformance results.
const (
	DeviationExtraActivities   = "Extra activities detected"
	DeviationMissingActivities = "Missing activities"
	DeviationWrongOrder        = "Wrong activity order"
)

// ConformanceResult scores a single case against the reference flow.
type ConformanceResult struct {
	CaseID     string
	Status     ConformanceStatus
	Score      int
	Deviations []string
}

// ConformanceReport collects per-case results and deviation totals.
type ConformanceReport struct {
	Results         []ConformanceResult
	DeviationCounts map[string]int
}

// BottleneckEntry ranks one transition by how long cases wait on it.
type BottleneckEntry struct {
	Transition       string
	AvgDurationHours float64
	MaxDurationHours float64
	Occurrences      int
	Variability      float64
}

// BottleneckReport carries the ranked slowest transitions plus the full set.
type BottleneckReport struct {
	Top []BottleneckEntry
	All []BottleneckEntry
}

// ResourceProfile summarises one resource's workload and error pressure.
type ResourceProfile struct {
	Resource  string
	Workload  int
	Errors    int
	ErrorRate float64
}

// Variant is one distinct end-to-end activity path with its case frequency.
type Variant struct {
	Path    string
	Count   int
	Percent float64
}

// ActivityCount pairs an activity with its occurrence count.
type ActivityCount struct {
	Activity string
	Count    int
}

// DailyCases counts distinct active cases on one UTC day.
type DailyCases struct {
	Day   string
	Cases int
}

// Summary aggregates headline statistics for the filtered log.
type Summary struct {
	TotalEvents    int
	TotalCases     int
	TotalResources int
	TopActivities  []ActivityCount
	CasesPerDay    []DailyCases
}

// AnalysisSnapshot bundles the complete output of one analysis run.
type AnalysisSnapshot struct {
	AnalysisID  string
	Revision    int64
	GeneratedAt time.Time
	Filter      Filter
	Flow        FlowGraph
	Conformance ConformanceReport
	Bottlenecks BottleneckReport
	Resources   []ResourceProfile
	Variants    []Variant
	Summary     Summary
}
