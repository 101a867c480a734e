package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/miradorstack/mirador-pm/internal/models"
)

func TestBuildFlowGraphSingleCase(t *testing.T) {
	events := []models.Event{
		evt("c1", "A", "alice", testBase),
		evt("c1", "B", "bob", testBase.Add(1*time.Hour)),
		evt("c1", "C", "carol", testBase.Add(2*time.Hour)),
	}
	view, err := BuildCases(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	graph := BuildFlowGraph(view)
	if len(graph.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(graph.Nodes))
	}
	for _, node := range graph.Nodes {
		if node.Frequency != 1 {
			t.Fatalf("node %s: expected frequency 1, got %d", node.Activity, node.Frequency)
		}
	}
	if len(graph.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(graph.Edges))
	}
	for _, edge := range graph.Edges {
		if edge.Frequency != 1 || edge.AvgDurationHours != 1.0 {
			t.Fatalf("edge %s->%s: expected frequency 1 and 1h mean, got %d and %v",
				edge.From, edge.To, edge.Frequency, edge.AvgDurationHours)
		}
	}
	if graph.ReversedPairs != 0 {
		t.Fatalf("expected no reversed pairs, got %d", graph.ReversedPairs)
	}
}

func TestBuildFlowGraphRepeatedTransitions(t *testing.T) {
	var events []models.Event
	for _, caseID := range []string{"c1", "c2"} {
		for i, activity := range []string{"A", "B", "A", "B"} {
			events = append(events, evt(caseID, activity, "alice", testBase.Add(time.Duration(i)*2*time.Hour)))
		}
	}
	view, err := BuildCases(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	graph := BuildFlowGraph(view)
	if len(graph.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(graph.Nodes))
	}
	for _, node := range graph.Nodes {
		if node.Frequency != 4 {
			t.Fatalf("node %s: expected frequency 4, got %d", node.Activity, node.Frequency)
		}
	}

	byPair := make(map[string]models.FlowEdge)
	for _, edge := range graph.Edges {
		byPair[edge.From+">"+edge.To] = edge
	}
	ab := byPair["A>B"]
	if ab.Frequency != 4 || ab.AvgDurationHours != 2.0 {
		t.Fatalf("edge A->B: expected frequency 4 and 2h mean, got %d and %v", ab.Frequency, ab.AvgDurationHours)
	}
	ba := byPair["B>A"]
	if ba.Frequency != 2 || ba.AvgDurationHours != 2.0 {
		t.Fatalf("edge B->A: expected frequency 2 and 2h mean, got %d and %v", ba.Frequency, ba.AvgDurationHours)
	}
}

func TestBuildFlowGraphProperties(t *testing.T) {
	events := []models.Event{
		evt("c1", "A", "alice", testBase),
		evt("c1", "A", "alice", testBase.Add(1*time.Hour)),
		evt("c1", "B", "bob", testBase.Add(2*time.Hour)),
		evt("c2", "Solo", "carol", testBase),
		evt("c3", "B", "bob", testBase),
		evt("c3", "A", "alice", testBase.Add(4*time.Hour)),
	}
	view, err := BuildCases(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	graph := BuildFlowGraph(view)

	nodeTotal := 0
	for _, node := range graph.Nodes {
		nodeTotal += node.Frequency
		if node.Frequency < 1 {
			t.Fatalf("node %s has zero frequency", node.Activity)
		}
	}
	if nodeTotal != len(events) {
		t.Fatalf("node frequencies sum to %d, want %d", nodeTotal, len(events))
	}

	// Per case: L-1 edge observations, zero for the single-event case.
	edgeTotal := 0
	for _, edge := range graph.Edges {
		edgeTotal += edge.Frequency
		if edge.Frequency < 1 {
			t.Fatalf("edge %s->%s has zero frequency", edge.From, edge.To)
		}
	}
	if edgeTotal != 3 {
		t.Fatalf("expected 3 edge observations, got %d", edgeTotal)
	}

	var selfLoop bool
	for _, edge := range graph.Edges {
		if edge.From == "A" && edge.To == "A" {
			selfLoop = true
		}
	}
	if !selfLoop {
		t.Fatalf("expected self-loop edge A->A")
	}
}

func TestBuildFlowGraphOrderingAndIdempotence(t *testing.T) {
	events := []models.Event{
		evt("c1", "Low", "alice", testBase),
		evt("c2", "High", "bob", testBase),
		evt("c3", "High", "bob", testBase),
		evt("c4", "Also", "carol", testBase),
	}
	view, err := BuildCases(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	graph := BuildFlowGraph(view)
	if graph.Nodes[0].Activity != "High" {
		t.Fatalf("expected most frequent node first, got %s", graph.Nodes[0].Activity)
	}
	// Frequency ties fall back to the activity label.
	if graph.Nodes[1].Activity != "Also" || graph.Nodes[2].Activity != "Low" {
		t.Fatalf("unexpected tie order: %+v", graph.Nodes)
	}

	again := BuildFlowGraph(view)
	if !reflect.DeepEqual(graph, again) {
		t.Fatalf("same input must produce identical graphs")
	}
}

func TestBuildFlowGraphReversedInput(t *testing.T) {
	// The c1 events arrive newest-first; the sorted view hides that, the
	// diagnostic counter must not.
	events := []models.Event{
		evt("c1", "B", "bob", testBase.Add(2*time.Hour)),
		evt("c1", "A", "alice", testBase),
		evt("c2", "A", "alice", testBase),
		evt("c2", "B", "bob", testBase.Add(1*time.Hour)),
	}
	view, err := BuildCases(events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ReversedPairs != 1 {
		t.Fatalf("expected 1 reversed input pair, got %d", view.ReversedPairs)
	}

	graph := BuildFlowGraph(view)
	if graph.ReversedPairs != 1 {
		t.Fatalf("expected the graph to carry the diagnostic, got %d", graph.ReversedPairs)
	}
	// Both cases run A then B after sorting.
	if len(graph.Edges) != 1 || graph.Edges[0].From != "A" || graph.Edges[0].Frequency != 2 {
		t.Fatalf("unexpected edges: %+v", graph.Edges)
	}
	if graph.Edges[0].AvgDurationHours != 1.5 {
		t.Fatalf("expected mean of 2h and 1h gaps, got %v", graph.Edges[0].AvgDurationHours)
	}
}

func TestBuildFlowGraphEmptyView(t *testing.T) {
	graph := BuildFlowGraph(CaseView{})
	if len(graph.Nodes) != 0 || len(graph.Edges) != 0 {
		t.Fatalf("expected empty graph, got %+v", graph)
	}
}
