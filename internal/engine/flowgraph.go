package engine

import (
	"sort"

	"github.com/miradorstack/mirador-pm/internal/models"
	"github.com/miradorstack/mirador-pm/internal/utils"
)

type nodeAccum struct {
	frequency int
	resources map[string]struct{}
}

type edgeAccum struct {
	frequency int
	avgHours  float64
}

// BuildFlowGraph derives the directly-follows activity graph from the case
// view. Node frequencies count every event; each adjacent event pair within
// a case contributes exactly one edge observation.
func BuildFlowGraph(view CaseView) models.FlowGraph {
	nodes := make(map[string]*nodeAccum)
	edges := make(map[[2]string]*edgeAccum)

	for _, c := range view.Cases {
		for i, event := range c.Events {
			node, ok := nodes[event.Activity]
			if !ok {
				node = &nodeAccum{resources: make(map[string]struct{})}
				nodes[event.Activity] = node
			}
			node.frequency++
			node.resources[event.Resource] = struct{}{}

			if i == 0 {
				continue
			}
			prev := c.Events[i-1]
			hours := utils.HoursBetween(prev.Timestamp, event.Timestamp)

			key := [2]string{prev.Activity, event.Activity}
			edge, ok := edges[key]
			if !ok {
				edge = &edgeAccum{}
				edges[key] = edge
			}
			edge.frequency++
			// Running mean; uses the already-incremented frequency.
			edge.avgHours += (hours - edge.avgHours) / float64(edge.frequency)
		}
	}

	graph := models.FlowGraph{
		Nodes:         make([]models.FlowNode, 0, len(nodes)),
		Edges:         make([]models.FlowEdge, 0, len(edges)),
		ReversedPairs: view.ReversedPairs,
	}
	for activity, accum := range nodes {
		graph.Nodes = append(graph.Nodes, models.FlowNode{
			Activity:  activity,
			Frequency: accum.frequency,
			Resources: sortedSet(accum.resources),
		})
	}
	for key, accum := range edges {
		graph.Edges = append(graph.Edges, models.FlowEdge{
			From:             key[0],
			To:               key[1],
			Frequency:        accum.frequency,
			AvgDurationHours: accum.avgHours,
		})
	}

	sort.Slice(graph.Nodes, func(i, j int) bool {
		if graph.Nodes[i].Frequency != graph.Nodes[j].Frequency {
			return graph.Nodes[i].Frequency > graph.Nodes[j].Frequency
		}
		return graph.Nodes[i].Activity < graph.Nodes[j].Activity
	})
	sort.Slice(graph.Edges, func(i, j int) bool {
		left, right := graph.Edges[i], graph.Edges[j]
		if left.Frequency != right.Frequency {
			return left.Frequency > right.Frequency
		}
		if left.From != right.From {
			return left.From < right.From
		}
		return left.To < right.To
	})
	return graph
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for value := range set {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}
