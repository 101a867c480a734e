package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/miradorstack/mirador-pm/internal/models"
)

// ErrInvalidInput marks contract violations in the supplied event log or
// reference flow.
var ErrInvalidInput = errors.New("invalid input")

// Case is one process instance: every event sharing a case ID, ordered
// ascending by timestamp.
type Case struct {
	ID     string
	Events []models.Event
}

// CaseView is the grouped-and-sorted event log shared by the analytical
// passes. Callers must not mutate it once built. ReversedPairs counts
// case-adjacent input pairs whose timestamps arrived in descending order, a
// data-quality signal the sorted view would otherwise hide.
type CaseView struct {
	Cases         []Case
	TotalEvents   int
	ReversedPairs int
}

// BuildCases groups events by case ID and orders each group by timestamp.
// Events with equal timestamps keep their original relative order.
func BuildCases(events []models.Event) (CaseView, error) {
	grouped := make(map[string][]models.Event)
	reversed := 0
	for i, event := range events {
		if err := event.Validate(); err != nil {
			return CaseView{}, fmt.Errorf("%w: event %d: %v", ErrInvalidInput, i, err)
		}
		group := grouped[event.CaseID]
		if len(group) > 0 && event.Timestamp.Before(group[len(group)-1].Timestamp) {
			reversed++
		}
		grouped[event.CaseID] = append(group, event)
	}

	view := CaseView{Cases: make([]Case, 0, len(grouped)), TotalEvents: len(events), ReversedPairs: reversed}
	for _, id := range sortedKeys(grouped) {
		group := grouped[id]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp.Before(group[j].Timestamp)
		})
		view.Cases = append(view.Cases, Case{ID: id, Events: group})
	}
	return view, nil
}

// ApplyFilter returns the events passing the filter, preserving input order.
func ApplyFilter(events []models.Event, filter models.Filter) []models.Event {
	if filter.IsZero() {
		return events
	}
	filtered := make([]models.Event, 0, len(events))
	for _, event := range events {
		if filter.Match(event) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func sortedKeys(grouped map[string][]models.Event) []string {
	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
