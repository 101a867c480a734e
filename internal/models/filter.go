package models

import (
	"sort"
	"strings"
	"time"
)

// Filter narrows an event log before analysis. Zero-valued fields leave
// the matching dimension unconstrained.
type Filter struct {
	From       time.Time
	To         time.Time
	Activities []string
	Resources  []string
	Cases      []string
}

// IsZero reports whether the filter constrains anything at all.
func (f Filter) IsZero() bool {
	return f.From.IsZero() && f.To.IsZero() &&
		len(f.Activities) == 0 && len(f.Resources) == 0 && len(f.Cases) == 0
}

// Match reports whether the event passes every constraint. Time bounds are
// inclusive and label matches are exact.
func (f Filter) Match(e Event) bool {
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	if len(f.Activities) > 0 && !containsString(f.Activities, e.Activity) {
		return false
	}
	if len(f.Resources) > 0 && !containsString(f.Resources, e.Resource) {
		return false
	}
	if len(f.Cases) > 0 && !containsString(f.Cases, e.CaseID) {
		return false
	}
	return true
}

// Key returns a canonical representation of the filter. Equivalent filters
// produce identical keys regardless of list ordering.
func (f Filter) Key() string {
	parts := []string{
		"from=" + formatBound(f.From),
		"to=" + formatBound(f.To),
		"act=" + joinSorted(f.Activities),
		"res=" + joinSorted(f.Resources),
		"case=" + joinSorted(f.Cases),
	}
	return strings.Join(parts, "|")
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func joinSorted(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
