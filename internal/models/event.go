package models

import (
	"fmt"
	"time"
)

// Event is a single recorded step in a process case.
type Event struct {
	CaseID    string
	Activity  string
	Timestamp time.Time
	Resource  string
}

// Validate reports the first missing field on the event.
func (e Event) Validate() error {
	if e.CaseID == "" {
		return fmt.Errorf("case id is required")
	}
	if e.Activity == "" {
		return fmt.Errorf("activity is required")
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if e.Resource == "" {
		return fmt.Errorf("resource is required")
	}
	return nil
}
