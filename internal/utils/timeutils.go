package utils

import (
	"fmt"
	"time"
)

// ParseRFC3339 returns a time from the provided string or an error.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// HoursBetween returns the absolute gap between two timestamps in hours.
func HoursBetween(start, end time.Time) float64 {
	if end.Before(start) {
		start, end = end, start
	}
	return end.Sub(start).Hours()
}

// DayKey buckets a timestamp into its UTC calendar day.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
