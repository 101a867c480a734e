package utils

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker stores recent duration samples and computes percentiles.
type LatencyTracker struct {
	mu      sync.RWMutex
	samples []time.Duration
	next    int
}

// NewLatencyTracker creates a tracker storing up to maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{samples: make([]time.Duration, 0, maxSize)}
}

// Observe records a new duration.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.samples) < cap(l.samples) {
		l.samples = append(l.samples, d)
		return
	}
	// Overwrite the oldest sample to bound memory.
	l.samples[l.next] = d
	l.next = (l.next + 1) % len(l.samples)
}

// Percentile returns the percentile (0-100) duration. Returns zero if no samples.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.samples) == 0 {
		return 0
	}

	sorted := append([]time.Duration(nil), l.samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	return sorted[int((p/100.0)*float64(len(sorted)-1))]
}

// Average returns the mean recorded duration. Returns zero if no samples.
func (l *LatencyTracker) Average() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range l.samples {
		total += s
	}
	return total / time.Duration(len(l.samples))
}

// Count returns number of samples recorded.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.samples)
}
