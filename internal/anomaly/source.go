// Package anomaly supplies per-resource error counts for resource profiling.
package anomaly

import (
	"context"
	"hash/fnv"
	"math/rand"
)

// Source reports error counts attributed to resources. Implementations
// receive the observed workload so synthetic feeds stay bounded by it; feeds
// backed by a real incident system are free to ignore it.
type Source interface {
	ErrorsByResource(ctx context.Context, workload map[string]int) (map[string]int, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context, workload map[string]int) (map[string]int, error)

// ErrorsByResource calls the wrapped function.
func (f SourceFunc) ErrorsByResource(ctx context.Context, workload map[string]int) (map[string]int, error) {
	return f(ctx, workload)
}

// NopSource reports zero errors for every resource.
type NopSource struct{}

// ErrorsByResource returns an empty count set.
func (NopSource) ErrorsByResource(context.Context, map[string]int) (map[string]int, error) {
	return map[string]int{}, nil
}

// StaticSource serves a fixed error count per resource.
type StaticSource struct {
	Counts map[string]int
}

// ErrorsByResource returns a copy of the configured counts.
func (s StaticSource) ErrorsByResource(context.Context, map[string]int) (map[string]int, error) {
	out := make(map[string]int, len(s.Counts))
	for resource, count := range s.Counts {
		out[resource] = count
	}
	return out, nil
}

// SyntheticSource draws per-resource error counts bounded by each resource's
// workload. The same seed and workload always produce the same counts.
type SyntheticSource struct {
	Seed int64
	Rate float64
}

// ErrorsByResource simulates one error draw per unit of workload.
func (s SyntheticSource) ErrorsByResource(_ context.Context, workload map[string]int) (map[string]int, error) {
	rate := s.Rate
	if rate <= 0 {
		rate = 0.1
	}
	if rate > 1 {
		rate = 1
	}

	out := make(map[string]int, len(workload))
	for resource, load := range workload {
		// Seed per resource so results do not depend on map iteration order.
		rng := rand.New(rand.NewSource(s.Seed ^ resourceSeed(resource)))
		errs := 0
		for i := 0; i < load; i++ {
			if rng.Float64() < rate {
				errs++
			}
		}
		out[resource] = errs
	}
	return out, nil
}

func resourceSeed(resource string) int64 {
	h := fnv.New64a()
	h.Write([]byte(resource))
	return int64(h.Sum64())
}
