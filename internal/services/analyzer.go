package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/mirador-pm/internal/engine"
	"github.com/miradorstack/mirador-pm/internal/metrics"
	"github.com/miradorstack/mirador-pm/internal/models"
	"github.com/miradorstack/mirador-pm/internal/utils"
)

// EventSource supplies the raw process log for analysis.
type EventSource interface {
	FetchEvents(ctx context.Context) ([]models.Event, error)
}

// Analyzer runs the mining passes over the current event log and memoises
// snapshots per filter until the log revision changes.
type Analyzer struct {
	logger      *slog.Logger
	source      EventSource
	bottlenecks *engine.BottleneckAnalyzer
	conformance engine.ConformanceConfig
	topN        int
	latencies   *utils.LatencyTracker

	mu           sync.Mutex
	events       []models.Event
	revision     int64
	memo         map[string]models.AnalysisSnapshot
	loaded       bool
	warnedNoFlow bool
}

// NewAnalyzer constructs the analysis facade.
func NewAnalyzer(logger *slog.Logger, source EventSource, bottlenecks *engine.BottleneckAnalyzer, conformance engine.ConformanceConfig, topN int) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if topN <= 0 {
		topN = engine.DefaultTopN
	}
	if bottlenecks == nil {
		bottlenecks = engine.NewBottleneckAnalyzer(logger, nil, topN)
	}
	return &Analyzer{
		logger:      logger,
		source:      source,
		bottlenecks: bottlenecks,
		conformance: conformance,
		topN:        topN,
		latencies:   utils.NewLatencyTracker(1024),
		memo:        make(map[string]models.AnalysisSnapshot),
	}
}

// Run analyses the filtered log, serving the memoised snapshot while the
// underlying log revision is unchanged.
func (a *Analyzer) Run(ctx context.Context, filter models.Filter) (models.AnalysisSnapshot, error) {
	events, revision, err := a.currentEvents(ctx)
	if err != nil {
		return models.AnalysisSnapshot{}, err
	}

	key := fmt.Sprintf("%d|%s", revision, filter.Key())
	a.mu.Lock()
	if snapshot, ok := a.memo[key]; ok {
		a.mu.Unlock()
		return snapshot, nil
	}
	a.mu.Unlock()

	ctx, span := otel.Tracer("mirador-pm/services").Start(ctx, "analysis.run")
	defer span.End()

	start := time.Now()
	snapshot, err := a.compute(ctx, events, filter)
	duration := time.Since(start)
	if err != nil {
		span.RecordError(err)
		metrics.ObserveAnalysis(duration, metrics.OutcomeError, 0)
		a.logger.Error("analysis failed", slog.Any("error", err))
		return models.AnalysisSnapshot{}, err
	}
	snapshot.Revision = revision
	span.SetAttributes(
		attribute.Int("analysis.events", snapshot.Summary.TotalEvents),
		attribute.Int64("analysis.revision", revision),
	)

	a.mu.Lock()
	a.memo[key] = snapshot
	a.mu.Unlock()

	a.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess, snapshot.Summary.TotalEvents)
	if count := a.latencies.Count(); count >= 20 && count%20 == 0 {
		a.logger.Info("analysis latency",
			slog.Duration("p95", a.latencies.Percentile(95)),
			slog.Duration("avg", a.latencies.Average()),
			slog.Int("samples", count))
	}
	return snapshot, nil
}

// Reload refetches the event log, bumps the revision, and drops memoised
// snapshots.
func (a *Analyzer) Reload(ctx context.Context) error {
	if a.source == nil {
		return fmt.Errorf("event source not configured")
	}
	events, err := a.source.FetchEvents(ctx)
	if err != nil {
		return utils.NewAppError("analyzer.reload", "event source fetch failed", err)
	}

	a.mu.Lock()
	a.events = events
	a.revision++
	a.loaded = true
	a.memo = make(map[string]models.AnalysisSnapshot)
	revision := a.revision
	a.mu.Unlock()

	a.logger.Info("event log reloaded", slog.Int("events", len(events)), slog.Int64("revision", revision))
	return nil
}

// LatencyP95 returns the current p95 analysis latency.
func (a *Analyzer) LatencyP95() time.Duration {
	if a.latencies == nil {
		return 0
	}
	return a.latencies.Percentile(95)
}

func (a *Analyzer) currentEvents(ctx context.Context) ([]models.Event, int64, error) {
	if a.source == nil {
		return nil, 0, fmt.Errorf("event source not configured")
	}

	a.mu.Lock()
	if a.loaded {
		events, revision := a.events, a.revision
		a.mu.Unlock()
		return events, revision, nil
	}
	a.mu.Unlock()

	events, err := a.source.FetchEvents(ctx)
	if err != nil {
		return nil, 0, utils.NewAppError("analyzer.load", "event source fetch failed", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.loaded {
		a.events = events
		a.loaded = true
	}
	return a.events, a.revision, nil
}

// compute fans the mining passes out over the shared case view. Each
// goroutine writes a distinct snapshot field.
func (a *Analyzer) compute(ctx context.Context, events []models.Event, filter models.Filter) (models.AnalysisSnapshot, error) {
	filtered := engine.ApplyFilter(events, filter)
	view, err := engine.BuildCases(filtered)
	if err != nil {
		return models.AnalysisSnapshot{}, err
	}

	snapshot := models.AnalysisSnapshot{
		AnalysisID:  uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Filter:      filter,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		snapshot.Flow = engine.BuildFlowGraph(view)
		return nil
	})
	group.Go(func() error {
		report, err := a.runConformance(view)
		if err != nil {
			return err
		}
		snapshot.Conformance = report
		return nil
	})
	group.Go(func() error {
		bottlenecks, resources := a.bottlenecks.Analyze(groupCtx, view)
		snapshot.Bottlenecks = bottlenecks
		snapshot.Resources = resources
		return nil
	})
	group.Go(func() error {
		snapshot.Variants = engine.MineVariants(view, a.topN)
		return nil
	})
	group.Go(func() error {
		snapshot.Summary = engine.Summarize(filtered, a.topN)
		return nil
	})
	if err := group.Wait(); err != nil {
		return models.AnalysisSnapshot{}, err
	}
	return snapshot, nil
}

func (a *Analyzer) runConformance(view engine.CaseView) (models.ConformanceReport, error) {
	if len(a.conformance.IdealFlow) == 0 {
		a.mu.Lock()
		if !a.warnedNoFlow {
			a.warnedNoFlow = true
			a.logger.Warn("no reference flow configured, skipping conformance")
		}
		a.mu.Unlock()
		return models.ConformanceReport{
			Results:         []models.ConformanceResult{},
			DeviationCounts: map[string]int{},
		}, nil
	}
	return engine.CheckConformance(view, a.conformance)
}
