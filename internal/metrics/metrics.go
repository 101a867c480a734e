package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed analyses.
	OutcomeSuccess = "success"
	// OutcomeError labels failed analyses (bad input or dependency issues).
	OutcomeError = "error"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_pm",
			Name:      "analyses_total",
			Help:      "Total number of analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_pm",
			Name:      "analysis_seconds",
			Help:      "Analysis latency in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		},
	)

	eventsAnalyzedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mirador_pm",
			Name:      "events_analyzed_total",
			Help:      "Total number of events flowing through completed analyses.",
		},
	)
)

// Register attaches mirador-pm collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		eventsAnalyzedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records an analysis duration, its outcome label, and the
// number of events it covered.
func ObserveAnalysis(duration time.Duration, outcome string, events int) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
	if events > 0 {
		eventsAnalyzedTotal.Add(float64(events))
	}
}
