package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the engine's Prometheus instruments.
type Metrics struct {
	matches    *prometheus.CounterVec
	conflicts  prometheus.Counter
	confidence prometheus.Histogram
	previous   *prometheus.CounterVec
	drained    prometheus.Counter
}

// NewMetrics creates the engine metrics and registers them with reg when it
// is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fireflies",
			Subsystem: "series",
			Name:      "matches_total",
			Help:      "Match decisions by outcome (attached, provisional, created).",
		}, []string{"outcome"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fireflies",
			Subsystem: "series",
			Name:      "conflicts_total",
			Help:      "Occurrences rejected because they were already attached elsewhere.",
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fireflies",
			Subsystem: "series",
			Name:      "match_confidence",
			Help:      "Combined confidence score of match decisions.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		previous: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fireflies",
			Subsystem: "series",
			Name:      "previous_resolutions_total",
			Help:      "Previous-occurrence resolutions by result (hit, miss).",
		}, []string{"result"}),
		drained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fireflies",
			Subsystem: "intake",
			Name:      "messages_drained_total",
			Help:      "Intake messages drained from the queue.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.matches, m.conflicts, m.confidence, m.previous, m.drained)
	}
	return m
}

func (m *Metrics) observeMatch(outcome string, confidence float64) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(outcome).Inc()
	m.confidence.Observe(confidence)
}

func (m *Metrics) observeConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Metrics) observePrevious(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.previous.WithLabelValues(result).Inc()
}

func (m *Metrics) observeDrained(n int) {
	if m == nil {
		return
	}
	m.drained.Add(float64(n))
}
