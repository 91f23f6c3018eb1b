// Package metrics exposes engine and live-pipeline telemetry to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

const namespace = "logsentry"

// Alert statuses.
const (
	AlertSent       = "sent"
	AlertFiltered   = "filtered" // below the publish severity floor
	AlertSuppressed = "suppressed"
	AlertFailed     = "failed"
)

// Metrics holds every collector. It implements engine.Recorder.
type Metrics struct {
	LinesTotal      prometheus.Counter
	DetectionsTotal *prometheus.CounterVec
	FlaggedIPsTotal prometheus.Counter
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	EventsDropped   prometheus.Counter
	AlertsTotal     *prometheus.CounterVec
}

// New registers the collectors with reg. Passing prometheus.DefaultRegisterer
// exposes them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LinesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "lines_processed_total",
			Help:      "Total number of input lines analyzed.",
		}),
		DetectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "detections_total",
			Help:      "Total number of detections by rule and severity.",
		}, []string{"rule", "severity"}),
		FlaggedIPsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "suspicious_ips_total",
			Help:      "Total number of source addresses flagged as suspicious.",
		}),
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Completed analysis runs by outcome.",
		}, []string{"outcome"}), // outcome: complete, truncated
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Wall time of analysis runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "events_dropped_total",
			Help:      "Detection events dropped for slow subscribers.",
		}),
		AlertsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "alerts_total",
			Help:      "Alert publish attempts by status.",
		}, []string{"status"}), // status: sent, filtered, suppressed, failed
	}
}

func (m *Metrics) LinesProcessed(n int) { m.LinesTotal.Add(float64(n)) }

func (m *Metrics) Detection(d model.Detection) {
	m.DetectionsTotal.WithLabelValues(d.RuleID, d.Severity.String()).Inc()
}

func (m *Metrics) IPFlagged(string) { m.FlaggedIPsTotal.Inc() }

func (m *Metrics) RunCompleted(elapsed time.Duration, truncated bool) {
	outcome := "complete"
	if truncated {
		outcome = "truncated"
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
}

// Dropped counts n events lost to slow subscribers.
func (m *Metrics) Dropped(n int) { m.EventsDropped.Add(float64(n)) }

// Alert counts one publish attempt.
func (m *Metrics) Alert(status string) { m.AlertsTotal.WithLabelValues(status).Inc() }
