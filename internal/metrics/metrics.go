// Package metrics records Prometheus metrics for verification passes.
//
// Metrics live on a private registry so that several verifiers (and tests)
// can coexist in one process. The CLI writes them in the node_exporter
// textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mpyw/probeguard/internal/diag"
)

const namespace = "probeguard"

// Pass outcomes.
const (
	// OutcomeAccepted is a pass that produced a result with no violations.
	OutcomeAccepted = "accepted"
	// OutcomeRecorded is a lenient pass that produced a result with violations.
	OutcomeRecorded = "recorded"
	// OutcomeRejected is a strict pass aborted by a violation.
	OutcomeRejected = "rejected"
)

// Recorder holds the verification metrics. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	// PassesTotal counts passes by outcome.
	PassesTotal *prometheus.CounterVec

	// DiagnosticsTotal counts reported diagnostics by kind.
	DiagnosticsTotal *prometheus.CounterVec

	// PassDuration measures the wall time of one pass.
	PassDuration prometheus.Histogram
}

// New creates a Recorder on its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Recorder{
		registry: reg,
		PassesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passes_total",
				Help:      "Total number of verification passes by outcome",
			},
			[]string{"outcome"},
		),
		DiagnosticsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagnostics_total",
				Help:      "Total number of reported diagnostics by kind",
			},
			[]string{"kind"},
		),
		PassDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pass_duration_seconds",
				Help:      "Duration of one verification pass",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
	}

	// Pre-create every series so they are exported at zero.
	for _, o := range []string{OutcomeAccepted, OutcomeRecorded, OutcomeRejected} {
		r.PassesTotal.WithLabelValues(o)
	}
	for _, k := range diag.AllKinds() {
		r.DiagnosticsTotal.WithLabelValues(string(k))
	}

	return r
}

// ObservePass records one finished pass.
func (r *Recorder) ObservePass(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.PassesTotal.WithLabelValues(outcome).Inc()
	r.PassDuration.Observe(d.Seconds())
}

// ObserveDiagnostic records one reported diagnostic.
func (r *Recorder) ObserveDiagnostic(kind diag.Kind) {
	if r == nil {
		return
	}
	r.DiagnosticsTotal.WithLabelValues(string(kind)).Inc()
}

// Gatherer exposes the underlying registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes all metrics to path in the textfile collector format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
