// Package metrics records scheduler activity in a prometheus registry that
// can be written out as a node-exporter textfile after the run.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tfc"

// Result label values of UnitsCompleted.
const (
	ResultPassed   = "passed"
	ResultFailed   = "failed"
	ResultSkipped  = "skipped"
	ResultRejected = "rejected"
)

// Recorder holds the run metrics. Each Recorder owns its own registry.
type Recorder struct {
	registry *prometheus.Registry

	UnitsSubmitted prometheus.Counter
	UnitsCompleted *prometheus.CounterVec
	UnitDuration   prometheus.Histogram
	CommittedLoad  prometheus.Gauge
	Capacity       prometheus.Gauge
	Ticks          prometheus.Counter
	RunDuration    prometheus.Gauge
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		UnitsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_submitted_total",
			Help:      "Units submitted for execution",
		}),
		UnitsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_completed_total",
			Help:      "Units that reached Done, by result",
		}, []string{"result"}),
		UnitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_duration_seconds",
			Help:      "Time from submission to completion",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		CommittedLoad: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "committed_load",
			Help:      "Process slots held by running units",
		}),
		Capacity: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capacity",
			Help:      "Process slots available to the scheduler",
		}),
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Scheduling ticks executed",
		}),
		RunDuration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}),
	}
}

// Registry exposes the underlying registry as a Gatherer.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Completed counts a finished unit under result and observes its duration.
func (r *Recorder) Completed(result string, seconds float64) {
	r.UnitsCompleted.WithLabelValues(result).Inc()
	if result != ResultRejected {
		r.UnitDuration.Observe(seconds)
	}
}

// WriteTextfile writes the registry in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
