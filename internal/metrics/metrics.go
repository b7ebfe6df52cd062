// Package metrics provides Prometheus collectors for benchmark runs.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "physbench"

// Request outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomeFatal     = "fatal"
	OutcomeCached    = "cached"

	// OutcomeFailed marks an iteration excluded from the results.
	OutcomeFailed = "failed"
)

// Collectors groups every metric a run records. A nil *Collectors is valid
// and records nothing.
type Collectors struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RetriesTotal      *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	IterationsTotal   *prometheus.CounterVec
	JudgeFailures     *prometheus.CounterVec
	IterationDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collectors{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_requests_total",
				Help:      "Total number of model API attempts",
			},
			[]string{"model", "outcome"},
		),
		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_retries_total",
				Help:      "Total number of transient failures that were retried",
			},
			[]string{"model"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gateway_request_duration_seconds",
				Help:      "Duration of successful model calls in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"model"},
		),
		IterationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "iterations_total",
				Help:      "Total number of benchmark iterations by outcome",
			},
			[]string{"category", "outcome"},
		),
		JudgeFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "judge_failures_total",
				Help:      "Total number of judge calls that degraded to absent results",
			},
			[]string{"judge", "kind"},
		),
		IterationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "iteration_duration_seconds",
				Help:      "Wall-clock duration of completed iterations",
				Buckets:   prometheus.ExponentialBuckets(5, 2, 8),
			},
			[]string{"category"},
		),
	}
}

// RecordRequest records one gateway attempt.
func (c *Collectors) RecordRequest(model, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.RequestsTotal.WithLabelValues(model, outcome).Inc()
	if outcome == OutcomeSuccess {
		c.RequestDuration.WithLabelValues(model).Observe(d.Seconds())
	}
}

// RecordRetry records a transient failure that will be retried.
func (c *Collectors) RecordRetry(model string) {
	if c == nil {
		return
	}
	c.RetriesTotal.WithLabelValues(model).Inc()
}

// RecordIteration records a finished iteration.
func (c *Collectors) RecordIteration(category, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.IterationsTotal.WithLabelValues(category, outcome).Inc()
	if outcome == OutcomeSuccess {
		c.IterationDuration.WithLabelValues(category).Observe(d.Seconds())
	}
}

// RecordJudgeFailure records a degraded judge contribution.
func (c *Collectors) RecordJudgeFailure(judge, kind string) {
	if c == nil {
		return
	}
	c.JudgeFailures.WithLabelValues(judge, kind).Inc()
}

// Gatherer exposes the registry.
func (c *Collectors) Gatherer() prometheus.Gatherer {
	return c.registry
}

// WriteTextfile writes the current metric values in the Prometheus text
// format, for pickup by a node-exporter textfile collector.
func (c *Collectors) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
