// Package metrics records download counters for one run.
//
// Metrics live in a private registry so that several runs (tests, the TUI
// restarting a download) never collide. WriteTextfile exports them in the
// Prometheus text format understood by node_exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "nupkg"

// Recorder holds the run's collectors.
type Recorder struct {
	registry *prometheus.Registry

	packages *prometheus.CounterVec
	attempts *prometheus.CounterVec
	bytes    prometheus.Counter
	duration prometheus.Histogram
	run      prometheus.Gauge
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		packages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packages_total",
			Help:      "Packages processed, by outcome.",
		}, []string{"outcome"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_attempts_total",
			Help:      "Download attempts per source, by result.",
		}, []string{"source", "result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes written to package files.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Time to fetch one package across all of its sources.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		run: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the whole run.",
		}),
	}
	r.registry.MustRegister(r.packages, r.attempts, r.bytes, r.duration, r.run)
	return r
}

// Package counts one terminal package outcome ("downloaded", "skipped", "failed").
func (r *Recorder) Package(outcome string) {
	r.packages.WithLabelValues(outcome).Inc()
}

// SourceAttempt counts one attempt against source. ok tells whether it succeeded.
func (r *Recorder) SourceAttempt(source string, ok bool) {
	result := "error"
	if ok {
		result = "success"
	}
	r.attempts.WithLabelValues(source, result).Inc()
}

// Bytes adds n downloaded bytes.
func (r *Recorder) Bytes(n int64) {
	if n > 0 {
		r.bytes.Add(float64(n))
	}
}

// ObserveFetch records how long one package fetch took.
func (r *Recorder) ObserveFetch(d time.Duration) {
	r.duration.Observe(d.Seconds())
}

// RunDuration sets the wall time of the run.
func (r *Recorder) RunDuration(d time.Duration) {
	r.run.Set(d.Seconds())
}

// Registry exposes the underlying registry, for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return goerr.Wrap(err, "failed to write metrics file", goerr.V("path", path))
	}
	return nil
}
