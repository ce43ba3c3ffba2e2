// Package metrics records provisioning runs as Prometheus metrics.
//
// jarfetch is a one-shot bootstrap step, so metrics are written to a
// node_exporter textfile instead of being served.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ochairo/jarfetch/internal/domain/entities"
)

const namespace = "jarfetch"

// Recorder defines the interface for recording run metrics
type Recorder interface {
	// RecordArtifact records the terminal outcome of one manifest entry
	RecordArtifact(result entities.ProvisioningResult)

	// RecordMirror records an upload to the object store mirror
	RecordMirror(uploaded bool, err error)

	// RecordRun records the summary of a finished run
	RecordRun(report *entities.Report, duration time.Duration)
}

// PrometheusRecorder implements Recorder on its own registry
type PrometheusRecorder struct {
	registry *prometheus.Registry

	artifactsTotal   *prometheus.CounterVec
	downloadDuration prometheus.Histogram
	bytesTotal       prometheus.Counter
	mirrorTotal      *prometheus.CounterVec
	presentOnDisk    prometheus.Gauge
	consistent       prometheus.Gauge
	runDuration      prometheus.Gauge
	lastRun          prometheus.Gauge
}

// NewPrometheusRecorder creates a recorder; runID is attached as a constant label
func NewPrometheusRecorder(runID string) *PrometheusRecorder {
	labels := prometheus.Labels{"run_id": runID}

	r := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		artifactsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "artifacts_total",
			Help:        "Manifest entries by provisioning outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),
		downloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "download_duration_seconds",
			Help:        "Duration of artifact downloads in seconds",
			Buckets:     prometheus.ExponentialBuckets(0.1, 2, 10),
			ConstLabels: labels,
		}),
		bytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "downloaded_bytes_total",
			Help:        "Bytes written by successful downloads",
			ConstLabels: labels,
		}),
		mirrorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "mirror_operations_total",
			Help:        "Object store mirror operations by result",
			ConstLabels: labels,
		}, []string{"result"}),
		presentOnDisk: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "present_artifacts",
			Help:        "Manifest artifacts found in the destination after the run",
			ConstLabels: labels,
		}),
		consistent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "destination_consistent",
			Help:        "1 when the destination scan matches the run results",
			ConstLabels: labels,
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "run_duration_seconds",
			Help:        "Wall clock duration of the last run",
			ConstLabels: labels,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_run_timestamp_seconds",
			Help:        "Unix time the last run finished",
			ConstLabels: labels,
		}),
	}

	r.registry.MustRegister(
		r.artifactsTotal,
		r.downloadDuration,
		r.bytesTotal,
		r.mirrorTotal,
		r.presentOnDisk,
		r.consistent,
		r.runDuration,
		r.lastRun,
	)

	return r
}

// RecordArtifact implements Recorder
func (r *PrometheusRecorder) RecordArtifact(result entities.ProvisioningResult) {
	r.artifactsTotal.WithLabelValues(result.Outcome.String()).Inc()

	if result.Outcome == entities.OutcomeDownloaded {
		r.downloadDuration.Observe(result.Duration.Seconds())
		r.bytesTotal.Add(float64(result.Size()))
	}
}

// RecordMirror implements Recorder
func (r *PrometheusRecorder) RecordMirror(uploaded bool, err error) {
	switch {
	case err != nil:
		r.mirrorTotal.WithLabelValues("error").Inc()
	case uploaded:
		r.mirrorTotal.WithLabelValues("uploaded").Inc()
	default:
		r.mirrorTotal.WithLabelValues("skipped").Inc()
	}
}

// RecordRun implements Recorder
func (r *PrometheusRecorder) RecordRun(report *entities.Report, duration time.Duration) {
	r.presentOnDisk.Set(float64(report.PresentOnDisk))
	if report.Consistent {
		r.consistent.Set(1)
	} else {
		r.consistent.Set(0)
	}
	r.runDuration.Set(duration.Seconds())
	r.lastRun.SetToCurrentTime()
}

// Registry exposes the underlying registry
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes every metric in the textfile collector format
func (r *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// NoOpRecorder discards every metric
type NoOpRecorder struct{}

// RecordArtifact implements Recorder
func (NoOpRecorder) RecordArtifact(entities.ProvisioningResult) {}

// RecordMirror implements Recorder
func (NoOpRecorder) RecordMirror(bool, error) {}

// RecordRun implements Recorder
func (NoOpRecorder) RecordRun(*entities.Report, time.Duration) {}
