// Package metrics is the relay's process-wide Prometheus registry
// (spec.md §9 "Global metrics": "the core only calls inc/observe; it
// does not depend on the registry's representation").
//
// A package-level registry is initialized once (InitRegistry). Every
// method tolerates a nil *Metrics receiver and becomes a no-op, so
// callers never need to guard a call site on whether metrics are
// enabled. Collectors register against that single owned registry
// rather than prometheus.DefaultRegisterer, so tests can spin up
// independent registries without colliding on metric names.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	mu       sync.Mutex
	instance *Metrics
)

// Metrics holds every Prometheus collector the relay exposes. A nil
// *Metrics is valid: every method tolerates a nil receiver and becomes a
// no-op, so components can be constructed uniformly whether or not
// metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	transferBytes       *prometheus.CounterVec
	uploadDuration      prometheus.Histogram
	activeFiles         prometheus.Gauge
	backendDistribution *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// InitRegistry creates the process-wide Metrics instance backed by a
// fresh prometheus.Registry, replacing any previous instance. Call once
// at startup before serving traffic; safe to call again in tests.
func InitRegistry() *Metrics {
	mu.Lock()
	defer mu.Unlock()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		transferBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yeetyoink_transfer_bytes_total",
			Help: "Total bytes moved through the relay, by direction.",
		}, []string{"direction"}),
		uploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "yeetyoink_upload_duration_seconds",
			Help:    "Time from admission to a successful finalize.",
			Buckets: prometheus.DefBuckets,
		}),
		activeFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yeetyoink_active_files",
			Help: "Number of file records currently live in the Backbone.",
		}),
		backendDistribution: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yeetyoink_backend_distribution_total",
			Help: "Distribution attempts per backend, by outcome.",
		}, []string{"backend", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "yeetyoink_http_request_duration_seconds",
			Help:    "HTTP request duration by method, route, and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.transferBytes, m.uploadDuration, m.activeFiles, m.backendDistribution, m.httpRequestDuration)

	instance = m
	return m
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return instance != nil
}

// Get returns the process-wide Metrics instance, or nil if InitRegistry
// has not been called. Every caller is expected to hold onto (or thread
// through) the result rather than calling Get from hot paths.
func Get() *Metrics {
	mu.Lock()
	defer mu.Unlock()
	return instance
}

// Registry returns the underlying prometheus.Registry for wiring into
// promhttp.HandlerFor, or nil if metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveUploadBytes records bytes accepted by the Writer Guard.
func (m *Metrics) ObserveUploadBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.transferBytes.WithLabelValues("upload").Add(float64(n))
}

// ObserveFetchBytes records bytes streamed out by a File Reader. This is
// the method spec.md §4.E requires every read to report through, and
// satisfies pkg/backbone/record.TransferMeter.
func (m *Metrics) ObserveFetchBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.transferBytes.WithLabelValues("fetch").Add(float64(n))
}

// ObserveUploadDuration records the wall-clock time from admission to a
// successful finalize.
func (m *Metrics) ObserveUploadDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.uploadDuration.Observe(d.Seconds())
}

// IncActiveFiles and DecActiveFiles track the Backbone's live record
// count as a gauge; the /readyz and /startupz payload reports the same
// count, read from the Backbone directly.
func (m *Metrics) IncActiveFiles() {
	if m == nil {
		return
	}
	m.activeFiles.Inc()
}

func (m *Metrics) DecActiveFiles() {
	if m == nil {
		return
	}
	m.activeFiles.Dec()
}

// ObserveBackendDistribution records one distribution attempt against a
// backend, succeeded or not. Errors never propagate past the Dispatcher
// (spec.md §7), so this counter is the only externally visible signal of
// a backend's health.
func (m *Metrics) ObserveBackendDistribution(backend string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.backendDistribution.WithLabelValues(backend, status).Inc()
}

// ObserveHTTPRequest records one HTTP request's duration, for the
// request-logging middleware.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(method, route, statusBucket(status)).Observe(d.Seconds())
}

func statusBucket(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}
