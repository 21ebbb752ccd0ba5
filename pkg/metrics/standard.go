package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SinkMetrics counts what a sink does with the events it receives.
// A nil *SinkMetrics is valid and records nothing.
type SinkMetrics struct {
	emitted    *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	written    *prometheus.CounterVec
	batches    *prometheus.CounterVec
	failures   *prometheus.CounterVec
	queueDepth *prometheus.GaugeVec
	writeTime  *prometheus.HistogramVec
}

// Reasons passed to SinkMetrics.Dropped.
const (
	DropQueueFull  = "queue_full"
	DropInvalidRow = "invalid_row"
	DropWriteError = "write_error"
	DropClosed     = "closed"
)

// NewSinkMetrics registers the sink collectors under namespace. Every
// series carries a "sink" label.
func NewSinkMetrics(namespace string) (*SinkMetrics, error) {
	var (
		m   SinkMetrics
		err error
	)
	sinkLabel := []string{"sink"}

	if m.emitted, err = NewCounterVec(Opts{
		Namespace: namespace, Subsystem: "sink", Name: "events_emitted_total",
		Help: "Events accepted by the sink", Labels: sinkLabel,
	}); err != nil {
		return nil, err
	}
	if m.dropped, err = NewCounterVec(Opts{
		Namespace: namespace, Subsystem: "sink", Name: "events_dropped_total",
		Help: "Events discarded without being written", Labels: []string{"sink", "reason"},
	}); err != nil {
		return nil, err
	}
	if m.written, err = NewCounterVec(Opts{
		Namespace: namespace, Subsystem: "sink", Name: "rows_written_total",
		Help: "Rows written to the destination", Labels: sinkLabel,
	}); err != nil {
		return nil, err
	}
	if m.batches, err = NewCounterVec(Opts{
		Namespace: namespace, Subsystem: "sink", Name: "batches_total",
		Help: "Batches written successfully", Labels: sinkLabel,
	}); err != nil {
		return nil, err
	}
	if m.failures, err = NewCounterVec(Opts{
		Namespace: namespace, Subsystem: "sink", Name: "write_failures_total",
		Help: "Failed batch write attempts, retries included", Labels: sinkLabel,
	}); err != nil {
		return nil, err
	}
	if m.queueDepth, err = NewGaugeVec(Opts{
		Namespace: namespace, Subsystem: "sink", Name: "queue_depth",
		Help: "Events waiting to be written", Labels: sinkLabel,
	}); err != nil {
		return nil, err
	}
	if m.writeTime, err = NewHistogramVec(Opts{
		Namespace: namespace, Subsystem: "sink", Name: "write_duration_seconds",
		Help: "Time spent writing one batch", Labels: sinkLabel,
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}); err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *SinkMetrics) Emitted(sink string) {
	if m == nil {
		return
	}
	m.emitted.WithLabelValues(sink).Inc()
}

func (m *SinkMetrics) Dropped(sink, reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.dropped.WithLabelValues(sink, reason).Add(float64(n))
}

// Written records one successful batch of n rows taking seconds.
func (m *SinkMetrics) Written(sink string, n int, seconds float64) {
	if m == nil {
		return
	}
	m.written.WithLabelValues(sink).Add(float64(n))
	m.batches.WithLabelValues(sink).Inc()
	m.writeTime.WithLabelValues(sink).Observe(seconds)
}

func (m *SinkMetrics) Failed(sink string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(sink).Inc()
}

func (m *SinkMetrics) QueueDepth(sink string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(sink).Set(float64(depth))
}

type standardHTTP struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	size     *prometheus.HistogramVec
}

var (
	httpMetrics *standardHTTP
	httpMu      sync.Mutex
)

// initHTTPMetrics registers the request metrics once per registry.
func initHTTPMetrics(namespace string) (*standardHTTP, error) {
	httpMu.Lock()
	defer httpMu.Unlock()

	if httpMetrics != nil {
		return httpMetrics, nil
	}

	var (
		m   standardHTTP
		err error
	)
	if m.duration, err = NewHistogramVec(Opts{
		Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Labels:  []string{"method", "route", "status_code"},
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}); err != nil {
		return nil, err
	}
	if m.requests, err = NewCounterVec(Opts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help:   "Total number of HTTP requests",
		Labels: []string{"method", "route", "status_code"},
	}); err != nil {
		return nil, err
	}
	if m.size, err = NewHistogramVec(Opts{
		Namespace: namespace, Subsystem: "http", Name: "response_size_bytes",
		Help:    "HTTP response size in bytes",
		Labels:  []string{"method", "route", "status_code"},
		Buckets: prometheus.ExponentialBuckets(100, 10, 8),
	}); err != nil {
		return nil, err
	}

	httpMetrics = &m
	return httpMetrics, nil
}
