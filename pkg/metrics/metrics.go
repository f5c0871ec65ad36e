// Package metrics holds the Prometheus metrics for dump decoding and the API
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for gfxlog. A nil *Metrics records
// nothing, so decoding code can take one unconditionally.
type Metrics struct {
	// Decode metrics
	scansTotal           prometheus.Counter
	scanDuration         prometheus.Histogram
	streamsTotal         *prometheus.CounterVec
	commandsDecodedTotal prometheus.Counter
	bytesUnframedTotal   prometheus.Counter

	// Report metrics
	interpretErrorsTotal prometheus.Counter

	// Archive metrics
	archiveOperationsTotal *prometheus.CounterVec

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec
}

// NewMetrics creates all metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		scansTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gfxlog_scans_total",
				Help: "Total number of dump scans",
			},
		),

		scanDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gfxlog_scan_duration_seconds",
				Help:    "Dump scan duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		streamsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gfxlog_streams_total",
				Help: "Total number of command streams found, by outcome",
			},
			[]string{"status"},
		),

		commandsDecodedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gfxlog_commands_decoded_total",
				Help: "Total number of commands recovered from streams",
			},
		),

		bytesUnframedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gfxlog_bytes_unframed_total",
				Help: "Ring bytes that could not be attributed to a record",
			},
		),

		interpretErrorsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gfxlog_command_interpret_errors_total",
				Help: "Total number of commands the interpreter failed on",
			},
		),

		archiveOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gfxlog_archive_operations_total",
				Help: "Total number of archive operations",
			},
			[]string{"operation", "status"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gfxlog_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gfxlog_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gfxlog_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),
	}
}

// RecordScan records one completed scan
func (m *Metrics) RecordScan(duration time.Duration) {
	if m == nil {
		return
	}
	m.scansTotal.Inc()
	m.scanDuration.Observe(duration.Seconds())
}

// RecordStream records one decoded stream. status is "ok" for a decoded
// stream or the error kind for a rejected one.
func (m *Metrics) RecordStream(status string, commands, unframed int) {
	if m == nil {
		return
	}
	m.streamsTotal.WithLabelValues(status).Inc()
	m.commandsDecodedTotal.Add(float64(commands))
	m.bytesUnframedTotal.Add(float64(unframed))
}

// RecordInterpretError records a command the interpreter could not render
func (m *Metrics) RecordInterpretError() {
	if m == nil {
		return
	}
	m.interpretErrorsTotal.Inc()
}

// RecordArchiveOperation records an archive operation
func (m *Metrics) RecordArchiveOperation(operation string, success bool) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.archiveOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
