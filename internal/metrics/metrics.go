package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rpattn/maintops/internal/domain"
)

// Import row outcomes recorded by RecordImportRows.
const (
	RowValid    = "valid"
	RowRejected = "rejected"
	RowInserted = "inserted"
)

// Collector owns a private registry so tests and multiple servers never clash
// on the global one.
type Collector struct {
	registry        *prometheus.Registry
	transitions     *prometheus.CounterVec
	edits           prometheus.Counter
	importRows      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector creates and registers every maintops metric.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	transitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintops_work_order_transitions_total",
			Help: "Accepted work order state transitions",
		},
		[]string{"from", "to"},
	)

	edits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "maintops_work_order_edits_total",
			Help: "Manual work order edits that changed at least one field",
		},
	)

	importRows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maintops_import_rows_total",
			Help: "Bulk import rows by outcome",
		},
		[]string{"kind", "result"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maintops_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	registry.MustRegister(transitions, edits, importRows, requestDuration)

	return &Collector{
		registry:        registry,
		transitions:     transitions,
		edits:           edits,
		importRows:      importRows,
		requestDuration: requestDuration,
	}
}

// RecordTransition counts one accepted state change.
func (c *Collector) RecordTransition(from, to domain.WorkOrderState) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// RecordEdit counts one manual edit.
func (c *Collector) RecordEdit() {
	if c == nil {
		return
	}
	c.edits.Inc()
}

// RecordImportRows adds n rows of the given kind and outcome.
func (c *Collector) RecordImportRows(kind domain.ImportKind, result string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.importRows.WithLabelValues(string(kind), result).Add(float64(n))
}

// ObserveRequest records one HTTP request.
func (c *Collector) ObserveRequest(method string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
