package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by API and reconciliation flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	itemsProcessedTotal prometheus.Counter
	itemsFailedTotal    *prometheus.CounterVec
	chunksFailedTotal   prometheus.Counter
	catalogCallDuration *prometheus.HistogramVec
	reconcileInflight   prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "catalog_reconciler",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "catalog_reconciler",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		itemsProcessedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "catalog_reconciler",
				Name:      "items_processed_total",
				Help:      "Total number of items reconciled successfully.",
			},
		),
		itemsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "catalog_reconciler",
				Name:      "items_failed_total",
				Help:      "Total number of items that failed reconciliation.",
			},
			[]string{"reason"},
		),
		chunksFailedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "catalog_reconciler",
				Name:      "chunks_failed_total",
				Help:      "Total number of chunks whose reconciliation failed.",
			},
		),
		catalogCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "catalog_reconciler",
				Name:      "catalog_call_duration_seconds",
				Help:      "Catalog call duration in seconds grouped by operation.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"operation"},
		),
		reconcileInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "catalog_reconciler",
				Name:      "reconcile_inflight",
				Help:      "Current number of chunks being reconciled.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.itemsProcessedTotal,
		m.itemsFailedTotal,
		m.chunksFailedTotal,
		m.catalogCallDuration,
		m.reconcileInflight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) AddItemsProcessed(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.itemsProcessedTotal.Add(float64(count))
}

func (m *Metrics) AddItemsFailed(count int, reason string) {
	if m == nil || count <= 0 {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.itemsFailedTotal.WithLabelValues(reasonLabel).Add(float64(count))
}

func (m *Metrics) IncChunkFailed() {
	if m == nil {
		return
	}
	m.chunksFailedTotal.Inc()
}

func (m *Metrics) ObserveCatalogCallDuration(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.catalogCallDuration.WithLabelValues(normalizeOperation(operation)).Observe(seconds)
}

func (m *Metrics) IncReconcileInFlight() {
	if m == nil {
		return
	}
	m.reconcileInflight.Inc()
}

func (m *Metrics) DecReconcileInFlight() {
	if m == nil {
		return
	}
	m.reconcileInflight.Dec()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeOperation(operation string) string {
	normalized := strings.ToLower(strings.TrimSpace(operation))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
