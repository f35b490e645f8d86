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

// Metrics stores Prometheus collectors used by the API and batch flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	importsTotal          *prometheus.CounterVec
	importRowsTotal       *prometheus.CounterVec
	batchesSubmittedTotal prometheus.Counter
	batchesConfirmedTotal prometheus.Counter
	batchesFailedTotal    *prometheus.CounterVec
	batchSubmitDuration   prometheus.Histogram
	storageResetsTotal    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "batchpay",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "batchpay",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		importsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "batchpay",
				Name:      "imports_total",
				Help:      "Total number of spreadsheet imports grouped by file format.",
			},
			[]string{"format"},
		),
		importRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "batchpay",
				Name:      "import_rows_total",
				Help:      "Total number of imported rows grouped by outcome.",
			},
			[]string{"outcome"},
		),
		batchesSubmittedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "batchpay",
				Name:      "batches_submitted_total",
				Help:      "Total number of payment batches handed to the wallet collaborator.",
			},
		),
		batchesConfirmedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "batchpay",
				Name:      "batches_confirmed_total",
				Help:      "Total number of payment batches confirmed on chain.",
			},
		),
		batchesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "batchpay",
				Name:      "batches_failed_total",
				Help:      "Total number of failed batch executions grouped by stage.",
			},
			[]string{"stage"},
		),
		batchSubmitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "batchpay",
				Name:      "batch_submit_duration_seconds",
				Help:      "Wall time from submission to terminal confirmation state.",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		storageResetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "batchpay",
				Name:      "storage_resets_total",
				Help:      "Total number of corrupted-blob resets grouped by storage key.",
			},
			[]string{"key"},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.importsTotal,
		m.importRowsTotal,
		m.batchesSubmittedTotal,
		m.batchesConfirmedTotal,
		m.batchesFailedTotal,
		m.batchSubmitDuration,
		m.storageResetsTotal,
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

func (m *Metrics) IncImport(format string) {
	if m == nil {
		return
	}
	normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	if normalized == "" {
		normalized = "unknown"
	}
	m.importsTotal.WithLabelValues(normalized).Inc()
}

func (m *Metrics) AddImportRows(accepted, errored int) {
	if m == nil {
		return
	}
	m.importRowsTotal.WithLabelValues("accepted").Add(float64(accepted))
	m.importRowsTotal.WithLabelValues("errored").Add(float64(errored))
}

func (m *Metrics) IncBatchSubmitted() {
	if m == nil {
		return
	}
	m.batchesSubmittedTotal.Inc()
}

func (m *Metrics) IncBatchConfirmed() {
	if m == nil {
		return
	}
	m.batchesConfirmedTotal.Inc()
}

func (m *Metrics) IncBatchFailed(stage string) {
	if m == nil {
		return
	}
	stageLabel := strings.TrimSpace(strings.ToLower(stage))
	if stageLabel == "" {
		stageLabel = "unknown"
	}
	m.batchesFailedTotal.WithLabelValues(stageLabel).Inc()
}

func (m *Metrics) ObserveBatchSubmitDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.batchSubmitDuration.Observe(seconds)
}

func (m *Metrics) IncStorageReset(key string) {
	if m == nil {
		return
	}
	keyLabel := strings.TrimSpace(strings.ToLower(key))
	if keyLabel == "" {
		keyLabel = "unknown"
	}
	m.storageResetsTotal.WithLabelValues(keyLabel).Inc()
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
