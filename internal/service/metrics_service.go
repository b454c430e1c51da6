package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the scheduling core.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	conflictsTotal  *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	undoTotal       *prometheus.CounterVec
	pendingUndo     prometheus.GaugeFunc
	dbQueryDuration *prometheus.HistogramVec
}

// NewMetricsService registers core Prometheus collectors. pendingUndo may be
// nil when no undo registry is attached yet.
func NewMetricsService(pendingUndo func() float64) *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	conflictsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_conflicts_detected_total",
		Help: "Conflicts detected, labelled by conflict type",
	}, []string{"type"})

	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_resolutions_total",
		Help: "Conflict-free solutions produced, labelled by strategy",
	}, []string{"strategy"})

	undoTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "undo_operations_total",
		Help: "Undo operations by outcome (executed or expired)",
	}, []string{"outcome"})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, conflictsTotal, resolutions, undoTotal, dbQueryDuration, goroutines)

	svc := &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		conflictsTotal:  conflictsTotal,
		resolutions:     resolutions,
		undoTotal:       undoTotal,
		dbQueryDuration: dbQueryDuration,
	}
	if pendingUndo != nil {
		svc.pendingUndo = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "undo_operations_pending",
			Help: "Undo operations currently inside their countdown window",
		}, pendingUndo)
		registry.MustRegister(svc.pendingUndo)
	}
	return svc
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveConflict counts one detected conflict by type.
func (m *MetricsService) ObserveConflict(conflictType string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(conflictType).Inc()
}

// ObserveResolution counts one produced solution by strategy.
func (m *MetricsService) ObserveResolution(strategy string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(strategy).Inc()
}

// ObserveUndo counts an undo outcome, "executed" or "expired".
func (m *MetricsService) ObserveUndo(outcome string) {
	if m == nil {
		return
	}
	m.undoTotal.WithLabelValues(outcome).Inc()
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}
