package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	marksWritten    prometheus.Counter
	sessionsOpened  prometheus.Counter
	sessionsLocked  prometheus.Counter
	alertsEmitted   prometheus.Counter
}

// NewMetricsService registers the service's Prometheus collectors on a fresh
// registry.
func NewMetricsService() *MetricsService {
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

	marksWritten := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_marks_written_total",
		Help: "Total attendance marks written, including overwrites",
	})

	sessionsOpened := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sessions_opened_total",
		Help: "Total attendance sessions created",
	})

	sessionsLocked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sessions_finalized_total",
		Help: "Total attendance sessions finalized",
	})

	alertsEmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "low_attendance_alerts_total",
		Help: "Total low-attendance notifications emitted",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, marksWritten, sessionsOpened, sessionsLocked, alertsEmitted, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		marksWritten:    marksWritten,
		sessionsOpened:  sessionsOpened,
		sessionsLocked:  sessionsLocked,
		alertsEmitted:   alertsEmitted,
	}
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

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// MarkWritten counts one attendance mark write.
func (m *MetricsService) MarkWritten() {
	if m != nil {
		m.marksWritten.Inc()
	}
}

// SessionOpened counts one session creation.
func (m *MetricsService) SessionOpened() {
	if m != nil {
		m.sessionsOpened.Inc()
	}
}

// SessionFinalized counts one session finalization.
func (m *MetricsService) SessionFinalized() {
	if m != nil {
		m.sessionsLocked.Inc()
	}
}

// AlertEmitted counts one low-attendance notification.
func (m *MetricsService) AlertEmitted() {
	if m != nil {
		m.alertsEmitted.Inc()
	}
}
