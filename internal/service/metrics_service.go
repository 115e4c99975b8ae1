package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coopvalles/asamblea-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// announcement delivery engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	avisosCreated   *prometheus.CounterVec
	deliveriesSent  prometheus.Counter
	deliveryAcks    *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
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

	avisosCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "avisos_created_total",
		Help: "Total announcements created",
	}, []string{"kind", "priority"})

	deliveriesSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aviso_deliveries_total",
		Help: "Total delivery rows fanned out",
	})

	deliveryAcks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "aviso_delivery_acks_total",
		Help: "Delivery acknowledgment mutations by action and outcome",
	}, []string{"action", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, avisosCreated, deliveriesSent, deliveryAcks, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		avisosCreated:   avisosCreated,
		deliveriesSent:  deliveriesSent,
		deliveryAcks:    deliveryAcks,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveAvisoCreated counts a successful announcement send and its fan-out size.
func (m *MetricsService) ObserveAvisoCreated(kind models.AnnouncementKind, priority models.AnnouncementPriority, deliveries int) {
	if m == nil {
		return
	}
	m.avisosCreated.WithLabelValues(string(kind), string(priority)).Inc()
	m.deliveriesSent.Add(float64(deliveries))
}

// ObserveDeliveryAck counts a delivery mutation; outcome separates first
// writers from idempotent repeats.
func (m *MetricsService) ObserveDeliveryAck(action string, firstWriter bool) {
	if m == nil {
		return
	}
	outcome := "noop"
	if firstWriter {
		outcome = "written"
	}
	m.deliveryAcks.WithLabelValues(action, outcome).Inc()
}
