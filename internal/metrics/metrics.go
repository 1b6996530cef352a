package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "showroom"

// Metrics holds all prometheus metrics
type Metrics struct {
	Registry *prometheus.Registry

	TestDriveTransitions *prometheus.CounterVec
	PaymentsSubmitted    *prometheus.CounterVec
	GatewayCallbacks     *prometheus.CounterVec
	PaymentsExpired      prometheus.Counter
	RequestDuration      *prometheus.HistogramVec
}

// New registers the metrics on a fresh registry so tests can build as many as they need.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		TestDriveTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "test_drive_transitions_total",
			Help:      "Test drive lifecycle actions by result",
		}, []string{"action", "result"}),
		PaymentsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_submitted_total",
			Help:      "Payments accepted by intake",
		}, []string{"method", "status"}),
		GatewayCallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_callbacks_total",
			Help:      "Gateway callbacks by reported status",
		}, []string{"status"}),
		PaymentsExpired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_expired_total",
			Help:      "Payments moved to expired by the expiry job",
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Transition counts a lifecycle action; nil receivers are ignored.
func (m *Metrics) Transition(action string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.TestDriveTransitions.WithLabelValues(action, result).Inc()
}

func (m *Metrics) PaymentSubmitted(method, status string) {
	if m == nil {
		return
	}
	m.PaymentsSubmitted.WithLabelValues(method, status).Inc()
}

func (m *Metrics) GatewayCallback(status string) {
	if m == nil {
		return
	}
	m.GatewayCallbacks.WithLabelValues(status).Inc()
}

func (m *Metrics) Expired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.PaymentsExpired.Add(float64(n))
}
