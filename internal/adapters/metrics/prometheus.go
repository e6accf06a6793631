package metrics

import (
	"InvoiceFinancing/internal/core/domain"
	"InvoiceFinancing/internal/core/ports"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SagaMetrics implements ports.SagaMetrics with Prometheus collectors.
type SagaMetrics struct {
	deliveries *prometheus.CounterVec
	outcomes   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

var _ ports.SagaMetrics = (*SagaMetrics)(nil)

// NewSagaMetrics registers the saga collectors with reg.
func NewSagaMetrics(reg prometheus.Registerer) *SagaMetrics {
	factory := promauto.With(reg)
	return &SagaMetrics{
		deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saga_event_deliveries_total",
				Help: "Events delivered to agents by the event bus",
			},
			[]string{"event_type", "agent", "result"},
		),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saga_outcomes_total",
				Help: "Finished sagas by job and status",
			},
			[]string{"job", "status"},
		),
		durations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "saga_duration_seconds",
				Help:    "Time from initiating event to commit or abort",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"job"},
		),
	}
}

func (m *SagaMetrics) ObserveDelivery(eventType, agent string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.deliveries.WithLabelValues(eventType, agent, result).Inc()
}

func (m *SagaMetrics) ObserveOutcome(job string, status domain.SagaStatus, took time.Duration) {
	m.outcomes.WithLabelValues(job, string(status)).Inc()
	m.durations.WithLabelValues(job).Observe(took.Seconds())
}

// NewServer exposes the registry on /metrics.
func NewServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
}
