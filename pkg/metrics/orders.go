package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records counters for the order engine.
type OrderMetrics struct {
	duration          *prometheus.HistogramVec
	created           *prometheus.CounterVec
	insufficientStock *prometheus.CounterVec
	canceled          *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_create_duration_seconds",
		Help:    "Duration of order placement in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"payment_method"})
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created",
		Help: "Successfully placed orders.",
	}, []string{"payment_method"})
	insufficientStock := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_insufficient_stock",
		Help: "Order placements rejected for insufficient stock.",
	}, []string{"payment_method"})
	canceled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_canceled",
		Help: "Orders canceled after placement.",
	}, []string{"payment_method"})
	reg.MustRegister(duration, created, insufficientStock, canceled)
	return &OrderMetrics{
		duration:          duration,
		created:           created,
		insufficientStock: insufficientStock,
		canceled:          canceled,
	}
}

// ObserveCreateDuration records how long an order placement took.
func (o *OrderMetrics) ObserveCreateDuration(paymentMethod string, duration time.Duration) {
	if o == nil || o.duration == nil {
		return
	}
	o.duration.WithLabelValues(normalizeLabel(paymentMethod)).Observe(duration.Seconds())
}

// IncCreated increments the placed order counter.
func (o *OrderMetrics) IncCreated(paymentMethod string) {
	if o == nil || o.created == nil {
		return
	}
	o.created.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncInsufficientStock increments the rejected placement counter.
func (o *OrderMetrics) IncInsufficientStock(paymentMethod string) {
	if o == nil || o.insufficientStock == nil {
		return
	}
	o.insufficientStock.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncCanceled increments the cancellation counter.
func (o *OrderMetrics) IncCanceled(paymentMethod string) {
	if o == nil || o.canceled == nil {
		return
	}
	o.canceled.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
