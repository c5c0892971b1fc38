package client

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "agent_wallet"

// metrics are the ledger client's Prometheus collectors.
type metrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	errors      *prometheus.CounterVec
	switches    prometheus.Counter
	successRate *prometheus.GaugeVec
	poolInUse   *prometheus.GaugeVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Total number of RPC requests",
		}, []string{"endpoint", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "RPC request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "rpc",
			Name:      "errors_total",
			Help:      "Total number of RPC errors",
		}, []string{"endpoint", "error_type"}),
		switches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "rpc",
			Name:      "endpoint_switches_total",
			Help:      "Total number of endpoint switches",
		}),
		successRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "rpc",
			Name:      "endpoint_success_rate",
			Help:      "Smoothed success rate per endpoint",
		}, []string{"endpoint"}),
		poolInUse: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "rpc",
			Name:      "pool_connections_in_use",
			Help:      "Pooled connections currently borrowed per endpoint",
		}, []string{"endpoint"}),
	}

	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.errors, err = register(reg, m.errors); err != nil {
		return nil, err
	}
	if m.switches, err = register(reg, m.switches); err != nil {
		return nil, err
	}
	if m.successRate, err = register(reg, m.successRate); err != nil {
		return nil, err
	}
	if m.poolInUse, err = register(reg, m.poolInUse); err != nil {
		return nil, err
	}
	return m, nil
}

// register reuses an identical collector that is already registered, so
// several clients can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) observe(endpoint, method, status string, d time.Duration) {
	m.requests.WithLabelValues(endpoint, method, status).Inc()
	m.duration.WithLabelValues(endpoint, method).Observe(d.Seconds())
}
