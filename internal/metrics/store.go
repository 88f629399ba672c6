package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics contains Prometheus metrics for store operations.
// A nil *StoreMetrics records nothing.
type StoreMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	rowsTotal         *prometheus.CounterVec
}

// NewStoreMetrics creates and registers store metrics
func NewStoreMetrics(registry prometheus.Registerer) (*StoreMetrics, error) {
	m := &StoreMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alerts_store_operations_total",
				Help: "Total number of store operations",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alerts_store_operation_duration_seconds",
				Help:    "Time taken for store operations",
				Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount16),
			},
			[]string{"operation"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alerts_store_errors_total",
				Help: "Total number of store errors by classified error type",
			},
			[]string{"operation", "error_type"},
		),
		rowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alerts_store_rows_total",
				Help: "Total number of alert rows handled by batch writes",
			},
			[]string{"outcome"}, // outcome: written, rejected
		),
	}

	if err := registry.Register(collectorSet{m.operationsTotal, m.operationDuration, m.errorsTotal, m.rowsTotal}); err != nil {
		return nil, err
	}
	return m, nil
}

// ObserveOperation records the outcome and latency of one store operation
func (m *StoreMetrics) ObserveOperation(operation string, started time.Time, errorType string) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if errorType != "" {
		status = StatusError
		m.errorsTotal.WithLabelValues(operation, errorType).Inc()
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// RecordRows records the per-row outcome of a batch write
func (m *StoreMetrics) RecordRows(written, rejected int) {
	if m == nil {
		return
	}
	m.rowsTotal.WithLabelValues("written").Add(float64(written))
	m.rowsTotal.WithLabelValues("rejected").Add(float64(rejected))
}
