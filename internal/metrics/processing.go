package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProcessingMetrics contains Prometheus metrics for processor executions.
// A nil *ProcessingMetrics records nothing.
type ProcessingMetrics struct {
	executionsTotal   *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	recordsTotal      *prometheus.CounterVec
}

// NewProcessingMetrics creates and registers processing metrics
func NewProcessingMetrics(registry prometheus.Registerer) (*ProcessingMetrics, error) {
	m := &ProcessingMetrics{
		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alerts_processor_executions_total",
				Help: "Total number of processor executions by result status",
			},
			[]string{"processor", "status"},
		),
		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alerts_processor_execution_duration_seconds",
				Help:    "Time taken by one processor execution",
				Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount16),
			},
			[]string{"processor"},
		),
		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alerts_processor_records_total",
				Help: "Total number of result records produced by processors",
			},
			[]string{"processor"},
		),
	}

	if err := registry.Register(collectorSet{m.executionsTotal, m.executionDuration, m.recordsTotal}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordExecution records one processor execution
func (m *ProcessingMetrics) RecordExecution(processor, status string, duration time.Duration, records int) {
	if m == nil {
		return
	}
	m.executionsTotal.WithLabelValues(processor, status).Inc()
	m.executionDuration.WithLabelValues(processor).Observe(duration.Seconds())
	m.recordsTotal.WithLabelValues(processor).Add(float64(records))
}
