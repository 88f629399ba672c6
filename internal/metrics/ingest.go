package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics contains Prometheus metrics for ingestion runs.
// A nil *IngestMetrics records nothing.
type IngestMetrics struct {
	alertsTotal   *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	writeRetries  *prometheus.CounterVec
	lastRunGauge  *prometheus.GaugeVec
	batchDuration *prometheus.HistogramVec
}

// NewIngestMetrics creates and registers ingestion metrics
func NewIngestMetrics(registry prometheus.Registerer) (*IngestMetrics, error) {
	m := &IngestMetrics{
		alertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alerts_ingest_alerts_total",
				Help: "Total number of alerts seen by ingestion runs",
			},
			[]string{"source", "outcome"}, // outcome: fetched, ingested, rejected, duplicate, reassociation
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alerts_ingest_runs_total",
				Help: "Total number of ingestion runs by final status",
			},
			[]string{"source", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alerts_ingest_run_duration_seconds",
				Help:    "Wall-clock duration of ingestion runs",
				Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount16),
			},
			[]string{"source"},
		),
		writeRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alerts_ingest_write_retries_total",
				Help: "Total number of retried batch writes",
			},
			[]string{"source"},
		),
		lastRunGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "alerts_ingest_last_run_timestamp_seconds",
				Help: "Unix time of the last finished ingestion run",
			},
			[]string{"source"},
		),
		batchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alerts_ingest_batch_write_duration_seconds",
				Help:    "Time taken to persist one batch including retries",
				Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount16),
			},
			[]string{"source"},
		),
	}

	collectors := collectorSet{m.alertsTotal, m.runsTotal, m.runDuration, m.writeRetries, m.lastRunGauge, m.batchDuration}
	if err := registry.Register(collectors); err != nil {
		return nil, err
	}
	return m, nil
}

// AddAlerts adds n alerts with the given outcome for a source
func (m *IngestMetrics) AddAlerts(source, outcome string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.alertsTotal.WithLabelValues(source, outcome).Add(float64(n))
}

// RecordRun records a finished ingestion run
func (m *IngestMetrics) RecordRun(source, status string, duration time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(source, status).Inc()
	m.runDuration.WithLabelValues(source).Observe(duration.Seconds())
	m.lastRunGauge.WithLabelValues(source).Set(float64(finishedAt.Unix()))
}

// RecordWriteRetry records one retried batch write
func (m *IngestMetrics) RecordWriteRetry(source string) {
	if m == nil {
		return
	}
	m.writeRetries.WithLabelValues(source).Inc()
}

// ObserveBatchWrite records the latency of one batch write
func (m *IngestMetrics) ObserveBatchWrite(source string, duration time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.WithLabelValues(source).Observe(duration.Seconds())
}
