// Package metrics provides Prometheus metrics for the store, the ingestion
// pipeline and the processing runner
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the metric sets of one process
type Metrics struct {
	registry *prometheus.Registry

	Store      *StoreMetrics
	Ingest     *IngestMetrics
	Processing *ProcessingMetrics
}

// New creates every metric set and registers it on a fresh registry
func New() (*Metrics, error) {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates every metric set and registers it on registry
func NewWithRegistry(registry *prometheus.Registry) (*Metrics, error) {
	storeMetrics, err := NewStoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register store metrics: %w", err)
	}
	ingestMetrics, err := NewIngestMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register ingest metrics: %w", err)
	}
	processingMetrics, err := NewProcessingMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register processing metrics: %w", err)
	}

	return &Metrics{
		registry:   registry,
		Store:      storeMetrics,
		Ingest:     ingestMetrics,
		Processing: processingMetrics,
	}, nil
}

// Registry returns the registry the metric sets are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// collectorSet implements prometheus.Collector over a fixed list of collectors
type collectorSet []prometheus.Collector

// Describe implements the Collector interface
func (c collectorSet) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range c {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (c collectorSet) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range c {
		collector.Collect(ch)
	}
}
