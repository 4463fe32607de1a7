package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus mirrors Collector events as Prometheus series on its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	documentsReceived  prometheus.Counter
	documentsProcessed prometheus.Counter
	processingDuration prometheus.Histogram
	eventsPublished    prometheus.Counter
	processingErrors   prometheus.Counter
	events             *prometheus.CounterVec
}

// NewPrometheus registers the nimbus_* series on a fresh registry, together with the
// Go runtime and process collectors.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		documentsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "nimbus_documents_received_total",
			Help: "Total number of staged documents picked up by a pass",
		}),
		documentsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "nimbus_documents_processed_total",
			Help: "Total number of staged documents persisted and deleted",
		}),
		processingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nimbus_document_processing_duration_seconds",
			Help:    "Time taken to process one staged document",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		eventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "nimbus_alarm_events_published_total",
			Help: "Total number of alarm events published",
		}),
		processingErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "nimbus_processing_errors_total",
			Help: "Total number of processing errors",
		}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nimbus_events_total",
			Help: "Pipeline events by name",
		}, []string{"event"}),
	}
}

// Registry returns the registry backing the /metrics endpoint.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// RecordReceived counts a staged document picked up by a pass.
func (p *Prometheus) RecordReceived() {
	p.documentsReceived.Inc()
}

// RecordProcessed counts a processed document and observes its duration.
func (p *Prometheus) RecordProcessed(latency time.Duration) {
	p.documentsProcessed.Inc()
	p.processingDuration.Observe(latency.Seconds())
}

// RecordPublished counts alarm events published downstream.
func (p *Prometheus) RecordPublished() {
	p.eventsPublished.Inc()
}

// RecordError counts a processing error.
func (p *Prometheus) RecordError() {
	p.processingErrors.Inc()
}

// IncrementCustom increments the named event counter.
func (p *Prometheus) IncrementCustom(name string) {
	p.events.WithLabelValues(name).Inc()
}

// AddCustom adds value to the named event counter.
func (p *Prometheus) AddCustom(name string, value uint64) {
	p.events.WithLabelValues(name).Add(float64(value))
}
