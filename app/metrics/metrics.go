// Package metrics holds the Prometheus collectors for the todo service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest outcomes.
const (
	OutcomeSuccess          = "success"
	OutcomeValidation       = "validation"
	OutcomeModelError       = "model_error"
	OutcomeEmptyResult      = "empty_result"
	OutcomePersistenceError = "persistence_error"
	OutcomeError            = "error"
)

// Task sources.
const (
	SourceIngest = "ingest"
	SourceDirect = "direct"
)

// Metrics holds Prometheus metrics for ingestion and task storage.
//
// Metrics:
//   - todo_ingest_requests_total{outcome} - ingestion calls by result class
//   - todo_extraction_stage_total{stage} - which parsing stage produced the items
//   - todo_tasks_created_total{source} - persisted tasks by entry path
//   - todo_model_request_duration_seconds - language model round-trip latency
type Metrics struct {
	IngestRequests  *prometheus.CounterVec
	ExtractionStage *prometheus.CounterVec
	TasksCreated    *prometheus.CounterVec
	ModelDuration   prometheus.Histogram
}

// New creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors, which is convenient in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		IngestRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_ingest_requests_total",
				Help: "Total natural-language ingestion requests by outcome",
			},
			[]string{"outcome"},
		),
		ExtractionStage: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_extraction_stage_total",
				Help: "Successful extractions by the parsing stage that produced the items",
			},
			[]string{"stage"}, // "direct", "fenced" or "lines"
		),
		TasksCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_tasks_created_total",
				Help: "Total tasks persisted",
			},
			[]string{"source"},
		),
		ModelDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "todo_model_request_duration_seconds",
				Help:    "Duration of language model completion calls",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
		),
	}
}
