// Package metrics provides Prometheus metrics for the question answering pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Pipeline
	QuestionsTotal *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	PipelineFaults prometheus.Counter

	// Retrieval
	RetrievalDuration *prometheus.HistogramVec
	RetrievalResults  *prometheus.HistogramVec
	RetrievalErrors   *prometheus.CounterVec
	FusionInputs      *prometheus.HistogramVec

	// Graph
	GraphTraversals   *prometheus.CounterVec
	GraphMatchedEdges prometheus.Histogram

	// Generation
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration prometheus.Histogram

	// Cache
	CacheLookups *prometheus.CounterVec
}

// New registers all collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		QuestionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexgraph_questions_total",
				Help: "Questions answered, by classified intent and confidence band",
			},
			[]string{"intent", "band"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lexgraph_stage_duration_seconds",
				Help:    "Duration of each pipeline stage",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		PipelineFaults: f.NewCounter(
			prometheus.CounterOpts{
				Name: "lexgraph_pipeline_faults_total",
				Help: "Requests aborted by an unexpected internal fault",
			},
		),
		RetrievalDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lexgraph_retrieval_duration_seconds",
				Help:    "Index query latency by modality",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		RetrievalResults: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lexgraph_retrieval_results",
				Help:    "Hits returned per query by modality",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
			[]string{"mode"},
		),
		RetrievalErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexgraph_retrieval_errors_total",
				Help: "Failed index queries by modality",
			},
			[]string{"mode"},
		),
		FusionInputs: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lexgraph_fusion_input_size",
				Help:    "Length of each ranked list entering fusion",
				Buckets: []float64{0, 1, 5, 10, 30, 100, 300},
			},
			[]string{"mode"},
		),
		GraphTraversals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexgraph_graph_traversals_total",
				Help: "Graph queries by relation and entity resolution outcome",
			},
			[]string{"relation", "resolution"},
		),
		GraphMatchedEdges: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lexgraph_graph_matched_edges",
				Help:    "Edges matched per graph query",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),
		GenerationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexgraph_generations_total",
				Help: "Generation attempts by outcome",
			},
			[]string{"outcome"},
		),
		GenerationDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lexgraph_generation_duration_seconds",
				Help:    "Latency of generation calls",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
			},
		),
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexgraph_cache_lookups_total",
				Help: "Embedding cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// Nop returns metrics registered on a throwaway registry.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) RecordStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) RecordRetrieval(mode string, d time.Duration, hits int, err error) {
	m.RetrievalDuration.WithLabelValues(mode).Observe(d.Seconds())
	if err != nil {
		m.RetrievalErrors.WithLabelValues(mode).Inc()
		return
	}
	m.RetrievalResults.WithLabelValues(mode).Observe(float64(hits))
}

func (m *Metrics) RecordGeneration(outcome string, d time.Duration) {
	m.GenerationsTotal.WithLabelValues(outcome).Inc()
	m.GenerationDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordTraversal(relation, resolution string, edges int) {
	m.GraphTraversals.WithLabelValues(relation, resolution).Inc()
	m.GraphMatchedEdges.Observe(float64(edges))
}

func (m *Metrics) RecordQuestion(intent, band string) {
	m.QuestionsTotal.WithLabelValues(intent, band).Inc()
}
