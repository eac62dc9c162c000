// Package metrics provides Prometheus metrics for the RAG pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline collects ingest and query metrics. A nil *Pipeline is valid and
// records nothing, so tests can pass nil.
type Pipeline struct {
	registry *prometheus.Registry

	ingestRows     prometheus.Counter
	ingestLatency  prometheus.Histogram
	searchHits     prometheus.Counter
	searchLatency  prometheus.Histogram
	rerankLatency  prometheus.Histogram
	generateTokens prometheus.Counter
}

// NewPipeline creates a Pipeline with its own registry.
func NewPipeline() *Pipeline {
	registry := prometheus.NewRegistry()

	p := &Pipeline{
		registry: registry,
		ingestRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ragtable",
			Name:      "ingest_rows_total",
			Help:      "Rows upserted into the vector table",
		}),
		ingestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ragtable",
			Name:      "ingest_batch_seconds",
			Help:      "Batch upsert latency in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		searchHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ragtable",
			Name:      "search_hits_total",
			Help:      "Rows returned by vector search",
		}),
		searchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ragtable",
			Name:      "search_seconds",
			Help:      "Vector search latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),
		rerankLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ragtable",
			Name:      "rerank_seconds",
			Help:      "Rerank call latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		}),
		generateTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ragtable",
			Name:      "generate_tokens_total",
			Help:      "Tokens consumed by answer generation",
		}),
	}

	registry.MustRegister(
		p.ingestRows,
		p.ingestLatency,
		p.searchHits,
		p.searchLatency,
		p.rerankLatency,
		p.generateTokens,
	)
	return p
}

// Handler returns an HTTP handler exposing the registry.
func (p *Pipeline) Handler() http.Handler {
	if p == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Pipeline) ObserveIngest(rows int, d time.Duration) {
	if p == nil {
		return
	}
	p.ingestRows.Add(float64(rows))
	p.ingestLatency.Observe(d.Seconds())
}

func (p *Pipeline) ObserveSearch(hits int, d time.Duration) {
	if p == nil {
		return
	}
	p.searchHits.Add(float64(hits))
	p.searchLatency.Observe(d.Seconds())
}

func (p *Pipeline) ObserveRerank(d time.Duration) {
	if p == nil {
		return
	}
	p.rerankLatency.Observe(d.Seconds())
}

func (p *Pipeline) AddGenerateTokens(n int) {
	if p == nil {
		return
	}
	p.generateTokens.Add(float64(n))
}
