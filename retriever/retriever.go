// Package retriever implements the over-fetch-then-rerank retrieval
// strategy on top of the vector store gateway.
package retriever

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/ragtable/ai/metrics"
	"github.com/hrygo/ragtable/ai/reranker"
	"github.com/hrygo/ragtable/store"
)

// overfetchFactor widens the vector-search candidate pool before the
// higher-precision reranker narrows it back down, compensating for
// embedding-search recall loss.
const overfetchFactor = 3

// SearchResult is a candidate passage with relevance metadata. Values are
// immutable; reranking builds new instances rather than mutating a shared
// list.
type SearchResult struct {
	Content        string
	Source         string
	PageNo         int      // 0 when unknown
	Headings       []string // nil when the chunk carried no heading trail
	RelevanceScore float64  // 0 means not yet scored by a reranker
}

// Datastore is the slice of the vector store gateway the retriever needs.
type Datastore interface {
	Search(ctx context.Context, query string, topK int) ([]*store.SearchHit, error)
}

// Retriever performs over-fetched vector search followed by reranking.
type Retriever struct {
	datastore Datastore
	reranker  reranker.Service
	metrics   *metrics.Pipeline
}

// New creates a Retriever. collector may be nil.
func New(datastore Datastore, rerank reranker.Service, collector *metrics.Pipeline) *Retriever {
	return &Retriever{
		datastore: datastore,
		reranker:  rerank,
		metrics:   collector,
	}
}

// Search fetches topK*3 candidates from the store, reranks them, and
// returns at most topK results in the reranker's order with its scores
// attached. A corpus smaller than topK is not an error.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 3
	}

	hits, err := r.datastore.Search(ctx, query, topK*overfetchFactor)
	if err != nil {
		return nil, errors.Wrap(err, "vector search failed")
	}
	if len(hits) == 0 {
		return nil, nil
	}

	candidates := make([]SearchResult, len(hits))
	documents := make([]string, len(hits))
	for i, hit := range hits {
		candidates[i] = resultFromHit(hit)
		documents[i] = hit.Content
	}

	start := time.Now()
	ranked, err := r.reranker.Rerank(ctx, query, documents, topK)
	if err != nil {
		return nil, errors.Wrap(err, "rerank failed")
	}
	r.metrics.ObserveRerank(time.Since(start))

	results := make([]SearchResult, 0, topK)
	for _, rr := range ranked {
		if rr.Index < 0 || rr.Index >= len(candidates) {
			slog.Warn("Reranker returned out-of-range index", "index", rr.Index, "candidates", len(candidates))
			continue
		}
		result := candidates[rr.Index]
		result.RelevanceScore = float64(rr.Score)
		results = append(results, result)
		if len(results) == topK {
			break
		}
	}

	slog.Info("Retrieval completed",
		"candidates", len(candidates),
		"results", len(results),
		"top_k", topK,
	)
	return results, nil
}

// resultFromHit reconstructs provenance from the stored row: the page
// number is encoded in the source key and the heading trail, when present,
// is the rendered "## " line at the top of the content.
func resultFromHit(hit *store.SearchHit) SearchResult {
	return SearchResult{
		Content:  hit.Content,
		Source:   hit.Source,
		PageNo:   pageFromSource(hit.Source),
		Headings: headingsFromContent(hit.Content),
	}
}

func pageFromSource(source string) int {
	for _, part := range strings.Split(source, ":") {
		if rest, ok := strings.CutPrefix(part, "page_"); ok {
			if page, err := strconv.Atoi(rest); err == nil {
				return page
			}
		}
	}
	return 0
}

func headingsFromContent(content string) []string {
	line, _, found := strings.Cut(content, "\n")
	if !found {
		line = content
	}
	rest, ok := strings.CutPrefix(line, "## ")
	if !ok || rest == "" {
		return nil
	}
	return strings.Split(rest, ", ")
}
