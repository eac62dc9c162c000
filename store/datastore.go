package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/ragtable/ai/metrics"
)

// embedWorkers bounds the number of concurrent embedding calls during a
// batch ingest. Embedding is network-bound, not CPU-bound.
const embedWorkers = 8

// Embedder turns text into a fixed-dimensionality vector.
// Satisfied by ai/embedding.Service.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Datastore is the vector store gateway: it embeds content and performs
// idempotent upserts and nearest-neighbor search against the vector table.
type Datastore struct {
	driver   Driver
	embedder Embedder
	metrics  *metrics.Pipeline
}

// NewDatastore creates a Datastore on top of a database driver and an
// embedding service. collector may be nil.
func NewDatastore(driver Driver, embedder Embedder, collector *metrics.Pipeline) *Datastore {
	return &Datastore{
		driver:   driver,
		embedder: embedder,
		metrics:  collector,
	}
}

// GetVector embeds content and validates the result against the configured
// dimensionality. A mismatch is a hard failure, never silently padded.
func (d *Datastore) GetVector(ctx context.Context, content string) ([]float32, error) {
	vector, err := d.embedder.Embed(ctx, content)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed content")
	}
	if len(vector) != d.embedder.Dimensions() {
		return nil, errors.Errorf("embedding dimension mismatch: got %d, want %d", len(vector), d.embedder.Dimensions())
	}
	return vector, nil
}

// AddItems embeds every item and merge-upserts the batch into the vector
// table keyed on source. Embedding calls run on a bounded worker pool;
// results are reassembled in input order before the upsert. Duplicate
// sources within one batch collapse to the last occurrence, so re-ingesting
// an unchanged document leaves the table state unchanged.
func (d *Datastore) AddItems(ctx context.Context, items []DataItem) error {
	if len(items) == 0 {
		return nil
	}

	start := time.Now()
	batchID := uuid.NewString()
	records := make([]*VectorRecord, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)
	for i := range items {
		i := i
		g.Go(func() error {
			item := items[i]
			vector, err := d.GetVector(gctx, item.Content)
			if err != nil {
				return errors.Wrapf(err, "item %q", item.Source)
			}
			records[i] = &VectorRecord{
				Vector:  vector,
				Content: item.Content,
				Source:  item.Source,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	deduped := dedupeBySource(records)
	if err := d.driver.UpsertVectors(ctx, deduped); err != nil {
		return errors.Wrap(err, "failed to upsert vectors")
	}

	d.metrics.ObserveIngest(len(deduped), time.Since(start))
	slog.Info("Upserted items into vector table",
		"batch_id", batchID,
		"items", len(items),
		"rows", len(deduped),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Search embeds query and returns the topK nearest rows, closest first.
func (d *Datastore) Search(ctx context.Context, query string, topK int) ([]*SearchHit, error) {
	vector, err := d.GetVector(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}

	start := time.Now()
	hits, err := d.driver.VectorSearch(ctx, vector, topK)
	if err != nil {
		return nil, errors.Wrap(err, "vector search failed")
	}
	d.metrics.ObserveSearch(len(hits), time.Since(start))
	return hits, nil
}

// Reset drops and recreates the vector table.
func (d *Datastore) Reset(ctx context.Context) error {
	return d.driver.Reset(ctx)
}

// dedupeBySource collapses records sharing a source to the last occurrence,
// keeping the position of the first. A multi-row upsert must not touch the
// same key twice within one statement.
func dedupeBySource(records []*VectorRecord) []*VectorRecord {
	position := make(map[string]int, len(records))
	deduped := make([]*VectorRecord, 0, len(records))
	for _, record := range records {
		if i, ok := position[record.Source]; ok {
			deduped[i] = record
			continue
		}
		position[record.Source] = len(deduped)
		deduped = append(deduped, record)
	}
	return deduped
}
