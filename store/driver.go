package store

import "context"

// Driver is the database abstraction over the vector table.
// Implementations live in store/db/postgres and store/db/sqlite.
type Driver interface {
	// Migrate creates the vector table if it does not exist.
	Migrate(ctx context.Context) error

	// Reset drops and recreates the vector table.
	Reset(ctx context.Context) error

	// UpsertVectors performs a batched merge-upsert keyed on source:
	// matched rows have every field overwritten, unmatched rows are
	// inserted. The batch must be atomic with respect to the source key's
	// uniqueness.
	UpsertVectors(ctx context.Context, records []*VectorRecord) error

	// VectorSearch returns the limit nearest rows to vector, closest
	// first, projected to content and source.
	VectorSearch(ctx context.Context, vector []float32, limit int) ([]*SearchHit, error)

	Close() error
}
