package sqlite

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/hrygo/ragtable/store"
)

// Migrate creates the vector table if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			source TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			embedding BLOB NOT NULL
		)
	`, tableName)
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrapf(err, "failed to create table %s", tableName)
	}
	slog.Info("Vector table ready", "table", tableName, "dimensions", d.profile.EmbeddingDimensions)
	return nil
}

// Reset drops and recreates the vector table.
func (d *DB) Reset(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableName)); err != nil {
		return errors.Wrapf(err, "failed to drop table %s", tableName)
	}
	return d.Migrate(ctx)
}

// UpsertVectors merge-upserts the batch inside one transaction, so readers
// see either the pre-upsert or post-upsert state.
func (d *DB) UpsertVectors(ctx context.Context, records []*store.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`
		INSERT INTO %s (source, content, embedding)
		VALUES (?, ?, ?)
		ON CONFLICT (source) DO UPDATE SET
			content = excluded.content,
			embedding = excluded.embedding
	`, tableName)

	for _, record := range records {
		blob, err := vectorToBLOB(record.Vector, d.profile.EmbeddingDimensions)
		if err != nil {
			return errors.Wrapf(err, "record %q", record.Source)
		}
		if _, err := tx.ExecContext(ctx, stmt, record.Source, record.Content, blob); err != nil {
			return errors.Wrapf(err, "failed to upsert record %q", record.Source)
		}
	}
	return tx.Commit()
}

// VectorSearch scans all rows, ranks them by cosine similarity in Go, and
// returns the limit best. Rows whose stored vector has a different
// dimensionality are a data error, not silently skipped.
func (d *DB) VectorSearch(ctx context.Context, vector []float32, limit int) ([]*store.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := d.db.QueryContext(ctx, fmt.Sprintf(`SELECT content, source, embedding FROM %s`, tableName))
	if err != nil {
		return nil, errors.Wrap(err, "vector search failed")
	}
	defer rows.Close()

	type scored struct {
		hit   *store.SearchHit
		score float32
	}
	candidates := []scored{}
	for rows.Next() {
		var hit store.SearchHit
		var blob []byte
		if err := rows.Scan(&hit.Content, &hit.Source, &blob); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		stored, err := blobToVector(blob, d.profile.EmbeddingDimensions)
		if err != nil {
			return nil, errors.Wrapf(err, "row %q", hit.Source)
		}
		candidates = append(candidates, scored{hit: &hit, score: cosineSimilarity(vector, stored)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	hits := make([]*store.SearchHit, len(candidates))
	for i, c := range candidates {
		hits[i] = c.hit
	}
	return hits, nil
}

// vectorToBLOB converts a []float32 to a little-endian BLOB, validating the
// expected dimension.
func vectorToBLOB(vec []float32, dimensions int) ([]byte, error) {
	if len(vec) != dimensions {
		return nil, fmt.Errorf("invalid vector dimension: got %d, want %d", len(vec), dimensions)
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf, nil
}

// blobToVector is the inverse of vectorToBLOB.
func blobToVector(blob []byte, dimensions int) ([]float32, error) {
	if len(blob) != dimensions*4 {
		return nil, fmt.Errorf("invalid BLOB length: got %d, want %d", len(blob), dimensions*4)
	}
	vec := make([]float32, dimensions)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
	}
	return vec, nil
}

// cosineSimilarity computes cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct float32
	var normA float32
	var normB float32
	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
