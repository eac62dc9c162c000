package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/ragtable/store"
)

// Migrate creates the vector table if it does not exist. Opening a missing
// table is not an error; it triggers creation.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return errors.Wrap(err, "failed to create vector extension")
	}

	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			source TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)
	`, tableName, d.profile.EmbeddingDimensions)
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

// UpsertVectors merge-upserts the batch in a single statement keyed on
// source. Matched rows have every field overwritten; unmatched rows are
// inserted. Callers must not pass two records with the same source.
func (d *DB) UpsertVectors(ctx context.Context, records []*store.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	values := make([]string, 0, len(records))
	args := make([]any, 0, len(records)*3)
	for i, record := range records {
		values = append(values, fmt.Sprintf("(%s, %s, %s)",
			placeholder(i*3+1), placeholder(i*3+2), placeholder(i*3+3)))
		args = append(args, record.Source, record.Content, pgvector.NewVector(record.Vector))
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (source, content, embedding)
		VALUES %s
		ON CONFLICT (source)
		DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding
	`, tableName, strings.Join(values, ", "))

	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to upsert vectors")
	}
	return nil
}

// VectorSearch returns the limit nearest rows by cosine distance, closest
// first. The <=> operator computes cosine distance, so ascending order
// means most similar first.
func (d *DB) VectorSearch(ctx context.Context, vector []float32, limit int) ([]*store.SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}

	query := fmt.Sprintf(`
		SELECT content, source
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, tableName)

	rows, err := d.db.QueryContext(ctx, query, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, errors.Wrap(err, "vector search failed")
	}
	defer rows.Close()

	hits := []*store.SearchHit{}
	for rows.Next() {
		var hit store.SearchHit
		if err := rows.Scan(&hit.Content, &hit.Source); err != nil {
			return nil, errors.Wrap(err, "failed to scan search hit")
		}
		hits = append(hits, &hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}
