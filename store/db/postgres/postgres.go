package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/hrygo/ragtable/internal/profile"
	"github.com/hrygo/ragtable/store"
)

// tableName is the single vector table per deployment.
const tableName = "rag_chunk"

// DB is the pgvector-backed driver.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a connection to PostgreSQL and verifies it.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db: %s", profile.DSN)
	}

	pgDB.SetMaxOpenConns(25)
	pgDB.SetMaxIdleConns(5)
	pgDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pgDB.PingContext(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to ping db")
	}

	return &DB{db: pgDB, profile: profile}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// placeholder returns a positional parameter like $1.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
