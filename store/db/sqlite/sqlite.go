package sqlite

import (
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/ragtable/internal/profile"
	"github.com/hrygo/ragtable/store"
)

// tableName is the single vector table per deployment.
const tableName = "rag_chunk"

// DB is the embedded SQLite driver. Vectors are stored as little-endian
// float32 BLOBs and similarity is computed in the application layer, which
// is fine for the corpus sizes a local deployment handles.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the database file, creating it if absent.
//
// Pragmas (modernc.org/sqlite expects the `_pragma=` prefix):
// - busy_timeout: avoid immediate SQLITE_BUSY while a batch upsert runs.
// - journal_mode=WAL: lets readers proceed during a write, which is the
//   consistency the search path relies on.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// A single writer connection is optimal for SQLite with WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)

	return &DB{db: sqliteDB, profile: profile}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
