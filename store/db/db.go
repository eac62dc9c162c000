// Package db provides the database driver factory.
package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/ragtable/internal/profile"
	"github.com/hrygo/ragtable/store"
	"github.com/hrygo/ragtable/store/db/postgres"
	"github.com/hrygo/ragtable/store/db/sqlite"
)

// NewDBDriver creates a vector table driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "postgres":
		return postgres.NewDB(profile)
	case "sqlite":
		return sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver: %q", profile.Driver)
	}
}
