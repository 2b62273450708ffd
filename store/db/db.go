package db

import (
	"github.com/pkg/errors"

	"github.com/ledgersense/ledgersense/internal/profile"
	"github.com/ledgersense/ledgersense/store"
	"github.com/ledgersense/ledgersense/store/db/postgres"
	"github.com/ledgersense/ledgersense/store/db/sqlite"
)

// PostgreSQL is the production database with full vector search support.
// SQLite is for development and testing only: transactions and audit logs
// work, nearest-neighbor search requires PostgreSQL with pgvector.

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
