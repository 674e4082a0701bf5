package db

import (
	"github.com/pkg/errors"

	"github.com/civiclens/civiclens/internal/profile"
	"github.com/civiclens/civiclens/store"
	"github.com/civiclens/civiclens/store/db/postgres"
	"github.com/civiclens/civiclens/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// PostgreSQL is the production backend; embeddings live in a pgvector column.
// SQLite is for development and testing; embeddings are stored as raw float32
// blobs since no vector extension is assumed.
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
