package database

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/kodi/core"
	inmemdb "github.com/trezcool/kodi/storage/database/inmem"
	sqlxrepos "github.com/trezcool/kodi/storage/database/sqlx"
	"github.com/trezcool/kodi/storage/seed"
)

// OpenStore opens the application data store.
// With the database enabled, the database is created and migrated if needed, and the store is hydrated from it.
// The demo data is loaded into an empty store when conf.SeedMockData is set.
// The returned closer releases the database connection.
func OpenStore(ctx context.Context, conf *core.Config, logger core.Logger) (*inmemdb.DB, func(), error) {
	var persister inmemdb.Persister
	closer := func() {}

	if conf.Database.Enabled {
		if err := CreateIfNotExist(ctx, conf); err != nil {
			return nil, nil, errors.Wrap(err, "setting up database")
		}
		db, err := Open(ctx, conf)
		if err != nil {
			return nil, nil, err
		}
		if err = Migrate(db.DB, "up"); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		persister = sqlxrepos.NewRecordStore(db)
		closer = func() {
			if err := db.Close(); err != nil {
				logger.Error(fmt.Sprintf("closing database: %v", err), err)
			}
		}
	} else {
		logger.Warn("database disabled, data will not outlive the process")
	}

	store, err := inmemdb.Open(ctx, persister)
	if err != nil {
		closer()
		return nil, nil, errors.Wrap(err, "loading store")
	}

	if conf.SeedMockData && isEmpty(store) {
		if err = seed.Load(ctx, store); err != nil {
			closer()
			return nil, nil, err
		}
		logger.Info("demo data loaded")
	}
	return store, closer, nil
}

func isEmpty(store *inmemdb.DB) bool {
	for _, n := range store.Counts() {
		if n > 0 {
			return false
		}
	}
	return true
}
