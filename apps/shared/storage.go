// Package shared wires the dependencies common to the API and the admin CLI.
package shared

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/student"
	"github.com/trezcool/studentdir/core/user"
	"github.com/trezcool/studentdir/storage/database"
	badgerdb "github.com/trezcool/studentdir/storage/database/badger"
	inmemdb "github.com/trezcool/studentdir/storage/database/inmem"
	sqlxrepos "github.com/trezcool/studentdir/storage/database/sqlx"
)

// Storage is the record store selected by the configured engine.
type Storage struct {
	Users    user.Repository
	Students student.Repository

	run   func(ctx context.Context) error
	close func() error
}

// OpenStorage opens the store of conf.StorageEngine. Writes, including those of other
// processes sharing a postgres database once Run is called, are published to feed.
func OpenStorage(ctx context.Context, conf *core.Config, feed *student.Feed, logger core.Logger) (*Storage, error) {
	switch conf.StorageEngine {
	case core.EnginePostgres:
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		if err = database.Ping(ctx, db); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "pinging database")
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "migrating database")
		}
		return &Storage{
			Users:    sqlxrepos.NewUserRepository(db),
			Students: sqlxrepos.NewStudentRepository(db, feed),
			run: func(ctx context.Context) error {
				return database.Listen(ctx, conf, feed, logger)
			},
			close: db.Close,
		}, nil

	case core.EngineBadger:
		db, err := badgerdb.Open(badgerdb.Config{Path: conf.Database.BadgerPath}, feed, logger)
		if err != nil {
			return nil, errors.Wrap(err, "opening badger")
		}
		return &Storage{
			Users:    badgerdb.NewUserRepository(db),
			Students: badgerdb.NewStudentRepository(db),
			run: func(ctx context.Context) error {
				go db.RunGC(ctx)
				return nil
			},
			close: db.Close,
		}, nil

	case core.EngineMemory:
		db := inmemdb.Open(feed)
		return &Storage{
			Users:    inmemdb.NewUserRepository(db),
			Students: inmemdb.NewStudentRepository(db),
		}, nil

	default:
		return nil, errors.Errorf("unknown storage engine %q", conf.StorageEngine)
	}
}

// Run starts the background work of the store until ctx is done.
func (st *Storage) Run(ctx context.Context) error {
	if st.run == nil {
		return nil
	}
	return st.run(ctx)
}

func (st *Storage) Close() error {
	if st.close == nil {
		return nil
	}
	return st.close()
}
