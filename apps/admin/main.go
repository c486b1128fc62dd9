package main

import (
	"context"
	"log"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/apps/shared"
	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/directory"
	"github.com/trezcool/studentdir/core/sample"
	"github.com/trezcool/studentdir/core/student"
	"github.com/trezcool/studentdir/core/user"
	logsvc "github.com/trezcool/studentdir/services/logger"
	"github.com/trezcool/studentdir/storage/database"
	sqlxrepos "github.com/trezcool/studentdir/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(false)

	cli, closeFn, err := newCommandLine(context.Background(), conf, logger)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}

	err = cli.run(os.Args)
	if cErr := closeFn(); cErr != nil {
		logger.Error("closing storage", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error("\nerror: "+err.Error(), err)
		}
		os.Exit(1)
	}
}

// newCommandLine opens the configured store. Postgres databases are not migrated: see `admin migrate`.
func newCommandLine(ctx context.Context, conf *core.Config, logger core.Logger) (*commandLine, func() error, error) {
	if err := conf.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid config")
	}

	cli := &commandLine{conf: conf, out: os.Stdout}
	feed := student.NewFeed()

	var (
		usrRepo  user.Repository
		studRepo student.Repository
		closeFn  func() error
	)
	if conf.StorageEngine == core.EnginePostgres {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, nil, errors.Wrap(err, "creating database")
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening database")
		}
		if err = database.Ping(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, errors.Wrap(err, "pinging database")
		}
		cli.db = db.DB
		usrRepo, studRepo, closeFn = sqlxrepos.NewUserRepository(db), sqlxrepos.NewStudentRepository(db, feed), db.Close
	} else {
		store, err := shared.OpenStorage(ctx, conf, feed, logger)
		if err != nil {
			return nil, nil, err
		}
		usrRepo, studRepo, closeFn = store.Users, store.Students, store.Close
	}

	fallback, err := sample.Open(conf.FallbackDataPath)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}

	validate, translator := shared.NewValidator()
	cli.usrSvc = user.NewService(usrRepo, conf, validate, translator)
	cli.studSvc = student.NewService(studRepo, validate, translator, logger, nil)
	cli.dir = directory.New(cli.studSvc, fallback, feed, nil, conf.CacheSize)
	cli.fallback = fallback
	return cli, closeFn, nil
}
