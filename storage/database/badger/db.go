// Package badgerdb is a record store embedded in the process, persisted with BadgerDB.
package badgerdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studentdir/core"
	"github.com/trezcool/studentdir/core/student"
)

const (
	gcInterval     = 5 * time.Minute
	gcDiscardRatio = 0.5
)

type Config struct {
	// Path is the directory of the database files, created when missing. Ignored when InMemory.
	Path     string
	InMemory bool
}

type DB struct {
	db     *badger.DB
	seq    *badger.Sequence // student insertion order
	feed   *student.Feed
	logger core.Logger
	conf   Config
}

// badgerLogger adapts core.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger core.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error("badger: " + fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn("badger: " + fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug("badger: " + fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug("badger: " + fmt.Sprintf(format, args...))
}

// Open opens the database, publishing its changes to feed.
func Open(conf Config, feed *student.Feed, logger core.Logger) (*DB, error) {
	var opts badger.Options
	if conf.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if conf.Path == "" {
			return nil, errors.New("badger path is required")
		}
		if err := os.MkdirAll(conf.Path, 0750); err != nil {
			return nil, errors.Wrapf(err, "creating %s", conf.Path)
		}
		opts = badger.DefaultOptions(conf.Path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening badger")
	}
	seq, err := db.GetSequence([]byte("meta/student_seq"), 100)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "getting student sequence")
	}
	return &DB{db: db, seq: seq, feed: feed, logger: logger, conf: conf}, nil
}

func (db *DB) Close() error {
	if err := db.seq.Release(); err != nil {
		_ = db.db.Close()
		return errors.Wrap(err, "releasing student sequence")
	}
	return db.db.Close()
}

// RunGC garbage collects the value log periodically, until ctx is done.
func (db *DB) RunGC(ctx context.Context) {
	if db.conf.InMemory {
		return
	}
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// one GC round rewrites at most one file: repeat while it does
			for db.db.RunValueLogGC(gcDiscardRatio) == nil {
			}
		}
	}
}

func (db *DB) publish() {
	if db.feed != nil {
		db.feed.Publish()
	}
}

func getJSON(txn *badger.Txn, key []byte, v interface{}) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	val, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, val)
}

func getString(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	return string(val), err
}

// keysWithPrefix returns a copy of the keys starting with prefix, in order.
func keysWithPrefix(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	keys := make([][]byte, 0)
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// eachWithPrefix decodes the values of the keys starting with prefix, in order.
func eachWithPrefix[T any](txn *badger.Txn, prefix []byte, fn func(v T) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		var v T
		if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &v) }); err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}
