// Package badgerdb is the embedded key-value store.
//
// Layout (one key space, prefixed collections):
//
//	meta:schema_version                          uint64 big endian
//	meta:history_next_id                         uint64 big endian
//	admissions:<studentID>                       student JSON
//	idx:class_section:<class>\x00<section>\x00<studentID>  (empty)
//	history:<id uint64 big endian>               entry JSON
//	settings:<key>                               raw value
package badgerdb

import (
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/trezcool/schooldesk/core"
)

// SchemaVersion is bumped whenever a collection is introduced:
// 1 = admissions + history, 2 = settings.
const SchemaVersion = 2

var (
	keySchemaVersion = []byte("meta:schema_version")
	keyHistoryNextID = []byte("meta:history_next_id")

	prefixAdmissions   = []byte("admissions:")
	prefixClassSection = []byte("idx:class_section:")
	prefixHistory      = []byte("history:")
	prefixSettings     = []byte("settings:")

	maxTxnRetries = 3
)

type DB struct {
	bdb *badger.DB
}

// Open opens (or creates) the store at path. An empty path opens an in-memory store.
// logger may be nil to silence badger.
func Open(path string, logger core.Logger) (*DB, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	if logger != nil {
		opts = opts.WithLogger(badgerLogger{logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, core.NewStorageError(err, "opening badger")
	}
	db := &DB{bdb: bdb}
	if err = db.migrate(); err != nil {
		_ = bdb.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Close() error {
	if err := db.bdb.Close(); err != nil {
		return core.NewStorageError(err, "closing badger")
	}
	return nil
}

// SchemaVersion returns the persisted schema version, 0 for a store never migrated.
func (db *DB) SchemaVersion() (uint64, error) {
	var version uint64
	err := db.bdb.View(func(txn *badger.Txn) error {
		var err error
		version, err = getUint64(txn, keySchemaVersion)
		return err
	})
	if err != nil {
		return 0, core.NewStorageError(err, "reading schema version")
	}
	return version, nil
}

// migrate moves the persisted schema version forward. Collections are key prefixes:
// an absent collection simply reads as empty.
func (db *DB) migrate() error {
	err := db.bdb.Update(func(txn *badger.Txn) error {
		version, err := getUint64(txn, keySchemaVersion)
		if err != nil {
			return err
		}
		if version >= SchemaVersion {
			return nil
		}
		if version < 1 {
			if err = setUint64(txn, keyHistoryNextID, 1); err != nil {
				return err
			}
		}
		return setUint64(txn, keySchemaVersion, SchemaVersion)
	})
	if err != nil {
		return core.NewStorageError(err, "migrating schema")
	}
	return nil
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (db *DB) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = db.bdb.Update(fn)
		if err != badger.ErrConflict {
			return err
		}
	}
	return err
}

// scan calls fn for every item under prefix. val is only valid during the call.
func scan(txn *badger.Txn, prefix []byte, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		if err := item.Value(func(val []byte) error { return fn(key, val) }); err != nil {
			return err
		}
	}
	return nil
}

func makeKey(prefix []byte, parts ...[]byte) []byte {
	k := append([]byte(nil), prefix...)
	for _, p := range parts {
		k = append(k, p...)
	}
	return k
}

func getUint64(txn *badger.Txn, k []byte) (uint64, error) {
	item, err := txn.Get(k)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	var n uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("invalid uint64 value length: %d", len(val))
		}
		n = binary.BigEndian.Uint64(val)
		return nil
	})
	return n, err
}

func setUint64(txn *badger.Txn, k []byte, n uint64) error {
	return txn.Set(k, uint64Bytes(n))
}

func uint64Bytes(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// badgerLogger routes badger's logs to a core.Logger.
type badgerLogger struct {
	logger core.Logger
}

var _ badger.Logger = badgerLogger{}

func (l badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf("badger: "+f, v...))
}

func (l badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf("badger: "+f, v...))
}

func (l badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf("badger: "+f, v...))
}

func (l badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf("badger: "+f, v...))
}
