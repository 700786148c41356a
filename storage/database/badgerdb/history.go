package badgerdb

import (
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/history"
)

type historyRepository struct {
	db *DB
}

var _ history.Repository = (*historyRepository)(nil) // interface compliance check

func NewHistoryRepository(db *DB) history.Repository {
	return &historyRepository{db: db}
}

func historyKey(id uint64) []byte {
	return makeKey(prefixHistory, uint64Bytes(id))
}

// AppendEntry reads and bumps the id counter in the same transaction as the write.
func (repo *historyRepository) AppendEntry(_ context.Context, e history.Entry) (history.Entry, error) {
	err := repo.db.update(func(txn *badger.Txn) error {
		next, err := getUint64(txn, keyHistoryNextID)
		if err != nil {
			return err
		}
		if next == 0 {
			next = 1
		}
		e.ID = int(next)
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err = txn.Set(historyKey(next), data); err != nil {
			return err
		}
		return setUint64(txn, keyHistoryNextID, next+1)
	})
	if err != nil {
		return history.Entry{}, core.NewStorageError(err, "appending history entry")
	}
	return e, nil
}

// QueryAllEntries returns entries in id order.
func (repo *historyRepository) QueryAllEntries(_ context.Context) ([]history.Entry, error) {
	entries := make([]history.Entry, 0)
	err := repo.db.bdb.View(func(txn *badger.Txn) error {
		return scan(txn, prefixHistory, func(_, val []byte) error {
			var e history.Entry
			if err := json.Unmarshal(val, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, core.NewStorageError(err, "querying history")
	}
	return entries, nil
}

func (repo *historyRepository) ReplaceAllEntries(_ context.Context, entries []history.Entry) error {
	if err := repo.db.bdb.DropPrefix(prefixHistory); err != nil {
		return core.NewStorageError(err, "dropping history")
	}

	var maxID uint64
	wb := repo.db.bdb.NewWriteBatch()
	defer wb.Cancel()
	for _, e := range entries {
		if e.ID <= 0 {
			e.ID = int(maxID + 1)
		}
		id := uint64(e.ID)
		if id > maxID {
			maxID = id
		}
		data, err := json.Marshal(e)
		if err != nil {
			return core.NewStorageError(err, "encoding history entry")
		}
		if err = wb.Set(historyKey(id), data); err != nil {
			return core.NewStorageError(err, "restoring history entry")
		}
	}
	if err := wb.Set(keyHistoryNextID, uint64Bytes(maxID+1)); err != nil {
		return core.NewStorageError(err, "resetting history id")
	}
	if err := wb.Flush(); err != nil {
		return core.NewStorageError(err, "restoring history")
	}
	return nil
}
