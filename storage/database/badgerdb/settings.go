package badgerdb

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/settings"
)

type settingsRepository struct {
	db *DB
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *DB) settings.Repository {
	return &settingsRepository{db: db}
}

func (repo *settingsRepository) GetSetting(_ context.Context, k string) ([]byte, error) {
	var value []byte
	err := repo.db.bdb.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(prefixSettings, []byte(k)))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, settings.ErrNotFound
		}
		return nil, core.NewStorageError(err, "getting setting")
	}
	return value, nil
}

func (repo *settingsRepository) PutSetting(_ context.Context, k string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	err := repo.db.update(func(txn *badger.Txn) error {
		return txn.Set(makeKey(prefixSettings, []byte(k)), value)
	})
	if err != nil {
		return core.NewStorageError(err, "putting setting")
	}
	return nil
}
