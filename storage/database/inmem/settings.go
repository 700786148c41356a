package inmemdb

import (
	"context"

	"github.com/trezcool/schooldesk/core/settings"
)

type settingsRepository struct {
	db *settingsTable
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *DB) settings.Repository {
	return &settingsRepository{db: db.settings}
}

func (repo *settingsRepository) GetSetting(_ context.Context, key string) ([]byte, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if v, ok := repo.db.table[key]; ok {
		return append([]byte(nil), v...), nil
	}
	return nil, settings.ErrNotFound
}

func (repo *settingsRepository) PutSetting(_ context.Context, key string, value []byte) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[key] = append([]byte(nil), value...)
	return nil
}
