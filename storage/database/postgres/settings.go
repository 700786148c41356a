package pgdb

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/settings"
)

type settingsRepository struct {
	db *sqlx.DB
}

var _ settings.Repository = (*settingsRepository)(nil) // interface compliance check

func NewSettingsRepository(db *sqlx.DB) settings.Repository {
	return &settingsRepository{db: db}
}

func (repo settingsRepository) GetSetting(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := repo.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = $1`, key); err != nil {
		if err == sql.ErrNoRows {
			return nil, settings.ErrNotFound
		}
		return nil, core.NewStorageError(err, "getting setting")
	}
	return value, nil
}

func (repo settingsRepository) PutSetting(ctx context.Context, key string, value []byte) error {
	q := `INSERT INTO settings (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := repo.db.ExecContext(ctx, q, key, value); err != nil {
		return core.NewStorageError(err, "putting setting")
	}
	return nil
}
