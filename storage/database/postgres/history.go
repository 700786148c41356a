package pgdb

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/history"
)

type historyRow struct {
	ID        int       `db:"id"`
	Action    string    `db:"action"`
	StudentID string    `db:"student_id"`
	LoggedAt  time.Time `db:"logged_at"`
	Before    null.JSON `db:"before"`
	After     null.JSON `db:"after"`
}

type historyRepository struct {
	db *sqlx.DB
}

var _ history.Repository = (*historyRepository)(nil) // interface compliance check

func NewHistoryRepository(db *sqlx.DB) history.Repository {
	return &historyRepository{db: db}
}

func snapshotJSON(s history.Snapshot) null.JSON {
	if s.IsNull() {
		return null.JSON{}
	}
	return null.JSONFrom(s)
}

func (repo historyRepository) toRow(e history.Entry) historyRow {
	return historyRow{
		ID:        e.ID,
		Action:    e.Action,
		StudentID: e.StudentID,
		LoggedAt:  e.Timestamp.UTC(),
		Before:    snapshotJSON(e.Before),
		After:     snapshotJSON(e.After),
	}
}

func (repo historyRepository) fromRow(r historyRow) history.Entry {
	e := history.Entry{
		ID:        r.ID,
		Action:    r.Action,
		StudentID: r.StudentID,
		Timestamp: r.LoggedAt.UTC(),
	}
	if r.Before.Valid {
		e.Before = history.Snapshot(r.Before.JSON)
	}
	if r.After.Valid {
		e.After = history.Snapshot(r.After.JSON)
	}
	return e
}

func (repo historyRepository) AppendEntry(ctx context.Context, e history.Entry) (history.Entry, error) {
	row := repo.toRow(e)
	q := `INSERT INTO history (action, student_id, logged_at, before, after)
VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := repo.db.QueryRowxContext(ctx, q, row.Action, row.StudentID, row.LoggedAt, row.Before, row.After).Scan(&e.ID); err != nil {
		return history.Entry{}, core.NewStorageError(err, "appending history entry")
	}
	return e, nil
}

func (repo historyRepository) QueryAllEntries(ctx context.Context) ([]history.Entry, error) {
	var rows []historyRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM history ORDER BY id`); err != nil {
		return nil, core.NewStorageError(err, "querying history")
	}
	entries := make([]history.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, repo.fromRow(r))
	}
	return entries, nil
}

func (repo historyRepository) ReplaceAllEntries(ctx context.Context, entries []history.Entry) (err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.NewStorageError(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return core.NewStorageError(err, "clearing history")
	}
	q := `INSERT INTO history (id, action, student_id, logged_at, before, after)
VALUES (:id, :action, :student_id, :logged_at, :before, :after)`
	maxID := 0
	for _, e := range entries {
		if e.ID <= 0 {
			e.ID = maxID + 1
		}
		if e.ID > maxID {
			maxID = e.ID
		}
		if _, err = tx.NamedExecContext(ctx, q, repo.toRow(e)); err != nil {
			return core.NewStorageError(err, "restoring history entry")
		}
	}
	// keep the serial ahead of restored ids
	if _, err = tx.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('history', 'id'), $1, false)`, maxID+1); err != nil {
		return core.NewStorageError(err, "resetting history id")
	}
	if err = tx.Commit(); err != nil {
		return core.NewStorageError(err, "committing history")
	}
	return nil
}
