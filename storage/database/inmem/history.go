package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/schooldesk/core/history"
)

type historyRepository struct {
	db *historyTable
}

var _ history.Repository = (*historyRepository)(nil) // interface compliance check

func NewHistoryRepository(db *DB) history.Repository {
	return &historyRepository{db: db.history}
}

func copyEntry(e history.Entry) history.Entry {
	e.Before = append(history.Snapshot(nil), e.Before...)
	e.After = append(history.Snapshot(nil), e.After...)
	return e
}

func (repo *historyRepository) AppendEntry(_ context.Context, e history.Entry) (history.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pkCount++
	e.ID = repo.db.pkCount
	stored := copyEntry(e)
	repo.db.table[e.ID] = &stored
	return copyEntry(e), nil
}

func (repo *historyRepository) QueryAllEntries(_ context.Context) ([]history.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]history.Entry, 0, len(repo.db.table))
	for _, e := range repo.db.table {
		entries = append(entries, copyEntry(*e))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (repo *historyRepository) ReplaceAllEntries(_ context.Context, entries []history.Entry) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table = make(map[int]*history.Entry, len(entries))
	repo.db.pkCount = 0
	for _, e := range entries {
		if e.ID <= 0 {
			e.ID = repo.db.pkCount + 1
		}
		stored := copyEntry(e)
		repo.db.table[e.ID] = &stored
		if e.ID > repo.db.pkCount {
			repo.db.pkCount = e.ID
		}
	}
	return nil
}
