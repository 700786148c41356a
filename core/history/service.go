package history

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core"
)

var ErrInvalidAction = errors.New("invalid history action")

type (
	// Repository is the append-only store of history entries.
	// No method may modify or remove a single existing entry;
	// ReplaceAllEntries is reserved to backup restoration.
	Repository interface {
		// AppendEntry stores e under a new auto-incremented ID and returns it.
		AppendEntry(ctx context.Context, e Entry) (Entry, error)
		QueryAllEntries(ctx context.Context) ([]Entry, error)
		ReplaceAllEntries(ctx context.Context, entries []Entry) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Append(ctx context.Context, e Entry) (Entry, error) {
	if !IsValidAction(e.Action) {
		return Entry{}, errors.Wrap(ErrInvalidAction, e.Action)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = core.Now()
	}
	e.ID = 0
	return svc.repo.AppendEntry(ctx, e)
}

// Record snapshots before and after (nil for none) and appends an entry for studentID.
func (svc *Service) Record(ctx context.Context, action, studentID string, before, after interface{}) error {
	b, err := NewSnapshot(before)
	if err != nil {
		return errors.Wrap(err, "encoding before snapshot")
	}
	a, err := NewSnapshot(after)
	if err != nil {
		return errors.Wrap(err, "encoding after snapshot")
	}
	_, err = svc.Append(ctx, Entry{Action: action, StudentID: studentID, Before: b, After: a})
	return err
}

// ListAll returns every entry, most recent first.
func (svc *Service) ListAll(ctx context.Context) ([]Entry, error) {
	entries, err := svc.repo.QueryAllEntries(ctx)
	if err != nil {
		return nil, err
	}
	SortDesc(entries)
	return entries, nil
}

func (svc *Service) ListByStudent(ctx context.Context, studentID string) ([]Entry, error) {
	entries, err := svc.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]Entry, 0)
	for _, e := range entries {
		if e.StudentID == studentID {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// SortDesc orders entries by timestamp descending, newest ID first on ties.
func SortDesc(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}
