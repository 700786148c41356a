// Package session holds the per-login application state: the services over one store
// and the optional remote sync collaborator. A Session is built at startup (or login)
// and closed at shutdown (or logout); nothing in it is process-global.
package session

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/backup"
	"github.com/trezcool/schooldesk/core/history"
	"github.com/trezcool/schooldesk/core/ledger"
	"github.com/trezcool/schooldesk/core/settings"
	"github.com/trezcool/schooldesk/core/student"
)

var ErrSyncDisabled = errors.New("remote sync is not configured")

type (
	// Syncer is the remote backend keeping a per-account copy of the data.
	Syncer interface {
		Fetch(ctx context.Context) (backup.Snapshot, error)
		Save(ctx context.Context, snap backup.Snapshot) error
		// Wait blocks until background work started by Save is done.
		Wait()
	}

	Deps struct {
		Students   student.Repository
		History    history.Repository
		Settings   settings.Repository
		SchoolName string
		Syncer     Syncer    // optional
		Store      io.Closer // optional, closed with the session
	}

	Session struct {
		ID        string
		StartedAt time.Time

		Students *student.Service
		Ledger   *ledger.Service
		History  *history.Service
		Settings *settings.Service
		Backup   *backup.Service

		schoolName string
		syncer     Syncer
		store      io.Closer

		mu     sync.Mutex
		closed bool
	}
)

func New(deps Deps) *Session {
	histSvc := history.NewService(deps.History)
	stgsSvc := settings.NewService(deps.Settings)
	return &Session{
		ID:         uuid.New().String(),
		StartedAt:  core.Now(),
		Students:   student.NewService(deps.Students, histSvc, deps.Settings, deps.SchoolName),
		Ledger:     ledger.NewService(deps.Students, histSvc, stgsSvc),
		History:    histSvc,
		Settings:   stgsSvc,
		Backup:     backup.NewService(deps.Students, deps.History, stgsSvc),
		schoolName: deps.SchoolName,
		syncer:     deps.Syncer,
		store:      deps.Store,
	}
}

func (s *Session) SchoolName() string { return s.schoolName }

func (s *Session) SyncEnabled() bool { return s.syncer != nil }

// Push uploads the current data to the remote backend.
func (s *Session) Push(ctx context.Context) error {
	if s.syncer == nil {
		return ErrSyncDisabled
	}
	snap, err := s.Backup.Export(ctx)
	if err != nil {
		return errors.Wrap(err, "exporting data")
	}
	return s.syncer.Save(ctx, snap)
}

// Pull fetches the remote copy and restores it, see backup.Service.Restore for confirmed.
func (s *Session) Pull(ctx context.Context, confirmed bool) error {
	if s.syncer == nil {
		return ErrSyncDisabled
	}
	snap, err := s.syncer.Fetch(ctx)
	if err != nil {
		return errors.Wrap(err, "fetching remote data")
	}
	return s.Backup.Restore(ctx, snap, confirmed)
}

// Close waits for pending background sync work and closes the store. It is safe to call twice.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.syncer != nil {
		s.syncer.Wait()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return errors.Wrap(err, "closing store")
		}
	}
	return nil
}
