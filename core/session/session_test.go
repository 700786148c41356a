package session_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooldesk/core/backup"
	"github.com/trezcool/schooldesk/core/session"
	"github.com/trezcool/schooldesk/core/settings"
	"github.com/trezcool/schooldesk/core/student"
	"github.com/trezcool/schooldesk/storage/database/inmem"
	"github.com/trezcool/schooldesk/tests"
)

type fakeSyncer struct {
	remote   *backup.Snapshot
	fetchErr error
	saves    int
	waits    int
}

func (f *fakeSyncer) Fetch(context.Context) (backup.Snapshot, error) {
	if f.fetchErr != nil {
		return backup.Snapshot{}, f.fetchErr
	}
	if f.remote == nil {
		return backup.Snapshot{}, nil
	}
	return *f.remote, nil
}

func (f *fakeSyncer) Save(_ context.Context, snap backup.Snapshot) error {
	f.saves++
	f.remote = &snap
	return nil
}

func (f *fakeSyncer) Wait() { f.waits++ }

type countingCloser struct {
	closed int
}

func (c *countingCloser) Close() error {
	c.closed++
	return nil
}

func newSession(syncer session.Syncer, store *countingCloser) *session.Session {
	db, _ := inmemdb.Open()
	deps := session.Deps{
		Students:   inmemdb.NewStudentRepository(db),
		History:    inmemdb.NewHistoryRepository(db),
		Settings:   inmemdb.NewSettingsRepository(db),
		SchoolName: "Sunrise",
		Syncer:     syncer,
	}
	if store != nil {
		deps.Store = store
	}
	return session.New(deps)
}

func TestSession_disabledSync(t *testing.T) {
	sess := testutil.NewSession(t)
	assert.False(t, sess.SyncEnabled())
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "Sunrise", sess.SchoolName())

	assert.Equal(t, session.ErrSyncDisabled, sess.Push(context.Background()))
	assert.Equal(t, session.ErrSyncDisabled, sess.Pull(context.Background(), true))
}

func TestSession_PushPull(t *testing.T) {
	ctx := context.Background()
	syncer := new(fakeSyncer)

	// desk A pushes
	deskA := testutil.NewSession(t, syncer)
	require.True(t, deskA.SyncEnabled())
	st, err := deskA.Students.Admit(ctx, student.NewStudent{Class: "5", Section: "A", Name: "Asha"})
	require.NoError(t, err)
	require.NoError(t, deskA.Settings.PutFeeMap(ctx, settings.FeeMap{"5": 200}))
	require.NoError(t, deskA.Push(ctx))
	assert.Equal(t, 1, syncer.saves)

	// desk B starts empty: the remote copy is newer
	deskB := testutil.NewSession(t, syncer)
	require.NoError(t, deskB.Pull(ctx, false))

	got, err := deskB.Students.GetByID(ctx, st.StudentID)
	require.NoError(t, err)
	assert.Equal(t, st, got)
	fm, err := deskB.Settings.FeeMap(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.FeeMap{"5": 200}, fm)

	// pulling the same data again needs a confirmation
	err = deskB.Pull(ctx, false)
	assert.Equal(t, backup.ErrConfirmationRequired, errors.Cause(err))
	require.NoError(t, deskB.Pull(ctx, true))

	syncer.fetchErr = errors.New("offline")
	err = deskB.Pull(ctx, true)
	assert.EqualError(t, err, "fetching remote data: offline")
}

func TestSession_Close(t *testing.T) {
	syncer := new(fakeSyncer)
	store := new(countingCloser)
	sess := newSession(syncer, store)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.Equal(t, 1, store.closed)
	assert.Equal(t, 1, syncer.waits)

	// no store, no syncer
	assert.NoError(t, newSession(nil, nil).Close())
}
