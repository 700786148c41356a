package testutil

import (
	"context"
	"io"
	"log"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/session"
	"github.com/trezcool/schooldesk/core/student"
	"github.com/trezcool/schooldesk/services/logger"
	"github.com/trezcool/schooldesk/storage/database/badgerdb"
	"github.com/trezcool/schooldesk/storage/database/inmem"
	"github.com/trezcool/schooldesk/storage/database/postgres"
)

// NewLogger returns a logger that reports nowhere.
func NewLogger() *logsvc.RollbarLogger {
	conf := core.NewTestConfig()
	lgr := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	lgr.Enable(false)
	return lgr
}

// NewSession returns a session over a fresh in-memory store, closed with the test.
func NewSession(t *testing.T, syncer ...session.Syncer) *session.Session {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	deps := session.Deps{
		Students:   inmemdb.NewStudentRepository(db),
		History:    inmemdb.NewHistoryRepository(db),
		Settings:   inmemdb.NewSettingsRepository(db),
		SchoolName: core.NewTestConfig().SchoolName,
		Store:      db,
	}
	if len(syncer) > 0 {
		deps.Syncer = syncer[0]
	}
	sess := session.New(deps)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

// OpenBadger opens a badger store in a temporary directory, closed with the test.
func OpenBadger(t *testing.T) *badgerdb.DB {
	t.Helper()
	db, err := badgerdb.Open(t.TempDir(), NewLogger())
	if err != nil {
		t.Fatalf("badgerdb.Open(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// OpenPostgres connects to TEST_DATABASE_URL and migrates it; the test is skipped when unset.
func OpenPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := pgdb.OpenURL(dsn)
	if err != nil {
		t.Fatalf("pgdb.OpenURL(): %v", err)
	}
	if err = pgdb.Migrate(db.DB); err != nil {
		t.Fatalf("pgdb.Migrate(): %v", err)
	}
	for _, table := range []string{"admissions", "history", "settings"} {
		if _, err = db.Exec("TRUNCATE TABLE " + table + " RESTART IDENTITY"); err != nil {
			t.Fatalf("truncating %s: %v", table, err)
		}
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newStudent(id, class, section string, rollNo int, dues []float64) student.Student {
	st := student.Student{
		StudentID:     id,
		RollNo:        rollNo,
		Class:         class,
		Section:       section,
		Name:          "Student " + id,
		FatherName:    "Father",
		MotherName:    "Mother",
		DateOfBirth:   "2015-04-01",
		Gender:        "female",
		AdmissionDate: "2024-04-01",
		FeeHistory:    make([]student.PaymentEvent, 0),
	}
	if len(dues) > 0 {
		st.Dues = dues[0]
	}
	return st
}

// CreateStudent stores a student straight in repo.
func CreateStudent(t *testing.T, repo student.Repository, id, class, section string, rollNo int, dues ...float64) student.Student {
	t.Helper()
	st, err := repo.CreateStudent(context.Background(), newStudent(id, class, section, rollNo, dues))
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return st
}

// AddStudent stores a student through svc, without history.
func AddStudent(t *testing.T, svc *student.Service, id, class, section string, rollNo int, dues ...float64) student.Student {
	t.Helper()
	st, err := svc.Create(context.Background(), newStudent(id, class, section, rollNo, dues))
	if err != nil {
		t.Fatalf("addStudent() failed: %v", err)
	}
	return st
}
