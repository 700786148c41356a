package backup

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core/history"
	"github.com/trezcool/schooldesk/core/settings"
	"github.com/trezcool/schooldesk/core/student"
)

// ErrConfirmationRequired is returned by Restore when the backup is not strictly newer than the live data.
var ErrConfirmationRequired = errors.New("backup is not newer than the current data, confirmation required")

type (
	// ConflictError carries the timestamps behind an ErrConfirmationRequired.
	ConflictError struct {
		BackupLatest time.Time
		LiveLatest   time.Time
	}

	Service struct {
		students student.Repository
		history  history.Repository
		settings *settings.Service
	}
)

func (e *ConflictError) Error() string { return ErrConfirmationRequired.Error() }

// Cause lets errors.Cause return ErrConfirmationRequired.
func (e *ConflictError) Cause() error { return ErrConfirmationRequired }

func NewService(students student.Repository, hist history.Repository, stgs *settings.Service) *Service {
	return &Service{students: students, history: hist, settings: stgs}
}

// Export reads every collection into a Snapshot.
func (svc *Service) Export(ctx context.Context) (Snapshot, error) {
	admissions, err := svc.students.QueryAllStudents(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "exporting admissions")
	}
	entries, err := svc.history.QueryAllEntries(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "exporting history")
	}
	fm, err := svc.settings.FeeMap(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "exporting fee map")
	}
	date, err := svc.settings.PromotionDate(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "exporting promotion date")
	}
	sig, err := svc.settings.PrincipalSignature(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "exporting principal signature")
	}
	return Snapshot{
		Admissions:         admissions,
		History:            entries,
		FeeMap:             fm,
		PromotionDate:      date,
		PrincipalSignature: sig,
	}, nil
}

// CheckRestore returns a *ConflictError unless snap is strictly newer than the live data.
func (svc *Service) CheckRestore(ctx context.Context, snap Snapshot) error {
	live, err := svc.Export(ctx)
	if err != nil {
		return err
	}
	backupLatest, liveLatest := snap.LatestTimestamp(), live.LatestTimestamp()
	if !backupLatest.After(liveLatest) {
		return &ConflictError{BackupLatest: backupLatest, LiveLatest: liveLatest}
	}
	return nil
}

// Restore replaces all collections with snap. Unless confirmed, it only proceeds
// when snap is strictly newer than the live data.
// Collections are replaced one after the other: a failure may leave a partial restore.
func (svc *Service) Restore(ctx context.Context, snap Snapshot, confirmed bool) error {
	if !confirmed {
		if err := svc.CheckRestore(ctx, snap); err != nil {
			return err
		}
	}

	admissions := snap.Admissions
	if admissions == nil {
		admissions = make([]student.Student, 0)
	}
	if err := svc.students.ReplaceAllStudents(ctx, admissions); err != nil {
		return errors.Wrap(err, "restoring admissions")
	}
	entries := snap.History
	if entries == nil {
		entries = make([]history.Entry, 0)
	}
	if err := svc.history.ReplaceAllEntries(ctx, entries); err != nil {
		return errors.Wrap(err, "restoring history")
	}
	if err := svc.settings.PutFeeMap(ctx, snap.FeeMap); err != nil {
		return errors.Wrap(err, "restoring fee map")
	}
	if err := svc.settings.PutPromotionDate(ctx, snap.PromotionDate); err != nil {
		return errors.Wrap(err, "restoring promotion date")
	}
	if err := svc.settings.PutPrincipalSignature(ctx, snap.PrincipalSignature); err != nil {
		return errors.Wrap(err, "restoring principal signature")
	}
	return nil
}
