package ledger

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/history"
	"github.com/trezcool/schooldesk/core/settings"
	"github.com/trezcool/schooldesk/core/student"
)

var (
	// errors
	ErrNoFee    = errors.New("no fee defined for this class")
	ErrNoMonths = errors.New("a payment must cover at least one month")
)

type (
	// FeeSource provides the fee map, see settings.Service.
	FeeSource interface {
		FeeMap(ctx context.Context) (settings.FeeMap, error)
	}

	Service struct {
		students student.Repository
		history  student.Recorder
		fees     FeeSource
	}
)

func NewService(students student.Repository, rec student.Recorder, fees FeeSource) *Service {
	return &Service{students: students, history: rec, fees: fees}
}

// ComputeTotal returns feeMap[class] × len(months). A class missing from the fee map gives ErrNoFee.
func (svc *Service) ComputeTotal(ctx context.Context, class string, months []string) (float64, error) {
	fm, err := svc.fees.FeeMap(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "getting fee map")
	}
	return ComputeTotal(fm, class, months)
}

func ComputeTotal(fm settings.FeeMap, class string, months []string) (float64, error) {
	fee, ok := fm[class]
	if !ok {
		return 0, ErrNoFee
	}
	return fee * float64(len(months)), nil
}

// RecordPayment appends ev to the student's fee history, sets the dues to ev.Dues,
// persists the record and appends a `fee_payment` entry without a before snapshot.
// ev.Amount and ev.Dues are trusted as given.
func (svc *Service) RecordPayment(ctx context.Context, studentID string, ev student.PaymentEvent) (student.Student, error) {
	st, err := svc.students.GetStudent(ctx, studentID)
	if err != nil {
		return student.Student{}, err
	}
	if ev.Date.IsZero() {
		ev.Date = core.Now()
	}
	ev.Months = append([]string(nil), ev.Months...)

	st.FeeHistory = append(append(make([]student.PaymentEvent, 0, len(st.FeeHistory)+1), st.FeeHistory...), ev)
	st.Dues = ev.Dues

	st, err = svc.students.UpdateStudent(ctx, st)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "saving payment")
	}
	if err = svc.history.Record(ctx, history.ActionFeePayment, st.StudentID, nil, st); err != nil {
		return st, errors.Wrap(err, "recording payment")
	}
	return st, nil
}

// Pay computes the payment for np.Months from the fee map and records it,
// with the resulting dues being the current dues minus the amount.
func (svc *Service) Pay(ctx context.Context, studentID string, np NewPayment) (student.Student, student.PaymentEvent, error) {
	if len(np.Months) == 0 {
		return student.Student{}, student.PaymentEvent{}, core.NewValidationError(
			ErrNoMonths, core.FieldError{Field: "months", Error: ErrNoMonths.Error()},
		)
	}
	st, err := svc.students.GetStudent(ctx, studentID)
	if err != nil {
		return student.Student{}, student.PaymentEvent{}, err
	}
	amount, err := svc.ComputeTotal(ctx, st.Class, np.Months)
	if err != nil {
		if errors.Cause(err) == ErrNoFee {
			return student.Student{}, student.PaymentEvent{}, core.NewValidationError(
				ErrNoFee, core.FieldError{Field: "class", Error: ErrNoFee.Error()},
			)
		}
		return student.Student{}, student.PaymentEvent{}, err
	}

	ev := student.PaymentEvent{
		Date:   core.Now(),
		Months: np.Months,
		Amount: amount,
		Dues:   st.Dues - amount,
	}
	st, err = svc.RecordPayment(ctx, st.StudentID, ev)
	if err != nil {
		return st, student.PaymentEvent{}, err
	}
	ev, _ = st.LastPayment()
	return st, ev, nil
}

// MonthlyTotals sums the apportioned payments of all students per month.
func (svc *Service) MonthlyTotals(ctx context.Context) (Totals, error) {
	students, err := svc.students.QueryAllStudents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return SumByMonth(students), nil
}

// ClassMonthlyTotals sums the apportioned payments of the students of class per month.
func (svc *Service) ClassMonthlyTotals(ctx context.Context, class string) (Totals, error) {
	students, err := svc.students.QueryAllStudents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	inClass := make([]student.Student, 0)
	for _, st := range students {
		if st.Class == class {
			inClass = append(inClass, st)
		}
	}
	return SumByMonth(inClass), nil
}

func (svc *Service) ClassMonthTotal(ctx context.Context, class, month string) (float64, error) {
	totals, err := svc.ClassMonthlyTotals(ctx, class)
	if err != nil {
		return 0, err
	}
	return totals[CanonicalMonth(month)], nil
}
