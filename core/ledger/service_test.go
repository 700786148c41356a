package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/history"
	"github.com/trezcool/schooldesk/core/ledger"
	"github.com/trezcool/schooldesk/core/settings"
	"github.com/trezcool/schooldesk/core/student"
	"github.com/trezcool/schooldesk/tests"
)

func TestService_Pay(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = time.Now })

	ctx := context.Background()
	sess := testutil.NewSession(t)
	require.NoError(t, sess.Settings.PutFeeMap(ctx, settings.FeeMap{"5": 200}))
	st := testutil.AddStudent(t, sess.Students, "S24-01-0001", "5", "A", 1, 1200)
	noFee := testutil.AddStudent(t, sess.Students, "S24-01-0002", "9", "A", 1, 1200)

	total, err := sess.Ledger.ComputeTotal(ctx, "5", []string{"April", "May"})
	require.NoError(t, err)
	assert.Equal(t, float64(400), total)

	paid, ev, err := sess.Ledger.Pay(ctx, st.StudentID, ledger.NewPayment{Months: []string{"April", "May"}})
	require.NoError(t, err)
	assert.Equal(t, student.PaymentEvent{Date: now, Months: []string{"April", "May"}, Amount: 400, Dues: 800}, ev)
	assert.Equal(t, float64(800), paid.Dues)
	assert.Equal(t, []student.PaymentEvent{ev}, paid.FeeHistory)

	stored, err := sess.Students.GetByID(ctx, st.StudentID)
	require.NoError(t, err)
	assert.Equal(t, paid, stored)

	entries, err := sess.History.ListByStudent(ctx, st.StudentID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.ActionFeePayment, entries[0].Action)
	assert.True(t, entries[0].Before.IsNull())

	// a second payment appends
	paid, _, err = sess.Ledger.Pay(ctx, st.StudentID, ledger.NewPayment{Months: []string{"June"}})
	require.NoError(t, err)
	assert.Equal(t, float64(600), paid.Dues)
	assert.Len(t, paid.FeeHistory, 2)

	_, _, err = sess.Ledger.Pay(ctx, noFee.StudentID, ledger.NewPayment{Months: []string{"April"}})
	require.Error(t, err)
	assert.Equal(t, ledger.ErrNoFee, errors.Cause(err).(*core.ValidationError).Err)

	_, _, err = sess.Ledger.Pay(ctx, st.StudentID, ledger.NewPayment{})
	require.Error(t, err)
	assert.Equal(t, ledger.ErrNoMonths, errors.Cause(err).(*core.ValidationError).Err)

	_, _, err = sess.Ledger.Pay(ctx, "nope", ledger.NewPayment{Months: []string{"April"}})
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))
}

func TestService_Totals(t *testing.T) {
	ctx := context.Background()
	sess := testutil.NewSession(t)
	s5 := testutil.AddStudent(t, sess.Students, "S24-01-0001", "5", "A", 1, 1000)
	s6 := testutil.AddStudent(t, sess.Students, "S24-01-0002", "6", "A", 1, 1000)

	_, err := sess.Ledger.RecordPayment(ctx, s5.StudentID, student.PaymentEvent{Months: []string{"April", "May"}, Amount: 500, Dues: 500})
	require.NoError(t, err)
	_, err = sess.Ledger.RecordPayment(ctx, s6.StudentID, student.PaymentEvent{Months: []string{"april"}, Amount: 300, Dues: 700})
	require.NoError(t, err)

	all, err := sess.Ledger.MonthlyTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.Totals{"April": 550, "May": 250}, all)

	class5, err := sess.Ledger.ClassMonthlyTotals(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, ledger.Totals{"April": 250, "May": 250}, class5)

	apr, err := sess.Ledger.ClassMonthTotal(ctx, "6", "APRIL")
	require.NoError(t, err)
	assert.Equal(t, float64(300), apr)

	none, err := sess.Ledger.ClassMonthTotal(ctx, "7", "April")
	require.NoError(t, err)
	assert.Equal(t, float64(0), none)
}
