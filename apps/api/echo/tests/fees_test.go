package tests

import (
	"context"
	"net/http"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooldesk/apps/api/echo"
	"github.com/trezcool/schooldesk/core/history"
	"github.com/trezcool/schooldesk/core/ledger"
	"github.com/trezcool/schooldesk/core/settings"
	"github.com/trezcool/schooldesk/core/student"
	"github.com/trezcool/schooldesk/tests"
)

func Test_studentApi_pay(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	token := getToken(t, app.conf)
	require.NoError(t, app.sess.Settings.PutFeeMap(ctx, settings.FeeMap{"5": 200}))

	st := testutil.AddStudent(t, app.sess.Students, "S24-01-0001", "5", "A", 1, 1200)
	noFee := testutil.AddStudent(t, app.sess.Students, "S24-01-0002", "9", "A", 1, 100)
	withEmail := st
	withEmail.Email = "parent@test.cd"
	_, err := app.sess.Students.Create(ctx, withEmail)
	require.NoError(t, err)

	path := func(id string) string { return "/v1/students/" + id + "/payments" }

	tests := []httpTest{
		{name: "Auth required", path: path(st.StudentID), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "no months", path: path(st.StudentID), token: token, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"months": "this field is required"}),
		},
		{
			name: "invalid months", path: path(st.StudentID), token: token, body: []byte(`{"months": ["April", "april"]}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"months": "months must be distinct calendar month names"}),
		},
		{
			name: "no fee for class", path: path(noFee.StudentID), token: token, body: []byte(`{"months": ["April"]}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"class": ledger.ErrNoFee.Error()}),
		},
		{
			name: "amount without dues", path: path(st.StudentID), token: token, body: []byte(`{"months": ["April"], "amount": 5}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"dues": "amount and dues must be given together"}),
		},
		{name: "paid", path: path(st.StudentID), token: token, body: []byte(`{"months": ["april", "May"]}`), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			if tt.wantCode != http.StatusCreated {
				checkCodeAndData(t, tt, rec)
				return
			}

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			var resp echoapi.PaymentResponse
			decode(t, rec, &resp)
			assert.Equal(t, float64(400), resp.Payment.Amount)
			assert.Equal(t, float64(800), resp.Payment.Dues)
			assert.Equal(t, []string{"April", "May"}, resp.Payment.Months)
			assert.Equal(t, float64(800), resp.Student.Dues)
			require.Len(t, resp.Student.FeeHistory, 1)

			// audit entry without a before snapshot
			entries, err := app.sess.History.ListByStudent(ctx, st.StudentID)
			require.NoError(t, err)
			require.NotEmpty(t, entries)
			assert.Equal(t, history.ActionFeePayment, entries[0].Action)
			assert.True(t, entries[0].Before.IsNull())

			// receipt
			sent := app.mailSvc.SentMessages()
			require.Len(t, sent, 1)
			assert.Equal(t, "parent@test.cd", sent[0].To[0].Address)
			assert.Equal(t, st.StudentID, sent[0].Ref)

			assert.Equal(t, float64(1), promtest.ToFloat64(app.metrics.PaymentsRecorded))
			assert.Equal(t, float64(400), promtest.ToFloat64(app.metrics.PaymentAmount))
		})
	}
}

func Test_studentApi_recordManualPayment(t *testing.T) {
	app := setup(t)
	st := testutil.AddStudent(t, app.sess.Students, "S24-01-0001", "5", "A", 1, 1200)

	req, rec := newAuthRequest(
		http.MethodPost, "/v1/students/"+st.StudentID+"/payments", getToken(t, app.conf),
		[]byte(`{"months": ["June"], "amount": 250, "dues": 1000}`),
	)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp echoapi.PaymentResponse
	decode(t, rec, &resp)
	assert.Equal(t, float64(250), resp.Payment.Amount)
	assert.Equal(t, float64(1000), resp.Student.Dues, "dues are recorded as given")
	assert.Empty(t, app.mailSvc.SentMessages(), "no receipt without an email")
}

func Test_feeApi(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	require.NoError(t, app.sess.Settings.PutFeeMap(ctx, settings.FeeMap{"5": 250, "6": 300}))

	s5 := testutil.AddStudent(t, app.sess.Students, "S24-01-0001", "5", "A", 1, 1000)
	s6 := testutil.AddStudent(t, app.sess.Students, "S24-01-0002", "6", "A", 1, 1000)
	_, err := app.sess.Ledger.RecordPayment(ctx, s5.StudentID, student.PaymentEvent{Months: []string{"April", "May"}, Amount: 500, Dues: 500})
	require.NoError(t, err)
	_, err = app.sess.Ledger.RecordPayment(ctx, s6.StudentID, student.PaymentEvent{Months: []string{"April"}, Amount: 300, Dues: 700})
	require.NoError(t, err)

	tests := []httpTest{
		{name: "total", path: "/v1/fees/total?class=5&month=April&month=may", wantData: marchallObj(t, echoapi.TotalResponse{Total: 500})},
		{
			name: "total (unknown class)", path: "/v1/fees/total?class=9&month=April", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"class": ledger.ErrNoFee.Error()}),
		},
		{
			name: "total (no month)", path: "/v1/fees/total?class=5", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"months": "this field is required"}),
		},
		{name: "monthly", path: "/v1/fees/monthly", wantData: marchallObj(t, ledger.Totals{"April": 550, "May": 250})},
		{name: "class monthly", path: "/v1/fees/classes/5/monthly", wantData: marchallObj(t, ledger.Totals{"April": 250, "May": 250})},
		{name: "class month", path: "/v1/fees/classes/6/months/april", wantData: marchallObj(t, echoapi.TotalResponse{Total: 300})},
		{name: "class month (none)", path: "/v1/fees/classes/6/months/May", wantData: marchallObj(t, echoapi.TotalResponse{Total: 0})},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
