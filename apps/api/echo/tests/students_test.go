package tests

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooldesk/apps/api/echo"
	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/history"
	"github.com/trezcool/schooldesk/core/settings"
	"github.com/trezcool/schooldesk/core/student"
	"github.com/trezcool/schooldesk/tests"
)

func freezeTime(t *testing.T, now time.Time) {
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = time.Now })
}

func Test_studentApi_admit(t *testing.T) {
	app := setup(t)
	freezeTime(t, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	token := getToken(t, app.conf)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "required fields", token: token, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"class":   "this field is required",
				"section": "this field is required",
				"name":    "this field is required",
			}),
		},
		{
			name: "invalid date", token: token, wantCode: http.StatusBadRequest,
			body: marchallObj(t, student.NewStudent{Class: "5", Section: "A", Name: "Asha", DateOfBirth: "01/02/2015"}),
			wantData: marchallObj(t, map[string]string{"date_of_birth": "date must be formatted as YYYY-MM-DD"}),
		},
		{
			name: "admitted", token: token, wantCode: http.StatusCreated,
			body: marchallObj(t, student.NewStudent{Class: " 5 ", Section: "A", Name: "Asha", Email: "Parent@Test.cd"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/students"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			if tt.wantCode != http.StatusCreated {
				checkCodeAndData(t, tt, rec)
				return
			}

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			var st student.Student
			decode(t, rec, &st)
			assert.Equal(t, "S24-01-0001", st.StudentID)
			assert.Equal(t, 1, st.RollNo)
			assert.Equal(t, "5", st.Class)
			assert.Equal(t, "parent@test.cd", st.Email)
			assert.Equal(t, "2024-06-01", st.AdmissionDate)
			assert.Equal(t, []student.PaymentEvent{}, st.FeeHistory)

			entries, err := app.sess.History.ListByStudent(context.Background(), st.StudentID)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, history.ActionAdmissionAdded, entries[0].Action)
			assert.True(t, entries[0].Before.IsNull())
		})
	}
}

func Test_studentApi_admitFullSection(t *testing.T) {
	app := setup(t)
	repo := app.sess.Students
	for roll := 1; roll <= student.MaxRollNo; roll++ {
		_, err := repo.Create(context.Background(), student.Student{
			StudentID: fmt.Sprintf("S24-%02d-%04d", roll, roll), RollNo: roll, Class: "5", Section: "A", Name: "N",
		})
		require.NoError(t, err)
	}

	req, rec := newAuthRequest(
		http.MethodPost, "/v1/students", getToken(t, app.conf),
		marchallObj(t, student.NewStudent{Class: "5", Section: "A", Name: "Late"}),
	)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"section": student.ErrClassFull.Error()}),
	}, rec)

	req, rec = newRequest(http.MethodGet, "/v1/students/next-roll?class=5&section=A")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, echoapi.NextRollResponse{RollNo: 0, Full: true}),
	}, rec)
}

func Test_studentApi_query(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	repo := app.sess.Students

	s1, err := repo.Create(ctx, student.Student{StudentID: "S24-02-0001", RollNo: 2, Class: "5", Section: "A", Name: "Zed"})
	require.NoError(t, err)
	s2, err := repo.Create(ctx, student.Student{StudentID: "S24-01-0002", RollNo: 1, Class: "5", Section: "A", Name: "amy"})
	require.NoError(t, err)
	s3, err := repo.Create(ctx, student.Student{StudentID: "S24-01-0003", RollNo: 1, Class: "5", Section: "B", Name: "Bob"})
	require.NoError(t, err)
	s4, err := repo.Create(ctx, student.Student{StudentID: "S24-01-0004", RollNo: 1, Class: "6", Section: "A", Name: "Cyd"})
	require.NoError(t, err)

	tests := []httpTest{
		{name: "class & section", path: "/v1/students?class=5&section=A&ordering=roll_no", wantData: marchallList(t, s2, s1)},
		{name: "class only", path: "/v1/students?class=5&ordering=section,-roll_no", wantData: marchallList(t, s1, s2, s3)},
		{name: "order by name", path: "/v1/students?ordering=name", wantData: marchallList(t, s2, s3, s4, s1)},
		{name: "unknown section", path: "/v1/students?class=5&section=Z", wantData: marchallList(t)},
		{name: "next roll", path: "/v1/students/next-roll?class=5&section=A", wantData: marchallObj(t, echoapi.NextRollResponse{RollNo: 3})},
		{
			name: "next roll requires class & section", path: "/v1/students/next-roll?class=5", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"class": "this field is required", "section": "this field is required"}),
		},
		{name: "retrieve", path: "/v1/students/" + s3.StudentID, wantData: marchallObj(t, s3)},
		{name: "not found", path: "/v1/students/nope", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: student.ErrNotFound.Error()})},
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

func Test_studentApi_updateDeleteRestore(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	token := getToken(t, app.conf)
	st := testutil.AddStudent(t, app.sess.Students, "S24-01-0001", "5", "A", 1, 1200)
	testutil.AddStudent(t, app.sess.Students, "S24-01-0002", "6", "A", 1)

	// update: moving to class 6 re-allocates the roll number
	req, rec := newAuthRequest(http.MethodPut, "/v1/students/"+st.StudentID, token, []byte(`{"class": "6", "phone": "0999"}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated student.Student
	decode(t, rec, &updated)
	assert.Equal(t, "6", updated.Class)
	assert.Equal(t, 2, updated.RollNo)
	assert.Equal(t, "0999", updated.Phone)
	assert.Equal(t, st.Name, updated.Name)

	// delete returns the snapshot
	req, rec = newAuthRequest(http.MethodDelete, "/v1/students/"+st.StudentID, token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snapshot student.Student
	decode(t, rec, &snapshot)
	assert.Equal(t, updated, snapshot)

	_, err := app.sess.Students.GetByID(ctx, st.StudentID)
	assert.Equal(t, student.ErrNotFound, err)

	// undo
	req, rec = newAuthRequest(http.MethodPost, "/v1/students/restore", token, marchallObj(t, snapshot))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	restored, err := app.sess.Students.GetByID(ctx, st.StudentID)
	require.NoError(t, err)
	assert.Equal(t, snapshot, restored)

	// a second undo must not overwrite the stored record
	req, rec = newAuthRequest(http.MethodPost, "/v1/students/restore", token, marchallObj(t, snapshot))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"student_id": student.ErrExists.Error()}),
	}, rec)

	// audit: update + delete, newest first, the restore is not recorded
	req, rec = newAuthRequest(http.MethodGet, "/v1/history?student="+st.StudentID, token)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var items []echoapi.HistoryItem
	decode(t, rec, &items)
	require.Len(t, items, 2)
	assert.Equal(t, history.ActionDelete, items[0].Action)
	assert.True(t, items[0].After.IsNull())
	assert.Equal(t, history.ActionUpdate, items[1].Action)

	changed := make(map[string]bool)
	for _, c := range items[1].Changes {
		changed[c.Field] = true
	}
	assert.Equal(t, map[string]bool{"class": true, "roll_no": true, "phone": true}, changed)
}

func Test_studentApi_promote(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf)
	testutil.AddStudent(t, app.sess.Students, "S24-01-0001", "5", "A", 1)
	testutil.AddStudent(t, app.sess.Students, "S24-02-0002", "5", "A", 2)
	testutil.AddStudent(t, app.sess.Students, "S24-01-0003", "6", "A", 1)

	tests := []httpTest{
		{
			name: "same class", token: token, body: []byte(`{"from_class": "5", "to_class": "5"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"to_class": "classes must be different"}),
		},
		{name: "promoted", token: token, body: []byte(`{"from_class": "5", "to_class": "6", "date": "2025-04-01"}`), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/students/promote"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			if tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}

			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			var promoted []student.Student
			decode(t, rec, &promoted)
			require.Len(t, promoted, 2)
			assert.Equal(t, 2, promoted[0].RollNo)
			assert.Equal(t, 3, promoted[1].RollNo)

			date, err := app.sess.Settings.PromotionDate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "2025-04-01", date)

			value, err := app.sess.Settings.Get(context.Background(), settings.KeyPromotionDate)
			require.NoError(t, err)
			assert.Equal(t, "2025-04-01", value)
		})
	}
}
