package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/schooldesk/apps/api/echo"
	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/ledger"
	"github.com/trezcool/schooldesk/core/session"
	"github.com/trezcool/schooldesk/core/student"
	"github.com/trezcool/schooldesk/services/email"
	"github.com/trezcool/schooldesk/services/metrics"
	"github.com/trezcool/schooldesk/tests"
)

const adminPassword = "s3cr3t-pass"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	*echoapi.Server
	conf    *core.Config
	sess    *session.Session
	mailSvc *emailsvc.ConsoleServiceMock
	metrics *metrics.Metrics
}

func setup(t *testing.T, syncer ...session.Syncer) testApp {
	conf := core.NewTestConfig()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt.GenerateFromPassword(): %v", err)
	}
	conf.Admin.PasswordHash = string(hash)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	ledger.InitValidators(validate, translator)

	app := testApp{
		conf:    conf,
		sess:    testutil.NewSession(t, syncer...),
		mailSvc: emailsvc.NewConsoleServiceMock(conf),
		metrics: metrics.New(),
	}
	app.Server = echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         testutil.NewLogger(),
		Session:        app.sess,
		Validate:       validate,
		Translator:     translator,
		MailSvc:        app.mailSvc,
		Metrics:        app.metrics,
		DisableReqLogs: true,
	})
	return app
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config) string {
	token, err := echoapi.GenerateToken(conf, echoapi.GetOperatorClaims(conf, conf.Admin.Username))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}
