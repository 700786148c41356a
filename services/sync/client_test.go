package syncsvc_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schooldesk/core"
	"github.com/trezcool/schooldesk/core/backup"
	"github.com/trezcool/schooldesk/core/student"
	"github.com/trezcool/schooldesk/services/metrics"
	"github.com/trezcool/schooldesk/services/sync"
	"github.com/trezcool/schooldesk/tests"
)

type remote struct {
	mu         sync.Mutex
	docs         map[string][]byte
	driveCalls   int
	driveBody    []byte
	driveAccount string
	failDrive    bool
	failSave     bool
	lastAuth     string
}

func (r *remote) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.lastAuth = req.Header.Get("Authorization")
		account := req.URL.Path[len("/accounts/"):]
		switch req.Method {
		case http.MethodGet:
			doc, ok := r.docs[account]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write(doc)
		case http.MethodPost:
			if r.failSave {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			body, _ := io.ReadAll(req.Body)
			r.docs[account] = body
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/drive", func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.driveCalls++
		r.driveBody, _ = io.ReadAll(req.Body)
		r.driveAccount = req.Header.Get("X-Account")
		if r.failDrive {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func newClient(t *testing.T, r *remote) (*syncsvc.Client, *metrics.Metrics) {
	srv := httptest.NewServer(r.handler())
	t.Cleanup(srv.Close)

	conf := core.NewTestConfig()
	conf.Sync = core.SyncConfig{
		Enabled:        true,
		BaseURL:        srv.URL + "/",
		Account:        "sunrise",
		Token:          "tok",
		DriveBackupURL: srv.URL + "/drive",
		Timeout:        5 * time.Second,
	}
	m := metrics.New()
	return syncsvc.NewClient(conf, testutil.NewLogger(), m), m
}

func TestNewClient_Disabled(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Sync.Enabled = false
	assert.Nil(t, syncsvc.NewClient(conf, testutil.NewLogger(), nil))
}

func TestClient_SaveFetch(t *testing.T) {
	r := &remote{docs: make(map[string][]byte)}
	c, m := newClient(t, r)
	ctx := context.Background()

	_, err := c.Fetch(ctx)
	assert.Equal(t, syncsvc.ErrNoRemoteData, errors.Cause(err))

	snap := backup.Snapshot{
		Admissions: []student.Student{{
			StudentID:  "S24-01-0001",
			RollNo:     1,
			Class:      "5",
			Section:    "A",
			Name:       "Asha",
			Dues:       800,
			FeeHistory: make([]student.PaymentEvent, 0),
		}},
		FeeMap:        map[string]float64{"5": 300},
		PromotionDate: "2025-04-01",
	}
	require.NoError(t, c.Save(ctx, snap))
	c.Wait()

	got, err := c.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Admissions, got.Admissions)
	assert.Equal(t, snap.PromotionDate, got.PromotionDate)
	assert.Equal(t, float64(300), got.FeeMap["5"])

	r.mu.Lock()
	assert.Equal(t, 1, r.driveCalls)
	assert.Equal(t, "Bearer tok", r.lastAuth)
	// the drive backup gets the very document that was saved
	assert.Equal(t, string(r.docs["sunrise"]), string(r.driveBody))
	assert.Contains(t, string(r.driveBody), `"S24-01-0001"`)
	assert.Equal(t, "sunrise", r.driveAccount)
	r.mu.Unlock()

	assert.Equal(t, float64(1), promtest.ToFloat64(m.SyncRequests.WithLabelValues("save", "ok")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.SyncRequests.WithLabelValues("fetch", "ok")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.SyncRequests.WithLabelValues("fetch", "error")))
}

func TestClient_SaveFailure(t *testing.T) {
	r := &remote{docs: make(map[string][]byte), failSave: true}
	c, _ := newClient(t, r)

	err := c.Save(context.Background(), backup.Snapshot{})
	assert.Equal(t, syncsvc.ErrRemote, errors.Cause(err))
	c.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, 0, r.driveCalls, "no drive backup after a failed save")
}

func TestClient_DriveBackupFailureNotSurfaced(t *testing.T) {
	r := &remote{docs: make(map[string][]byte), failDrive: true}
	c, m := newClient(t, r)

	assert.NoError(t, c.Save(context.Background(), backup.Snapshot{}))
	c.Wait()

	assert.Equal(t, float64(1), promtest.ToFloat64(m.DriveBackupFailures))

	var doc map[string]interface{}
	r.mu.Lock()
	defer r.mu.Unlock()
	assert.NoError(t, json.Unmarshal(r.docs["sunrise"], &doc))
}

func TestClient_canceledContext(t *testing.T) {
	r := &remote{docs: make(map[string][]byte)}
	c, m := newClient(t, r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "%v", err)

	err = c.Save(ctx, backup.Snapshot{})
	require.Error(t, err)
	c.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Empty(t, r.docs, "nothing reached the remote")
	assert.Equal(t, 0, r.driveCalls)
	assert.Equal(t, float64(1), promtest.ToFloat64(m.SyncRequests.WithLabelValues("save", "error")))
}
