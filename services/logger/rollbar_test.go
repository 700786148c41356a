package logsvc

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/schooldesk/core"
)

func newTestLogger(buf *bytes.Buffer) *RollbarLogger {
	lgr := NewRollbarLogger(log.New(buf, "API : ", 0), core.NewTestConfig())
	lgr.Enable(false)
	return lgr
}

func TestRollbarLogger_prepare(t *testing.T) {
	lgr := newTestLogger(new(bytes.Buffer))
	err := errors.New("disk full")

	tests := []struct {
		name   string
		logger *RollbarLogger
		args   []interface{}
		want   []interface{}
	}{
		{name: "message only", logger: lgr, want: []interface{}{"saving"}},
		{
			name:   "actor is dropped",
			logger: lgr,
			args:   []interface{}{err, core.Actor{ID: "admin", Username: "admin"}},
			want:   []interface{}{"saving", err},
		},
		{
			name:   "extras merged",
			logger: lgr,
			args:   []interface{}{map[string]interface{}{"student": "S24-01-0001"}, map[string]interface{}{"months": 2}},
			want:   []interface{}{"saving", map[string]interface{}{"student": "S24-01-0001", "months": 2}},
		},
		{
			name:   "named",
			logger: lgr.Named("sync"),
			args:   []interface{}{err},
			want:   []interface{}{"saving", err, map[string]interface{}{"component": "sync"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.logger.prepare("saving", tt.args))
		})
	}
}

func TestRollbarLogger_Named(t *testing.T) {
	buf := new(bytes.Buffer)
	lgr := newTestLogger(buf)

	lgr.Info("started")
	lgr.Named("db").Warn("slow write", map[string]interface{}{"ms": 120}, core.Actor{ID: "admin"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"API : started",
		"DB : slow write",
		"DB : map[ms:120]",
	}, lines)
}
