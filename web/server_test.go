package web

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradeloop/broker"
	"github.com/rustyeddy/tradeloop/config"
	"github.com/rustyeddy/tradeloop/engine"
	"github.com/rustyeddy/tradeloop/journal"
	"github.com/rustyeddy/tradeloop/market"
	"github.com/rustyeddy/tradeloop/store"
	"github.com/rustyeddy/tradeloop/strategy"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Persist.SnapshotFile = filepath.Join(dir, "session.json")
	cfg.Persist.JournalFile = filepath.Join(dir, "journal.db")

	jrnl, err := journal.NewSQLite(cfg.Persist.JournalFile)
	require.NoError(t, err)
	t.Cleanup(func() { jrnl.Close() })

	eng, err := engine.New(engine.Options{
		Config:    cfg,
		Logger:    zap.NewNop(),
		Broker:    broker.NewPaper(),
		Source:    market.NewSimSource(),
		Strategy:  strategy.Get("sma-cross"),
		Journal:   jrnl,
		Snapshots: store.New(cfg.Persist.SnapshotFile),
	})
	require.NoError(t, err)

	return NewServer("127.0.0.1:0", eng, zap.NewNop())
}

func TestStateUnavailableBeforeFirstTick(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestControlValidation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{
			name:     "valid_kill_switch",
			body:     `{"kind":"SET_KILL_SWITCH","bool":true}`,
			wantCode: http.StatusAccepted,
		},
		{
			name:     "valid_stop_loss",
			body:     `{"kind":"SET_SL","pct":0.02}`,
			wantCode: http.StatusAccepted,
		},
		{
			name:     "unknown_kind",
			body:     `{"kind":"DO_SOMETHING"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "out_of_range_pct",
			body:     `{"kind":"SET_SL","pct":5}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "garbage_body",
			body:     `{nope`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad_mode",
			body:     `{"kind":"SET_MODE","str":"demo"}`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/control", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			srv.httpSrv.Handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestControlRejectsGet(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/control", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}
