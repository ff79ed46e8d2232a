package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error {
	return f.err
}

type fakeLookupCounter struct {
	count int
	err   error
}

func (f *fakeLookupCounter) Count(ctx context.Context) (int, error) {
	return f.count, f.err
}

func TestHandleHealth(t *testing.T) {
	srv := NewServer(Config{
		ServiceName: "qualprob-tracker",
		Environment: "development",
		Version:     "1.2.3",
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	srv.handleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "qualprob-tracker", body.Service)
	assert.Equal(t, "1.2.3", body.Version)
}

func TestHandleReadyNotReady(t *testing.T) {
	srv := NewServer(Config{ServiceName: "qualprob-tracker"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)

	srv.handleReady(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "not_ready", body.Checks["service"])
}

func TestHandleReadyWithDatabase(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantCheck  string
	}{
		{
			name:       "database reachable",
			pingErr:    nil,
			wantStatus: http.StatusOK,
			wantCheck:  "ok",
		},
		{
			name:       "database unreachable",
			pingErr:    errors.New("connection refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantCheck:  "error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(Config{
				ServiceName: "qualprob-tracker",
				DB:          &fakePinger{err: tt.pingErr},
			})
			srv.SetReady(true)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ready", nil)

			srv.handleReady(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCheck, body.Checks["database"])
		})
	}
}

func TestHandleReadyEmptyLookupStaysReady(t *testing.T) {
	srv := NewServer(Config{
		ServiceName: "qualprob-tracker",
		DB:          &fakePinger{},
		Lookup:      &fakeLookupCounter{count: 0},
	})
	srv.SetReady(true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)

	srv.handleReady(rec, req)

	// An empty lookup table degrades blending but must not fail readiness
	assert.Equal(t, http.StatusOK, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "empty", body.Checks["lookup_table"])
}

func TestHandleReadyReportsLookupSize(t *testing.T) {
	srv := NewServer(Config{
		ServiceName: "qualprob-tracker",
		DB:          &fakePinger{},
		Lookup:      &fakeLookupCounter{count: 240},
	})
	srv.SetReady(true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)

	srv.handleReady(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "240 entries", body.Checks["lookup_table"])
}

func TestSetReady(t *testing.T) {
	srv := NewServer(Config{ServiceName: "qualprob-tracker"})

	assert.False(t, srv.IsReady())
	srv.SetReady(true)
	assert.True(t, srv.IsReady())
	srv.SetReady(false)
	assert.False(t, srv.IsReady())
}
