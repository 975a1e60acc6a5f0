package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/storage"
	"github.com/EmnaWalha99/Job-Portal/internal/storage/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.JobStore, *memory.RunStore) {
	t.Helper()
	store := memory.NewJobStore()
	_, err := store.InsertNew(context.Background(), []jobs.Record{
		{JobID: "a", Title: "Developpeur Go", City: "Tunis", Source: jobs.SourceKeejob, DatePublication: "2025-11-02"},
		{JobID: "b", Title: "DevOps", City: "Sfax", Source: jobs.SourceTanitJobs, DatePublication: "2025-11-05"},
		{JobID: "c", Title: "Comptable", City: "Tunis", Source: jobs.SourceKeejob},
	})
	require.NoError(t, err)
	runs := memory.NewRunStore()
	return NewServer(store, runs, Options{}, zap.NewNop()), store, runs
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) listResponse {
	t.Helper()
	var body listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestListJobsDefaultOrder(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	rec := get(t, s, "/v1/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	body := decodeList(t, rec)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, storage.DefaultLimit, body.Limit)
	require.Len(t, body.Jobs, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{body.Jobs[0].JobID, body.Jobs[1].JobID, body.Jobs[2].JobID})
}

func TestListJobsFilters(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	cases := []struct {
		target string
		ids    []string
	}{
		{"/v1/jobs?city=tunis", []string{"a", "c"}},
		{"/v1/jobs?search=DEV", []string{"b", "a"}},
		{"/v1/jobs?source=KEEJOB&search=compta", []string{"c"}},
		{"/v1/jobs?limit=1&offset=1", []string{"a"}},
		{"/v1/jobs?offset=10", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			t.Parallel()
			rec := get(t, s, tc.target)
			require.Equal(t, http.StatusOK, rec.Code)
			ids := []string{}
			for _, j := range decodeList(t, rec).Jobs {
				ids = append(ids, j.JobID)
			}
			assert.Equal(t, tc.ids, ids)
		})
	}
}

func TestListJobsRejectsBadParams(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	for _, target := range []string{
		"/v1/jobs?limit=0",
		"/v1/jobs?limit=201",
		"/v1/jobs?limit=abc",
		"/v1/jobs?offset=-1",
		"/v1/jobs?source=linkedin",
	} {
		rec := get(t, s, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

type brokenStore struct{ storage.JobStore }

func (brokenStore) Query(context.Context, storage.Query) (storage.Page, error) {
	return storage.Page{}, errors.New("db down")
}

func (brokenStore) Count(context.Context) (int, error) { return 0, errors.New("db down") }

func TestStoreFailures(t *testing.T) {
	t.Parallel()

	s := NewServer(brokenStore{}, nil, Options{}, nil)
	assert.Equal(t, http.StatusInternalServerError, get(t, s, "/v1/jobs").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/readyz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/v1/runs").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/v1/runs/x").Code)
}

func TestHealthzReportsCount(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","jobs_count":3}`, rec.Body.String())
	assert.Equal(t, http.StatusOK, get(t, s, "/readyz").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	_ = get(t, s, "/v1/jobs")
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRunsEndpoints(t *testing.T) {
	t.Parallel()

	s, _, runs := newTestServer(t)
	ctx := context.Background()
	t0 := time.Date(2025, 11, 1, 6, 0, 0, 0, time.UTC)
	require.NoError(t, runs.StartRun(ctx, "r1", t0))
	require.NoError(t, runs.CompleteRun(ctx, "r1", t0.Add(time.Minute), "DONE", []byte(`{"state":"DONE","success":true}`)))
	require.NoError(t, runs.StartRun(ctx, "r2", t0.Add(time.Hour)))

	rec := get(t, s, "/v1/runs?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs []runDTO `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Runs, 2)
	assert.Equal(t, "r2", list.Runs[0].RunID)
	assert.Equal(t, "RUNNING", list.Runs[0].State)

	rec = get(t, s, "/v1/runs/r1")
	require.Equal(t, http.StatusOK, rec.Code)
	var one struct {
		Run runDTO `json:"run"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, "DONE", one.Run.State)
	assert.JSONEq(t, `{"state":"DONE","success":true}`, string(one.Run.Summary))

	assert.Equal(t, http.StatusNotFound, get(t, s, "/v1/runs/unknown").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/v1/runs?limit=-2").Code)
}

func TestCORS(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/jobs", nil)
	req.Header.Set("Origin", DefaultOrigin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, DefaultOrigin, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	anyOrigin := NewServer(memory.NewJobStore(), nil, Options{AllowedOrigins: []string{"*"}}, nil)
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://app.example")
	rec = httptest.NewRecorder()
	anyOrigin.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	h := recoverMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
