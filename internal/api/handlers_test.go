package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/crewclock/crewclock/internal/catalog"
	"github.com/crewclock/crewclock/internal/engine"
	"github.com/crewclock/crewclock/internal/probe"
	memorystore "github.com/crewclock/crewclock/internal/store/memory"
)

// failingProbe always reports the given failure code.
type failingProbe struct {
	code probe.Code
}

func (p *failingProbe) Acquire(ctx context.Context) (probe.Fix, error) {
	return probe.Fix{}, &probe.Error{Code: p.code}
}

func newTestServer(t *testing.T, locProbe probe.Probe) *echo.Echo {
	t.Helper()

	eng := engine.New(memorystore.NewSessionStore(), locProbe, engine.Config{ProbeTimeout: time.Second})
	handler := NewHandler(eng, catalog.New([]string{"Roofing", "Fencing"}))

	e := echo.New()
	handler.RegisterRoutes(e)
	return e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestClockInCreated(t *testing.T) {
	e := newTestServer(t, probe.NewStaticProbe(40.0, -75.0))

	req := httptest.NewRequest(http.MethodPost, "/v1/workers/worker-1/clock-in", strings.NewReader(`{"job_label":"Roofing"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Device-Fingerprint", "ios/iphone-15")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var view SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "worker-1", view.WorkerID)
	require.Equal(t, "Roofing", view.JobLabel)
	require.Equal(t, "RUNNING", view.Status)
	require.True(t, view.LocationVerified)
	require.NotNil(t, view.StartLocation)
	require.Equal(t, "https://maps.example/?q=40,-75", view.StartLocation.MapURL)
	require.Equal(t, "ios/iphone-15", view.DeviceFingerprint)
}

func TestClockInConflict(t *testing.T) {
	e := newTestServer(t, probe.NewStaticProbe(1, 2))

	rec := doJSON(e, http.MethodPost, "/v1/workers/worker-1/clock-in", `{"job_label":"one"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/workers/worker-1/clock-in", `{"job_label":"two"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var payload ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "already_clocked_in", payload.Type)
}

func TestClockInLocationRequired(t *testing.T) {
	e := newTestServer(t, &failingProbe{code: probe.CodeTimeout})

	rec := doJSON(e, http.MethodPost, "/v1/workers/worker-1/clock-in", `{"job_label":"fence"}`)
	require.Equal(t, http.StatusPreconditionRequired, rec.Code)

	var payload ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "location_required", payload.Type)

	// The explicit override turns the same request into a flagged session.
	rec = doJSON(e, http.MethodPost, "/v1/workers/worker-1/clock-in", `{"job_label":"fence","allow_unverified":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var view SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.False(t, view.LocationVerified)
	require.Nil(t, view.StartLocation)
}

func TestClockOut(t *testing.T) {
	e := newTestServer(t, probe.NewStaticProbe(40.0, -75.0))

	rec := doJSON(e, http.MethodPost, "/v1/workers/worker-1/clock-out", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/workers/worker-1/clock-in", `{"job_label":"deck"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/workers/worker-1/clock-out", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, "COMPLETED", view.Status)
	require.NotNil(t, view.EndTime)
	require.NotNil(t, view.EndLocation)
}

func TestActiveSession(t *testing.T) {
	e := newTestServer(t, probe.NewStaticProbe(1, 2))

	rec := doJSON(e, http.MethodGet, "/v1/workers/worker-1/session", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/workers/worker-1/clock-in", `{"job_label":"deck"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/workers/worker-1/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHistory(t *testing.T) {
	e := newTestServer(t, probe.NewStaticProbe(1, 2))

	for _, label := range []string{"first", "second"} {
		rec := doJSON(e, http.MethodPost, "/v1/workers/worker-1/clock-in", `{"job_label":"`+label+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		rec = doJSON(e, http.MethodPost, "/v1/workers/worker-1/clock-out", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(e, http.MethodGet, "/v1/workers/worker-1/sessions?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var history HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Items, 1)
	require.Equal(t, "second", history.Items[0].JobLabel)

	rec = doJSON(e, http.MethodGet, "/v1/workers/worker-1/sessions?limit=bogus", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobs(t *testing.T) {
	e := newTestServer(t, probe.NewStaticProbe(1, 2))

	rec := doJSON(e, http.MethodGet, "/v1/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var jobs JobsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	require.Equal(t, []string{"Roofing", "Fencing"}, jobs.Jobs)
}

func TestHealthz(t *testing.T) {
	e := newTestServer(t, probe.NewStaticProbe(1, 2))

	rec := doJSON(e, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}
