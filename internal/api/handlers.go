// Package api exposes the HTTP surface of the session engine.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/crewclock/crewclock/internal/catalog"
	"github.com/crewclock/crewclock/internal/engine"
	"github.com/crewclock/crewclock/internal/models"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Handler coordinates HTTP requests with the session engine.
type Handler struct {
	engine  *engine.Engine
	catalog *catalog.JobCatalog
}

// NewHandler builds a Handler.
func NewHandler(eng *engine.Engine, jobs *catalog.JobCatalog) *Handler {
	return &Handler{engine: eng, catalog: jobs}
}

// RegisterRoutes wires endpoints to the echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/workers/:worker_id/clock-in", h.ClockIn)
	e.POST("/v1/workers/:worker_id/clock-out", h.ClockOut)
	e.GET("/v1/workers/:worker_id/session", h.ActiveSession)
	e.GET("/v1/workers/:worker_id/sessions", h.History)
	e.GET("/v1/jobs", h.Jobs)
	e.GET("/healthz", healthz)
}

func healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// ClockInRequest is the clock-in request body.
type ClockInRequest struct {
	JobLabel        string `json:"job_label"`
	AllowUnverified bool   `json:"allow_unverified"`
}

// ErrorResponse is the common error payload.
type ErrorResponse struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// ClockIn opens a session for the worker. A failed location fix returns 428
// unless allow_unverified was set; the caller confirms with the worker and
// re-invokes with the override.
func (h *Handler) ClockIn(c echo.Context) error {
	workerID := c.Param("worker_id")

	var req ClockInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Type: "invalid_request", Detail: "unable to parse body"})
	}

	session, err := h.engine.ClockIn(c.Request().Context(), engine.ClockInRequest{
		WorkerID:          workerID,
		JobLabel:          req.JobLabel,
		DeviceFingerprint: deviceFingerprint(c),
		AllowUnverified:   req.AllowUnverified,
	})
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrAlreadyClockedIn):
			return c.JSON(http.StatusConflict, ErrorResponse{Type: "already_clocked_in", Detail: "worker already has an active session"})
		case errors.Is(err, engine.ErrLocationRequired):
			return c.JSON(http.StatusPreconditionRequired, ErrorResponse{Type: "location_required", Detail: err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Type: "server_error", Detail: err.Error()})
		}
	}

	return c.JSON(http.StatusCreated, toSessionView(session))
}

// ClockOut completes the worker's active session.
func (h *Handler) ClockOut(c echo.Context) error {
	workerID := c.Param("worker_id")

	session, err := h.engine.ClockOut(c.Request().Context(), workerID)
	if err != nil {
		if errors.Is(err, engine.ErrNoActiveSession) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Type: "no_active_session", Detail: "worker has no active session"})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Type: "server_error", Detail: err.Error()})
	}

	return c.JSON(http.StatusOK, toSessionView(session))
}

// ActiveSession returns the worker's RUNNING session, if any.
func (h *Handler) ActiveSession(c echo.Context) error {
	workerID := c.Param("worker_id")

	session, err := h.engine.ActiveSession(c.Request().Context(), workerID)
	if err != nil {
		if errors.Is(err, engine.ErrNoActiveSession) {
			return c.JSON(http.StatusNotFound, ErrorResponse{Type: "no_active_session", Detail: "worker has no active session"})
		}
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Type: "server_error", Detail: err.Error()})
	}

	return c.JSON(http.StatusOK, toSessionView(session))
}

// History lists completed sessions, most recent first.
func (h *Handler) History(c echo.Context) error {
	workerID := c.Param("worker_id")

	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Type: "validation_failed", Detail: "invalid limit"})
		}
		limit = min(parsed, maxHistoryLimit)
	}

	sessions, err := h.engine.History(c.Request().Context(), workerID, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Type: "server_error", Detail: err.Error()})
	}

	items := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, toSessionView(session))
	}

	return c.JSON(http.StatusOK, HistoryResponse{Items: items})
}

// Jobs returns the selectable job names from the catalog.
func (h *Handler) Jobs(c echo.Context) error {
	return c.JSON(http.StatusOK, JobsResponse{Jobs: h.catalog.Jobs()})
}

// deviceFingerprint builds the opaque audit descriptor for the reporting
// device. Stored verbatim, never interpreted.
func deviceFingerprint(c echo.Context) string {
	if fp := c.Request().Header.Get("X-Device-Fingerprint"); fp != "" {
		return fp
	}
	return c.Request().UserAgent()
}

// LocationView is an optional coordinate pair in responses.
type LocationView struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	MapURL    string  `json:"map_url"`
}

// SessionView is the JSON shape of a session.
type SessionView struct {
	ID                string        `json:"id"`
	WorkerID          string        `json:"worker_id"`
	JobLabel          string        `json:"job_label"`
	Status            string        `json:"status"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           *time.Time    `json:"end_time,omitempty"`
	StartLocation     *LocationView `json:"start_location,omitempty"`
	EndLocation       *LocationView `json:"end_location,omitempty"`
	LocationVerified  bool          `json:"location_verified"`
	DurationMinutes   int           `json:"duration_minutes"`
	DeviceFingerprint string        `json:"device_fingerprint,omitempty"`
}

// HistoryResponse wraps the completed-session listing.
type HistoryResponse struct {
	Items []SessionView `json:"items"`
}

// JobsResponse wraps the catalog listing.
type JobsResponse struct {
	Jobs []string `json:"jobs"`
}

func toSessionView(session *models.Session) SessionView {
	return SessionView{
		ID:                session.ID.String(),
		WorkerID:          session.WorkerID,
		JobLabel:          session.JobLabel,
		Status:            string(session.Status),
		StartTime:         session.StartTime,
		EndTime:           session.EndTime,
		StartLocation:     toLocationView(session.StartLocation),
		EndLocation:       toLocationView(session.EndLocation),
		LocationVerified:  session.LocationVerified,
		DurationMinutes:   session.DurationMinutes,
		DeviceFingerprint: session.DeviceFingerprint,
	}
}

func toLocationView(loc *models.Location) *LocationView {
	if loc == nil {
		return nil
	}
	return &LocationView{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		MapURL:    fmt.Sprintf("https://maps.example/?q=%g,%g", loc.Latitude, loc.Longitude),
	}
}
