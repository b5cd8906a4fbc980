// Package client is a thin HTTP client for the crewclock API, used by the
// CLI commands.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/crewclock/crewclock/internal/api"
	"github.com/crewclock/crewclock/internal/models"
)

// Sentinel errors mirroring the engine taxonomy across the wire.
var (
	ErrAlreadyClockedIn = errors.New("worker is already clocked in")
	ErrNoActiveSession  = errors.New("worker has no active session")
	ErrLocationRequired = errors.New("location fix required to clock in")
)

// Client talks to a crewclock server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the given server base URL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ClockIn opens a session for the worker.
func (c *Client) ClockIn(ctx context.Context, workerID, jobLabel string, allowUnverified bool) (*models.Session, error) {
	body, err := json.Marshal(api.ClockInRequest{JobLabel: jobLabel, AllowUnverified: allowUnverified})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/workers/%s/clock-in", c.baseURL, workerID)
	return c.doSession(ctx, http.MethodPost, url, body, http.StatusCreated)
}

// ClockOut completes the worker's active session.
func (c *Client) ClockOut(ctx context.Context, workerID string) (*models.Session, error) {
	url := fmt.Sprintf("%s/v1/workers/%s/clock-out", c.baseURL, workerID)
	return c.doSession(ctx, http.MethodPost, url, nil, http.StatusOK)
}

// ActiveSession fetches the worker's RUNNING session.
func (c *Client) ActiveSession(ctx context.Context, workerID string) (*models.Session, error) {
	url := fmt.Sprintf("%s/v1/workers/%s/session", c.baseURL, workerID)
	return c.doSession(ctx, http.MethodGet, url, nil, http.StatusOK)
}

// History lists completed sessions, most recent first.
func (c *Client) History(ctx context.Context, workerID string, limit int) ([]*models.Session, error) {
	url := fmt.Sprintf("%s/v1/workers/%s/sessions?limit=%d", c.baseURL, workerID, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var history api.HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, fmt.Errorf("malformed history response: %w", err)
	}

	sessions := make([]*models.Session, 0, len(history.Items))
	for i := range history.Items {
		session, err := toModel(&history.Items[i])
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (c *Client) doSession(ctx context.Context, method, url string, body []byte, wantStatus int) (*models.Session, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != wantStatus {
		return nil, apiError(resp)
	}

	var view api.SessionView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("malformed session response: %w", err)
	}
	return toModel(&view)
}

// apiError turns an error payload back into the client's sentinel taxonomy.
func apiError(resp *http.Response) error {
	var payload api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	switch payload.Type {
	case "already_clocked_in":
		return ErrAlreadyClockedIn
	case "no_active_session":
		return ErrNoActiveSession
	case "location_required":
		return fmt.Errorf("%w: %s", ErrLocationRequired, payload.Detail)
	default:
		return fmt.Errorf("server error (%s): %s", payload.Type, payload.Detail)
	}
}

func toModel(view *api.SessionView) (*models.Session, error) {
	id, err := uuid.Parse(view.ID)
	if err != nil {
		return nil, fmt.Errorf("malformed session id %q: %w", view.ID, err)
	}

	return &models.Session{
		ID:                id,
		WorkerID:          view.WorkerID,
		JobLabel:          view.JobLabel,
		Status:            models.SessionStatus(view.Status),
		StartTime:         view.StartTime,
		EndTime:           view.EndTime,
		StartLocation:     toLocation(view.StartLocation),
		EndLocation:       toLocation(view.EndLocation),
		LocationVerified:  view.LocationVerified,
		DurationMinutes:   view.DurationMinutes,
		DeviceFingerprint: view.DeviceFingerprint,
	}, nil
}

func toLocation(view *api.LocationView) *models.Location {
	if view == nil {
		return nil
	}
	return &models.Location{Latitude: view.Latitude, Longitude: view.Longitude}
}
