// Package engine orchestrates the clock-in/clock-out session lifecycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crewclock/crewclock/internal/models"
	"github.com/crewclock/crewclock/internal/probe"
	"github.com/crewclock/crewclock/internal/store"
	"github.com/crewclock/crewclock/internal/telemetry"
)

// Sentinel errors surfaced to callers. None of these are retried
// automatically anywhere in the engine; retries are caller decisions.
var (
	// ErrAlreadyClockedIn means the worker already has a RUNNING session.
	ErrAlreadyClockedIn = errors.New("worker is already clocked in")

	// ErrNoActiveSession means the worker has nothing to clock out of.
	ErrNoActiveSession = errors.New("worker has no active session")

	// ErrLocationRequired means the location fix failed and the caller did
	// not allow an unverified clock-in. The caller may re-invoke with
	// AllowUnverified after explicit confirmation; the engine never makes
	// that policy decision itself.
	ErrLocationRequired = errors.New("location fix required to clock in")
)

// DefaultProbeTimeout bounds the wait for a location fix during clock-in.
const DefaultProbeTimeout = 10 * time.Second

// Config holds engine tunables.
type Config struct {
	// ProbeTimeout bounds a single location acquisition.
	// Default: DefaultProbeTimeout.
	ProbeTimeout time.Duration
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *Config) ApplyDefaults() {
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
}

// ClockInRequest carries everything the engine needs to open a session.
type ClockInRequest struct {
	WorkerID          string
	JobLabel          string
	DeviceFingerprint string

	// AllowUnverified permits creating the session without a location fix
	// when acquisition fails. The resulting session is flagged permanently
	// with LocationVerified=false.
	AllowUnverified bool
}

// Engine enforces the per-worker session state machine over a SessionStore
// and a location Probe. It holds no cross-request mutable state; the
// single-RUNNING-session exclusion lives in the store's conditional write.
type Engine struct {
	sessions store.SessionStore
	probe    probe.Probe
	cfg      Config

	now func() time.Time
}

// New creates a session engine.
func New(sessions store.SessionStore, locProbe probe.Probe, cfg Config) *Engine {
	cfg.ApplyDefaults()
	return &Engine{
		sessions: sessions,
		probe:    locProbe,
		cfg:      cfg,
		now:      time.Now,
	}
}

// ClockIn opens a RUNNING session for the worker. Exactly one record is
// persisted on success, none on failure.
//
// The engine deliberately does not pre-check for an active session: the
// store's conditional create is the only guard, so two concurrent clock-in
// attempts from different devices cannot both succeed.
func (e *Engine) ClockIn(ctx context.Context, req ClockInRequest) (*models.Session, error) {
	if req.WorkerID == "" {
		return nil, fmt.Errorf("worker ID is required")
	}

	var startLocation *models.Location
	verified := false

	fix, err := e.acquireFix(ctx)
	if err != nil {
		code := probe.CodeOf(err)
		telemetry.RecordProbeFailure(string(code))

		if !req.AllowUnverified {
			log.Info().
				Str("worker_id", req.WorkerID).
				Str("probe_code", string(code)).
				Msg("Clock-in refused without location fix")
			return nil, fmt.Errorf("%w: %w", ErrLocationRequired, err)
		}

		log.Warn().
			Str("worker_id", req.WorkerID).
			Str("probe_code", string(code)).
			Msg("Clocking in without verified location")
	} else {
		startLocation = &models.Location{Latitude: fix.Latitude, Longitude: fix.Longitude}
		verified = true
	}

	session := &models.Session{
		ID:                uuid.Must(uuid.NewV7()),
		WorkerID:          req.WorkerID,
		JobLabel:          req.JobLabel,
		Status:            models.StatusRunning,
		StartTime:         e.now(),
		StartLocation:     startLocation,
		LocationVerified:  verified,
		DeviceFingerprint: req.DeviceFingerprint,
	}

	if err := e.sessions.CreateSession(ctx, session); err != nil {
		if errors.Is(err, store.ErrActiveSessionExists) {
			return nil, ErrAlreadyClockedIn
		}
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	telemetry.RecordClockIn(verified)
	log.Info().
		Str("session_id", session.ID.String()).
		Str("worker_id", session.WorkerID).
		Str("job_label", session.JobLabel).
		Bool("location_verified", verified).
		Msg("Worker clocked in")

	return session, nil
}

// ClockOut completes the worker's RUNNING session. The end fix is best
// effort: a probe failure never blocks completion, the end location is
// simply left unset. This asymmetry with ClockIn is intentional - a failed
// sensor read must never strand a worker mid-shift.
func (e *Engine) ClockOut(ctx context.Context, workerID string) (*models.Session, error) {
	if workerID == "" {
		return nil, fmt.Errorf("worker ID is required")
	}

	active, err := e.sessions.GetActiveSession(ctx, workerID)
	if err != nil {
		if errors.Is(err, store.ErrNoActiveSession) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("failed to look up active session: %w", err)
	}

	var endLocation *models.Location
	fix, err := e.acquireFix(ctx)
	if err != nil {
		code := probe.CodeOf(err)
		telemetry.RecordProbeFailure(string(code))
		log.Debug().
			Str("worker_id", workerID).
			Str("probe_code", string(code)).
			Msg("Clock-out proceeding without end location")
	} else {
		endLocation = &models.Location{Latitude: fix.Latitude, Longitude: fix.Longitude}
	}

	// The engine's own now() sample is the single authority for duration;
	// display-side elapsed ticks never feed this value.
	endTime := e.now()
	update := store.CompletionUpdate{
		EndTime:         endTime,
		EndLocation:     endLocation,
		DurationMinutes: models.DurationMinutesBetween(active.StartTime, endTime),
	}

	completed, err := e.sessions.CompleteSession(ctx, workerID, update)
	if err != nil {
		if errors.Is(err, store.ErrNoActiveSession) {
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}

	telemetry.RecordClockOut(completed.DurationMinutes)
	log.Info().
		Str("session_id", completed.ID.String()).
		Str("worker_id", workerID).
		Int("duration_minutes", completed.DurationMinutes).
		Msg("Worker clocked out")

	return completed, nil
}

// ActiveSession returns the worker's RUNNING session without side effects,
// or ErrNoActiveSession.
func (e *Engine) ActiveSession(ctx context.Context, workerID string) (*models.Session, error) {
	session, err := e.sessions.GetActiveSession(ctx, workerID)
	if err != nil {
		if errors.Is(err, store.ErrNoActiveSession) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}
	return session, nil
}

// History returns up to limit completed sessions, most recent first. The
// listing is finite and restartable, not a live stream.
func (e *Engine) History(ctx context.Context, workerID string, limit int) ([]*models.Session, error) {
	return e.sessions.ListCompletedSessions(ctx, workerID, limit)
}

// acquireFix performs the single bounded location acquisition. The timeout
// lives here so both clock paths share it; the probe itself never retries.
func (e *Engine) acquireFix(ctx context.Context) (probe.Fix, error) {
	probeCtx, cancel := context.WithTimeout(ctx, e.cfg.ProbeTimeout)
	defer cancel()

	started := e.now()
	fix, err := e.probe.Acquire(probeCtx)
	telemetry.ObserveProbeDuration(time.Since(started))
	return fix, err
}
