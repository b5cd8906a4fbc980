package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a work session.
type SessionStatus string

const (
	// StatusRunning is the single in-progress session a worker may hold.
	StatusRunning SessionStatus = "RUNNING"
	// StatusCompleted is terminal; completed sessions form append-only history.
	StatusCompleted SessionStatus = "COMPLETED"
)

// Location is a single latitude/longitude fix captured from a device.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Session represents one contiguous work interval for one worker, from
// clock-in to clock-out. At most one RUNNING session exists per worker;
// that invariant is enforced at the storage boundary, not here.
type Session struct {
	ID       uuid.UUID // UUIDv7, assigned at creation
	WorkerID string
	JobLabel string
	Status   SessionStatus

	StartTime time.Time
	EndTime   *time.Time // unset while RUNNING

	StartLocation *Location // unset when no fix was obtained
	EndLocation   *Location

	// LocationVerified is true only when StartLocation came from a real
	// sensor read rather than an explicit unverified override.
	LocationVerified bool

	// DurationMinutes is computed once at completion and never recomputed.
	DurationMinutes int

	// DeviceFingerprint is opaque audit metadata, never interpreted.
	DeviceFingerprint string
}

// IsRunning returns true while the session is the worker's active session.
func (s *Session) IsRunning() bool {
	return s.Status == StatusRunning
}

// Elapsed returns the wall-clock time since clock-in, floored at zero.
// Display only; duration bookkeeping happens once, at completion.
func (s *Session) Elapsed(now time.Time) time.Duration {
	d := now.Sub(s.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// DurationMinutesBetween computes the frozen completion duration:
// round((end-start)/minute), clamped at zero when clocks drift backwards.
func DurationMinutesBetween(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int((end.Sub(start) + 30*time.Second) / time.Minute)
}
