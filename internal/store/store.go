package store

import (
	"context"
	"errors"
	"time"

	"github.com/crewclock/crewclock/internal/models"
)

// Sentinel errors for common error conditions
var (
	// ErrActiveSessionExists is returned by CreateSession when the worker
	// already has a RUNNING session at the moment of the write.
	ErrActiveSessionExists = errors.New("active session already exists for worker")

	// ErrNoActiveSession is returned when an operation requires a RUNNING
	// session and the worker has none.
	ErrNoActiveSession = errors.New("no active session for worker")
)

// CompletionUpdate carries the one-shot completion write. Start-side fields
// of the session are immutable once created and are never part of an update.
type CompletionUpdate struct {
	EndTime         time.Time
	EndLocation     *models.Location // nil when no end fix was obtained
	DurationMinutes int
}

// SessionStore is the durable record of sessions. It is the sole authority
// on "is there an active session" for a worker.
type SessionStore interface {
	// CreateSession persists a new RUNNING session. It must fail with
	// ErrActiveSessionExists, without writing anything, when the worker
	// already has a RUNNING session. Implementations enforce this with a
	// conditional write at the storage boundary so two concurrent
	// clock-in attempts cannot both succeed.
	CreateSession(ctx context.Context, session *models.Session) error

	// GetActiveSession returns the worker's RUNNING session, or
	// ErrNoActiveSession.
	GetActiveSession(ctx context.Context, workerID string) (*models.Session, error)

	// CompleteSession flips the worker's RUNNING session to COMPLETED and
	// writes the completion fields in a single conditional update.
	// Returns the completed session, or ErrNoActiveSession when nothing
	// was RUNNING.
	CompleteSession(ctx context.Context, workerID string, update CompletionUpdate) (*models.Session, error)

	// ListCompletedSessions returns up to limit completed sessions for
	// the worker, most recently finished first.
	ListCompletedSessions(ctx context.Context, workerID string, limit int) ([]*models.Session, error)
}
