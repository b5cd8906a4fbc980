package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/crewclock/crewclock/internal/models"
	"github.com/crewclock/crewclock/internal/store"
)

// SessionStore implements store.SessionStore using PostgreSQL.
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore creates a new PostgreSQL-backed session store.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{
		pool: pool,
	}
}

const sessionColumns = `
	id, worker_id, job_label, status,
	start_time, end_time,
	start_lat, start_lng, end_lat, end_lng,
	location_verified, duration_minutes, device_fingerprint
`

// CreateSession persists a new RUNNING session. The partial unique index on
// (worker_id) WHERE status = 'RUNNING' rejects a second active session at
// the moment of the write; the violation surfaces as ErrActiveSessionExists.
func (s *SessionStore) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (
			id, worker_id, job_label, status,
			start_time,
			start_lat, start_lng,
			location_verified, device_fingerprint
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	var startLat, startLng *float64
	if session.StartLocation != nil {
		startLat = &session.StartLocation.Latitude
		startLng = &session.StartLocation.Longitude
	}

	_, err := s.pool.Exec(ctx, query,
		session.ID,
		session.WorkerID,
		session.JobLabel,
		session.Status,
		session.StartTime,
		startLat,
		startLng,
		session.LocationVerified,
		session.DeviceFingerprint,
	)
	if err != nil {
		mapped := mapPostgresError(err)
		if errors.Is(mapped, store.ErrActiveSessionExists) {
			return mapped
		}
		return fmt.Errorf("failed to create session: %w", mapped)
	}

	log.Debug().
		Str("session_id", session.ID.String()).
		Str("worker_id", session.WorkerID).
		Bool("location_verified", session.LocationVerified).
		Msg("Created session")

	return nil
}

// GetActiveSession retrieves the worker's RUNNING session.
func (s *SessionStore) GetActiveSession(ctx context.Context, workerID string) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE worker_id = $1 AND status = 'RUNNING'
	`

	session, err := scanSession(s.pool.QueryRow(ctx, query, workerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNoActiveSession
		}
		return nil, fmt.Errorf("failed to get active session: %w", mapPostgresError(err))
	}

	return session, nil
}

// CompleteSession flips the RUNNING session to COMPLETED in a single
// conditional update. Start-side columns are never written here.
func (s *SessionStore) CompleteSession(ctx context.Context, workerID string, update store.CompletionUpdate) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = 'COMPLETED',
		    end_time = $2,
		    end_lat = $3,
		    end_lng = $4,
		    duration_minutes = $5
		WHERE worker_id = $1 AND status = 'RUNNING'
		RETURNING ` + sessionColumns

	var endLat, endLng *float64
	if update.EndLocation != nil {
		endLat = &update.EndLocation.Latitude
		endLng = &update.EndLocation.Longitude
	}

	session, err := scanSession(s.pool.QueryRow(ctx, query,
		workerID,
		update.EndTime,
		endLat,
		endLng,
		update.DurationMinutes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNoActiveSession
		}
		return nil, fmt.Errorf("failed to complete session: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("session_id", session.ID.String()).
		Str("worker_id", workerID).
		Int("duration_minutes", session.DurationMinutes).
		Msg("Completed session")

	return session, nil
}

// ListCompletedSessions returns up to limit completed sessions for the
// worker, most recently finished first.
func (s *SessionStore) ListCompletedSessions(ctx context.Context, workerID string, limit int) ([]*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE worker_id = $1 AND status = 'COMPLETED'
		ORDER BY end_time DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, workerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed sessions: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session rows: %w", mapPostgresError(err))
	}

	return sessions, nil
}

// scanSession reads one session row, folding nullable coordinate pairs back
// into optional Location values.
func scanSession(row pgx.Row) (*models.Session, error) {
	var session models.Session
	var startLat, startLng, endLat, endLng *float64

	err := row.Scan(
		&session.ID,
		&session.WorkerID,
		&session.JobLabel,
		&session.Status,
		&session.StartTime,
		&session.EndTime,
		&startLat,
		&startLng,
		&endLat,
		&endLng,
		&session.LocationVerified,
		&session.DurationMinutes,
		&session.DeviceFingerprint,
	)
	if err != nil {
		return nil, err
	}

	if startLat != nil && startLng != nil {
		session.StartLocation = &models.Location{Latitude: *startLat, Longitude: *startLng}
	}
	if endLat != nil && endLng != nil {
		session.EndLocation = &models.Location{Latitude: *endLat, Longitude: *endLng}
	}

	return &session, nil
}
