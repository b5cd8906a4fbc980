package memory

import (
	"context"
	"sync"

	"github.com/crewclock/crewclock/internal/models"
	"github.com/crewclock/crewclock/internal/store"
)

// SessionStore implements store.SessionStore using in-memory storage.
// Used for tests and single-node development mode - data is lost on restart.
type SessionStore struct {
	mu sync.RWMutex

	active    map[string]*models.Session   // worker_id -> RUNNING session
	completed map[string][]*models.Session // worker_id -> completed sessions, oldest first
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		active:    make(map[string]*models.Session),
		completed: make(map[string][]*models.Session),
	}
}

// CreateSession persists a new RUNNING session. The existence check and the
// insert happen under the same lock, which is this store's equivalent of a
// storage-level conditional write.
func (s *SessionStore) CreateSession(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.active[session.WorkerID]; exists {
		return store.ErrActiveSessionExists
	}

	// Clone to avoid external modifications
	clone := *session
	s.active[session.WorkerID] = &clone

	return nil
}

// GetActiveSession returns the worker's RUNNING session, if any.
func (s *SessionStore) GetActiveSession(ctx context.Context, workerID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.active[workerID]
	if !exists {
		return nil, store.ErrNoActiveSession
	}

	clone := *session
	return &clone, nil
}

// CompleteSession flips the RUNNING session to COMPLETED and appends it to
// the worker's history. Start-side fields are left untouched.
func (s *SessionStore) CompleteSession(ctx context.Context, workerID string, update store.CompletionUpdate) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.active[workerID]
	if !exists {
		return nil, store.ErrNoActiveSession
	}

	endTime := update.EndTime
	session.Status = models.StatusCompleted
	session.EndTime = &endTime
	session.EndLocation = update.EndLocation
	session.DurationMinutes = update.DurationMinutes

	delete(s.active, workerID)
	s.completed[workerID] = append(s.completed[workerID], session)

	clone := *session
	return &clone, nil
}

// ListCompletedSessions returns up to limit completed sessions, most
// recently finished first.
func (s *SessionStore) ListCompletedSessions(ctx context.Context, workerID string, limit int) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.completed[workerID]
	if limit <= 0 || limit > len(history) {
		limit = len(history)
	}

	sessions := make([]*models.Session, 0, limit)
	for i := len(history) - 1; i >= 0 && len(sessions) < limit; i-- {
		clone := *history[i]
		sessions = append(sessions, &clone)
	}

	return sessions, nil
}
