// Package elapsed derives the ticking elapsed-time display for an active
// session. Everything here is presentation-side: the values are recomputed
// from the persisted start time on every tick and are never a source of
// truth for the frozen completion duration.
package elapsed

import (
	"context"
	"time"

	"github.com/crewclock/crewclock/internal/models"
)

// Elapsed returns now minus the session's start time, floored at zero.
func Elapsed(session *models.Session, now time.Time) time.Duration {
	if session == nil {
		return 0
	}
	return session.Elapsed(now)
}

// Ticker delivers elapsed values for one session on a fixed cadence until
// its context is cancelled. The holder of the "currently displayed session"
// owns the context; cancelling it tears the ticker down so a stale timer
// never updates a disposed view.
type Ticker struct {
	session  *models.Session
	interval time.Duration
	out      chan time.Duration
}

// NewTicker creates a ticker for the given session. A non-positive interval
// defaults to one second.
func NewTicker(session *models.Session, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Ticker{
		session:  session,
		interval: interval,
		out:      make(chan time.Duration, 1),
	}
}

// C is the channel elapsed values arrive on. It is closed when the ticker
// stops.
func (t *Ticker) C() <-chan time.Duration {
	return t.out
}

// Run ticks until ctx is cancelled. An immediate first value is delivered
// so displays never show a blank interval. Slow consumers drop ticks rather
// than block the loop.
func (t *Ticker) Run(ctx context.Context) {
	defer close(t.out)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.emit(time.Now())

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.emit(now)
		}
	}
}

func (t *Ticker) emit(now time.Time) {
	select {
	case t.out <- Elapsed(t.session, now):
	default:
	}
}
