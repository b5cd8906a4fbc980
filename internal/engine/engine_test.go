package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/crewclock/crewclock/internal/models"
	"github.com/crewclock/crewclock/internal/probe"
	memorystore "github.com/crewclock/crewclock/internal/store/memory"
)

// fakeProbe returns a canned fix or failure and counts acquisitions.
type fakeProbe struct {
	mu    sync.Mutex
	fix   probe.Fix
	err   error
	calls int
}

func (p *fakeProbe) Acquire(ctx context.Context) (probe.Fix, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return probe.Fix{}, p.err
	}
	return p.fix, nil
}

func newEngine(t *testing.T, locProbe probe.Probe) *Engine {
	t.Helper()
	return New(memorystore.NewSessionStore(), locProbe, Config{ProbeTimeout: time.Second})
}

func TestClockInWithFix(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, &fakeProbe{fix: probe.Fix{Latitude: 40.0, Longitude: -75.0}})

	session, err := eng.ClockIn(ctx, ClockInRequest{
		WorkerID:          "worker-1",
		JobLabel:          "roof repair",
		DeviceFingerprint: "android/pixel-8",
	})
	require.NoError(t, err)

	require.Equal(t, models.StatusRunning, session.Status)
	require.True(t, session.LocationVerified)
	require.NotNil(t, session.StartLocation)
	require.Equal(t, 40.0, session.StartLocation.Latitude)
	require.Equal(t, -75.0, session.StartLocation.Longitude)
	require.Nil(t, session.EndTime)
	require.Equal(t, "android/pixel-8", session.DeviceFingerprint)

	active, err := eng.ActiveSession(ctx, "worker-1")
	require.NoError(t, err)
	require.Equal(t, session.ID, active.ID)
}

func TestClockInRejectedWhileRunning(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, &fakeProbe{fix: probe.Fix{Latitude: 1, Longitude: 2}})

	_, err := eng.ClockIn(ctx, ClockInRequest{WorkerID: "worker-1", JobLabel: "first"})
	require.NoError(t, err)

	_, err = eng.ClockIn(ctx, ClockInRequest{WorkerID: "worker-1", JobLabel: "second"})
	require.ErrorIs(t, err, ErrAlreadyClockedIn)

	// The rejected attempt must not have replaced the running session.
	active, err := eng.ActiveSession(ctx, "worker-1")
	require.NoError(t, err)
	require.Equal(t, "first", active.JobLabel)
}

func TestClockInProbeFailureWithoutOverride(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, &fakeProbe{err: &probe.Error{Code: probe.CodeTimeout}})

	_, err := eng.ClockIn(ctx, ClockInRequest{WorkerID: "worker-1", JobLabel: "fence"})
	require.ErrorIs(t, err, ErrLocationRequired)

	var perr *probe.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, probe.CodeTimeout, perr.Code)

	// No record may exist after the refusal.
	_, err = eng.ActiveSession(ctx, "worker-1")
	require.ErrorIs(t, err, ErrNoActiveSession)
}

func TestClockInProbeFailureWithOverride(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, &fakeProbe{err: &probe.Error{Code: probe.CodePermissionDenied}})

	session, err := eng.ClockIn(ctx, ClockInRequest{
		WorkerID:        "worker-1",
		JobLabel:        "fence",
		AllowUnverified: true,
	})
	require.NoError(t, err)

	require.False(t, session.LocationVerified)
	require.Nil(t, session.StartLocation)
	require.Equal(t, models.StatusRunning, session.Status)
}

func TestClockOutWithoutSession(t *testing.T) {
	ctx := context.Background()
	locProbe := &fakeProbe{fix: probe.Fix{Latitude: 1, Longitude: 2}}
	eng := newEngine(t, locProbe)

	_, err := eng.ClockOut(ctx, "worker-1")
	require.ErrorIs(t, err, ErrNoActiveSession)

	// Nothing to clock out of means no probe call and no history entry.
	require.Equal(t, 0, locProbe.calls)
	history, err := eng.History(ctx, "worker-1", 10)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestClockOutSurvivesProbeFailure(t *testing.T) {
	ctx := context.Background()
	locProbe := &fakeProbe{fix: probe.Fix{Latitude: 40.0, Longitude: -75.0}}
	eng := newEngine(t, locProbe)

	_, err := eng.ClockIn(ctx, ClockInRequest{WorkerID: "worker-1", JobLabel: "deck build"})
	require.NoError(t, err)

	// The sensor dies between clock-in and clock-out.
	locProbe.mu.Lock()
	locProbe.err = &probe.Error{Code: probe.CodeUnavailable}
	locProbe.mu.Unlock()

	session, err := eng.ClockOut(ctx, "worker-1")
	require.NoError(t, err)

	require.Equal(t, models.StatusCompleted, session.Status)
	require.Nil(t, session.EndLocation)
	// The start fix survives untouched; the end fix is simply absent.
	require.True(t, session.LocationVerified)
	require.NotNil(t, session.StartLocation)
	require.Equal(t, 40.0, session.StartLocation.Latitude)
}

func TestDurationFrozenAtCompletion(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, &fakeProbe{fix: probe.Fix{Latitude: 40.0, Longitude: -75.0}})

	// Worker clocks in at 09:00 and out at 11:30.
	start := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return start }

	_, err := eng.ClockIn(ctx, ClockInRequest{WorkerID: "worker-1", JobLabel: "siding"})
	require.NoError(t, err)

	eng.now = func() time.Time { return start.Add(150 * time.Minute) }

	session, err := eng.ClockOut(ctx, "worker-1")
	require.NoError(t, err)
	require.Equal(t, 150, session.DurationMinutes)
	require.Equal(t, start, session.StartTime)
	require.Equal(t, start.Add(150*time.Minute), *session.EndTime)
}

func TestDurationClampedOnClockSkew(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, &fakeProbe{fix: probe.Fix{Latitude: 1, Longitude: 2}})

	start := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return start }

	_, err := eng.ClockIn(ctx, ClockInRequest{WorkerID: "worker-1", JobLabel: "skewed"})
	require.NoError(t, err)

	// The clock drifts backwards before clock-out.
	eng.now = func() time.Time { return start.Add(-5 * time.Minute) }

	session, err := eng.ClockOut(ctx, "worker-1")
	require.NoError(t, err)
	require.Equal(t, 0, session.DurationMinutes)
}

func TestHistoryMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, &fakeProbe{fix: probe.Fix{Latitude: 1, Longitude: 2}})

	base := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)
	for i, label := range []string{"first", "second", "third"} {
		clockIn := base.Add(time.Duration(i) * time.Hour)
		eng.now = func() time.Time { return clockIn }
		_, err := eng.ClockIn(ctx, ClockInRequest{WorkerID: "worker-1", JobLabel: label})
		require.NoError(t, err)

		eng.now = func() time.Time { return clockIn.Add(30 * time.Minute) }
		_, err = eng.ClockOut(ctx, "worker-1")
		require.NoError(t, err)
	}

	history, err := eng.History(ctx, "worker-1", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "third", history[0].JobLabel)
	require.Equal(t, "second", history[1].JobLabel)
	for _, session := range history {
		require.Equal(t, models.StatusCompleted, session.Status)
		require.Equal(t, 30, session.DurationMinutes)
	}
}

func TestFullShiftScenario(t *testing.T) {
	// Worker clocks in at 09:00:00 with a fix at (40.0,-75.0), clocks out
	// at 11:30:00 with a failed fix: history shows a verified start, no end
	// location, 150 minutes.
	ctx := context.Background()
	locProbe := &fakeProbe{fix: probe.Fix{Latitude: 40.0, Longitude: -75.0}}
	eng := newEngine(t, locProbe)

	start := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return start }

	_, err := eng.ClockIn(ctx, ClockInRequest{WorkerID: "worker-1", JobLabel: "framing"})
	require.NoError(t, err)

	locProbe.mu.Lock()
	locProbe.err = &probe.Error{Code: probe.CodeTimeout}
	locProbe.mu.Unlock()
	eng.now = func() time.Time { return start.Add(2*time.Hour + 30*time.Minute) }

	_, err = eng.ClockOut(ctx, "worker-1")
	require.NoError(t, err)

	history, err := eng.History(ctx, "worker-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)

	entry := history[0]
	require.True(t, entry.LocationVerified)
	require.NotNil(t, entry.StartLocation)
	require.Equal(t, 40.0, entry.StartLocation.Latitude)
	require.Nil(t, entry.EndLocation)
	require.Equal(t, 150, entry.DurationMinutes)
}

func TestConcurrentClockInExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, &fakeProbe{fix: probe.Fix{Latitude: 1, Longitude: 2}})

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.ClockIn(ctx, ClockInRequest{WorkerID: "worker-1", JobLabel: "race"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrAlreadyClockedIn)
		}
	}
	require.Equal(t, 1, succeeded)
}

func TestClockOutIsTerminal(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, &fakeProbe{fix: probe.Fix{Latitude: 1, Longitude: 2}})

	_, err := eng.ClockIn(ctx, ClockInRequest{WorkerID: "worker-1", JobLabel: "one"})
	require.NoError(t, err)

	_, err = eng.ClockOut(ctx, "worker-1")
	require.NoError(t, err)

	// Completed means back to NONE: a second clock-out fails, a fresh
	// clock-in succeeds.
	_, err = eng.ClockOut(ctx, "worker-1")
	require.ErrorIs(t, err, ErrNoActiveSession)

	_, err = eng.ClockIn(ctx, ClockInRequest{WorkerID: "worker-1", JobLabel: "two"})
	require.NoError(t, err)
}
