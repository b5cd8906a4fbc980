// Package tui renders the ticking elapsed-time display for a worker's
// active session.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/crewclock/crewclock/internal/client"
	"github.com/crewclock/crewclock/internal/elapsed"
	"github.com/crewclock/crewclock/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	timerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	summaryStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// WatchModel is the bubbletea model for watching one worker's session.
type WatchModel struct {
	workerID string
	client   *client.Client

	session     *models.Session
	elapsedTime time.Duration
	spinner     spinner.Model

	loading     bool
	clockingOut bool
	completed   *models.Session
	err         error
}

// timerTickMsg is sent every second to re-derive the elapsed display from
// the persisted start time.
type timerTickMsg struct{ now time.Time }

type sessionLoadedMsg struct{ session *models.Session }

type clockedOutMsg struct{ session *models.Session }

type errMsg struct{ err error }

// NewWatchModel creates the watch model for one worker.
func NewWatchModel(apiClient *client.Client, workerID string) WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return WatchModel{
		workerID: workerID,
		client:   apiClient,
		spinner:  sp,
		loading:  true,
	}
}

// Init loads the active session and starts the spinner.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadSession())
}

func (m WatchModel) loadSession() tea.Cmd {
	return func() tea.Msg {
		session, err := m.client.ActiveSession(context.Background(), m.workerID)
		if err != nil {
			return errMsg{err: err}
		}
		return sessionLoadedMsg{session: session}
	}
}

func (m WatchModel) clockOut() tea.Cmd {
	return func() tea.Msg {
		session, err := m.client.ClockOut(context.Background(), m.workerID)
		if err != nil {
			return errMsg{err: err}
		}
		return clockedOutMsg{session: session}
	}
}

func tickOnce() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return timerTickMsg{now: t}
	})
}

// Update handles messages. The per-second tick is only rescheduled while a
// session is displayed; quitting or completion tears the timer down.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionLoadedMsg:
		m.session = msg.session
		m.loading = false
		m.elapsedTime = elapsed.Elapsed(m.session, time.Now())
		return m, tickOnce()

	case timerTickMsg:
		if m.session == nil || m.clockingOut || m.completed != nil {
			return m, nil
		}
		m.elapsedTime = elapsed.Elapsed(m.session, msg.now)
		return m, tickOnce()

	case clockedOutMsg:
		m.clockingOut = false
		m.completed = msg.session
		return m, nil

	case errMsg:
		m.err = msg.err
		m.loading = false
		m.clockingOut = false
		return m, tea.Quit

	case spinner.TickMsg:
		if !m.loading && !m.clockingOut {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "o", "O":
			if m.session != nil && m.completed == nil && !m.clockingOut {
				m.clockingOut = true
				return m, tea.Batch(m.spinner.Tick, m.clockOut())
			}
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the timer.
func (m WatchModel) View() string {
	if m.err != nil {
		return warnStyle.Render(fmt.Sprintf("error: %v\n", m.err))
	}

	if m.loading {
		return fmt.Sprintf("%s fetching active session for %s...\n", m.spinner.View(), m.workerID)
	}

	if m.completed != nil {
		summary := fmt.Sprintf("%s\n%s %s\n%s %d min",
			titleStyle.Render("Clocked out"),
			labelStyle.Render("job:"), m.completed.JobLabel,
			labelStyle.Render("worked:"), m.completed.DurationMinutes,
		)
		return summaryStyle.Render(summary) + "\n" + helpStyle.Render("press q to exit") + "\n"
	}

	if m.clockingOut {
		return fmt.Sprintf("%s clocking out...\n", m.spinner.View())
	}

	verified := ""
	if !m.session.LocationVerified {
		verified = warnStyle.Render("  [location unverified]")
	}

	return fmt.Sprintf("%s%s\n\n%s\n\n%s %s\n%s %s\n\n%s\n",
		titleStyle.Render("On the clock: "+m.session.JobLabel),
		verified,
		timerStyle.Render(formatElapsed(m.elapsedTime)),
		labelStyle.Render("worker:"), m.session.WorkerID,
		labelStyle.Render("since:"), m.session.StartTime.Format(time.RFC822),
		helpStyle.Render("o: clock out  -  q: quit"),
	)
}

func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, mins, secs)
}
