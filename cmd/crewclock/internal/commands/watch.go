package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/crewclock/crewclock/internal/client"
	"github.com/crewclock/crewclock/internal/elapsed"
	"github.com/crewclock/crewclock/internal/tui"
)

type WatchCmd struct {
	ClientFlags
	Worker string `arg:"" help:"Worker identifier."`
	Plain  bool   `help:"Print elapsed time to stdout instead of the full-screen view."`
}

func (c *WatchCmd) Run(globals *Globals) error {
	apiClient := client.New(c.ServerURL)

	if c.Plain {
		return c.runPlain(apiClient)
	}

	model := tui.NewWatchModel(apiClient, c.Worker)
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// runPlain streams elapsed ticks as plain text for non-TTY use. The ticker
// is torn down by the signal-cancelled context or when the session is no
// longer active.
func (c *WatchCmd) runPlain(apiClient *client.Client) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session, err := apiClient.ActiveSession(ctx, c.Worker)
	if err != nil {
		return err
	}

	fmt.Printf("%s on %q since %s\n", session.WorkerID, session.JobLabel, session.StartTime.Format(time.RFC822))

	ticker := elapsed.NewTicker(session, time.Second)
	go ticker.Run(ctx)

	for d := range ticker.C() {
		fmt.Fprintf(os.Stdout, "\relapsed %s ", d.Round(time.Second))
	}
	fmt.Println()
	return nil
}
