package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/crewclock/crewclock/internal/client"
)

// ClientFlags are shared by commands that talk to a running server.
type ClientFlags struct {
	ServerURL string `help:"crewclock server base URL" default:"http://localhost:8080" env:"CREWCLOCK_SERVER_URL"`
}

type ClockInCmd struct {
	ClientFlags
	Worker          string `arg:"" help:"Worker identifier."`
	Job             string `help:"Job label for the session." default:""`
	AllowUnverified bool   `help:"Clock in even if no location fix can be obtained."`
}

func (c *ClockInCmd) Run(globals *Globals) error {
	apiClient := client.New(c.ServerURL)

	session, err := apiClient.ClockIn(context.Background(), c.Worker, c.Job, c.AllowUnverified)
	if err != nil {
		if errors.Is(err, client.ErrLocationRequired) {
			return fmt.Errorf("%w\nre-run with --allow-unverified to clock in without a verified location", err)
		}
		return err
	}

	verified := "verified"
	if !session.LocationVerified {
		verified = "unverified"
	}
	fmt.Printf("clocked in: %s on %q at %s (location %s)\n",
		session.WorkerID, session.JobLabel, session.StartTime.Format("15:04:05"), verified)
	return nil
}
