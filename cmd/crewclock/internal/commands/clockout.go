package commands

import (
	"context"
	"fmt"

	"github.com/crewclock/crewclock/internal/client"
)

type ClockOutCmd struct {
	ClientFlags
	Worker string `arg:"" help:"Worker identifier."`
}

func (c *ClockOutCmd) Run(globals *Globals) error {
	apiClient := client.New(c.ServerURL)

	session, err := apiClient.ClockOut(context.Background(), c.Worker)
	if err != nil {
		return err
	}

	fmt.Printf("clocked out: %s worked %d min on %q\n",
		session.WorkerID, session.DurationMinutes, session.JobLabel)
	return nil
}
