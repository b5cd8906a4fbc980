package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/crewclock/crewclock/internal/client"
	"github.com/crewclock/crewclock/internal/elapsed"
)

type StatusCmd struct {
	ClientFlags
	Worker string `arg:"" help:"Worker identifier."`
}

func (c *StatusCmd) Run(globals *Globals) error {
	apiClient := client.New(c.ServerURL)

	session, err := apiClient.ActiveSession(context.Background(), c.Worker)
	if err != nil {
		if errors.Is(err, client.ErrNoActiveSession) {
			fmt.Printf("%s is not clocked in\n", c.Worker)
			return nil
		}
		return err
	}

	fmt.Printf("%s is on %q since %s (%s elapsed)\n",
		session.WorkerID,
		session.JobLabel,
		session.StartTime.Format(time.RFC822),
		elapsed.Elapsed(session, time.Now()).Round(time.Second),
	)
	if !session.LocationVerified {
		fmt.Println("note: clock-in location was not verified")
	}
	return nil
}
