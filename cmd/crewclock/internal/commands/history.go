package commands

import (
	"context"
	"fmt"

	"github.com/crewclock/crewclock/internal/client"
)

type HistoryCmd struct {
	ClientFlags
	Worker string `arg:"" help:"Worker identifier."`
	Limit  int    `help:"Maximum number of sessions to list." default:"20"`
}

func (c *HistoryCmd) Run(globals *Globals) error {
	apiClient := client.New(c.ServerURL)

	sessions, err := apiClient.History(context.Background(), c.Worker, c.Limit)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Printf("no completed sessions for %s\n", c.Worker)
		return nil
	}

	for _, session := range sessions {
		verified := ""
		if !session.LocationVerified {
			verified = " (unverified)"
		}
		fmt.Printf("%s  %-20q %4d min%s\n",
			session.StartTime.Format("2006-01-02 15:04"),
			session.JobLabel,
			session.DurationMinutes,
			verified,
		)
	}
	return nil
}
