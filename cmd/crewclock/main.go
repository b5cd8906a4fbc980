package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/crewclock/crewclock/cmd/crewclock/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug mode."`
		Version kong.VersionFlag

		Server   commands.ServerCmd   `cmd:"" help:"Start the crewclock API server."`
		ClockIn  commands.ClockInCmd  `cmd:"" name:"clock-in" help:"Clock a worker in."`
		ClockOut commands.ClockOutCmd `cmd:"" name:"clock-out" help:"Clock a worker out."`
		Status   commands.StatusCmd   `cmd:"" help:"Show a worker's active session."`
		History  commands.HistoryCmd  `cmd:"" help:"List a worker's completed sessions."`
		Watch    commands.WatchCmd    `cmd:"" help:"Watch a worker's active session tick."`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
