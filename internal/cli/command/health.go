package command

import (
	"github.com/urfave/cli/v2"

	"github.com/testwebinoue-debug/sept3/internal/cli/connection"
)

// HealthCommand probes /health, or /ready with --ready.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Probe server liveness or readiness",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "ready",
				Usage: "Check readiness, including the session store",
			},
		},
		Action: func(c *cli.Context) error {
			path := connection.PathHealth
			if c.Bool("ready") {
				path = connection.PathReady
			}

			hr, err := NewClient(c).Health(c.Context, path)
			if hr != nil {
				if perr := Print(c, hr); perr != nil {
					return perr
				}
			}
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}
