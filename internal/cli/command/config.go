package command

import (
	"github.com/urfave/cli/v2"

	"github.com/testwebinoue-debug/sept3/internal/cli/output"
	"github.com/testwebinoue-debug/sept3/internal/server/config"
)

// ConfigCommand returns the config subcommand group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Server configuration tools",
		Subcommands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Load and verify a server configuration the way contact-server does",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "YAML configuration file",
					},
					&cli.StringSliceFlag{
						Name:  "env-file",
						Usage: ".env files read before the environment",
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Print nothing on success",
					},
				},
				Action: configCheck,
			},
			{
				Name:   "default",
				Usage:  "Print the built-in defaults",
				Action: configDefault,
			},
		},
	}
}

func configCheck(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), c.StringSlice("env-file")...)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	if err := config.Verify(cfg); err != nil {
		for _, e := range unjoin(err) {
			PrintError(c, "%v", e)
		}
		return cli.Exit("configuration is invalid", 1)
	}

	if c.Bool("quiet") {
		return nil
	}
	return printConfig(c, config.Sanitize(cfg))
}

func configDefault(c *cli.Context) error {
	return printConfig(c, config.Default())
}

func printConfig(c *cli.Context, cfg *config.ContactConfig) error {
	if ParseGlobalFlags(c).Output == output.FormatTable {
		return Print(c, config.Flatten(cfg))
	}
	return Print(c, config.ToMap(cfg))
}

func unjoin(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
