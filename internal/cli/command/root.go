package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/testwebinoue-debug/sept3/internal/cli/connection"
	"github.com/testwebinoue-debug/sept3/internal/cli/output"
	"github.com/testwebinoue-debug/sept3/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "contact-cli",
		Usage:                "Operate and probe the contact form service",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			ConfigCommand(),
			LogsCommand(),
			TokenCommand(),
			SubmitCommand(),
			HealthCommand(),
			VersionCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "contact-server base URL",
			EnvVars: []string{"SEPT3_SERVER"},
			Value:   "http://127.0.0.1:8080",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout",
			Value: connection.DefaultTimeout,
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server  string
	Output  output.Format
	Timeout time.Duration
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, _ := output.ParseFormat(c.String("output"))
	return &GlobalFlags{
		Server:  c.String("server"),
		Output:  format,
		Timeout: c.Duration("timeout"),
	}
}

// NewClient returns an HTTP client for the --server flag.
func NewClient(c *cli.Context) *connection.HTTPClient {
	flags := ParseGlobalFlags(c)
	return connection.NewHTTPClient(flags.Server, flags.Timeout)
}

// Print writes data to the app's writer in the --output format.
func Print(c *cli.Context, data any) error {
	return output.NewFormatter(ParseGlobalFlags(c).Output).Format(c.App.Writer, data)
}

// PrintError prints an error message to the app's error writer.
func PrintError(c *cli.Context, format string, args ...any) {
	fmt.Fprintf(c.App.ErrWriter, "error: "+format+"\n", args...)
}

// VersionCommand prints the build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			i := buildinfo.Get()
			if ParseGlobalFlags(c).Output == output.FormatTable {
				return Print(c, map[string]any{
					"version":    i.Version,
					"commit":     i.Commit,
					"build_time": i.BuildTime,
					"go_version": i.GoVersion,
				})
			}
			return Print(c, i)
		},
	}
}
