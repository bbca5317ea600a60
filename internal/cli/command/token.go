package command

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/testwebinoue-debug/sept3/internal/cli/output"
	"github.com/testwebinoue-debug/sept3/internal/server/config"
)

// TokenCommand returns the token subcommand group.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Session token operations",
		Subcommands: []*cli.Command{
			{
				Name:  "fetch",
				Usage: "Open a session and print its tokens",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "cookie-name",
						Usage: "Session cookie name configured on the server",
						Value: config.DefaultCookieName,
					},
				},
				Action: tokenFetch,
			},
		},
	}
}

type tokenResult struct {
	Session           string `json:"session"`
	CSRFToken         string `json:"csrf_token"`
	DoubleSubmitToken string `json:"double_submit_token,omitempty"`
	Timestamp         int64  `json:"timestamp"`
}

func (r tokenResult) Table() *output.Table {
	t := &output.Table{Headers: []string{"KEY", "VALUE"}}
	t.AddRow("session", r.Session)
	t.AddRow("csrf_token", r.CSRFToken)
	t.AddRow("double_submit_token", r.DoubleSubmitToken)
	t.AddRow("timestamp", strconv.FormatInt(r.Timestamp, 10))
	return t
}

func tokenFetch(c *cli.Context) error {
	client := NewClient(c)
	tr, err := client.FetchToken(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	res := tokenResult{
		Session:   client.SessionCookie(c.String("cookie-name")),
		CSRFToken: tr.CSRFToken,
		Timestamp: tr.Timestamp,
	}
	if tr.DoubleSubmitToken != nil {
		res.DoubleSubmitToken = *tr.DoubleSubmitToken
	}
	return Print(c, res)
}
