package command

import (
	"errors"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/testwebinoue-debug/sept3/internal/cli/connection"
	"github.com/testwebinoue-debug/sept3/internal/cli/output"
	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/server/config"
)

// SubmitCommand returns the submit command, which fetches tokens and
// posts one inquiry the way the browser form does.
func SubmitCommand() *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "Post a contact inquiry end to end",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "inquiry-type", Value: string(domain.InquiryConsultation), Usage: "consultation or other"},
			&cli.StringFlag{Name: "company"},
			&cli.StringFlag{Name: "last-name", Required: true},
			&cli.StringFlag{Name: "first-name", Required: true},
			&cli.StringFlag{Name: "last-name-kana", Required: true, Usage: "Katakana reading"},
			&cli.StringFlag{Name: "first-name-kana", Required: true, Usage: "Katakana reading"},
			&cli.StringFlag{Name: "phone"},
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "content", Required: true},
			&cli.StringFlag{Name: "recaptcha-token", Usage: "Bot-score token, when the server requires one"},
			&cli.DurationFlag{
				Name:  "wait",
				Usage: "Pause between fetching tokens and posting, to pass the fill-time check",
				Value: config.DefaultMinFillTime + time.Second,
			},
		},
		Action: submit,
	}
}

type submitResult struct {
	Status  int    `json:"status"`
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

func (r submitResult) Table() *output.Table {
	t := &output.Table{Headers: []string{"STATUS", "SUCCESS", "CODE", "FIELD", "MESSAGE"}}
	t.AddRow(strconv.Itoa(r.Status), strconv.FormatBool(r.Success), r.Code, r.Field, r.Message)
	return t
}

func submit(c *cli.Context) error {
	client := NewClient(c)
	tr, err := client.FetchToken(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if wait := c.Duration("wait"); wait > 0 {
		select {
		case <-time.After(wait):
		case <-c.Context.Done():
			return c.Context.Err()
		}
	}

	sub := domain.Submission{
		InquiryType:   domain.InquiryType(c.String("inquiry-type")),
		Company:       c.String("company"),
		LastName:      c.String("last-name"),
		FirstName:     c.String("first-name"),
		LastNameKana:  c.String("last-name-kana"),
		FirstNameKana: c.String("first-name-kana"),
		Phone:         c.String("phone"),
		Email:         c.String("email"),
		Content:       c.String("content"),
		Timestamp:     domain.UnixSeconds(tr.Timestamp),
		CSRFToken:     tr.CSRFToken,
		BotScoreToken: c.String("recaptcha-token"),
	}
	if tr.DoubleSubmitToken != nil {
		sub.DoubleSubmitToken = *tr.DoubleSubmitToken
	}

	res, err := client.Submit(c.Context, &sub)
	var se *connection.StatusError
	switch {
	case errors.As(err, &se):
		out := submitResult{Status: se.Status, Code: se.Code, Message: se.Message}
		if res != nil {
			out.Field = res.Field
		}
		if perr := Print(c, out); perr != nil {
			return perr
		}
		return cli.Exit("", 1)
	case err != nil:
		return cli.Exit(err.Error(), 1)
	}

	return Print(c, submitResult{Status: 200, Success: res.Success, Message: res.Message})
}
