package command

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/testwebinoue-debug/sept3/internal/audit"
	"github.com/testwebinoue-debug/sept3/internal/cli/output"
	"github.com/testwebinoue-debug/sept3/internal/core/domain"
	"github.com/testwebinoue-debug/sept3/internal/server/config"
)

// now is replaced in tests.
var now = time.Now

// LogsCommand returns the logs subcommand group.
func LogsCommand() *cli.Command {
	dirFlag := &cli.StringFlag{
		Name:    "dir",
		Aliases: []string{"d"},
		Usage:   "Log directory of contact-server",
		EnvVars: []string{"SEPT3_LOG__DIR"},
		Value:   config.DefaultLogDir,
	}

	return &cli.Command{
		Name:  "logs",
		Usage: "Inspect and maintain the monthly log files",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List monthly log files",
				Flags:  []cli.Flag{dirFlag},
				Action: logsList,
			},
			{
				Name:  "prune",
				Usage: "Delete monthly files older than the retention period",
				Flags: []cli.Flag{
					dirFlag,
					&cli.IntFlag{
						Name:  "retention-days",
						Usage: "Keep files whose month ended within this many days",
						Value: config.DefaultRetentionDays,
					},
				},
				Action: logsPrune,
			},
			{
				Name:  "audit",
				Usage: "Show audit events of one month",
				Flags: []cli.Flag{
					dirFlag,
					&cli.StringFlag{
						Name:    "month",
						Aliases: []string{"m"},
						Usage:   "Month as YYYY-MM (default: current month)",
					},
					&cli.StringFlag{
						Name:    "action",
						Aliases: []string{"a"},
						Usage:   "Only events with this action, e.g. FORM_SUBMIT_BLOCKED",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Only the newest N events (0 = all)",
					},
				},
				Action: logsAudit,
			},
		},
	}
}

type logFileRow struct {
	Kind  string `json:"kind"`
	Month string `json:"month"`
	Size  int64  `json:"size"`
	Path  string `json:"path"`
}

type logFileList []logFileRow

func (l logFileList) Table() *output.Table {
	t := &output.Table{Headers: []string{"KIND", "MONTH", "SIZE", "PATH"}}
	for _, r := range l {
		t.AddRow(r.Kind, r.Month, strconv.FormatInt(r.Size, 10), r.Path)
	}
	return t
}

func logsList(c *cli.Context) error {
	files, err := audit.ListFiles(c.String("dir"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	rows := make(logFileList, 0, len(files))
	for _, f := range files {
		row := logFileRow{Kind: f.Kind, Month: f.Month.Format(audit.MonthLayout), Path: f.Path}
		if st, err := os.Stat(f.Path); err == nil {
			row.Size = st.Size()
		}
		rows = append(rows, row)
	}
	return Print(c, rows)
}

type pruneResult struct {
	RetentionDays int      `json:"retention_days"`
	Removed       []string `json:"removed"`
}

func (r pruneResult) Table() *output.Table {
	t := &output.Table{Headers: []string{"REMOVED"}}
	for _, p := range r.Removed {
		t.AddRow(p)
	}
	return t
}

func logsPrune(c *cli.Context) error {
	days := c.Int("retention-days")
	if days <= 0 {
		return cli.Exit("--retention-days must be positive", 2)
	}

	removed, err := audit.Prune(c.String("dir"), days, now())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if removed == nil {
		removed = []string{}
	}
	return Print(c, pruneResult{RetentionDays: days, Removed: removed})
}

type auditList []domain.AuditEvent

func (l auditList) Table() *output.Table {
	t := &output.Table{Headers: []string{"TIMESTAMP", "ACTION", "IP", "DETAILS"}}
	for _, ev := range l {
		t.AddRow(ev.Timestamp, string(ev.Action), ev.IP, formatDetails(ev.Details))
	}
	return t
}

func formatDetails(d map[string]string) string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + d[k]
	}
	return strings.Join(parts, " ")
}

func logsAudit(c *cli.Context) error {
	month := now()
	if m := c.String("month"); m != "" {
		t, err := time.ParseInLocation(audit.MonthLayout, m, time.Local)
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid --month %q, want YYYY-MM", m), 2)
		}
		month = t
	}

	res, err := audit.ReadAudit(c.String("dir"), month, audit.Filter{
		Action: domain.AuditAction(strings.ToUpper(c.String("action"))),
		Limit:  c.Int("limit"),
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if res.Skipped > 0 {
		fmt.Fprintf(c.App.ErrWriter, "warning: %d undecodable lines skipped\n", res.Skipped)
	}

	events := auditList(res.Events)
	if events == nil {
		events = auditList{}
	}
	return Print(c, events)
}
