package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mec/internal/config"
	"mec/internal/daemon"
	"mec/internal/daemonrun"
	"mec/internal/queue"
)

type statusReport struct {
	Daemons   []daemon.Status         `json:"daemons"`
	Schedules []*queue.ScheduleRecord `json:"schedules"`
	Outbox    queue.Stats             `json:"outbox"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, schedule and outbox state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				report, err := buildStatus(cmd, cfg, store)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, report)
				}
				printStatus(cmd, report)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON")
	return cmd
}

func buildStatus(cmd *cobra.Command, cfg *config.Config, store *queue.Store) (statusReport, error) {
	var report statusReport
	for _, role := range []string{daemonrun.RoleScraper, daemonrun.RoleHandler} {
		st, err := daemon.Probe(cfg, role)
		if err != nil {
			return report, err
		}
		report.Daemons = append(report.Daemons, st)
	}
	schedules, err := store.LoadSchedules(cmd.Context())
	if err != nil {
		return report, err
	}
	report.Schedules = schedules
	report.Outbox, err = store.Stats(cmd.Context())
	return report, err
}

func printStatus(cmd *cobra.Command, report statusReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Daemons", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, st := range report.Daemons {
		kind, msg := statusWarn, "not running"
		if st.Stale {
			msg += " (stale pid file)"
		}
		if st.Running {
			kind, msg = statusOK, "running"
			if st.PID > 0 {
				msg += fmt.Sprintf(" (pid %d)", st.PID)
			}
		}
		fmt.Fprintln(out, renderStatusLine(st.Role, kind, msg, colorize))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Schedules", colorize) {
		fmt.Fprintln(out, line)
	}
	if len(report.Schedules) == 0 {
		fmt.Fprintln(out, "No adapter has run yet")
	} else {
		rows := make([][]string, 0, len(report.Schedules))
		for _, rec := range report.Schedules {
			rows = append(rows, []string{
				rec.Name,
				rec.Cadence,
				yesNo(rec.Busy),
				formatTime(rec.NextRun),
				formatTime(rec.LastFinish),
				strconv.Itoa(rec.Runs),
				strconv.Itoa(rec.Failures),
				truncate(rec.LastError, 48),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Adapter", "Cadence", "Busy", "Next run", "Last finish", "Runs", "Failures", "Last error"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Outbox", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("pending", statusInfo, strconv.Itoa(report.Outbox.Pending), colorize))
	fmt.Fprintln(out, renderStatusLine("published", statusInfo, strconv.Itoa(report.Outbox.Published), colorize))
	failedKind := statusOK
	if report.Outbox.Failed > 0 {
		failedKind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("failed", failedKind, strconv.Itoa(report.Outbox.Failed), colorize))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
