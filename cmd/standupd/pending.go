package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/standupd/internal/approval"
	"github.com/fyrsmithlabs/standupd/internal/chat"
	"github.com/fyrsmithlabs/standupd/internal/monitor"
	"github.com/fyrsmithlabs/standupd/internal/standup"
	"github.com/fyrsmithlabs/standupd/internal/tracker"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Inspect updates awaiting approval",
}

var pendingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending updates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		store, err := a.store(ctx)
		if err != nil {
			return err
		}
		recs, err := store.List(ctx)
		if err != nil {
			return err
		}
		renderPending(cmd.OutOrStdout(), recs, time.Now())
		return nil
	},
}

var pendingDiscardCmd = &cobra.Command{
	Use:   "discard <message-ts>",
	Short: "Drop a pending update and mark its approval message expired",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		store, err := a.store(ctx)
		if err != nil {
			return err
		}
		chatClient, err := chat.New(a.cfg.Slack, a.logger)
		if err != nil {
			return err
		}
		trk, err := tracker.New(a.cfg.Tracker, a.logger)
		if err != nil {
			return err
		}
		dir, err := a.directory(ctx)
		if err != nil {
			return err
		}
		svc, err := approval.New(store, chatClient, trk, dir, approval.Options{
			TeamChannel: a.cfg.Slack.TeamChannel,
			Logger:      a.logger,
			Telemetry:   a.telemetry,
		})
		if err != nil {
			return err
		}
		if err := svc.Discard(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "discarded %s\n", args[0])
		return nil
	},
}

func init() {
	pendingCmd.AddCommand(pendingListCmd, pendingDiscardCmd)
}

var (
	pendingHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51")).Padding(0, 1)
	pendingCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	pendingDimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// renderPending writes recs as a table ordered by message timestamp.
func renderPending(w io.Writer, recs map[string]standup.PendingUpdate, now time.Time) {
	if len(recs) == 0 {
		fmt.Fprintln(w, pendingDimStyle.Render("no pending updates"))
		return
	}

	keys := make([]string, 0, len(recs))
	for k := range recs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("238"))).
		Headers("TS", "KIND", "ISSUE", "EXPECTED", "PERSON", "CHANNEL", "AGE").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return pendingHeaderStyle
			}
			return pendingCellStyle
		})
	for _, k := range keys {
		rec := recs[k]
		t.Row(k, string(rec.Kind), rec.IssueTitle, rec.ExpectedStatus, rec.Person, rec.Channel, monitor.Since(now, rec.CreatedAt))
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, pendingDimStyle.Render(fmt.Sprintf("%d pending", len(recs))))
}
