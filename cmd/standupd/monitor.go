package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/standupd/internal/monitor"
	"github.com/fyrsmithlabs/standupd/internal/tracker"
)

var monitorInterval time.Duration

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live view of the approval queue and Linear progress",
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
		var issues monitor.IssueLister
		if trk, err := tracker.New(a.cfg.Tracker, a.logger); err == nil {
			issues = trk
		}

		model := monitor.NewModel(monitor.NewCollector(store, issues), monitorInterval)
		_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		return err
	},
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 10*time.Second, "refresh interval")
}
