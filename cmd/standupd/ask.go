package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/standupd/internal/reconcile"
	"github.com/fyrsmithlabs/standupd/internal/tracker"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question about issues or team metrics",
	Example: `  standupd ask "what is in progress?"
  standupd ask "set priority of Build login page to urgent"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		completer, err := a.completer(ctx)
		if err != nil {
			return err
		}
		trk, err := tracker.New(a.cfg.Tracker, a.logger)
		if err != nil {
			return err
		}
		answerer := newAnswerer(ctx, a, completer, trk, reconcile.New(completer, a.logger))

		res := answerer.Answer(ctx, strings.Join(args, " "))
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		if !res.OK() {
			return fmt.Errorf("question not answered: %s", res.Status)
		}
		return nil
	},
}
