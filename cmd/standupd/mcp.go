package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/standupd/internal/mcp"
	"github.com/fyrsmithlabs/standupd/internal/reconcile"
	"github.com/fyrsmithlabs/standupd/internal/tracker"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the query tools to MCP clients over stdio",
	Long: `mcp runs a Model Context Protocol server on stdin/stdout with tools to
ask questions, list Linear issues and inspect the approval queue. Logs go to
stderr so they never mix with protocol traffic.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

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
		store, err := a.store(ctx)
		if err != nil {
			return err
		}

		srv, err := mcp.NewServer(mcp.Config{Version: version, Logger: a.logger},
			newAnswerer(ctx, a, completer, trk, reconcile.New(completer, a.logger)), trk, store)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	},
}
