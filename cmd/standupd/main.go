// Package main implements standupd, the standup bot service and its
// operator commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath overrides the default config file location.
	configPath string
	// version is set at build time.
	version = "dev"
	// logsToStderr keeps stdout free for command output and MCP traffic.
	logsToStderr bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "standupd",
	Short: "Standup bot that keeps Linear in sync with what the team reports",
	Long: `standupd reads standup messages and meeting transcripts, matches the
reported work against Linear issues and asks each person to approve status
changes with a reaction in Slack.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logsToStderr = !longRunning[cmd.Name()]
	},
}

// longRunning commands log to stdout like any other service.
var longRunning = map[string]bool{"serve": true, "worker": true}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/standupd/config.yaml)")
	rootCmd.AddCommand(serveCmd, workerCmd, ingestCmd, snapshotCmd, pendingCmd, monitorCmd, mcpCmd, askCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the standupd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "standupd", version)
	},
}
