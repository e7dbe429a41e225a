package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/standupd/internal/standup"
)

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"serve", "worker", "ingest", "snapshot", "pending", "monitor", "mcp", "ask", "version"}
	var got []string
	for _, c := range rootCmd.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range want {
		assert.Contains(t, got, name)
	}

	sub, _, err := rootCmd.Find([]string{"pending", "discard"})
	require.NoError(t, err)
	assert.Equal(t, "discard", sub.Name())
	assert.Error(t, sub.Args(sub, nil))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, out.String(), version)
}

func TestRenderPending(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	recs := map[string]standup.PendingUpdate{
		"1700000002.000200": {
			IssueTitle:     "Fix flaky test",
			ExpectedStatus: "Done",
			Kind:           standup.KindUpdate,
			Channel:        "C1",
			Person:         "Bo",
			CreatedAt:      now.Add(-3 * time.Hour),
		},
		"1700000001.000100": {
			IssueTitle:     "Write onboarding docs",
			ExpectedStatus: "In Progress",
			Kind:           standup.KindUnmatched,
			Channel:        "C1",
			CreatedAt:      now.Add(-30 * time.Second),
		},
	}

	var out bytes.Buffer
	renderPending(&out, recs, now)
	s := out.String()

	assert.Contains(t, s, "Fix flaky test")
	assert.Contains(t, s, "unmatched")
	assert.Contains(t, s, "3h")
	assert.Contains(t, s, "<1m")
	assert.Contains(t, s, "2 pending")
	assert.Less(t, strings.Index(s, "1700000001.000100"), strings.Index(s, "1700000002.000200"))
}

func TestRenderPending_Empty(t *testing.T) {
	var out bytes.Buffer
	renderPending(&out, nil, time.Now())
	assert.Contains(t, out.String(), "no pending updates")
}

func TestLogsToStderr(t *testing.T) {
	t.Cleanup(func() { logsToStderr = false })

	rootCmd.PersistentPreRun(mcpCmd, nil)
	assert.True(t, logsToStderr)

	rootCmd.PersistentPreRun(serveCmd, nil)
	assert.False(t, logsToStderr)
}
