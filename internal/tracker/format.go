package tracker

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/standupd/internal/standup"
)

// MaxListed caps FormatIssueList output.
const MaxListed = 15

// FormatIssueList renders issues as chat markdown, one per line.
func FormatIssueList(issues []standup.Issue) string {
	if len(issues) == 0 {
		return "No issues found."
	}
	shown := issues
	if len(shown) > MaxListed {
		shown = shown[:MaxListed]
	}
	lines := make([]string, 0, len(shown)+1)
	for _, is := range shown {
		assignee := is.AssigneeName
		if assignee == "" {
			assignee = "Unassigned"
		}
		status := is.Status
		if status == "" {
			status = "No status"
		}
		lines = append(lines, fmt.Sprintf("- *%s* (%s) – %s [Priority: %d]", is.Title, status, assignee, is.Priority))
	}
	if len(issues) > MaxListed {
		lines = append(lines, "…and more.")
	}
	return strings.Join(lines, "\n")
}
