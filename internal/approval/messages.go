package approval

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/standupd/internal/standup"
)

func teamUpdateText(rec standup.PendingUpdate) string {
	return fmt.Sprintf("Hello team! :wave: I want to update:\n*%s* on Linear\nfrom `%s` → `%s`\nReact with :+1: to approve update, or :-1: to cancel",
		rec.IssueTitle, display(rec.CurrentStatus), display(rec.ExpectedStatus))
}

func directUpdateText(person string, rec standup.PendingUpdate) string {
	return fmt.Sprintf("Hi %s! I want to update:\n*'%s'* on Linear\nfrom `%s` → `%s`\nReact with :+1: to approve, or :-1: to reject.",
		firstName(person), rec.IssueTitle, display(rec.CurrentStatus), display(rec.ExpectedStatus))
}

func teamUnmatchedText(rec standup.PendingUpdate) string {
	return fmt.Sprintf("Hello team! :wave: This task has no Linear issue:\n*%s*%s\nReact with :+1: or :-1: to dismiss this notice.",
		rec.IssueTitle, reported(rec.ExpectedStatus))
}

func directUnmatchedText(person string, rec standup.PendingUpdate) string {
	return fmt.Sprintf("Hi %s! This task has no Linear issue:\n*'%s'*%s\nReact with :+1: or :-1: to dismiss this notice.",
		firstName(person), rec.IssueTitle, reported(rec.ExpectedStatus))
}

func failureText(rec standup.PendingUpdate, err error) string {
	return fmt.Sprintf(":warning: I couldn't update *%s* to `%s` on Linear: %v\nReact again to retry.",
		rec.IssueTitle, display(rec.ExpectedStatus), err)
}

func appliedText(rec standup.PendingUpdate) string {
	return fmt.Sprintf(":white_check_mark: *%s* is now `%s` on Linear. This request is closed, so further reactions do nothing.",
		rec.IssueTitle, display(rec.ExpectedStatus))
}

func display(status string) string {
	if strings.TrimSpace(status) == "" {
		return "None"
	}
	return standup.TitleCase(status)
}

func reported(status string) string {
	if strings.TrimSpace(status) == "" {
		return ""
	}
	return fmt.Sprintf(" (reported as `%s`)", display(status))
}

func firstName(person string) string {
	fields := strings.Fields(person)
	if len(fields) == 0 {
		return "there"
	}
	return standup.TitleCase(fields[0])
}
