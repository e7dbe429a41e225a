package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/standup"
)

const issuesQuery = `query {
	issues {
		nodes {
			id
			title
			description
			priority
			state { name }
			assignee { name email }
			team { id name }
		}
	}
}`

const statesQuery = `query {
	workflowStates {
		nodes { id name }
	}
}`

const updateStateMutation = `mutation UpdateIssue($id: String!, $input: IssueUpdateInput!) {
	issueUpdate(id: $id, input: $input) {
		success
		issue { id title state { name } }
	}
}`

const updatePriorityMutation = `mutation UpdateIssue($id: String!, $input: IssueUpdateInput!) {
	issueUpdate(id: $id, input: $input) {
		success
		issue { id title priority }
	}
}`

// ListIssues fetches every issue in the workspace.
func (c *Client) ListIssues(ctx context.Context) ([]standup.Issue, error) {
	data, err := c.do(ctx, "list_issues", issuesQuery, nil)
	if err != nil {
		return nil, err
	}
	nodes := data.Get("issues.nodes").Array()
	issues := make([]standup.Issue, 0, len(nodes))
	for _, n := range nodes {
		issues = append(issues, standup.Issue{
			ID:            n.Get("id").String(),
			Title:         n.Get("title").String(),
			Description:   n.Get("description").String(),
			Status:        n.Get("state.name").String(),
			AssigneeName:  n.Get("assignee.name").String(),
			AssigneeEmail: n.Get("assignee.email").String(),
			TeamID:        n.Get("team.id").String(),
			Priority:      int(n.Get("priority").Int()),
		})
	}
	return issues, nil
}

// FindByTitle returns the issue whose title equals title, ignoring case and
// surrounding space.
func (c *Client) FindByTitle(ctx context.Context, title string) (standup.Issue, error) {
	issues, err := c.ListIssues(ctx)
	if err != nil {
		return standup.Issue{}, err
	}
	want := strings.ToLower(strings.TrimSpace(title))
	for _, is := range issues {
		if strings.ToLower(strings.TrimSpace(is.Title)) == want {
			return is, nil
		}
	}
	return standup.Issue{}, fmt.Errorf("%w: %q", ErrIssueNotFound, title)
}

// StateID returns the ID of the workflow state called name.
func (c *Client) StateID(ctx context.Context, name string) (string, error) {
	data, err := c.do(ctx, "workflow_states", statesQuery, nil)
	if err != nil {
		return "", err
	}
	want := strings.ToLower(strings.TrimSpace(name))
	var id string
	data.Get("workflowStates.nodes").ForEach(func(_, n gjson.Result) bool {
		if strings.ToLower(strings.TrimSpace(n.Get("name").String())) == want {
			id = n.Get("id").String()
			return false
		}
		return true
	})
	if id == "" {
		return "", fmt.Errorf("%w: %q", ErrStateNotFound, name)
	}
	return id, nil
}

// SetStatusByTitle moves the issue titled title to the workflow state status.
func (c *Client) SetStatusByTitle(ctx context.Context, title, status string) error {
	issue, err := c.FindByTitle(ctx, title)
	if err != nil {
		return err
	}
	stateID, err := c.StateID(ctx, status)
	if err != nil {
		return err
	}
	if issue.TeamID == "" {
		return fmt.Errorf("issue %q has no team", issue.Title)
	}

	data, err := c.do(ctx, "set_status", updateStateMutation, map[string]any{
		"id":    issue.ID,
		"input": map[string]any{"stateId": stateID, "teamId": issue.TeamID},
	})
	if err != nil {
		writesTotal.WithLabelValues("status", "error").Inc()
		return err
	}
	if !data.Get("issueUpdate.success").Bool() {
		writesTotal.WithLabelValues("status", "rejected").Inc()
		return fmt.Errorf("linear refused status update for %q", issue.Title)
	}
	writesTotal.WithLabelValues("status", "ok").Inc()
	c.logger.Info(ctx, "issue status updated",
		zap.String("issue", issue.Title),
		zap.String("from", issue.Status),
		zap.String("to", data.Get("issueUpdate.issue.state.name").String()))
	return nil
}

// SetPriorityByTitle sets the priority (0 none, 1 urgent .. 4 low) of the
// issue titled title. Out of range values are rejected before any request.
func (c *Client) SetPriorityByTitle(ctx context.Context, title string, priority int) error {
	if priority < 0 || priority > 4 {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, priority)
	}
	issue, err := c.FindByTitle(ctx, title)
	if err != nil {
		return err
	}

	data, err := c.do(ctx, "set_priority", updatePriorityMutation, map[string]any{
		"id":    issue.ID,
		"input": map[string]any{"priority": priority},
	})
	if err != nil {
		writesTotal.WithLabelValues("priority", "error").Inc()
		return err
	}
	if !data.Get("issueUpdate.success").Bool() {
		writesTotal.WithLabelValues("priority", "rejected").Inc()
		return fmt.Errorf("linear refused priority update for %q", issue.Title)
	}
	writesTotal.WithLabelValues("priority", "ok").Inc()
	c.logger.Info(ctx, "issue priority updated",
		zap.String("issue", issue.Title),
		zap.Int64("priority", data.Get("issueUpdate.issue.priority").Int()))
	return nil
}
