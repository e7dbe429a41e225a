package mcp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/standup"
	"github.com/fyrsmithlabs/standupd/internal/tracker"
)

type askInput struct {
	Question string `json:"question" jsonschema:"Question about Linear issues or team metrics"`
}

type askOutput struct {
	Status string           `json:"status" jsonschema:"success or error"`
	Answer string           `json:"answer" jsonschema:"Answer text"`
	Rows   []map[string]any `json:"rows,omitempty" jsonschema:"Result rows for metrics questions"`
}

type issuesInput struct {
	Status string `json:"status,omitempty" jsonschema:"Only return issues in this workflow state"`
}

type issueSummary struct {
	Title    string `json:"title"`
	Status   string `json:"status"`
	Assignee string `json:"assignee,omitempty"`
	Priority int    `json:"priority"`
}

type issuesOutput struct {
	Count  int            `json:"count"`
	Issues []issueSummary `json:"issues"`
}

type pendingInput struct{}

type pendingSummary struct {
	MessageTS      string `json:"message_ts"`
	Kind           string `json:"kind"`
	IssueTitle     string `json:"issue_title"`
	ExpectedStatus string `json:"expected_status"`
	Person         string `json:"person,omitempty"`
	CreatedAt      string `json:"created_at,omitempty" jsonschema:"RFC 3339 creation time"`
}

type pendingOutput struct {
	Count   int              `json:"count"`
	Pending []pendingSummary `json:"pending"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "standup_ask",
		Description: "Ask about Linear issues, change an issue's priority, or query team metrics",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args askInput) (*mcp.CallToolResult, askOutput, error) {
		start := time.Now()
		res := s.answerer.Answer(ctx, args.Question)
		var toolErr error
		if !res.OK() {
			toolErr = fmt.Errorf("%s", res.Message)
		}
		s.metrics.RecordInvocation(ctx, "standup_ask", time.Since(start), toolErr)

		out := askOutput{Status: res.Status, Answer: res.Message, Rows: res.Rows}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: res.Message}},
			IsError: !res.OK(),
		}, out, nil
	})

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "standup_list_issues",
		Description: "List Linear issues with their status, assignee and priority",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args issuesInput) (*mcp.CallToolResult, issuesOutput, error) {
		start := time.Now()
		issues, err := s.issues.ListIssues(ctx)
		s.metrics.RecordInvocation(ctx, "standup_list_issues", time.Since(start), err)
		if err != nil {
			s.logger.Warn(ctx, "listing issues failed", zap.Error(err))
			return nil, issuesOutput{}, fmt.Errorf("listing issues: %w", err)
		}

		issues = filterByStatus(issues, args.Status)
		out := issuesOutput{Issues: []issueSummary{}}
		for _, is := range issues {
			out.Issues = append(out.Issues, issueSummary{
				Title:    is.Title,
				Status:   is.Status,
				Assignee: is.AssigneeName,
				Priority: is.Priority,
			})
		}
		out.Count = len(out.Issues)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: tracker.FormatIssueList(issues)}},
		}, out, nil
	})

	if s.pending == nil {
		return
	}
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "standup_list_pending",
		Description: "List status updates waiting for a reaction in Slack",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ pendingInput) (*mcp.CallToolResult, pendingOutput, error) {
		start := time.Now()
		recs, err := s.pending.List(ctx)
		s.metrics.RecordInvocation(ctx, "standup_list_pending", time.Since(start), err)
		if err != nil {
			return nil, pendingOutput{}, fmt.Errorf("listing pending updates: %w", err)
		}

		out := pendingOutput{Pending: []pendingSummary{}}
		for ts, rec := range recs {
			out.Pending = append(out.Pending, pendingSummary{
				MessageTS:      ts,
				Kind:           string(rec.Kind),
				IssueTitle:     rec.IssueTitle,
				ExpectedStatus: rec.ExpectedStatus,
				Person:         rec.Person,
				CreatedAt:      createdAt(rec.CreatedAt),
			})
		}
		sort.Slice(out.Pending, func(i, j int) bool { return out.Pending[i].MessageTS < out.Pending[j].MessageTS })
		out.Count = len(out.Pending)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%d updates awaiting approval", out.Count)}},
		}, out, nil
	})
}

// filterByStatus keeps issues in status, or all of them when status is empty.
func filterByStatus(issues []standup.Issue, status string) []standup.Issue {
	if status == "" {
		return issues
	}
	var out []standup.Issue
	for _, is := range issues {
		if standup.SameStatus(is.Status, status) {
			out = append(out, is)
		}
	}
	return out
}

func createdAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
