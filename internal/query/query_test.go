package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/standupd/internal/llm"
	"github.com/fyrsmithlabs/standupd/internal/standup"
	"github.com/fyrsmithlabs/standupd/internal/tracker"
	"github.com/fyrsmithlabs/standupd/internal/warehouse"
)

type mockTracker struct {
	mock.Mock
}

func (m *mockTracker) ListIssues(ctx context.Context) ([]standup.Issue, error) {
	args := m.Called(ctx)
	issues, _ := args.Get(0).([]standup.Issue)
	return issues, args.Error(1)
}

func (m *mockTracker) SetStatusByTitle(ctx context.Context, title, status string) error {
	return m.Called(ctx, title, status).Error(0)
}

func (m *mockTracker) SetPriorityByTitle(ctx context.Context, title string, priority int) error {
	return m.Called(ctx, title, priority).Error(0)
}

type matcherFunc func(text string, titles []string) (string, bool, error)

func (f matcherFunc) MatchTitle(_ context.Context, text string, titles []string) (string, bool, error) {
	return f(text, titles)
}

type fakeWarehouse struct {
	rows []map[string]any
	err  error
	sql  []string
}

func (w *fakeWarehouse) Query(_ context.Context, sql string) ([]map[string]any, error) {
	w.sql = append(w.sql, sql)
	return w.rows, w.err
}

// script answers the classification prompt with classify and the SQL prompt
// with sql.
func script(classify, sql string) llm.Completer {
	return llm.CompleterFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "You route questions") {
			return classify, nil
		}
		return sql, nil
	})
}

var issues = []standup.Issue{
	{Title: "Build X", Status: "To Do", AssigneeName: "Nam", Priority: 2},
	{Title: "Fix login redirect", Status: "In Progress", Priority: 1},
}

func exact(text string, titles []string) (string, bool, error) {
	for _, t := range titles {
		if strings.Contains(strings.ToLower(text), strings.ToLower(t)) {
			return t, true, nil
		}
	}
	return "", false, nil
}

func TestAnswer_ListIssues(t *testing.T) {
	tr := &mockTracker{}
	tr.On("ListIssues", mock.Anything).Return(issues, nil)
	a := New(script(`{"intent":"list_issues"}`, ""), tr, matcherFunc(exact), nil, Options{})

	res := a.Answer(context.Background(), "what's on the board?")
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, "- *Build X* (To Do) – Nam [Priority: 2]\n- *Fix login redirect* (In Progress) – Unassigned [Priority: 1]", res.Message)
}

func TestAnswer_SetPriority(t *testing.T) {
	tr := &mockTracker{}
	tr.On("ListIssues", mock.Anything).Return(issues, nil)
	tr.On("SetPriorityByTitle", mock.Anything, "Build X", 1).Return(nil).Once()
	a := New(script("```json\n{\"intent\":\"set_priority\",\"title\":\"build x\",\"priority\":1}\n```", ""), tr, matcherFunc(exact), nil, Options{})

	res := a.Answer(context.Background(), "make build x urgent")
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, "Issue 'Build X' updated to priority 1", res.Message)
	tr.AssertExpectations(t)
}

func TestAnswer_SetPriorityOutOfRange(t *testing.T) {
	tr := &mockTracker{}
	a := New(script(`{"intent":"set_priority","title":"Build X","priority":7}`, ""), tr, matcherFunc(exact), nil, Options{})

	res := a.Answer(context.Background(), "set Build X to priority 7")
	assert.False(t, res.OK())
	assert.Contains(t, res.Message, tracker.ErrInvalidPriority.Error())
	assert.Contains(t, res.Message, "7")
	tr.AssertNotCalled(t, "SetPriorityByTitle", mock.Anything, mock.Anything, mock.Anything)
	tr.AssertNotCalled(t, "ListIssues", mock.Anything)
}

func TestAnswer_SetPriorityNoMatch(t *testing.T) {
	tr := &mockTracker{}
	tr.On("ListIssues", mock.Anything).Return(issues, nil)
	a := New(script(`{"intent":"set_priority","title":"the offsite","priority":3}`, ""), tr, matcherFunc(exact), nil, Options{})

	res := a.Answer(context.Background(), "offsite is medium")
	assert.False(t, res.OK())
	assert.Equal(t, "No matching issue found in Linear.", res.Message)
	tr.AssertNotCalled(t, "SetPriorityByTitle", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnswer_SetStatus(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		ok      bool
		message string
	}{
		{"ok", nil, true, "Issue 'Build X' updated to status 'In Review'"},
		{"unknown issue", fmt.Errorf("%w: x", tracker.ErrIssueNotFound), false, "No matching issue found in Linear."},
		{"unknown state", fmt.Errorf("%w: x", tracker.ErrStateNotFound), false, "No matching status found in Linear."},
		{"transport", errors.New("timeout"), false, "I couldn't update the issue: timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &mockTracker{}
			tr.On("SetStatusByTitle", mock.Anything, "Build X", "In Review").Return(tt.err)
			a := New(script(`{"intent":"set_status","title":"Build X","status":"In Review"}`, ""), tr, matcherFunc(exact), nil, Options{})

			res := a.Answer(context.Background(), "Build X is in review")
			assert.Equal(t, tt.ok, res.OK())
			assert.Equal(t, tt.message, res.Message)
		})
	}
}

func TestAnswer_Metrics(t *testing.T) {
	wh := &fakeWarehouse{rows: []map[string]any{
		{"owner_name": "Nam", "issue_count": int64(3)},
		{"owner_name": "Ana", "issue_count": int64(1)},
	}}
	sql := "```sql\nSELECT owner_name, issue_count FROM `linear_metrics_dev.linear_tasks_view` WHERE status = 'In Progress'\n```"
	a := New(script(`{"intent":"metrics"}`, sql), &mockTracker{}, matcherFunc(exact), wh, Options{Dataset: "linear_metrics_dev"})

	res := a.Answer(context.Background(), "how many tasks are in progress per owner?")
	require.True(t, res.OK(), res.Message)
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, "- issue_count: 3, owner_name: Nam\n- issue_count: 1, owner_name: Ana", res.Message)
	require.Len(t, wh.sql, 1)
	assert.True(t, strings.HasPrefix(wh.sql[0], "SELECT owner_name"))
}

func TestAnswer_MetricsRefusals(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"sentinel", "INVALID_QUERY", "couldn't turn that into a metrics query"},
		{"empty", "", "couldn't turn that into a metrics query"},
		{"write", "DELETE FROM linear_metrics_dev.linear_tasks", warehouse.ErrNotReadOnly.Error()},
		{"stacked", "SELECT 1; DROP TABLE linear_metrics_dev.linear_tasks", warehouse.ErrNotReadOnly.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wh := &fakeWarehouse{}
			a := New(script(`{"intent":"metrics"}`, tt.sql), &mockTracker{}, matcherFunc(exact), wh, Options{})

			res := a.Answer(context.Background(), "average bug resolution time?")
			assert.False(t, res.OK())
			assert.Contains(t, res.Message, tt.want)
			assert.Empty(t, wh.sql, "nothing executed")
		})
	}
}

func TestAnswer_Failures(t *testing.T) {
	t.Run("llm down", func(t *testing.T) {
		a := New(llm.CompleterFunc(func(context.Context, string) (string, error) {
			return "", errors.New("503")
		}), &mockTracker{}, matcherFunc(exact), nil, Options{})
		res := a.Answer(context.Background(), "list issues")
		assert.Equal(t, StatusError, res.Status)
		assert.Contains(t, res.Message, "503")
	})

	t.Run("prose classification", func(t *testing.T) {
		a := New(script("Sure, I can help!", ""), &mockTracker{}, matcherFunc(exact), nil, Options{})
		res := a.Answer(context.Background(), "list issues")
		assert.Equal(t, "I couldn't understand that request.", res.Message)
	})

	t.Run("unknown intent", func(t *testing.T) {
		a := New(script(`{"intent":"order_pizza"}`, ""), &mockTracker{}, matcherFunc(exact), nil, Options{})
		assert.False(t, a.Answer(context.Background(), "pizza?").OK())
	})

	t.Run("metrics without warehouse", func(t *testing.T) {
		a := New(script(`{"intent":"metrics"}`, "SELECT 1"), &mockTracker{}, matcherFunc(exact), nil, Options{})
		assert.Equal(t, "Metrics are not configured.", a.Answer(context.Background(), "count?").Message)
	})
}

func TestFormatRows(t *testing.T) {
	assert.Equal(t, "No results.", FormatRows(nil))
	rows := make([]map[string]any, maxRows+5)
	for i := range rows {
		rows[i] = map[string]any{"n": i}
	}
	lines := strings.Split(FormatRows(rows), "\n")
	assert.Len(t, lines, maxRows+1)
	assert.Equal(t, "…and 5 more rows.", lines[maxRows])
}
