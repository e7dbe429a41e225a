// Package query answers direct questions and commands about the tracker and
// the metrics warehouse. It bypasses the approval workflow.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/extraction"
	"github.com/fyrsmithlabs/standupd/internal/llm"
	"github.com/fyrsmithlabs/standupd/internal/logging"
	"github.com/fyrsmithlabs/standupd/internal/standup"
	"github.com/fyrsmithlabs/standupd/internal/tracker"
	"github.com/fyrsmithlabs/standupd/internal/warehouse"
)

// Intents the classifier can pick.
const (
	IntentListIssues  = "list_issues"
	IntentSetPriority = "set_priority"
	IntentSetStatus   = "set_status"
	IntentMetrics     = "metrics"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// maxRows caps the rows rendered into a chat answer.
const maxRows = 20

// Result is an answer ready to be posted back to the asker.
type Result struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Rows    []map[string]any `json:"rows,omitempty"`
}

// OK reports whether the question was answered.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Tracker is the tracker surface the answerer needs.
type Tracker interface {
	ListIssues(ctx context.Context) ([]standup.Issue, error)
	SetStatusByTitle(ctx context.Context, title, status string) error
	SetPriorityByTitle(ctx context.Context, title string, priority int) error
}

// Matcher resolves free text to one of the given titles.
type Matcher interface {
	MatchTitle(ctx context.Context, text string, titles []string) (title string, ok bool, err error)
}

// Warehouse runs read-only analytics queries.
type Warehouse interface {
	Query(ctx context.Context, sql string) ([]map[string]any, error)
}

// Options configures an Answerer.
type Options struct {
	Dataset      string
	MetricsTable string
	Logger       *logging.Logger
}

// Answerer classifies a question and dispatches it.
type Answerer struct {
	llm       llm.Completer
	tracker   Tracker
	matcher   Matcher
	warehouse Warehouse
	dataset   string
	table     string
	logger    *logging.Logger
}

// New creates an Answerer. warehouse may be nil, in which case metrics
// questions are answered with an error.
func New(completer llm.Completer, t Tracker, m Matcher, w Warehouse, opts Options) *Answerer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Answerer{
		llm:       completer,
		tracker:   t,
		matcher:   m,
		warehouse: w,
		dataset:   opts.Dataset,
		table:     opts.MetricsTable,
		logger:    logger.Named("query"),
	}
}

type classification struct {
	Intent   string `json:"intent"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority *int   `json:"priority"`
}

// Answer never returns a Go error: every failure becomes an error Result.
func (a *Answerer) Answer(ctx context.Context, question string) Result {
	if strings.TrimSpace(question) == "" {
		return failure("Ask me about Linear issues or team metrics.")
	}

	raw, err := a.llm.Complete(ctx, classifyPrompt(question))
	if err != nil {
		a.logger.Error(ctx, "classification failed", zap.Error(err))
		return a.record("unknown", failure("I couldn't reach the language model: %v", err))
	}
	var c classification
	if !extraction.ParseObject(raw, &c) {
		a.logger.Warn(ctx, "unparseable classification", zap.String("raw", raw))
		return a.record("unknown", failure("I couldn't understand that request."))
	}
	a.logger.Debug(ctx, "question classified", zap.String("intent", c.Intent), zap.String("title", c.Title))

	var res Result
	switch c.Intent {
	case IntentListIssues:
		res = a.listIssues(ctx)
	case IntentSetPriority:
		res = a.setPriority(ctx, question, c)
	case IntentSetStatus:
		res = a.setStatus(ctx, c)
	case IntentMetrics:
		res = a.metrics(ctx, question)
	default:
		res = failure("I couldn't tell what you want me to do.")
	}
	return a.record(c.Intent, res)
}

func (a *Answerer) listIssues(ctx context.Context) Result {
	issues, err := a.tracker.ListIssues(ctx)
	if err != nil {
		return failure("I couldn't fetch issues from Linear: %v", err)
	}
	return success(tracker.FormatIssueList(issues))
}

func (a *Answerer) setPriority(ctx context.Context, question string, c classification) Result {
	if c.Priority == nil {
		return failure("Which priority should I set? Use 0 (none) to 4 (low).")
	}
	if p := *c.Priority; p < 0 || p > 4 {
		return failure("%v", fmt.Errorf("%w: %d", tracker.ErrInvalidPriority, p))
	}

	issues, err := a.tracker.ListIssues(ctx)
	if err != nil {
		return failure("I couldn't fetch issues from Linear: %v", err)
	}
	text := c.Title
	if text == "" {
		text = question
	}
	title, ok, err := a.matcher.MatchTitle(ctx, text, standup.Titles(issues))
	if err != nil {
		return failure("I couldn't match that to an issue: %v", err)
	}
	if !ok {
		return failure("No matching issue found in Linear.")
	}
	if err := a.tracker.SetPriorityByTitle(ctx, title, *c.Priority); err != nil {
		return failure("I couldn't update the priority: %v", err)
	}
	return success(fmt.Sprintf("Issue '%s' updated to priority %d", title, *c.Priority))
}

func (a *Answerer) setStatus(ctx context.Context, c classification) Result {
	if strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.Status) == "" {
		return failure("Tell me which issue and which status, for example: move \"Build X\" to In Review.")
	}
	if err := a.tracker.SetStatusByTitle(ctx, c.Title, c.Status); err != nil {
		switch {
		case errors.Is(err, tracker.ErrIssueNotFound):
			return failure("No matching issue found in Linear.")
		case errors.Is(err, tracker.ErrStateNotFound):
			return failure("No matching status found in Linear.")
		}
		return failure("I couldn't update the issue: %v", err)
	}
	return success(fmt.Sprintf("Issue '%s' updated to status '%s'", c.Title, c.Status))
}

func (a *Answerer) metrics(ctx context.Context, question string) Result {
	if a.warehouse == nil {
		return failure("Metrics are not configured.")
	}
	raw, err := a.llm.Complete(ctx, sqlPrompt(a.dataset, a.table, question))
	if err != nil {
		return failure("I couldn't reach the language model: %v", err)
	}
	sql := extraction.StripFences(raw)
	if strings.EqualFold(sql, InvalidQuery) || sql == "" {
		return failure("I couldn't turn that into a metrics query. Try asking about task counts, statuses or completion times.")
	}
	if err := warehouse.CheckReadOnly(sql); err != nil {
		a.logger.Warn(ctx, "refused generated statement", zap.String("sql", sql))
		return failure("%v", err)
	}

	rows, err := a.warehouse.Query(ctx, sql)
	if err != nil {
		return failure("The metrics query failed: %v", err)
	}
	return Result{Status: StatusSuccess, Message: FormatRows(rows), Rows: rows}
}

func (a *Answerer) record(intent string, res Result) Result {
	switch intent {
	case IntentListIssues, IntentSetPriority, IntentSetStatus, IntentMetrics:
	default:
		intent = "unknown"
	}
	questionsTotal.WithLabelValues(intent, res.Status).Inc()
	return res
}

// FormatRows renders rows as one line of sorted key=value pairs each.
func FormatRows(rows []map[string]any) string {
	if len(rows) == 0 {
		return "No results."
	}
	shown := rows
	if len(shown) > maxRows {
		shown = shown[:maxRows]
	}
	lines := make([]string, 0, len(shown)+1)
	for _, row := range shown {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: %v", k, row[k])
		}
		lines = append(lines, "- "+strings.Join(parts, ", "))
	}
	if len(rows) > maxRows {
		lines = append(lines, fmt.Sprintf("…and %d more rows.", len(rows)-maxRows))
	}
	return strings.Join(lines, "\n")
}

func success(msg string) Result {
	return Result{Status: StatusSuccess, Message: msg}
}

func failure(format string, args ...any) Result {
	return Result{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}
