// Package reconcile matches extracted tasks to tracker issues and decides
// whether a status change should be proposed.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/llm"
	"github.com/fyrsmithlabs/standupd/internal/logging"
	"github.com/fyrsmithlabs/standupd/internal/standup"
)

// NoMatch is the answer the model gives when no title fits.
const NoMatch = "NO_MATCH"

const matchTemplate = `You match a task description from a standup to the issue it refers to.
Only answer with a title if the task is clearly about the same piece of work.
If nothing fits, answer exactly %s. Never guess.

Task: %q

Issue titles:
%s

Answer with one title copied exactly from the list, or %s. Do not explain.`

// Reconciler asks the LLM for the single best matching issue title.
type Reconciler struct {
	llm    llm.Completer
	logger *logging.Logger
}

// New creates a Reconciler.
func New(completer llm.Completer, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reconciler{llm: completer, logger: logger.Named("reconcile")}
}

// MatchTitle returns the title in titles that text refers to. ok is false when
// the model answers NoMatch or anything that is not one of titles.
func (r *Reconciler) MatchTitle(ctx context.Context, text string, titles []string) (title string, ok bool, err error) {
	if len(titles) == 0 || strings.TrimSpace(text) == "" {
		return "", false, nil
	}

	answer, err := r.llm.Complete(ctx, fmt.Sprintf(matchTemplate, NoMatch, text, "- "+strings.Join(titles, "\n- "), NoMatch))
	if err != nil {
		matchesTotal.WithLabelValues("error").Inc()
		return "", false, fmt.Errorf("matching %q: %w", text, err)
	}

	answer = strings.Trim(strings.TrimSpace(answer), "`\"'")
	answer = strings.TrimPrefix(answer, "- ")
	if strings.EqualFold(answer, NoMatch) {
		matchesTotal.WithLabelValues("no_match").Inc()
		return "", false, nil
	}
	for _, t := range titles {
		if strings.EqualFold(strings.TrimSpace(t), answer) {
			matchesTotal.WithLabelValues("matched").Inc()
			return t, true, nil
		}
	}

	matchesTotal.WithLabelValues("unknown_title").Inc()
	r.logger.Warn(ctx, "model answered with a title not in the list", zap.String("answer", answer))
	return "", false, nil
}

// Reconcile matches rec against issues. Statuses are copied verbatim.
func (r *Reconciler) Reconcile(ctx context.Context, rec standup.Record, issues []standup.Issue) (standup.Match, error) {
	m := standup.Match{
		Person:         rec.Person,
		Task:           rec.Task,
		ExpectedStatus: standup.Ptr(rec.Status),
	}

	title, ok, err := r.MatchTitle(ctx, rec.Task, standup.Titles(issues))
	if err != nil {
		return m, err
	}
	if !ok {
		return m, nil
	}
	for _, is := range issues {
		if is.Title == title {
			matched := is.Title
			m.MatchedIssueTitle = &matched
			m.CurrentStatus = standup.Ptr(is.Status)
			break
		}
	}
	r.logger.Debug(ctx, "task matched",
		zap.String("task", rec.Task),
		zap.String("issue", title),
		zap.String("current", standup.Deref(m.CurrentStatus)),
		zap.String("expected", standup.Deref(m.ExpectedStatus)))
	return m, nil
}
