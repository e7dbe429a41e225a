// Package events routes chat events and bus tasks to the standup services.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/approval"
	"github.com/fyrsmithlabs/standupd/internal/bus"
	"github.com/fyrsmithlabs/standupd/internal/chat"
	"github.com/fyrsmithlabs/standupd/internal/extraction"
	"github.com/fyrsmithlabs/standupd/internal/logging"
	"github.com/fyrsmithlabs/standupd/internal/query"
	"github.com/fyrsmithlabs/standupd/internal/standup"
)

// Chat posts answers and resolves message authors.
type Chat interface {
	Post(ctx context.Context, channel, text string) (chat.Message, error)
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Extractor pulls task records out of a message.
type Extractor interface {
	Extract(ctx context.Context, text string, ec extraction.Context) []standup.Record
}

// Publisher hands extracted records to the reconciler.
type Publisher interface {
	PublishAll(ctx context.Context, source, sourceID string, recs []standup.Record) error
}

// Approver runs the approval loop.
type Approver interface {
	Propose(ctx context.Context, m standup.Match) (approval.Outcome, error)
	HandleReaction(ctx context.Context, r approval.Reaction) (approval.Outcome, error)
}

// Answerer answers direct-message questions.
type Answerer interface {
	Answer(ctx context.Context, question string) query.Result
}

// Issues lists the tracker's issues.
type Issues interface {
	ListIssues(ctx context.Context) ([]standup.Issue, error)
}

// Reconciler matches a record against the issue list.
type Reconciler interface {
	Reconcile(ctx context.Context, rec standup.Record, issues []standup.Issue) (standup.Match, error)
}

// Deps are the collaborators of a Dispatcher.
type Deps struct {
	Chat       Chat
	Extractor  Extractor
	Publisher  Publisher
	Approver   Approver
	Answerer   Answerer
	Issues     Issues
	Reconciler Reconciler
}

// Dispatcher routes inbound events.
type Dispatcher struct {
	deps      Deps
	botUserID string
	logger    *logging.Logger
}

// New creates a Dispatcher. Messages from botUserID are ignored.
func New(deps Deps, botUserID string, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{deps: deps, botUserID: botUserID, logger: logger.Named("events")}
}

// HandleEvent dispatches an Events API callback. Unknown inner events are
// ignored.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev slackevents.EventsAPIEvent) error {
	switch inner := ev.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		eventsTotal.WithLabelValues("message").Inc()
		return d.HandleMessage(ctx, inner)
	case *slackevents.ReactionAddedEvent:
		eventsTotal.WithLabelValues("reaction_added").Inc()
		return d.HandleReaction(ctx, inner)
	default:
		eventsTotal.WithLabelValues("other").Inc()
		d.logger.Debug(ctx, "ignoring event", zap.String("type", ev.InnerEvent.Type))
		return nil
	}
}

// HandleMessage answers direct messages and extracts tasks from channel
// messages.
func (d *Dispatcher) HandleMessage(ctx context.Context, ev *slackevents.MessageEvent) error {
	ctx = logging.WithMessageTS(ctx, ev.TimeStamp)
	if d.ignored(ev) {
		d.logger.Trace(ctx, "skipping message", zap.String("user", ev.User), zap.String("subtype", ev.SubType))
		return nil
	}
	if isDirect(ev) {
		return d.answer(ctx, ev)
	}
	return d.extract(ctx, ev)
}

func (d *Dispatcher) ignored(ev *slackevents.MessageEvent) bool {
	if ev.BotID != "" || ev.User == "" || (d.botUserID != "" && ev.User == d.botUserID) {
		return true
	}
	switch ev.SubType {
	case "", "thread_broadcast", "file_share":
		return strings.TrimSpace(ev.Text) == ""
	default:
		return true
	}
}

func isDirect(ev *slackevents.MessageEvent) bool {
	return ev.ChannelType == "im" || strings.HasPrefix(ev.Channel, "D")
}

func (d *Dispatcher) answer(ctx context.Context, ev *slackevents.MessageEvent) error {
	res := d.deps.Answerer.Answer(ctx, ev.Text)
	if _, err := d.deps.Chat.Post(ctx, ev.Channel, res.Message); err != nil {
		return fmt.Errorf("posting answer: %w", err)
	}
	d.logger.Info(ctx, "question answered", zap.String("status", res.Status))
	return nil
}

func (d *Dispatcher) extract(ctx context.Context, ev *slackevents.MessageEvent) error {
	author, err := d.deps.Chat.DisplayName(ctx, ev.User)
	if err != nil {
		d.logger.Warn(ctx, "author lookup failed", zap.String("user", ev.User), zap.Error(err))
	}

	recs := d.deps.Extractor.Extract(ctx, ev.Text, extraction.Context{Author: author})
	if len(recs) == 0 {
		return nil
	}
	if err := d.deps.Publisher.PublishAll(ctx, bus.SourceMessage, ev.Channel+"/"+ev.TimeStamp, recs); err != nil {
		return fmt.Errorf("publishing tasks: %w", err)
	}
	d.logger.Info(ctx, "tasks published", zap.Int("count", len(recs)), zap.String("author", author))
	return nil
}

// HandleReaction forwards a reaction to the approval loop.
func (d *Dispatcher) HandleReaction(ctx context.Context, ev *slackevents.ReactionAddedEvent) error {
	if ev.Item.Type != "" && ev.Item.Type != "message" {
		return nil
	}
	if d.botUserID != "" && ev.User == d.botUserID {
		return nil
	}
	_, err := d.deps.Approver.HandleReaction(ctx, approval.Reaction{
		Channel: ev.Item.Channel,
		TS:      ev.Item.Timestamp,
		Symbol:  ev.Reaction,
		User:    ev.User,
	})
	return err
}

// HandleTask reconciles one bus task and proposes the result. It is the
// bus.Handler for the reconciler consumer.
func (d *Dispatcher) HandleTask(ctx context.Context, t bus.Task) error {
	if err := t.Record.Validate(); err != nil {
		return fmt.Errorf("%w: %v", bus.ErrDrop, err)
	}
	issues, err := d.deps.Issues.ListIssues(ctx)
	if err != nil {
		return fmt.Errorf("listing issues: %w", err)
	}
	m, err := d.deps.Reconciler.Reconcile(ctx, t.Record, issues)
	if err != nil {
		d.logger.Warn(ctx, "reconciliation failed, skipping task", zap.String("task", t.Record.Task), zap.Error(err))
		return fmt.Errorf("%w: %v", bus.ErrDrop, err)
	}
	if _, err := d.deps.Approver.Propose(ctx, m); err != nil {
		if errors.Is(err, approval.ErrNoContact) {
			return fmt.Errorf("%w: %v", bus.ErrDrop, err)
		}
		return err
	}
	return nil
}
