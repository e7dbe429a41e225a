package events

import (
	"context"
	"errors"
	"testing"

	"github.com/slack-go/slack/slackevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/standupd/internal/approval"
	"github.com/fyrsmithlabs/standupd/internal/bus"
	"github.com/fyrsmithlabs/standupd/internal/chat"
	"github.com/fyrsmithlabs/standupd/internal/extraction"
	"github.com/fyrsmithlabs/standupd/internal/query"
	"github.com/fyrsmithlabs/standupd/internal/standup"
)

type mockDeps struct {
	mock.Mock
}

func (m *mockDeps) Post(ctx context.Context, channel, text string) (chat.Message, error) {
	args := m.Called(ctx, channel, text)
	return args.Get(0).(chat.Message), args.Error(1)
}

func (m *mockDeps) DisplayName(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *mockDeps) Extract(ctx context.Context, text string, ec extraction.Context) []standup.Record {
	args := m.Called(ctx, text, ec)
	recs, _ := args.Get(0).([]standup.Record)
	return recs
}

func (m *mockDeps) PublishAll(ctx context.Context, source, sourceID string, recs []standup.Record) error {
	return m.Called(ctx, source, sourceID, recs).Error(0)
}

func (m *mockDeps) Propose(ctx context.Context, match standup.Match) (approval.Outcome, error) {
	args := m.Called(ctx, match)
	return args.Get(0).(approval.Outcome), args.Error(1)
}

func (m *mockDeps) HandleReaction(ctx context.Context, r approval.Reaction) (approval.Outcome, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(approval.Outcome), args.Error(1)
}

func (m *mockDeps) Answer(ctx context.Context, question string) query.Result {
	return m.Called(ctx, question).Get(0).(query.Result)
}

func (m *mockDeps) ListIssues(ctx context.Context) ([]standup.Issue, error) {
	args := m.Called(ctx)
	issues, _ := args.Get(0).([]standup.Issue)
	return issues, args.Error(1)
}

func (m *mockDeps) Reconcile(ctx context.Context, rec standup.Record, issues []standup.Issue) (standup.Match, error) {
	args := m.Called(ctx, rec, issues)
	return args.Get(0).(standup.Match), args.Error(1)
}

func newDispatcher(m *mockDeps) *Dispatcher {
	return New(Deps{
		Chat:       m,
		Extractor:  m,
		Publisher:  m,
		Approver:   m,
		Answerer:   m,
		Issues:     m,
		Reconciler: m,
	}, "UBOT", nil)
}

func TestHandleMessage_ChannelMessagePublishesTasks(t *testing.T) {
	m := &mockDeps{}
	recs := []standup.Record{{Person: "Nam Nguyen", Task: "Build X", Status: "Done"}}
	m.On("DisplayName", mock.Anything, "U100").Return("nam nguyen", nil)
	m.On("Extract", mock.Anything, "finished Build X", extraction.Context{Author: "nam nguyen"}).Return(recs)
	m.On("PublishAll", mock.Anything, bus.SourceMessage, "C1/1700.1", recs).Return(nil)

	err := newDispatcher(m).HandleMessage(context.Background(), &slackevents.MessageEvent{
		Channel: "C1", User: "U100", Text: "finished Build X", TimeStamp: "1700.1",
	})
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestHandleMessage_AuthorLookupFailureStillExtracts(t *testing.T) {
	m := &mockDeps{}
	m.On("DisplayName", mock.Anything, "U100").Return("", errors.New("user_not_found"))
	m.On("Extract", mock.Anything, "hi", extraction.Context{}).Return(nil)

	require.NoError(t, newDispatcher(m).HandleMessage(context.Background(), &slackevents.MessageEvent{
		Channel: "C1", User: "U100", Text: "hi", TimeStamp: "1700.2",
	}))
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "PublishAll", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMessage_DirectMessageIsAnswered(t *testing.T) {
	m := &mockDeps{}
	m.On("Answer", mock.Anything, "list issues").Return(query.Result{Status: query.StatusSuccess, Message: "- *Build X*"})
	m.On("Post", mock.Anything, "D42", "- *Build X*").Return(chat.Message{Channel: "D42", TS: "1.1"}, nil)

	require.NoError(t, newDispatcher(m).HandleMessage(context.Background(), &slackevents.MessageEvent{
		Channel: "D42", ChannelType: "im", User: "U100", Text: "list issues", TimeStamp: "1700.3",
	}))
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleMessage_IgnoresBotsAndEdits(t *testing.T) {
	tests := []struct {
		name string
		ev   slackevents.MessageEvent
	}{
		{"own user", slackevents.MessageEvent{Channel: "C1", User: "UBOT", Text: "approval request"}},
		{"bot id", slackevents.MessageEvent{Channel: "C1", User: "U9", BotID: "B1", Text: "deploy done"}},
		{"edit", slackevents.MessageEvent{Channel: "C1", User: "U100", SubType: "message_changed", Text: "x"}},
		{"join", slackevents.MessageEvent{Channel: "C1", User: "U100", SubType: "channel_join", Text: "joined"}},
		{"empty", slackevents.MessageEvent{Channel: "C1", User: "U100", Text: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockDeps{}
			ev := tt.ev
			require.NoError(t, newDispatcher(m).HandleMessage(context.Background(), &ev))
			m.AssertExpectations(t)
			assert.Empty(t, m.Calls)
		})
	}
}

func TestHandleEvent_ReactionReachesApproval(t *testing.T) {
	m := &mockDeps{}
	m.On("HandleReaction", mock.Anything, approval.Reaction{Channel: "D1", TS: "1700.4", Symbol: "+1", User: "U100"}).
		Return(approval.OutcomeApproved, nil)

	err := newDispatcher(m).HandleEvent(context.Background(), slackevents.EventsAPIEvent{
		Type: slackevents.CallbackEvent,
		InnerEvent: slackevents.EventsAPIInnerEvent{
			Type: "reaction_added",
			Data: &slackevents.ReactionAddedEvent{
				User:     "U100",
				Reaction: "+1",
				Item:     slackevents.Item{Type: "message", Channel: "D1", Timestamp: "1700.4"},
			},
		},
	})
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestHandleEvent_IgnoresOtherEvents(t *testing.T) {
	m := &mockDeps{}
	err := newDispatcher(m).HandleEvent(context.Background(), slackevents.EventsAPIEvent{
		InnerEvent: slackevents.EventsAPIInnerEvent{Type: "app_mention", Data: &slackevents.AppMentionEvent{}},
	})
	require.NoError(t, err)
	assert.Empty(t, m.Calls)
}

func TestHandleReaction_IgnoresOwnReactions(t *testing.T) {
	m := &mockDeps{}
	require.NoError(t, newDispatcher(m).HandleReaction(context.Background(), &slackevents.ReactionAddedEvent{
		User: "UBOT", Reaction: "+1", Item: slackevents.Item{Type: "message", Channel: "D1", Timestamp: "1"},
	}))
	assert.Empty(t, m.Calls)
}

func TestHandleTask(t *testing.T) {
	rec := standup.Record{Person: "Nam Nguyen", Task: "Build X", Status: "Done"}
	issues := []standup.Issue{{ID: "iss-1", Title: "Build X", Status: "To Do"}}
	match := standup.Match{Person: "Nam Nguyen", Task: "Build X", MatchedIssueTitle: standup.Ptr("Build X")}
	task := bus.Task{Record: rec, Source: bus.SourceMessage, SourceID: "C1/1"}

	t.Run("proposes", func(t *testing.T) {
		m := &mockDeps{}
		m.On("ListIssues", mock.Anything).Return(issues, nil)
		m.On("Reconcile", mock.Anything, rec, issues).Return(match, nil)
		m.On("Propose", mock.Anything, match).Return(approval.OutcomePosted, nil)

		require.NoError(t, newDispatcher(m).HandleTask(context.Background(), task))
		m.AssertExpectations(t)
	})

	t.Run("tracker outage retries", func(t *testing.T) {
		m := &mockDeps{}
		m.On("ListIssues", mock.Anything).Return(nil, errors.New("502"))

		err := newDispatcher(m).HandleTask(context.Background(), task)
		require.Error(t, err)
		assert.NotErrorIs(t, err, bus.ErrDrop)
	})

	t.Run("llm failure drops", func(t *testing.T) {
		m := &mockDeps{}
		m.On("ListIssues", mock.Anything).Return(issues, nil)
		m.On("Reconcile", mock.Anything, rec, issues).Return(standup.Match{}, errors.New("quota"))

		assert.ErrorIs(t, newDispatcher(m).HandleTask(context.Background(), task), bus.ErrDrop)
		m.AssertNotCalled(t, "Propose", mock.Anything, mock.Anything)
	})

	t.Run("no contact drops", func(t *testing.T) {
		m := &mockDeps{}
		m.On("ListIssues", mock.Anything).Return(issues, nil)
		m.On("Reconcile", mock.Anything, rec, issues).Return(match, nil)
		m.On("Propose", mock.Anything, match).Return(approval.OutcomeFailed, approval.ErrNoContact)

		assert.ErrorIs(t, newDispatcher(m).HandleTask(context.Background(), task), bus.ErrDrop)
	})

	t.Run("invalid record drops", func(t *testing.T) {
		m := &mockDeps{}
		assert.ErrorIs(t, newDispatcher(m).HandleTask(context.Background(), bus.Task{}), bus.ErrDrop)
		assert.Empty(t, m.Calls)
	})
}
