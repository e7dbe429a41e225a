package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/standupd/internal/standup"
)

func TestScenario_ProposeAndApprove(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.tracker.On("SetStatusByTitle", mock.Anything, "Build X", "In Progress").Return(nil).Once()

	outcome, err := h.svc.Propose(ctx, update("Nam", "Build X", "To Do", "In Progress"))
	require.NoError(t, err)
	assert.Equal(t, OutcomePosted, outcome)

	ts, msg := h.chat.only(t)
	assert.Equal(t, "D100", msg.Channel)
	assert.Equal(t, "Hi Nam! I want to update:\n*'Build X'* on Linear\nfrom `To Do` → `In Progress`\nReact with :+1: to approve, or :-1: to reject.", msg.Text)

	rec, found, err := h.store.Get(ctx, ts)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, standup.PendingUpdate{
		UpdateID:       "upd-1",
		IssueTitle:     "Build X",
		ExpectedStatus: "In Progress",
		CurrentStatus:  "To Do",
		Kind:           standup.KindUpdate,
		Channel:        "D100",
		Person:         "Nam",
		CreatedAt:      *h.clock,
	}, rec)

	outcome, err = h.svc.HandleReaction(ctx, Reaction{Channel: "D100", TS: ts, Symbol: "+1", User: "U100"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, outcome)

	h.tracker.AssertExpectations(t)
	_, found, _ = h.store.Get(ctx, ts)
	assert.False(t, found)
	assert.Empty(t, h.chat.live())
}

func TestScenario_AlreadyUpToDate(t *testing.T) {
	h := newHarness(t)

	for _, expected := range []string{"In Progress", " in progress "} {
		outcome, err := h.svc.Propose(context.Background(), update("Nam", "Build X", "In Progress", expected))
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, outcome)
	}
	assert.Empty(t, h.chat.live())
	assert.Zero(t, h.store.count())
}

func TestScenario_UnmatchedNeverWrites(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	outcome, err := h.svc.Propose(ctx, standup.Match{
		Person:         "Ana",
		Task:           "Plan the team offsite",
		ExpectedStatus: standup.Ptr("in progress"),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomePosted, outcome)

	ts, msg := h.chat.only(t)
	assert.Contains(t, msg.Text, "*'Plan the team offsite'*")
	assert.Contains(t, msg.Text, "no Linear issue")
	assert.Contains(t, msg.Text, "`In Progress`")

	rec, _, _ := h.store.Get(ctx, ts)
	assert.Equal(t, standup.KindUnmatched, rec.Kind)
	assert.Equal(t, "Plan the team offsite", rec.IssueTitle)
	assert.Empty(t, rec.CurrentStatus)

	outcome, err = h.svc.HandleReaction(ctx, Reaction{Channel: msg.Channel, TS: ts, Symbol: "thumbsup"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDismissed, outcome)
	h.tracker.AssertNotCalled(t, "SetStatusByTitle", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, h.chat.live())
}

func TestScenario_DuplicateReaction(t *testing.T) {
	for _, second := range []string{"+1", "-1", "eyes"} {
		t.Run(second, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t)
			h.tracker.On("SetStatusByTitle", mock.Anything, "Build X", "Done").Return(nil)

			_, err := h.svc.Propose(ctx, update("Nam", "Build X", "In Review", "Done"))
			require.NoError(t, err)
			ts, msg := h.chat.only(t)

			outcome, err := h.svc.HandleReaction(ctx, Reaction{Channel: msg.Channel, TS: ts, Symbol: "+1"})
			require.NoError(t, err)
			require.Equal(t, OutcomeApproved, outcome)

			outcome, err = h.svc.HandleReaction(ctx, Reaction{Channel: msg.Channel, TS: ts, Symbol: second})
			require.NoError(t, err)
			assert.Contains(t, []Outcome{OutcomeNoop, OutcomeIgnored}, outcome)
			h.tracker.AssertNumberOfCalls(t, "SetStatusByTitle", 1)
		})
	}
}

func TestHandleReaction_NoPendingUpdate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	for _, symbol := range []string{"+1", "thumbsup", "-1", "thumbsdown", "tada"} {
		outcome, err := h.svc.HandleReaction(ctx, Reaction{Channel: "C1", TS: "1700000000.000001", Symbol: symbol})
		require.NoError(t, err)
		assert.Contains(t, []Outcome{OutcomeNoop, OutcomeIgnored}, outcome)
	}
	h.tracker.AssertNotCalled(t, "SetStatusByTitle", mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, h.store.count())
	assert.Empty(t, h.chat.deleted)
}

func TestHandleReaction_Reject(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.Propose(ctx, update("Nam", "Build X", "To Do", "Done"))
	require.NoError(t, err)
	ts, msg := h.chat.only(t)

	outcome, err := h.svc.HandleReaction(ctx, Reaction{Channel: msg.Channel, TS: ts, Symbol: "-1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, outcome)

	h.tracker.AssertNotCalled(t, "SetStatusByTitle", mock.Anything, mock.Anything, mock.Anything)
	_, found, _ := h.store.Get(ctx, ts)
	assert.False(t, found)
	assert.Empty(t, h.chat.live())
}

func TestHandleReaction_OtherSymbolLeavesRecord(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.Propose(ctx, update("Nam", "Build X", "To Do", "Done"))
	require.NoError(t, err)
	ts, msg := h.chat.only(t)
	before := h.store.count()

	outcome, err := h.svc.HandleReaction(ctx, Reaction{Channel: msg.Channel, TS: ts, Symbol: "eyes"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Equal(t, before, h.store.count())
	_, found, _ := h.store.Get(ctx, ts)
	assert.True(t, found)
	assert.Len(t, h.chat.live(), 1)
}

func TestHandleReaction_SkinToneVariants(t *testing.T) {
	assert.Equal(t, verdictApprove, classify("+1::skin-tone-3"))
	assert.Equal(t, verdictReject, classify("thumbsdown::skin-tone-6"))
	assert.Equal(t, verdictNone, classify("heart"))
	assert.Equal(t, verdictNone, classify(""))
}

func TestRoundTrip_UsesStoredExpectedStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.tracker.On("SetStatusByTitle", mock.Anything, "Fix login redirect", "in review").Return(nil).Once()

	m := update("Ana Lopez", "Fix login redirect", "In Progress", "in review")
	_, err := h.svc.Propose(ctx, m)
	require.NoError(t, err)
	ts, msg := h.chat.only(t)

	// Later changes to the match must not leak into the write.
	*m.ExpectedStatus = "Done"

	outcome, err := h.svc.HandleReaction(ctx, Reaction{Channel: msg.Channel, TS: ts, Symbol: "+1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, outcome)
	h.tracker.AssertExpectations(t)
}

func TestPropose_UnidentifiedGoesToTeamChannel(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Propose(context.Background(), update(standup.Unidentified, "Build X", "to do", "in progress"))
	require.NoError(t, err)

	_, msg := h.chat.only(t)
	assert.Equal(t, "C-STANDUP", msg.Channel)
	assert.Equal(t, "Hello team! :wave: I want to update:\n*Build X* on Linear\nfrom `To Do` → `In Progress`\nReact with :+1: to approve update, or :-1: to cancel", msg.Text)
}

func TestPropose_ContactFailures(t *testing.T) {
	tests := []struct {
		name   string
		person string
		want   string
	}{
		{"not in directory", "Zed Zimmer", "Zed Zimmer"},
		{"not in chat workspace", "Bo Chen", "Bo Chen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			outcome, err := h.svc.Propose(context.Background(), update(tt.person, "Build X", "To Do", "Done"))
			require.ErrorIs(t, err, ErrNoContact)
			assert.ErrorContains(t, err, tt.want)
			assert.Equal(t, OutcomeFailed, outcome)
			assert.Empty(t, h.chat.live())
			assert.Zero(t, h.store.count())
		})
	}
}

func TestPropose_PostFailureStoresNothing(t *testing.T) {
	h := newHarness(t)
	h.chat.postErr = errTransport

	_, err := h.svc.Propose(context.Background(), update("Nam", "Build X", "To Do", "Done"))
	require.ErrorIs(t, err, errTransport)
	assert.Zero(t, h.store.count())
}

func TestPropose_StoreFailureDeletesMessage(t *testing.T) {
	h := newHarness(t)
	h.store.putErr = errTransport

	_, err := h.svc.Propose(context.Background(), update("Nam", "Build X", "To Do", "Done"))
	require.ErrorIs(t, err, errTransport)
	assert.Empty(t, h.chat.live(), "message removed when its record could not be stored")
	assert.Len(t, h.chat.deleted, 1)
}

func TestApprove_TrackerFailureKeepsRequest(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.tracker.On("SetStatusByTitle", mock.Anything, "Build X", "Done").Return(errTransport).Once()
	h.tracker.On("SetStatusByTitle", mock.Anything, "Build X", "Done").Return(nil).Once()

	_, err := h.svc.Propose(ctx, update("Nam", "Build X", "To Do", "Done"))
	require.NoError(t, err)
	ts, msg := h.chat.only(t)

	outcome, err := h.svc.HandleReaction(ctx, Reaction{Channel: msg.Channel, TS: ts, Symbol: "+1"})
	require.ErrorIs(t, err, errTransport)
	assert.Equal(t, OutcomeFailed, outcome)

	_, found, _ := h.store.Get(ctx, ts)
	assert.True(t, found, "record restored for retry")
	assert.Len(t, h.chat.live(), 1, "message kept")
	require.Len(t, h.chat.threads, 1)
	assert.Equal(t, ts, h.chat.threads[0].ThreadTS)
	assert.Contains(t, h.chat.threads[0].Text, "connection reset by peer")

	// Reacting again retries the write.
	outcome, err = h.svc.HandleReaction(ctx, Reaction{Channel: msg.Channel, TS: ts, Symbol: "+1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, outcome)
	h.tracker.AssertExpectations(t)
	assert.Empty(t, h.chat.live())
}

func TestApprove_DeleteRetriedOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.tracker.On("SetStatusByTitle", mock.Anything, "Build X", "Done").Return(nil).Once()

	_, err := h.svc.Propose(ctx, update("Nam", "Build X", "To Do", "Done"))
	require.NoError(t, err)
	ts, msg := h.chat.only(t)
	h.chat.deleteFailures = 1

	outcome, err := h.svc.HandleReaction(ctx, Reaction{Channel: msg.Channel, TS: ts, Symbol: "+1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, outcome)
	assert.Empty(t, h.chat.live())
	assert.Empty(t, h.chat.threads)
}

func TestApprove_UndeletableMessageGetsAppliedNote(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.tracker.On("SetStatusByTitle", mock.Anything, "Build X", "Done").Return(nil).Once()

	_, err := h.svc.Propose(ctx, update("Nam", "Build X", "To Do", "Done"))
	require.NoError(t, err)
	ts, msg := h.chat.only(t)
	h.chat.deleteErr = errTransport

	outcome, err := h.svc.HandleReaction(ctx, Reaction{Channel: msg.Channel, TS: ts, Symbol: "+1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApproved, outcome)

	_, found, _ := h.store.Get(ctx, ts)
	assert.False(t, found)
	require.Len(t, h.chat.threads, 1)
	assert.Equal(t, ts, h.chat.threads[0].ThreadTS)
	assert.Equal(t, ":white_check_mark: *Build X* is now `Done` on Linear. This request is closed, so further reactions do nothing.", h.chat.threads[0].Text)

	// A later reaction finds no record and writes nothing.
	outcome, err = h.svc.HandleReaction(ctx, Reaction{Channel: msg.Channel, TS: ts, Symbol: "+1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, outcome)
	h.tracker.AssertExpectations(t)
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Nam", firstName("nam nguyen"))
	assert.Equal(t, "Élodie", firstName("élodie martin"))
	assert.Equal(t, "there", firstName("  "))
}

func TestReject_DeleteFailureKeepsPair(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.Propose(ctx, update("Nam", "Build X", "To Do", "Done"))
	require.NoError(t, err)
	ts, msg := h.chat.only(t)
	h.chat.deleteErr = errTransport

	_, err = h.svc.HandleReaction(ctx, Reaction{Channel: msg.Channel, TS: ts, Symbol: "-1"})
	require.ErrorIs(t, err, errTransport)
	_, found, _ := h.store.Get(ctx, ts)
	assert.True(t, found)
}

func TestConcurrentApprovals_WriteOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.tracker.On("SetStatusByTitle", mock.Anything, "Build X", "Done").Return(nil)

	_, err := h.svc.Propose(ctx, update("Nam", "Build X", "To Do", "Done"))
	require.NoError(t, err)
	ts, msg := h.chat.only(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.svc.HandleReaction(ctx, Reaction{Channel: msg.Channel, TS: ts, Symbol: "+1"})
		}()
	}
	wg.Wait()
	h.tracker.AssertNumberOfCalls(t, "SetStatusByTitle", 1)
}

// Abandoned requests are never expired: with no reaction a record and its
// message stay forever. This documents an accepted gap.
func TestAbandonedRequestIsNeverExpired(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.Propose(ctx, update("Nam", "Build X", "To Do", "Done"))
	require.NoError(t, err)
	ts, _ := h.chat.only(t)

	*h.clock = h.clock.Add(365 * 24 * time.Hour)
	_, err = h.svc.Propose(ctx, update("Ana", "Fix login", "To Do", "Done"))
	require.NoError(t, err)

	_, found, err := h.store.Get(ctx, ts)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, h.chat.live(), 2)
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.svc.Propose(ctx, update("Nam", "Build X", "To Do", "Done"))
	require.NoError(t, err)
	ts, _ := h.chat.only(t)

	require.NoError(t, h.svc.Discard(ctx, ts))
	assert.Empty(t, h.chat.live())
	_, found, _ := h.store.Get(ctx, ts)
	assert.False(t, found)

	assert.ErrorIs(t, h.svc.Discard(ctx, ts), ErrUnknownUpdate)
}

func TestTelemetry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.tracker.On("SetStatusByTitle", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := h.svc.Propose(ctx, update("Nam", "Build X", "To Do", "Done"))
	require.NoError(t, err)
	ts, msg := h.chat.only(t)
	_, err = h.svc.HandleReaction(ctx, Reaction{Channel: msg.Channel, TS: ts, Symbol: "+1"})
	require.NoError(t, err)

	h.tel.AssertSpanAttribute(t, "approval.propose", "decision", "update")
	h.tel.AssertSpanAttribute(t, "approval.react", "outcome", "approved")
	assert.Equal(t, int64(1), h.tel.CounterValue(ctx, "approval.reactions.total", attribute.String("outcome", "approved")))
	assert.Equal(t, int64(1), h.tel.CounterValue(ctx, "approval.tracker_writes.total", attribute.String("result", "ok")))
	assert.Equal(t, int64(1), h.tel.CounterValue(ctx, "approval.proposals.total", attribute.String("kind", "update")))
}
