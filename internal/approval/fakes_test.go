package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/standupd/internal/chat"
	"github.com/fyrsmithlabs/standupd/internal/directory"
	"github.com/fyrsmithlabs/standupd/internal/pending"
	"github.com/fyrsmithlabs/standupd/internal/standup"
	"github.com/fyrsmithlabs/standupd/internal/telemetry"
)

type posted struct {
	Channel  string
	Text     string
	ThreadTS string
}

// fakeChat keeps posted messages in memory. Posting to a user ID lands in a
// "D" channel the way direct messages do.
type fakeChat struct {
	mu       sync.Mutex
	seq      int
	messages map[string]posted
	threads  []posted
	deleted  []string
	users    map[string]string

	postErr   error
	deleteErr error
	// deleteFailures fails that many Delete calls before succeeding.
	deleteFailures int
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		messages: make(map[string]posted),
		users:    map[string]string{"nam@example.com": "U100", "ana@example.com": "U200"},
	}
}

func (f *fakeChat) Post(_ context.Context, channel, text string) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return chat.Message{}, f.postErr
	}
	f.seq++
	ts := fmt.Sprintf("1712345678.%06d", f.seq)
	if strings.HasPrefix(channel, "U") {
		channel = "D" + channel[1:]
	}
	f.messages[ts] = posted{Channel: channel, Text: text}
	return chat.Message{Channel: channel, TS: ts}, nil
}

func (f *fakeChat) PostThread(_ context.Context, channel, ts, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads = append(f.threads, posted{Channel: channel, Text: text, ThreadTS: ts})
	return nil
}

func (f *fakeChat) Delete(_ context.Context, channel, ts string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if f.deleteFailures > 0 {
		f.deleteFailures--
		return errTransport
	}
	if msg, ok := f.messages[ts]; ok && msg.Channel != channel {
		return fmt.Errorf("message %s is in %s, not %s", ts, msg.Channel, channel)
	}
	delete(f.messages, ts)
	f.deleted = append(f.deleted, ts)
	return nil
}

func (f *fakeChat) LookupByEmail(_ context.Context, email string) (string, error) {
	if id, ok := f.users[email]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: %s", chat.ErrUserNotFound, email)
}

func (f *fakeChat) live() map[string]posted {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]posted, len(f.messages))
	for k, v := range f.messages {
		out[k] = v
	}
	return out
}

// only returns the single live message, failing the test otherwise.
func (f *fakeChat) only(t *testing.T) (string, posted) {
	t.Helper()
	live := f.live()
	require.Len(t, live, 1)
	for ts, m := range live {
		return ts, m
	}
	return "", posted{}
}

type mockTracker struct {
	mock.Mock
}

func (m *mockTracker) SetStatusByTitle(ctx context.Context, title, status string) error {
	return m.Called(ctx, title, status).Error(0)
}

// countingStore counts successful mutations on top of a memory store.
type countingStore struct {
	*pending.Memory
	mu        sync.Mutex
	mutations int
	putErr    error
}

func (c *countingStore) Put(ctx context.Context, key string, rec standup.PendingUpdate) error {
	if c.putErr != nil {
		return c.putErr
	}
	err := c.Memory.Put(ctx, key, rec)
	if err == nil {
		c.bump()
	}
	return err
}

func (c *countingStore) Delete(ctx context.Context, key string) error {
	_, found, _ := c.Memory.Get(ctx, key)
	if found {
		c.bump()
	}
	return c.Memory.Delete(ctx, key)
}

func (c *countingStore) Take(ctx context.Context, key string) (standup.PendingUpdate, bool, error) {
	rec, found, err := c.Memory.Take(ctx, key)
	if found {
		c.bump()
	}
	return rec, found, err
}

func (c *countingStore) bump() {
	c.mu.Lock()
	c.mutations++
	c.mu.Unlock()
}

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mutations
}

var errTransport = errors.New("connection reset by peer")

type harness struct {
	svc     *Service
	chat    *fakeChat
	tracker *mockTracker
	store   *countingStore
	tel     *telemetry.TestTelemetry
	clock   *time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir, err := directory.New(
		directory.Person{Name: "Nam Nguyen", Email: "nam@example.com", Aliases: []string{"nam"}},
		directory.Person{Name: "Ana Lopez", Email: "ana@example.com"},
		directory.Person{Name: "Bo Chen", Email: "bo@example.com"}, // not in chat
	)
	require.NoError(t, err)

	h := &harness{
		chat:    newFakeChat(),
		tracker: &mockTracker{},
		store:   &countingStore{Memory: pending.NewMemory()},
		tel:     telemetry.NewTestTelemetry(),
	}
	now := time.Date(2024, 4, 5, 9, 30, 0, 0, time.UTC)
	h.clock = &now
	ids := 0
	h.svc, err = New(h.store, h.chat, h.tracker, dir, Options{
		TeamChannel: "C-STANDUP",
		Telemetry:   h.tel.Telemetry,
		Now:         func() time.Time { return *h.clock },
		NewID: func() string {
			ids++
			return fmt.Sprintf("upd-%d", ids)
		},
	})
	require.NoError(t, err)
	return h
}

func update(person, title, current, expected string) standup.Match {
	return standup.Match{
		Person:            person,
		Task:              "work on " + title,
		CurrentStatus:     standup.Ptr(current),
		ExpectedStatus:    standup.Ptr(expected),
		MatchedIssueTitle: standup.Ptr(title),
	}
}
