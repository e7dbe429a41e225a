// Package approval runs the human approval loop for tracker status changes.
//
// A proposal is posted to chat and backed by a pending record keyed by the
// message timestamp. A reaction on that message approves or rejects it. The
// message and the record are created together and removed together, and the
// record is taken atomically so a duplicated reaction can never cause a second
// tracker write.
package approval

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/standupd/internal/chat"
	"github.com/fyrsmithlabs/standupd/internal/logging"
	"github.com/fyrsmithlabs/standupd/internal/pending"
	"github.com/fyrsmithlabs/standupd/internal/telemetry"
)

var (
	// ErrNoContact means the person could not be resolved to a chat user.
	ErrNoContact = errors.New("no contact for person")
	// ErrUnknownUpdate means no pending update exists for the key.
	ErrUnknownUpdate = errors.New("no pending update for message")
)

// Outcome reports what a workflow step did.
type Outcome string

const (
	// OutcomeSkipped: the match needed no change and nothing was posted.
	OutcomeSkipped Outcome = "skipped"
	// OutcomePosted: an approval request is live.
	OutcomePosted Outcome = "posted"
	// OutcomeApproved: the tracker was updated and the request removed.
	OutcomeApproved Outcome = "approved"
	// OutcomeDismissed: an unmatched notice was acknowledged and removed.
	OutcomeDismissed Outcome = "dismissed"
	// OutcomeRejected: the request was removed without a tracker write.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed: the tracker write failed and the request was kept.
	OutcomeFailed Outcome = "failed"
	// OutcomeIgnored: the reaction is neither approval nor rejection.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeNoop: no pending update exists for the message.
	OutcomeNoop Outcome = "noop"
)

// Chat is the subset of the chat client the workflow uses.
type Chat interface {
	Post(ctx context.Context, channel, text string) (chat.Message, error)
	PostThread(ctx context.Context, channel, ts, text string) error
	Delete(ctx context.Context, channel, ts string) error
	LookupByEmail(ctx context.Context, email string) (string, error)
}

// Tracker applies approved status changes.
type Tracker interface {
	SetStatusByTitle(ctx context.Context, title, status string) error
}

// Directory resolves a person's name to an email address.
type Directory interface {
	Lookup(name string) (email string, ok bool)
}

// Options configures a Service.
type Options struct {
	// TeamChannel receives proposals for unidentified people.
	TeamChannel string
	Logger      *logging.Logger
	Telemetry   *telemetry.Telemetry
	// Now and NewID are overridable for tests.
	Now   func() time.Time
	NewID func() string
}

// Service owns the approval state machine.
type Service struct {
	store       pending.Store
	chat        Chat
	tracker     Tracker
	directory   Directory
	teamChannel string

	logger  *logging.Logger
	tracer  trace.Tracer
	metrics *Metrics
	now     func() time.Time
	newID   func() string
}

// New creates a Service.
func New(store pending.Store, c Chat, t Tracker, d Directory, opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	metrics, err := NewMetrics(opts.Telemetry.Meter(InstrumentationName))
	if err != nil {
		return nil, err
	}
	s := &Service{
		store:       store,
		chat:        c,
		tracker:     t,
		directory:   d,
		teamChannel: opts.TeamChannel,
		logger:      logger.Named("approval"),
		tracer:      opts.Telemetry.Tracer(InstrumentationName),
		metrics:     metrics,
		now:         opts.Now,
		newID:       opts.NewID,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}
