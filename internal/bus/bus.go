// Package bus carries extracted tasks from the ingest paths to the
// reconciler over a JetStream stream.
package bus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/config"
	"github.com/fyrsmithlabs/standupd/internal/logging"
	"github.com/fyrsmithlabs/standupd/internal/standup"
)

// Task sources.
const (
	SourceMessage    = "message"
	SourceTranscript = "transcript"
)

// DuplicateWindow is how long the stream remembers message IDs. A task
// published twice within the window is stored once. It spans more than one
// daily ingestion run and any Slack event redelivery.
const DuplicateWindow = 48 * time.Hour

// Task is one extracted record together with where it came from.
type Task struct {
	Record standup.Record `json:"record"`
	Source string         `json:"source"`
	// SourceID is the message timestamp or transcript document ID.
	SourceID string `json:"source_id"`
	Index    int    `json:"index"`
}

// ID identifies the task by where it came from. It ignores the record so a
// second extraction of the same source, which may word things differently,
// maps onto the IDs of the first.
func (t Task) ID() string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d", t.Source, t.SourceID, t.Index)
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Bus publishes and consumes tasks on one stream subject.
type Bus struct {
	js     jetstream.JetStream
	stream jetstream.Stream
	cfg    config.BusConfig
	logger *logging.Logger

	fetchWait  time.Duration
	retryDelay time.Duration
}

// New ensures the stream exists and returns a Bus bound to it.
func New(ctx context.Context, js jetstream.JetStream, cfg config.BusConfig, logger *logging.Logger) (*Bus, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "extracted standup tasks awaiting reconciliation",
		Subjects:    []string{cfg.Subject},
		Retention:   jetstream.WorkQueuePolicy,
		Storage:     jetstream.FileStorage,
		Duplicates:  DuplicateWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("creating stream %s: %w", cfg.Stream, err)
	}
	return &Bus{
		js:         js,
		stream:     stream,
		cfg:        cfg,
		logger:     logger.Named("bus"),
		fetchWait:  fetchWait,
		retryDelay: retryDelay,
	}, nil
}

// Publish appends t to the stream. Duplicates inside DuplicateWindow are
// acknowledged by the server but not stored again.
func (b *Bus) Publish(ctx context.Context, t Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}
	ack, err := b.js.Publish(ctx, b.cfg.Subject, data, jetstream.WithMsgID(t.ID()))
	if err != nil {
		publishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publishing task: %w", err)
	}
	if ack.Duplicate {
		publishedTotal.WithLabelValues("duplicate").Inc()
		b.logger.Debug(ctx, "duplicate task dropped", zap.String("task.id", t.ID()))
		return nil
	}
	publishedTotal.WithLabelValues("ok").Inc()
	return nil
}

// PublishAll publishes records from one source in order, numbering them by
// position. It stops at the first error.
func (b *Bus) PublishAll(ctx context.Context, source, sourceID string, recs []standup.Record) error {
	for i, rec := range recs {
		if err := b.Publish(ctx, Task{Record: rec, Source: source, SourceID: sourceID, Index: i}); err != nil {
			return err
		}
	}
	return nil
}
