package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/logging"
)

const (
	fetchWait  = 5 * time.Second
	ackWait    = 3 * time.Minute
	maxDeliver = 5
	retryDelay = 10 * time.Second
	// First pause after a failed fetch; it doubles up to fetchWait.
	fetchBackoff = 250 * time.Millisecond
)

// ErrDrop tells the consumer a task can never succeed. The message is
// terminated instead of redelivered.
var ErrDrop = errors.New("drop task")

// Handler processes one task. Returning nil acks the message; ErrDrop
// terminates it; any other error schedules a redelivery.
type Handler func(ctx context.Context, t Task) error

// Consume reads tasks with the durable consumer until ctx is cancelled.
func (b *Bus) Consume(ctx context.Context, h Handler) error {
	cons, err := b.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       b.cfg.Consumer,
		FilterSubject: b.cfg.Subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       ackWait,
		MaxDeliver:    maxDeliver,
	})
	if err != nil {
		return fmt.Errorf("creating consumer %s: %w", b.cfg.Consumer, err)
	}
	b.logger.Info(ctx, "consuming tasks",
		zap.String("stream", b.cfg.Stream),
		zap.String("consumer", b.cfg.Consumer),
		zap.String("subject", b.cfg.Subject))

	var backoff time.Duration
	for {
		if ctx.Err() != nil {
			return nil
		}
		batch, err := cons.Fetch(1, jetstream.FetchMaxWait(b.fetchWait))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			backoff = nextBackoff(backoff, b.fetchWait)
			b.logger.Warn(ctx, "fetch failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0
		for msg := range batch.Messages() {
			b.handle(ctx, msg, h)
		}
		if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, jetstream.ErrNoMessages) {
			b.logger.Warn(ctx, "fetch error", zap.Error(err))
		}
	}
}

func nextBackoff(cur, limit time.Duration) time.Duration {
	next := cur * 2
	if cur == 0 {
		next = fetchBackoff
	}
	if next > limit {
		next = limit
	}
	return next
}

func (b *Bus) handle(ctx context.Context, msg jetstream.Msg, h Handler) {
	if ctx.Err() != nil {
		b.settle(ctx, "nak", msg.Nak())
		return
	}

	var t Task
	if err := json.Unmarshal(msg.Data(), &t); err != nil {
		handledTotal.WithLabelValues("malformed").Inc()
		b.logger.Error(ctx, "quarantining malformed task", zap.Error(err))
		b.settle(ctx, "term", msg.Term())
		return
	}

	ctx = logging.WithEventID(ctx, t.ID())
	err := h(ctx, t)
	switch {
	case err == nil:
		handledTotal.WithLabelValues("ok").Inc()
		b.settle(ctx, "ack", msg.Ack())
	case errors.Is(err, ErrDrop):
		handledTotal.WithLabelValues("dropped").Inc()
		b.logger.Warn(ctx, "task dropped", zap.Error(err))
		b.settle(ctx, "term", msg.Term())
	default:
		handledTotal.WithLabelValues("retry").Inc()
		b.logger.Warn(ctx, "task failed, will retry", zap.Error(err))
		b.settle(ctx, "nak", msg.NakWithDelay(b.retryDelay))
	}
}

func (b *Bus) settle(ctx context.Context, op string, err error) {
	if err != nil {
		b.logger.Warn(ctx, "failed to settle message", zap.String("op", op), zap.Error(err))
	}
}
