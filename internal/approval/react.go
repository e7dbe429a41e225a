package approval

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/logging"
	"github.com/fyrsmithlabs/standupd/internal/standup"
)

// Reaction is a reaction added to a chat message.
type Reaction struct {
	Channel string
	// TS identifies the message reacted to.
	TS     string
	Symbol string
	User   string
}

type verdict int

const (
	verdictNone verdict = iota
	verdictApprove
	verdictReject
)

func classify(symbol string) verdict {
	// Skin tone variants arrive as "+1::skin-tone-3".
	base, _, _ := strings.Cut(symbol, "::")
	switch base {
	case "+1", "thumbsup":
		return verdictApprove
	case "-1", "thumbsdown":
		return verdictReject
	default:
		return verdictNone
	}
}

// HandleReaction applies r to the pending update on the reacted message.
// Reactions on messages without a pending update are no-ops.
func (s *Service) HandleReaction(ctx context.Context, r Reaction) (outcome Outcome, err error) {
	ctx = logging.WithMessageTS(ctx, r.TS)
	ctx, span := s.tracer.Start(ctx, "approval.react")
	defer func() {
		span.SetAttributes(attribute.String("outcome", string(outcome)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.recordReaction(ctx, outcome)
	}()
	span.SetAttributes(attribute.String("reaction", r.Symbol))

	v := classify(r.Symbol)
	if v == verdictNone {
		if _, found, err := s.store.Get(ctx, r.TS); err == nil && found {
			s.logger.Debug(ctx, "ignoring reaction on pending update", zap.String("reaction", r.Symbol))
		}
		return OutcomeIgnored, nil
	}

	rec, found, err := s.store.Take(ctx, r.TS)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("taking pending update: %w", err)
	}
	if !found {
		return OutcomeNoop, nil
	}
	ctx = logging.WithUpdateID(ctx, rec.UpdateID)
	channel := r.Channel
	if channel == "" {
		channel = rec.Channel
	}

	switch {
	case v == verdictReject:
		if err := s.close(ctx, channel, r.TS, rec); err != nil {
			return OutcomeFailed, err
		}
		s.logger.Info(ctx, "update rejected", zap.String("title", rec.IssueTitle), zap.String("user", r.User))
		return OutcomeRejected, nil

	case rec.Kind == standup.KindUnmatched:
		if err := s.close(ctx, channel, r.TS, rec); err != nil {
			return OutcomeFailed, err
		}
		s.logger.Info(ctx, "unmatched notice dismissed", zap.String("task", rec.IssueTitle), zap.String("user", r.User))
		return OutcomeDismissed, nil
	}

	if err := s.tracker.SetStatusByTitle(ctx, rec.IssueTitle, rec.ExpectedStatus); err != nil {
		s.metrics.recordWrite(ctx, false)
		s.restore(ctx, channel, r.TS, rec, err)
		return OutcomeFailed, fmt.Errorf("updating %q to %q: %w", rec.IssueTitle, rec.ExpectedStatus, err)
	}
	s.metrics.recordWrite(ctx, true)

	// The write is done; leaving the record would invite a second one.
	s.closeApplied(ctx, channel, r.TS, rec)
	s.logger.Info(ctx, "update approved",
		zap.String("title", rec.IssueTitle),
		zap.String("status", rec.ExpectedStatus),
		zap.String("user", r.User))
	return OutcomeApproved, nil
}

// Discard removes the approval request at key, message and record both.
func (s *Service) Discard(ctx context.Context, key string) error {
	ctx = logging.WithMessageTS(ctx, key)
	rec, found, err := s.store.Take(ctx, key)
	if err != nil {
		return fmt.Errorf("taking pending update: %w", err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownUpdate, key)
	}
	if err := s.close(ctx, rec.Channel, key, rec); err != nil {
		return err
	}
	s.metrics.recordReaction(ctx, OutcomeRejected)
	s.logger.Info(ctx, "pending update discarded", zap.String("title", rec.IssueTitle))
	return nil
}

// close deletes the message for a record already taken from the store. If the
// message cannot be deleted the record is put back so the two stay paired.
func (s *Service) close(ctx context.Context, channel, ts string, rec standup.PendingUpdate) error {
	if err := s.chat.Delete(ctx, channel, ts); err != nil {
		if putErr := s.store.Put(ctx, ts, rec); putErr != nil {
			s.logger.Error(ctx, "pending update lost after failed delete", zap.Error(putErr))
		}
		return fmt.Errorf("deleting approval message: %w", err)
	}
	return nil
}

// closeApplied deletes the message of an applied update, retrying once. If the
// message stays, a threaded note marks it as closed.
func (s *Service) closeApplied(ctx context.Context, channel, ts string, rec standup.PendingUpdate) {
	err := s.chat.Delete(ctx, channel, ts)
	if err == nil {
		return
	}
	s.logger.Debug(ctx, "retrying delete of approved message", zap.Error(err))
	if err = s.chat.Delete(ctx, channel, ts); err == nil {
		return
	}
	s.logger.Warn(ctx, "approved message not deleted", zap.Error(err))
	if err := s.chat.PostThread(ctx, channel, ts, appliedText(rec)); err != nil {
		s.logger.Warn(ctx, "applied notice not posted", zap.Error(err))
	}
}

// restore puts rec back after a failed tracker write and tells the approver
// in a thread, so another approval retries the write.
func (s *Service) restore(ctx context.Context, channel, ts string, rec standup.PendingUpdate, cause error) {
	s.logger.Error(ctx, "tracker write failed, keeping approval request",
		zap.String("title", rec.IssueTitle), zap.Error(cause))
	if err := s.store.Put(ctx, ts, rec); err != nil {
		s.logger.Error(ctx, "pending update not restored", zap.Error(err))
	}
	if err := s.chat.PostThread(ctx, channel, ts, failureText(rec, cause)); err != nil {
		s.logger.Warn(ctx, "failure notice not posted", zap.Error(err))
	}
}
