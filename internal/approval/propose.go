package approval

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/chat"
	"github.com/fyrsmithlabs/standupd/internal/logging"
	"github.com/fyrsmithlabs/standupd/internal/reconcile"
	"github.com/fyrsmithlabs/standupd/internal/standup"
)

// Propose posts an approval request for m when it needs one. Any error means
// nothing was posted and nothing was stored.
func (s *Service) Propose(ctx context.Context, m standup.Match) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "approval.propose")
	defer span.End()

	decision := reconcile.Decide(m)
	span.SetAttributes(attribute.String("decision", decision.String()))
	if decision == reconcile.NoChange {
		s.metrics.recordProposal(ctx, decision.String(), OutcomeSkipped)
		s.logger.Debug(ctx, "no change needed", zap.String("task", m.Task))
		return OutcomeSkipped, nil
	}

	rec := standup.PendingUpdate{
		UpdateID:       s.newID(),
		ExpectedStatus: standup.Deref(m.ExpectedStatus),
		Person:         m.Person,
		CreatedAt:      s.now().UTC(),
	}
	if decision == reconcile.Update {
		rec.Kind = standup.KindUpdate
		rec.IssueTitle = *m.MatchedIssueTitle
		rec.CurrentStatus = standup.Deref(m.CurrentStatus)
	} else {
		rec.Kind = standup.KindUnmatched
		rec.IssueTitle = m.Task
	}
	ctx = logging.WithUpdateID(ctx, rec.UpdateID)

	channel, text, err := s.audience(ctx, rec)
	if err == nil {
		err = s.open(ctx, channel, text, rec)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.recordProposal(ctx, decision.String(), OutcomeFailed)
		s.logger.Error(ctx, "proposal not posted", zap.String("person", m.Person), zap.String("title", rec.IssueTitle), zap.Error(err))
		return OutcomeFailed, err
	}

	span.SetAttributes(attribute.String("outcome", string(OutcomePosted)))
	s.metrics.recordProposal(ctx, decision.String(), OutcomePosted)
	return OutcomePosted, nil
}

// audience picks the channel and wording for rec. Unidentified people go to
// the team channel, everyone else gets a direct message.
func (s *Service) audience(ctx context.Context, rec standup.PendingUpdate) (channel, text string, err error) {
	if !standup.IsIdentified(rec.Person) {
		if s.teamChannel == "" {
			return "", "", fmt.Errorf("no team channel configured for unidentified person")
		}
		if rec.Kind == standup.KindUnmatched {
			return s.teamChannel, teamUnmatchedText(rec), nil
		}
		return s.teamChannel, teamUpdateText(rec), nil
	}

	email, ok := s.directory.Lookup(rec.Person)
	if !ok {
		return "", "", fmt.Errorf("%w: no email for %s", ErrNoContact, rec.Person)
	}
	userID, err := s.chat.LookupByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, chat.ErrUserNotFound) {
			return "", "", fmt.Errorf("%w: no chat user for %s <%s>", ErrNoContact, rec.Person, email)
		}
		return "", "", fmt.Errorf("resolving %s: %w", rec.Person, err)
	}
	if rec.Kind == standup.KindUnmatched {
		return userID, directUnmatchedText(rec.Person, rec), nil
	}
	return userID, directUpdateText(rec.Person, rec), nil
}

// open posts text and stores rec under the new message's timestamp. If the
// record cannot be stored the message is deleted again.
func (s *Service) open(ctx context.Context, channel, text string, rec standup.PendingUpdate) error {
	msg, err := s.chat.Post(ctx, channel, text)
	if err != nil {
		return err
	}
	rec.Channel = msg.Channel
	ctx = logging.WithMessageTS(ctx, msg.TS)

	if err := s.store.Put(ctx, msg.TS, rec); err != nil {
		if delErr := s.chat.Delete(ctx, msg.Channel, msg.TS); delErr != nil {
			s.logger.Error(ctx, "orphaned approval message", zap.String("channel", msg.Channel), zap.Error(delErr))
		}
		return fmt.Errorf("storing pending update: %w", err)
	}
	s.logger.Info(ctx, "approval requested",
		zap.String("kind", string(rec.Kind)),
		zap.String("title", rec.IssueTitle),
		zap.String("channel", msg.Channel))
	return nil
}
