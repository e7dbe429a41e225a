package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/logging"
)

// handleEvents verifies the request signature, answers URL verification
// challenges and hands callbacks to the event handler.
func (s *Server) handleEvents(c echo.Context) error {
	req := c.Request()
	ctx := req.Context()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	verifier, err := slack.NewSecretsVerifier(req.Header, s.signingSecret)
	if err != nil {
		s.logger.Warn(ctx, "missing slack signature headers", zap.Error(err))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}
	if _, err := verifier.Write(body); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	if err := verifier.Ensure(); err != nil {
		s.logger.Warn(ctx, "slack signature mismatch", zap.Error(err))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	ev, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		s.logger.Warn(ctx, "unparseable slack event", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event")
	}

	switch ev.Type {
	case slackevents.URLVerification:
		var ch slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &ch); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid challenge")
		}
		return c.String(http.StatusOK, ch.Challenge)
	case slackevents.CallbackEvent:
		if req.Header.Get("X-Slack-Retry-Num") != "" {
			// Events are handled after the ack, so a retry means Slack timed
			// out on a delivery that is already being processed.
			s.logger.Debug(ctx, "ignoring slack retry", zap.String("reason", req.Header.Get("X-Slack-Retry-Reason")))
			return c.NoContent(http.StatusOK)
		}
		s.dispatch(ctx, ev)
		return c.NoContent(http.StatusOK)
	default:
		return c.NoContent(http.StatusOK)
	}
}

func (s *Server) dispatch(reqCtx context.Context, ev slackevents.EventsAPIEvent) {
	ctx := context.WithoutCancel(reqCtx)
	if cb, ok := ev.Data.(*slackevents.EventsAPICallbackEvent); ok {
		ctx = logging.WithEventID(ctx, cb.EventID)
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error(ctx, "event handler panicked", zap.Any("panic", r))
			}
		}()
		if err := s.handler.HandleEvent(ctx, ev); err != nil {
			s.logger.Error(ctx, "event handling failed", zap.String("type", ev.InnerEvent.Type), zap.Error(err))
		}
	}()
}
