// Package chat wraps the Slack Web API calls standupd makes.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/config"
	"github.com/fyrsmithlabs/standupd/internal/logging"
)

// ErrUserNotFound means no workspace member has the requested email.
var ErrUserNotFound = errors.New("chat user not found")

// Message identifies a posted message. TS doubles as its ID.
type Message struct {
	Channel string
	TS      string
}

// Client posts and deletes messages and resolves users.
type Client struct {
	api    *slack.Client
	logger *logging.Logger
}

// New creates a Client from cfg.
func New(cfg config.SlackConfig, logger *logging.Logger) (*Client, error) {
	if !cfg.BotToken.IsSet() {
		return nil, fmt.Errorf("slack bot token is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var opts []slack.Option
	if cfg.APIURL != "" {
		opts = append(opts, slack.OptionAPIURL(strings.TrimSuffix(cfg.APIURL, "/")+"/"))
	}
	return &Client{
		api:    slack.New(cfg.BotToken.Value(), opts...),
		logger: logger.Named("chat"),
	}, nil
}

// Post sends text to channel. Posting to a user ID opens a direct message; the
// returned Message carries the resolved DM channel.
func (c *Client) Post(ctx context.Context, channel, text string) (Message, error) {
	ch, ts, err := c.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		apiCallsTotal.WithLabelValues("post", "error").Inc()
		return Message{}, fmt.Errorf("posting to %s: %w", channel, err)
	}
	apiCallsTotal.WithLabelValues("post", "ok").Inc()
	return Message{Channel: ch, TS: ts}, nil
}

// PostThread replies to the message ts in channel.
func (c *Client) PostThread(ctx context.Context, channel, ts, text string) error {
	if _, _, err := c.api.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false), slack.MsgOptionTS(ts)); err != nil {
		apiCallsTotal.WithLabelValues("post_thread", "error").Inc()
		return fmt.Errorf("replying in %s/%s: %w", channel, ts, err)
	}
	apiCallsTotal.WithLabelValues("post_thread", "ok").Inc()
	return nil
}

// Delete removes the message ts from channel. A message that is already gone
// is not an error.
func (c *Client) Delete(ctx context.Context, channel, ts string) error {
	_, _, err := c.api.DeleteMessageContext(ctx, channel, ts)
	if err != nil && !isSlackError(err, "message_not_found") {
		apiCallsTotal.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("deleting %s/%s: %w", channel, ts, err)
	}
	apiCallsTotal.WithLabelValues("delete", "ok").Inc()
	return nil
}

// LookupByEmail returns the user ID for email.
func (c *Client) LookupByEmail(ctx context.Context, email string) (string, error) {
	user, err := c.api.GetUserByEmailContext(ctx, email)
	if err != nil {
		if isSlackError(err, "users_not_found") {
			apiCallsTotal.WithLabelValues("lookup_by_email", "not_found").Inc()
			return "", fmt.Errorf("%w: %s", ErrUserNotFound, email)
		}
		apiCallsTotal.WithLabelValues("lookup_by_email", "error").Inc()
		return "", fmt.Errorf("looking up %s: %w", email, err)
	}
	apiCallsTotal.WithLabelValues("lookup_by_email", "ok").Inc()
	return user.ID, nil
}

// DisplayName returns a readable name for userID: the handle with dots
// turned into spaces ("nam.nguyen" becomes "nam nguyen").
func (c *Client) DisplayName(ctx context.Context, userID string) (string, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		apiCallsTotal.WithLabelValues("user_info", "error").Inc()
		return "", fmt.Errorf("fetching user %s: %w", userID, err)
	}
	apiCallsTotal.WithLabelValues("user_info", "ok").Inc()
	name := user.Name
	if name == "" {
		name = user.RealName
	}
	c.logger.Debug(ctx, "resolved user name", zap.String("user", userID), zap.String("name", name))
	return strings.ReplaceAll(name, ".", " "), nil
}

func isSlackError(err error, code string) bool {
	var se slack.SlackErrorResponse
	if errors.As(err, &se) {
		return se.Err == code
	}
	return err != nil && err.Error() == code
}
