// Package tracker is a small Linear GraphQL client covering the reads and
// writes standupd needs.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/config"
	"github.com/fyrsmithlabs/standupd/internal/logging"
)

var (
	// ErrIssueNotFound means no issue has the requested title.
	ErrIssueNotFound = errors.New("no matching issue found")
	// ErrStateNotFound means no workflow state has the requested name.
	ErrStateNotFound = errors.New("no matching status found")
	// ErrInvalidPriority means a priority outside 0..4 was requested.
	ErrInvalidPriority = errors.New("invalid priority level")
)

const maxResponseBytes = 10 << 20

// Client talks to the Linear GraphQL endpoint.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
	retry      *RetryConfig
	logger     *logging.Logger
}

// New creates a Client from cfg.
func New(cfg config.TrackerConfig, logger *logging.Logger) (*Client, error) {
	if cfg.APIKey.Value() == "" {
		return nil, fmt.Errorf("tracker API key is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey.Value(),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("tracker"),
	}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// do runs one GraphQL operation and returns its data object.
func (c *Client) do(ctx context.Context, op, query string, vars map[string]any) (gjson.Result, error) {
	start := time.Now()
	var data gjson.Result
	err := c.withRetry(ctx, op, func() error {
		var err error
		data, err = c.send(ctx, query, vars)
		return err
	})
	result := "ok"
	if err != nil {
		result = "error"
	}
	requestsTotal.WithLabelValues(op, result).Inc()
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn(ctx, "tracker request failed", zap.String("op", op), zap.Error(err))
	}
	return data, err
}

func (c *Client) send(ctx context.Context, query string, vars map[string]any) (gjson.Result, error) {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Linear personal API keys go in the header as is, without a scheme.
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, &transportError{err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		se := &statusError{code: resp.StatusCode, msg: string(body), retryAfter: parseRetryAfter(resp.Header)}
		if msg := gjson.GetBytes(body, "errors.0.message"); msg.Exists() {
			se.msg = msg.String()
		}
		return gjson.Result{}, se
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("linear returned invalid JSON")
	}
	if msg := gjson.GetBytes(body, "errors.0.message"); msg.Exists() {
		return gjson.Result{}, fmt.Errorf("linear GraphQL error: %s", msg.String())
	}
	return gjson.GetBytes(body, "data"), nil
}
