// Package llm provides single-turn text completion against Gemini or any
// OpenAI-compatible endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Completer turns a prompt into text. No conversation state is kept between calls.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Config selects and configures a provider.
type Config struct {
	Provider          string
	Model             string
	APIKey            string
	BaseURL           string
	RequestsPerMinute int
	Timeout           time.Duration
	Temperature       float32
}

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("llm returned empty response")

// New builds the configured provider, rate limited and instrumented.
func New(ctx context.Context, cfg Config) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key required", cfg.Provider)
	}

	var (
		base Completer
		err  error
	)
	switch cfg.Provider {
	case ProviderGemini, "":
		cfg.Provider = ProviderGemini
		base, err = newGemini(ctx, cfg)
	case ProviderOpenAI:
		base, err = newOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return Limit(base, cfg.Provider, cfg.RequestsPerMinute, cfg.Timeout), nil
}

// limited applies a request rate, a per-call timeout and metrics to a Completer.
type limited struct {
	next     Completer
	provider string
	limiter  *rate.Limiter
	timeout  time.Duration
}

// Limit wraps next with a requests-per-minute limiter (unlimited when rpm <= 0)
// and a per-call timeout (none when timeout <= 0).
func Limit(next Completer, provider string, rpm int, timeout time.Duration) Completer {
	lim := rate.NewLimiter(rate.Inf, 0)
	if rpm > 0 {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
	return &limited{next: next, provider: provider, limiter: lim, timeout: timeout}
}

func (l *limited) Complete(ctx context.Context, prompt string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		requestsTotal.WithLabelValues(l.provider, "throttled").Inc()
		return "", fmt.Errorf("rate limiter error: %w", err)
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := l.next.Complete(ctx, prompt)
	requestDuration.WithLabelValues(l.provider).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(l.provider, "error").Inc()
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		requestsTotal.WithLabelValues(l.provider, "empty").Inc()
		return "", ErrEmptyResponse
	}
	requestsTotal.WithLabelValues(l.provider, "success").Inc()
	return out, nil
}
