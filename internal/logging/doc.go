// Package logging provides structured logging for standupd.
//
// Logger wraps Zap with context-aware methods. Every call pulls correlation
// fields out of the context: trace and span IDs from OpenTelemetry plus the
// Slack event ID, message timestamp and pending update ID when present.
//
//	ctx = logging.WithEventID(ctx, ev.EventID)
//	ctx = logging.WithMessageTS(ctx, reaction.ItemTS)
//	logger.Info(ctx, "reaction handled", zap.String("outcome", "approved"))
//
// Output goes to stdout, the OpenTelemetry log bridge, or both. Field names
// such as token and signing_secret are redacted by the encoder, as are values
// that look like bearer tokens, API keys or Slack tokens. Below-error entries
// are sampled; errors never are.
//
// Tests use NewTestLogger and its Assert helpers.
package logging
