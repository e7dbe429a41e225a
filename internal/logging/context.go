package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type eventIDKey struct{}
type messageTSKey struct{}
type updateIDKey struct{}
type loggerKey struct{}

// ContextFields extracts correlation data from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if v := EventIDFromContext(ctx); v != "" {
		fields = append(fields, zap.String("event.id", v))
	}
	if v := MessageTSFromContext(ctx); v != "" {
		fields = append(fields, zap.String("message.ts", v))
	}
	if v := UpdateIDFromContext(ctx); v != "" {
		fields = append(fields, zap.String("update.id", v))
	}
	return fields
}

// WithEventID tags ctx with the Slack event ID being handled.
func WithEventID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, eventIDKey{}, id)
}

// EventIDFromContext returns the event ID, or "".
func EventIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(eventIDKey{}).(string)
	return v
}

// WithMessageTS tags ctx with the chat message timestamp (the pending update key).
func WithMessageTS(ctx context.Context, ts string) context.Context {
	if ts == "" {
		return ctx
	}
	return context.WithValue(ctx, messageTSKey{}, ts)
}

// MessageTSFromContext returns the message timestamp, or "".
func MessageTSFromContext(ctx context.Context) string {
	v, _ := ctx.Value(messageTSKey{}).(string)
	return v
}

// WithUpdateID tags ctx with a pending update ID.
func WithUpdateID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, updateIDKey{}, id)
}

// UpdateIDFromContext returns the update ID, or "".
func UpdateIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(updateIDKey{}).(string)
	return v
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
