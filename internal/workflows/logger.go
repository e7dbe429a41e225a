package workflows

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/standupd/internal/logging"
)

// zapLogger adapts a logging.Logger to the Temporal SDK logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewTemporalLogger routes SDK and workflow logs through logger.
func NewTemporalLogger(logger *logging.Logger) log.Logger {
	return &zapLogger{s: logger.Named("temporal").Underlying().Sugar()}
}

func (l *zapLogger) Debug(msg string, keyvals ...interface{}) { l.s.Debugw(msg, keyvals...) }
func (l *zapLogger) Info(msg string, keyvals ...interface{})  { l.s.Infow(msg, keyvals...) }
func (l *zapLogger) Warn(msg string, keyvals ...interface{})  { l.s.Warnw(msg, keyvals...) }
func (l *zapLogger) Error(msg string, keyvals ...interface{}) { l.s.Errorw(msg, keyvals...) }

// With returns a logger carrying keyvals on every entry.
func (l *zapLogger) With(keyvals ...interface{}) log.Logger {
	return &zapLogger{s: l.s.With(keyvals...)}
}
