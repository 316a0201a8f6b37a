// Package zaplog adapts a zap logger to store.Logger.
package zaplog

import (
	store "github.com/goliatone/go-store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes store events to a zap logger. Successful operations log at
// debug level, failures at warn level.
type Logger struct {
	logger *zap.Logger
}

// New wraps logger. A nil logger yields a no-op logger.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("store")}
}

// Log implements store.Logger.
func (l *Logger) Log(event store.LogEvent) {
	level := zapcore.DebugLevel
	if event.Err != nil {
		level = zapcore.WarnLevel
	}
	ce := l.logger.Check(level, "store "+event.Op)
	if ce == nil {
		return
	}
	ce.Write(fields(event)...)
}

func fields(event store.LogEvent) []zap.Field {
	out := []zap.Field{
		zap.String("op", event.Op),
		zap.String("store_id", event.StoreID),
	}
	if event.Selector != "" {
		out = append(out, zap.String("selector", event.Selector))
	}
	if len(event.Keys) > 0 {
		out = append(out, zap.Strings("keys", event.Keys))
	}
	if event.Duration > 0 {
		out = append(out, zap.Duration("duration", event.Duration))
	}
	if event.Err != nil {
		out = append(out, zap.Error(event.Err))
	}
	return out
}

var _ store.Logger = (*Logger)(nil)
