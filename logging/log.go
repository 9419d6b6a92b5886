// Package logging provides the logging collaborator this module emits
// diagnostics through: a thin log/slog wrapper, the same shape the
// surrounding library's own logger takes, so callers can swap the
// default handler without this module depending on a logging framework.
package logging

import (
	"log/slog"
	"os"
)

var defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// SetDefault replaces the logger components obtained via Logger draw
// from going forward.
func SetDefault(l *slog.Logger) {
	defaultLogger = l
}

// LazyLogger reads this package's current default logger on every call,
// so switching the default via SetDefault takes effect for loggers
// already handed out.
type LazyLogger struct {
	component string
}

func (l *LazyLogger) Debug(msg string, args ...any) { defaultLogger.With("component", l.component).Debug(msg, args...) }
func (l *LazyLogger) Info(msg string, args ...any)  { defaultLogger.With("component", l.component).Info(msg, args...) }
func (l *LazyLogger) Warn(msg string, args ...any)  { defaultLogger.With("component", l.component).Warn(msg, args...) }
func (l *LazyLogger) Error(msg string, args ...any) { defaultLogger.With("component", l.component).Error(msg, args...) }

// Logger returns a component-tagged logger.
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}
