package logger

import corelogger "github.com/kilianp07/marinecast/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Warnw(string, map[string]any)  {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns a Logger for the given component. Output format and level follow
// the settings applied by Configure, or APP_ENV/LOG_LEVEL when unset.
func New(component string) Logger {
	return NewZerologLogger(component)
}
