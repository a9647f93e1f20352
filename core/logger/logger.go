package logger

// Logger exposes logging methods for common severity levels.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	// Warnw logs a warning with structured fields. Evaluation fallbacks use it
	// so substituted values can be told apart from genuine low scores.
	Warnw(msg string, fields map[string]any)
	Errorf(format string, args ...any)
}
