package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how loggers created by New write.
type Options struct {
	// Level is a zerolog level name such as "debug" or "warn".
	Level string
	// File, when set, mirrors logs into a size-rotated file.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	optsMu  sync.RWMutex
	current Options
	fileOut io.Writer
)

// Configure sets the process-wide logging options used by subsequent calls
// to New.
func Configure(o Options) {
	optsMu.Lock()
	defer optsMu.Unlock()
	current = o
	fileOut = nil
	if o.File != "" {
		fileOut = &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
		}
	}
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger using the APP_ENV environment variable
// to determine the output format. All logs include the provided component field.
func NewZerologLogger(component string) Logger {
	optsMu.RLock()
	o, file := current, fileOut
	optsMu.RUnlock()

	var out io.Writer = os.Stderr
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	if file != nil {
		out = zerolog.MultiLevelWriter(out, file)
	}
	z := zerolog.New(out).With().Timestamp().Str("component", component).Logger()

	level := o.Level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil {
			z = z.Level(lvl)
		}
	}
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Warnw(msg string, fields map[string]any) {
	l.log.Warn().Fields(fields).Msg(msg)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
