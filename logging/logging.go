// Package logging adapts zerolog to the auth.Logger interface.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Env   string // development uses the console writer, anything else JSON
	Level string // trace, debug, info, warn, error
	Out   io.Writer
}

// Logger implements auth.Logger. Args are key/value pairs.
type Logger struct {
	zl zerolog.Logger
}

func New(cfg Config) *Logger {
	w := cfg.Out
	if w == nil {
		w = os.Stdout
	}
	if cfg.Env == "" || cfg.Env == "development" {
		w = zerolog.ConsoleWriter{Out: w}
	}

	zl := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	log.Logger = zl

	return &Logger{zl: zl}
}

// FromZerolog wraps an existing zerolog logger
func FromZerolog(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.event(l.zl.Debug(), msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.event(l.zl.Info(), msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.event(l.zl.Warn(), msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.event(l.zl.Error(), msg, args) }

// Named returns a sub logger tagged with component
func (l *Logger) Named(component string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

// Zerolog returns the wrapped logger
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *Logger) event(e *zerolog.Event, msg string, args []any) {
	if len(args) > 0 {
		if len(args)%2 != 0 {
			args = append(args, "(MISSING)")
		}
		for i := 0; i < len(args); i += 2 {
			if err, ok := args[i+1].(error); ok {
				args[i+1] = err.Error()
			}
		}
		e = e.Fields(args)
	}
	e.Msg(msg)
}
