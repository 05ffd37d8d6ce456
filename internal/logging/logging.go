// File: internal/logging/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// zerolog construction with a level that can be changed at runtime.

package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config selects level and output format.
type Config struct {
	Level  string    // trace, debug, info, warn, error; default info
	Format string    // console or json; default console
	Output io.Writer // default os.Stderr
}

// LevelVar is a zerolog hook that drops events below a level stored atomically.
type LevelVar struct {
	level atomic.Int32
}

// NewLevelVar returns a LevelVar set to l.
func NewLevelVar(l zerolog.Level) *LevelVar {
	v := &LevelVar{}
	v.Set(l)
	return v
}

// Level returns the current minimum level.
func (v *LevelVar) Level() zerolog.Level { return zerolog.Level(v.level.Load()) }

// Set changes the minimum level.
func (v *LevelVar) Set(l zerolog.Level) { v.level.Store(int32(l)) }

// Run implements zerolog.Hook.
func (v *LevelVar) Run(e *zerolog.Event, level zerolog.Level, _ string) {
	if level < v.Level() {
		e.Discard()
	}
}

// New builds a logger and the LevelVar controlling it.
func New(cfg Config) (zerolog.Logger, *LevelVar) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if !strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: consoleTimeFormat}
	}
	lv := NewLevelVar(ParseLevel(cfg.Level, zerolog.InfoLevel))
	logger := zerolog.New(out).With().Timestamp().Logger().Hook(lv)
	return logger, lv
}

// ParseLevel maps a level name to a zerolog level, def when unknown.
func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "OFF", "DISABLED":
		return zerolog.Disabled
	default:
		return def
	}
}
