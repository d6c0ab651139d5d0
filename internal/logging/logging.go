package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	pionlogging "github.com/pion/logging"
	"github.com/rs/zerolog"
)

// ParseLevel maps a config/env level name to a zerolog level.
func ParseLevel(raw string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off", "none":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", raw)
	}
}

// New returns the process logger. console selects the human-readable writer.
func New(app string, level zerolog.Level, w io.Writer, console bool) zerolog.Logger {
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("app", app).Logger()
}

var _ pionlogging.LoggerFactory = (*Factory)(nil)

// Factory adapts a zerolog.Logger to the pion LoggerFactory used by library packages.
type Factory struct {
	base zerolog.Logger
}

// NewFactory returns a factory whose loggers write through base with a "scope" field.
func NewFactory(base zerolog.Logger) *Factory {
	return &Factory{base: base}
}

func (f *Factory) NewLogger(scope string) pionlogging.LeveledLogger {
	return &leveled{l: f.base.With().Str("scope", scope).Logger()}
}

type leveled struct {
	l zerolog.Logger
}

func (z *leveled) Trace(msg string)                  { z.l.Trace().Msg(msg) }
func (z *leveled) Tracef(format string, args ...any) { z.l.Trace().Msgf(format, args...) }
func (z *leveled) Debug(msg string)                  { z.l.Debug().Msg(msg) }
func (z *leveled) Debugf(format string, args ...any) { z.l.Debug().Msgf(format, args...) }
func (z *leveled) Info(msg string)                   { z.l.Info().Msg(msg) }
func (z *leveled) Infof(format string, args ...any)  { z.l.Info().Msgf(format, args...) }
func (z *leveled) Warn(msg string)                   { z.l.Warn().Msg(msg) }
func (z *leveled) Warnf(format string, args ...any)  { z.l.Warn().Msgf(format, args...) }
func (z *leveled) Error(msg string)                  { z.l.Error().Msg(msg) }
func (z *leveled) Errorf(format string, args ...any) { z.l.Error().Msgf(format, args...) }
