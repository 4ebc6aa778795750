// Package logging builds the process logger: coloured text through tint on a
// terminal, plain text elsewhere, or JSON. Handlers add the request context
// (request id, stage, slug) to every record logged with a context.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"git.home.luguber.info/inful/portfolio/internal/config"
)

// New returns a logger writing to w. Colour is used only when w is a terminal.
func New(w io.Writer, level config.LogLevel, format config.LogFormat) *slog.Logger {
	return newLogger(w, level, format, isTerminal(w))
}

func newLogger(w io.Writer, level config.LogLevel, format config.LogFormat, color bool) *slog.Logger {
	lvl := Level(level)
	var h slog.Handler
	if format == config.LogFormatJSON {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		h = tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: "15:04:05.000",
			NoColor:    !color,
		})
	}
	return slog.New(NewContextHandler(h))
}

// Setup builds the stderr logger for cfg and installs it as slog's default.
func Setup(cfg config.MonitoringLogging) *slog.Logger {
	logger := newLogger(colorable.NewColorable(os.Stderr), cfg.Level, cfg.Format, isTerminal(os.Stderr))
	slog.SetDefault(logger)
	return logger
}

// Level maps a configured level to slog.
func Level(l config.LogLevel) slog.Level {
	switch l {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
