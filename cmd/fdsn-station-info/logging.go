package main

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// levelFor maps the -v count to a log level: warnings only by default, -v for
// progress, -vv for per-channel rows and request URLs.
func levelFor(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return slog.LevelWarn
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

func newLogger(w io.Writer, verbosity int) *slog.Logger {
	noColor := true
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}

	h := tint.NewHandler(w, &tint.Options{
		Level:      levelFor(verbosity),
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	})
	return slog.New(h)
}
