// Package logging installs the process-wide slog handler.
package logging

import (
	"io"
	"log/slog"

	"github.com/MatusOllah/slogcolor"
)

// Level is the level of the installed handler; setting it takes effect
// immediately, so config reloads can change verbosity.
var Level = new(slog.LevelVar)

// Setup makes a slogcolor handler writing to w the default logger
func Setup(w io.Writer, level slog.Level, color bool) *slog.Logger {
	Level.Set(level)

	opts := *slogcolor.DefaultOptions
	opts.Level = Level
	opts.NoColor = !color

	logger := slog.New(slogcolor.NewHandler(w, &opts))
	slog.SetDefault(logger)
	return logger
}
