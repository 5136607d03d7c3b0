package logger

import (
	"log"
	"log/slog"
)

// New returns a stdlib logger that forwards every line to base at level,
// tagged with the component name. Used where a library only accepts *log.Logger.
func New(base *slog.Logger, component string, level slog.Level) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), level)
}
