// Package logger adapts slog to the logging interfaces third-party
// libraries expect.
package logger

import (
	"log/slog"
	"slices"
)

// Cron routes robfig/cron's internal logging to slog. It satisfies cron.Logger.
type Cron struct {
	log *slog.Logger
}

// NewCron tags every entry with the given component.
func NewCron(base *slog.Logger, component string) Cron {
	if base == nil {
		base = slog.New(slog.DiscardHandler)
	}
	return Cron{log: base.With("component", component)}
}

// Info is emitted by cron for schedule/wake events, which are noisy; keep them at debug.
func (c Cron) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, keysAndValues...)
}

func (c Cron) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(msg, append(slices.Clone(keysAndValues), "error", err)...)
}
