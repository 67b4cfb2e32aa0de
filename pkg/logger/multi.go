package logger

import (
	"context"
	"log/slog"
)

// Multi creates a *slog.Logger whose records reach every given logger's
// handler. The serve command uses it to pair pretty console output with a
// structured log file.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	fo := &fanout{targets: make([]slog.Handler, 0, len(loggers))}
	for _, l := range loggers {
		fo.targets = append(fo.targets, l.Handler())
	}
	return slog.New(fo)
}

// fanout replicates each record to every target handler that accepts its
// level.
type fanout struct {
	targets []slog.Handler
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, t := range f.targets {
		if t.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, t := range f.targets {
		if !t.Enabled(ctx, r.Level) {
			continue
		}
		if err := t.Handle(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.targets))
	for i, t := range f.targets {
		next[i] = t.WithAttrs(attrs)
	}
	return &fanout{targets: next}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.targets))
	for i, t := range f.targets {
		next[i] = t.WithGroup(name)
	}
	return &fanout{targets: next}
}
