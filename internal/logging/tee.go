package logging

import (
	"context"
	"log/slog"
)

// tee sends each record to every handler enabled for its level.
type tee []slog.Handler

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(tee, len(t))
	for i, h := range t {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (t tee) WithGroup(name string) slog.Handler {
	next := make(tee, len(t))
	for i, h := range t {
		next[i] = h.WithGroup(name)
	}
	return next
}
