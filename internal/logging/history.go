package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Module  string
	Message string
	Attrs   []string // key=value in record order
}

// String renders the entry as "<RFC3339> [LEVEL] [module] message k=v".
func (e Entry) String() string {
	var sb strings.Builder
	sb.WriteString(e.Time.Format(time.RFC3339Nano))
	sb.WriteString(" [")
	sb.WriteString(e.Level.String())
	sb.WriteString("] [")
	sb.WriteString(e.Module)
	sb.WriteString("] ")
	sb.WriteString(e.Message)
	for _, kv := range e.Attrs {
		sb.WriteByte(' ')
		sb.WriteString(kv)
	}
	return sb.String()
}

// History keeps the most recent entries in a fixed-size ring.
type History struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewHistory creates a ring holding capacity entries.
func NewHistory(capacity int) *History {
	return &History{entries: make([]Entry, capacity)}
}

func (h *History) add(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = e
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

// Len returns the number of entries held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.full {
		return len(h.entries)
	}
	return h.next
}

// Tail returns the newest entries, oldest first. An empty module matches
// every module; limit <= 0 returns everything held. A nil History is empty.
func (h *History) Tail(limit int, module string) []Entry {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	ordered := append([]Entry(nil), h.entries[:h.next]...)
	if h.full {
		ordered = append(append([]Entry(nil), h.entries[h.next:]...), ordered...)
	}
	h.mu.Unlock()

	var out []Entry
	for _, e := range ordered {
		if module == "" || e.Module == module {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// historyHandler is the slog side of History. The "module" attribute is
// lifted into Entry.Module; everything else is flattened to key=value.
type historyHandler struct {
	history *History
	level   slog.Leveler
	module  string
	prefix  string
	attrs   []string
}

func newHistoryHandler(history *History, level slog.Leveler) *historyHandler {
	return &historyHandler{history: history, level: level, module: "app"}
}

func (h *historyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *historyHandler) Handle(_ context.Context, r slog.Record) error {
	module := h.module
	attrs := append([]string(nil), h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "module" && h.prefix == "" {
			module = a.Value.String()
		} else {
			attrs = flatten(attrs, h.prefix, a)
		}
		return true
	})

	h.history.add(Entry{
		Time:    r.Time,
		Level:   r.Level,
		Module:  module,
		Message: r.Message,
		Attrs:   attrs,
	})
	return nil
}

func (h *historyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]string(nil), h.attrs...)
	for _, a := range attrs {
		if a.Key == "module" && h.prefix == "" {
			next.module = a.Value.String()
			continue
		}
		next.attrs = flatten(next.attrs, h.prefix, a)
	}
	return &next
}

func (h *historyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func flatten(dst []string, prefix string, a slog.Attr) []string {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		for _, ga := range v.Group() {
			dst = flatten(dst, prefix+a.Key+".", ga)
		}
		return dst
	case slog.KindTime:
		return append(dst, prefix+a.Key+"="+v.Time().Format(time.RFC3339Nano))
	default:
		return append(dst, prefix+a.Key+"="+v.String())
	}
}
