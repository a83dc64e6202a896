// Package logbuf buffers the log entries of one HTTP request so the
// request middleware can emit them as a single structured record.
package logbuf

import (
	"log/slog"
	"sync"
	"time"
)

type Entry struct {
	Level   string
	Message string
	At      time.Time
	Attrs   []slog.Attr
}

// Logger accumulates entries and attributes until Flush. A root Logger
// carries no buffer; With on a root allocates a fresh one, so each
// request chain gets its own record. Deeper With calls share the
// chain's buffer.
type Logger struct {
	mu      sync.Mutex
	attrs   []slog.Attr
	entries *[]Entry
}

func New(attrs ...slog.Attr) *Logger {
	return &Logger{attrs: attrs}
}

// With returns a child carrying extra attributes. A child of a root
// gets its own buffer; a child of a child keeps writing into the same
// one.
func (l *Logger) With(attrs ...slog.Attr) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	combined := make([]slog.Attr, 0, len(l.attrs)+len(attrs))
	combined = append(combined, l.attrs...)
	combined = append(combined, attrs...)
	entries := l.entries
	if entries == nil {
		entries = &[]Entry{}
	}
	return &Logger{attrs: combined, entries: entries}
}

// Add attaches attributes to the eventual flushed record.
func (l *Logger) Add(attrs ...slog.Attr) {
	l.mu.Lock()
	l.attrs = append(l.attrs, attrs...)
	l.mu.Unlock()
}

func (l *Logger) Info(message string, attrs ...slog.Attr) {
	l.append("info", message, attrs...)
}

func (l *Logger) Warn(message string, attrs ...slog.Attr) {
	l.append("warn", message, attrs...)
}

func (l *Logger) Error(message string, attrs ...slog.Attr) {
	l.append("error", message, attrs...)
}

func (l *Logger) append(level, message string, attrs ...slog.Attr) {
	entry := Entry{Level: level, Message: message, At: time.Now()}
	entry.Attrs = append(entry.Attrs, attrs...)
	l.mu.Lock()
	if l.entries == nil {
		l.entries = &[]Entry{}
	}
	*l.entries = append(*l.entries, entry)
	l.mu.Unlock()
}

// Flush drains the buffer and returns one group attribute holding the
// request attributes plus every buffered entry.
func (l *Logger) Flush() slog.Attr {
	l.mu.Lock()
	var entries []Entry
	if l.entries != nil {
		entries = make([]Entry, len(*l.entries))
		copy(entries, *l.entries)
		*l.entries = (*l.entries)[:0]
	}
	attrs := make([]slog.Attr, len(l.attrs))
	copy(attrs, l.attrs)
	l.mu.Unlock()

	payload := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		record := map[string]any{
			"level":   entry.Level,
			"message": entry.Message,
			"at":      entry.At,
		}
		for _, attr := range entry.Attrs {
			record[attr.Key] = attr.Value.Any()
		}
		payload = append(payload, record)
	}

	args := make([]any, 0, len(attrs)+1)
	for _, attr := range attrs {
		args = append(args, attr)
	}
	args = append(args, slog.Any("entries", payload))
	return slog.Group("", args...)
}
