package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one line per record:
//
//	2006-01-02T15:04:05Z INFO merge: [Title · merge] tracks merged key=value
//
// The component, title and stage attributes form the line's prefix instead of
// being repeated as key=value pairs.
type consoleHandler struct {
	out    io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	source bool
	color  bool
	fields []field
	group  string
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Leveler, source, color bool) *consoleHandler {
	return &consoleHandler{out: w, mu: new(sync.Mutex), level: level, source: source, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	fields := slices.Clip(h.fields)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendField(fields, h.group, a)
		return true
	})

	var component, title, stage string
	pairs := make([]field, 0, len(fields))
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = firstNonEmpty(component, plainValue(f.value))
		case FieldTitle:
			title = firstNonEmpty(title, plainValue(f.value))
		case FieldStage:
			stage = firstNonEmpty(stage, plainValue(f.value))
		default:
			pairs = append(pairs, f)
		}
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.UTC().Format(time.RFC3339))
	b.WriteByte(' ')
	b.WriteString(h.levelTag(r.Level))
	b.WriteByte(' ')
	if component != "" {
		b.WriteString(component)
		b.WriteString(": ")
	}
	if subject := FormatSubject(title, stage); subject != "" {
		b.WriteString("[" + subject + "] ")
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(msg)
	if h.source && r.PC != 0 {
		if loc := sourceLocation(r.Source()); loc != "" {
			b.WriteString(" [" + loc + "]")
		}
	}
	for _, f := range pairs {
		if f.key == "" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(quoted(plainValue(f.value)))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.fields = slices.Clip(h.fields)
	for _, a := range attrs {
		next.fields = appendField(next.fields, h.group, a)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = h.group + name + "."
	return &next
}

// appendField flattens a into dst, joining group names with dots.
func appendField(dst []field, group string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			group += a.Key + "."
		}
		for _, member := range a.Value.Group() {
			dst = appendField(dst, group, member)
		}
		return dst
	}
	key := group + a.Key
	if a.Key == "" {
		key = strings.TrimSuffix(group, ".")
	}
	return append(dst, field{key: key, value: a.Value})
}

var levelColors = map[slog.Level]string{
	slog.LevelDebug: "\x1b[90m",
	slog.LevelInfo:  "\x1b[36m",
	slog.LevelWarn:  "\x1b[33m",
	slog.LevelError: "\x1b[31m",
}

func (h *consoleHandler) levelTag(level slog.Level) string {
	var base slog.Level
	switch {
	case level >= slog.LevelError:
		base = slog.LevelError
	case level >= slog.LevelWarn:
		base = slog.LevelWarn
	case level >= slog.LevelInfo:
		base = slog.LevelInfo
	default:
		base = slog.LevelDebug
	}
	tag := base.String()
	if !h.color {
		return tag
	}
	return levelColors[base] + tag + "\x1b[0m"
}

// plainValue renders v without quoting. Times are UTC RFC 3339 and errors
// render their message.
func plainValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func quoted(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func firstNonEmpty(current, next string) string {
	if current != "" {
		return current
	}
	return next
}
