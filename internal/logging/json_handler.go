package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// newJSONHandler writes one object per record keyed ts, level and msg, with
// the caller under "caller" when source is set.
func newJSONHandler(w io.Writer, level slog.Leveler, source bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		AddSource:   source,
		ReplaceAttr: jsonAttr,
	})
}

// jsonAttr renames the built-in keys and renders durations the way the
// console handler does, so "1.5s" reads the same in both formats.
func jsonAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch a.Key {
		case slog.TimeKey:
			if a.Value.Kind() == slog.KindTime {
				return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339))
			}
		case slog.LevelKey:
			return slog.String("level", strings.ToLower(a.Value.String()))
		case slog.SourceKey:
			src, _ := a.Value.Any().(*slog.Source)
			if loc := sourceLocation(src); loc != "" {
				return slog.String("caller", loc)
			}
			return slog.Attr{}
		}
	}
	if a.Value.Kind() == slog.KindDuration {
		a.Value = slog.StringValue(a.Value.Duration().String())
	}
	return a
}
