package logging

import (
	"log/slog"
	"slices"
)

// scope is the level, pending attributes and open groups shared by the
// journal and buffer handlers.
type scope struct {
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

func (s scope) enabled(level slog.Level) bool {
	return level >= s.level.Level()
}

func (s scope) withAttrs(attrs []slog.Attr) scope {
	s.attrs = append(slices.Clip(s.attrs), attrs...)
	return s
}

func (s scope) withGroup(name string) scope {
	if name == "" {
		return s
	}
	s.groups = append(slices.Clip(s.groups), name)
	return s
}

// each visits the handler attributes, then the record attributes.
func (s scope) each(r slog.Record, fn func(slog.Attr)) {
	for _, a := range s.attrs {
		fn(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		fn(a)
		return true
	})
}

// levelToString converts slog.Level to a lowercase string.
func levelToString(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
