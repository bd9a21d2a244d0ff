package sluice

import (
	"context"
	"log/slog"
	"runtime"
	"strings"

	"github.com/wayneeseguin/sluice/pkg/types"
)

// SlogOptions configures the bridge returned by NewSlogHandler.
type SlogOptions struct {
	// Target is the module path records are attributed to. Empty uses
	// the engine root.
	Target string

	// Tag overrides the engine's default tag.
	Tag string
}

// NewSlogHandler returns a log/slog handler backed by the engine, so
// code written against the standard structured logger feeds the same
// channel, routes and files as native callers. Attributes render as
// key=value pairs appended to the message; groups qualify keys with a
// dotted prefix.
//
//	slogger := slog.New(sluice.NewSlogHandler(engine, nil))
//	slogger.Info("request served", "status", 200)
func NewSlogHandler(s *Sluice, opts *SlogOptions) slog.Handler {
	h := &slogHandler{log: s.Logger}
	if opts != nil {
		if opts.Target != "" {
			h.log = h.log.Named(opts.Target)
		}
		if opts.Tag != "" {
			h.log = h.log.Tagged(opts.Tag)
		}
	}
	return h
}

type slogHandler struct {
	log Logger

	// prerendered holds WithAttrs attributes already formatted with the
	// group prefix in force when they were added.
	prerendered string
	prefix      string
}

func (h *slogHandler) Enabled(_ context.Context, level slog.Level) bool {
	eng := h.log.eng
	return eng != nil && eng.IsLevelEnabled(levelFromSlog(level))
}

func (h *slogHandler) Handle(_ context.Context, r slog.Record) error {
	eng := h.log.eng
	if eng == nil {
		return ErrClosed
	}

	var sb strings.Builder
	sb.WriteString(r.Message)
	sb.WriteString(h.prerendered)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&sb, h.prefix, a)
		return true
	})

	rec := types.Record{
		Level:   levelFromSlog(r.Level),
		Time:    r.Time,
		Message: sb.String(),
	}
	if r.PC != 0 && eng.captureCaller {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		rec.File = frame.File
		rec.Line = frame.Line
	}
	return h.log.Log(rec)
}

func (h *slogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var sb strings.Builder
	sb.WriteString(h.prerendered)
	for _, a := range attrs {
		appendAttr(&sb, h.prefix, a)
	}
	clone := *h
	clone.prerendered = sb.String()
	return &clone
}

func (h *slogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// appendAttr writes one attribute as " key=value", expanding groups
// into dotted keys and resolving LogValuer indirections.
func appendAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(sb, prefix, ga)
		}
		return
	}
	if a.Equal(slog.Attr{}) {
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(prefix)
	sb.WriteString(a.Key)
	sb.WriteByte('=')
	sb.WriteString(a.Value.String())
}

// levelFromSlog maps the slog level space onto the engine's five
// levels. Values between the named slog levels round down, matching
// slog's own convention.
func levelFromSlog(l slog.Level) types.Level {
	switch {
	case l < slog.LevelDebug:
		return types.LevelTrace
	case l < slog.LevelInfo:
		return types.LevelDebug
	case l < slog.LevelWarn:
		return types.LevelInfo
	case l < slog.LevelError:
		return types.LevelWarn
	default:
		return types.LevelError
	}
}
