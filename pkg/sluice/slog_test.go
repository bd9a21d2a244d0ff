package sluice

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/wayneeseguin/sluice/pkg/types"
)

func TestSlogLevelMapping(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want types.Level
	}{
		{slog.LevelDebug - 4, types.LevelTrace},
		{slog.LevelDebug, types.LevelDebug},
		{slog.LevelDebug + 2, types.LevelDebug}, // between debug and info rounds down
		{slog.LevelInfo, types.LevelInfo},
		{slog.LevelWarn, types.LevelWarn},
		{slog.LevelError, types.LevelError},
		{slog.LevelError + 8, types.LevelError},
	}
	for _, tt := range tests {
		if got := levelFromSlog(tt.in); got != tt.want {
			t.Errorf("levelFromSlog(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	s, _ := newTestEngine(t, func(b *Builder) {
		b.WithLevel(types.LevelWarn)
	})
	h := NewSlogHandler(s, nil)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestSlogHandlerWritesThroughEngine(t *testing.T) {
	s, buf := newTestEngine(t, nil)
	logger := slog.New(NewSlogHandler(s, &SlogOptions{Target: "server.http", Tag: "req"}))

	logger.Info("request served", "status", 200, "path", "/healthz")
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "request served status=200 path=/healthz") {
		t.Errorf("attrs should render as key=value pairs: %q", got)
	}
	if !strings.Contains(got, "req/server.http") {
		t.Errorf("line should carry the handler's target and tag: %q", got)
	}
	if !strings.Contains(got, "INFO") {
		t.Errorf("line should carry the mapped level: %q", got)
	}
}

func TestSlogHandlerGroupsQualifyKeys(t *testing.T) {
	s, buf := newTestEngine(t, nil)
	logger := slog.New(NewSlogHandler(s, nil))

	logger.WithGroup("req").With("id", 7).Info("done", "ms", 12)
	logger.Info("grouped inline", slog.Group("db", slog.String("table", "users")))
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "done req.id=7 req.ms=12") {
		t.Errorf("group prefix should qualify both With and call attrs: %q", got)
	}
	if !strings.Contains(got, "grouped inline db.table=users") {
		t.Errorf("inline groups should expand to dotted keys: %q", got)
	}
}

func TestSlogHandlerRespectsEngineLevel(t *testing.T) {
	s, buf := newTestEngine(t, func(b *Builder) {
		b.WithLevel(types.LevelError)
	})
	logger := slog.New(NewSlogHandler(s, nil))

	logger.Info("quiet")
	logger.Error("loud")
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	lines := buf.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "loud") {
		t.Errorf("only the error record should emit, got %v", lines)
	}
}

func TestSlogHandlerAfterClose(t *testing.T) {
	s, _ := newTestEngine(t, nil)
	h := NewSlogHandler(s, nil)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var rec slog.Record
	rec.Message = "late"
	rec.Level = slog.LevelError
	if err := h.Handle(context.Background(), rec); err == nil {
		t.Error("Handle after Close should surface an error")
	}
}
