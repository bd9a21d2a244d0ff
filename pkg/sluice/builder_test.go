package sluice

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/wayneeseguin/sluice/pkg/backends"
	"github.com/wayneeseguin/sluice/pkg/features"
	"github.com/wayneeseguin/sluice/pkg/types"
)

func TestBuilderFirstErrorSticks(t *testing.T) {
	_, err := NewBuilder().
		WithChannelSize(-5).
		WithLevel(types.Level(42)). // would also fail, must not mask the first
		WithConsoleAppender("console").
		Build()
	if err == nil {
		t.Fatal("Build should fail")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "channel_size" {
		t.Errorf("Build error = %v, want the channel_size failure", err)
	}
}

func TestBuilderRejectsBadInputs(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Builder
		field string
	}{
		{"level out of range", func() *Builder { return NewBuilder().WithLevel(types.Level(-1)) }, "level"},
		{"zero channel", func() *Builder { return NewBuilder().WithChannelSize(0) }, "channel_size"},
		{"empty tag", func() *Builder { return NewBuilder().WithTag("") }, "tag"},
		{"negative drop interval", func() *Builder { return NewBuilder().WithDropReportInterval(-time.Second) }, "drop_report_interval"},
		{"nil formatter", func() *Builder { return NewBuilder().WithFormatter(nil) }, "formatter"},
		{"nil writer", func() *Builder { return NewBuilder().WithWriterAppender("w", nil) }, "appender"},
		{"empty file path", func() *Builder { return NewBuilder().WithFileAppender("f", "") }, "appender"},
		{"empty appender name", func() *Builder { return NewBuilder().WithConsoleAppender("") }, "appender"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().WithConsoleAppender("fallback").Build()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Build = %v, want a ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("error field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestBuilderRequiresAnAppender(t *testing.T) {
	_, err := NewBuilder().Build()
	if err == nil || !strings.Contains(err.Error(), "at least one appender") {
		t.Errorf("Build with no appenders = %v", err)
	}
}

func TestBuilderRejectsDuplicateNames(t *testing.T) {
	_, err := NewBuilder().
		WithConsoleAppender("out").
		WithStdoutAppender("out").
		Build()
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("Build with duplicate names = %v", err)
	}
}

func TestBuilderRejectsUnknownRouteAppender(t *testing.T) {
	_, err := NewBuilder().
		WithConsoleAppender("out").
		WithRoute("server", "ghost", types.LevelInfo).
		Build()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "routes" {
		t.Errorf("Build = %v, want a routes ConfigError", err)
	}
}

func TestBuilderClosesBuiltAppendersOnFailure(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.log")

	// A directory where the second appender expects a file forces the
	// failure after the first appender holds its lock.
	bad := filepath.Join(dir, "bad.log")
	if err := os.Mkdir(bad, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := NewBuilder().
		WithFileAppender("good", good).
		WithFileAppender("bad", bad).
		Build()
	if err == nil {
		t.Fatal("Build should fail on the directory path")
	}

	// The first appender's lock must have been released.
	s, err := New(good)
	if err != nil {
		t.Fatalf("lock leaked from the failed build: %v", err)
	}
	_ = s.Close()
}

func TestBuilderFileOptionsApply(t *testing.T) {
	clk := newFakeClock()
	dir := t.TempDir()
	path := filepath.Join(dir, "opts.log")

	b := NewBuilder().WithFileAppender("root", path,
		WithRotation(features.RotateHour),
		WithRetention(48*time.Hour),
		WithBufferSize(128),
		WithoutLock())
	b.clock = clk.Now
	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer s.Close()

	// Rotation on: the active file carries the period token, the
	// configured path is never created.
	dated := features.DatedPath(path, features.RotateHour, clk.Now())
	s.Infof("present")
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, err := os.Stat(dated); err != nil {
		t.Errorf("dated file missing: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("configured path should not exist, stat err = %v", err)
	}
	// WithoutLock: no lock file next to the path.
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Errorf("lock file should not exist, stat err = %v", err)
	}
}

func TestBuilderPathLockConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locked.log")

	first, err := New(path)
	if err != nil {
		t.Fatalf("first New: %v", err)
	}
	defer first.Close()

	_, err = New(path)
	if !errors.Is(err, backends.ErrPathLocked) {
		t.Errorf("second New on the same path = %v, want ErrPathLocked", err)
	}
}

func TestBuilderRootAppenderSelection(t *testing.T) {
	a := &syncBuffer{}
	b := &syncBuffer{}
	s, err := NewBuilder().
		WithWriterAppender("first", a).
		WithWriterAppender("second", b).
		WithRootAppender("second").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer s.Close()

	s.Infof("unrouted")
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !strings.Contains(b.String(), "unrouted") {
		t.Errorf("unrouted record should land on the named root, got first=%q second=%q", a.String(), b.String())
	}
}

func TestBuilderSizeAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "size.log")
	s, err := NewBuilder().
		WithSizeAppender("root", path, backends.SizeOptions{MaxSizeMB: 1}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	s.Infof("sized")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "sized") {
		t.Errorf("size appender content: %q", data)
	}
}

func TestDefaultChannelSizeFromEnvironment(t *testing.T) {
	t.Setenv("SLUICE_CHANNEL_SIZE", "7")
	if got := defaultChannelSize(); got != 7 {
		t.Errorf("defaultChannelSize = %d, want 7", got)
	}

	t.Setenv("SLUICE_CHANNEL_SIZE", "not-a-number")
	if got := defaultChannelSize(); got != DefaultChannelSize {
		t.Errorf("defaultChannelSize with junk = %d, want %d", got, DefaultChannelSize)
	}

	t.Setenv("SLUICE_CHANNEL_SIZE", "-3")
	if got := defaultChannelSize(); got != DefaultChannelSize {
		t.Errorf("defaultChannelSize with negative = %d, want %d", got, DefaultChannelSize)
	}
}
