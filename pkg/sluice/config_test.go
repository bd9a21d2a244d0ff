package sluice

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wayneeseguin/sluice/pkg/types"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sluice.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, fmt.Sprintf(`
level: debug
format: json
tag: svc
channel_size: 512
drop_report_interval: 250ms
root_appender: app
appenders:
  - name: app
    kind: file
    path: %s/current.log
    rotation: hour
    retention: 72h
    compress: true
  - name: console
    kind: console
routes:
  - prefix: server.audit
    appender: console
    level: warn
`, dir))

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Level != "debug" || cfg.Format != "json" || cfg.Tag != "svc" {
		t.Errorf("scalars wrong: %+v", cfg)
	}
	if cfg.ChannelSize != 512 {
		t.Errorf("ChannelSize = %d, want 512", cfg.ChannelSize)
	}
	if len(cfg.Appenders) != 2 || cfg.Appenders[0].Rotation != "hour" || !cfg.Appenders[0].Compress {
		t.Errorf("appenders wrong: %+v", cfg.Appenders)
	}
	if w, err := cfg.Appenders[0].RetentionWindow(); err != nil || w != 72*time.Hour {
		t.Errorf("RetentionWindow = %v/%v, want 72h", w, err)
	}
	if len(cfg.Routes) != 1 || cfg.Routes[0].Prefix != "server.audit" {
		t.Errorf("routes wrong: %+v", cfg.Routes)
	}
	if iv, err := cfg.dropReportInterval(); err != nil || iv != 250*time.Millisecond {
		t.Errorf("dropReportInterval = %v/%v, want 250ms", iv, err)
	}
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("SLUICE_LEVEL", "error")
	path := writeConfigFile(t, `
level: info
appenders:
  - name: console
    kind: console
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Level != "error" {
		t.Errorf("Level = %q, want the environment override", cfg.Level)
	}
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{
			Appenders: []AppenderConfig{{Name: "console", Kind: "console"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad level", func(c *Config) { c.Level = "loud" }, "level"},
		{"bad format", func(c *Config) { c.Format = "xml" }, "format"},
		{"negative channel", func(c *Config) { c.ChannelSize = -1 }, "channel_size"},
		{"bad drop interval", func(c *Config) { c.DropReportInterval = "sometimes" }, "drop_report_interval"},
		{"no appenders", func(c *Config) { c.Appenders = nil }, "at least one appender"},
		{"empty appender name", func(c *Config) { c.Appenders[0].Name = "" }, "name cannot be empty"},
		{"duplicate names", func(c *Config) {
			c.Appenders = append(c.Appenders, AppenderConfig{Name: "console", Kind: "stdout"})
		}, "duplicate"},
		{"unknown kind", func(c *Config) { c.Appenders[0].Kind = "carrier-pigeon" }, "unknown appender kind"},
		{"file without path", func(c *Config) { c.Appenders[0].Kind = "file" }, "needs a path"},
		{"bad rotation", func(c *Config) {
			c.Appenders[0] = AppenderConfig{Name: "f", Kind: "file", Path: "/tmp/x.log", Rotation: "fortnight"}
		}, "rotation"},
		{"retention without rotation", func(c *Config) {
			c.Appenders[0] = AppenderConfig{Name: "f", Kind: "file", Path: "/tmp/x.log", Retention: "24h"}
		}, "retention requires rotation"},
		{"compress without rotation", func(c *Config) {
			c.Appenders[0] = AppenderConfig{Name: "f", Kind: "file", Path: "/tmp/x.log", Compress: true}
		}, "compression requires rotation"},
		{"bad retention duration", func(c *Config) {
			c.Appenders[0] = AppenderConfig{Name: "f", Kind: "file", Path: "/tmp/x.log", Rotation: "day", Retention: "yes"}
		}, "appenders"},
		{"unknown root appender", func(c *Config) { c.RootAppender = "ghost" }, "root_appender"},
		{"empty route prefix", func(c *Config) {
			c.Routes = []RouteConfig{{Prefix: "", Appender: "console"}}
		}, "prefix cannot be empty"},
		{"unknown route appender", func(c *Config) {
			c.Routes = []RouteConfig{{Prefix: "a", Appender: "ghost"}}
		}, "unknown appender"},
		{"bad route level", func(c *Config) {
			c.Routes = []RouteConfig{{Prefix: "a", Appender: "console", Level: "shrill"}}
		}, "routes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestConfigValidateAcceptsDefaults(t *testing.T) {
	cfg := &Config{Appenders: []AppenderConfig{{Name: "console", Kind: "console"}}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("minimal config should validate: %v", err)
	}
}

func TestNewWithConfigEndToEnd(t *testing.T) {
	dir := t.TempDir()
	appPath := filepath.Join(dir, "app.log")
	auditPath := filepath.Join(dir, "audit.log")

	cfg := &Config{
		Level:        "debug",
		RootAppender: "app",
		Appenders: []AppenderConfig{
			{Name: "app", Kind: "file", Path: appPath},
			{Name: "audit", Kind: "file", Path: auditPath},
		},
		Routes: []RouteConfig{
			{Prefix: "server.audit", Appender: "audit", Level: "info"},
			{Prefix: "fallback", Appender: "root"}, // alias for the root appender
		},
	}

	s, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}

	s.Named("server.audit").Infof("login ok")
	s.Named("fallback.sub").Debugf("aliased")
	s.Debugf("root record")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	appData, err := os.ReadFile(appPath)
	if err != nil {
		t.Fatalf("read app log: %v", err)
	}
	auditData, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(auditData), "login ok") {
		t.Errorf("audit log missing routed record: %q", auditData)
	}
	if !strings.Contains(string(appData), "aliased") || !strings.Contains(string(appData), "root record") {
		t.Errorf("app log missing records: %q", appData)
	}
	if strings.Contains(string(appData), "login ok") {
		t.Errorf("routed record duplicated on the root appender")
	}
}

func TestConfigCompileClosesAppendersOnFailure(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.log")
	bad := filepath.Join(dir, "bad.log")
	if err := os.Mkdir(bad, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{
		Appenders: []AppenderConfig{
			{Name: "good", Kind: "file", Path: good},
			{Name: "bad", Kind: "file", Path: bad},
		},
	}
	if _, err := NewWithConfig(cfg); err == nil {
		t.Fatal("NewWithConfig should fail on the directory path")
	}

	// The good appender's lock must be free again.
	s, err := New(good)
	if err != nil {
		t.Fatalf("lock leaked from failed config build: %v", err)
	}
	_ = s.Close()
}

func TestConfigDropReportOff(t *testing.T) {
	for _, raw := range []string{"off", "none", "0"} {
		cfg := &Config{DropReportInterval: raw}
		iv, err := cfg.dropReportInterval()
		if err != nil || iv != 0 {
			t.Errorf("dropReportInterval(%q) = %v/%v, want 0", raw, iv, err)
		}
	}
}

func TestConfigDisableCaller(t *testing.T) {
	cfg := &Config{
		DisableCaller: true,
		Appenders:     []AppenderConfig{{Name: "console", Kind: "console"}},
	}
	opts, err := cfg.compile()
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for _, a := range opts.appenders {
		defer a.app.Close()
	}
	if opts.captureCaller {
		t.Error("DisableCaller should turn caller capture off")
	}
	if opts.level != types.LevelInfo {
		t.Errorf("default level = %v, want info", opts.level)
	}
}
