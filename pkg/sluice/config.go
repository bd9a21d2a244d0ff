package sluice

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/wayneeseguin/sluice/pkg/backends"
	"github.com/wayneeseguin/sluice/pkg/features"
	"github.com/wayneeseguin/sluice/pkg/formatters"
	"github.com/wayneeseguin/sluice/pkg/types"
)

// Config is the file/environment representation of an engine. Fields
// are plain strings and numbers parsed and validated when the engine is
// built, so a YAML file and env overrides can populate them directly.
//
//	level: debug
//	format: text
//	root_appender: app
//	appenders:
//	  - name: app
//	    kind: file
//	    path: /var/log/app/current.log
//	    rotation: minute
//	    retention: 72h
//	    compress: true
//	routes:
//	  - prefix: server.http
//	    appender: app
//	    level: info
type Config struct {
	// Level is the default threshold for targets no route claims.
	Level string `yaml:"level" env:"SLUICE_LEVEL" env-default:"info"`

	// Format names the formatter: "text" or "json".
	Format string `yaml:"format" env:"SLUICE_FORMAT" env-default:"text"`

	// TimestampFormat overrides the datetime layout of the default
	// formatters (Go reference-time syntax).
	TimestampFormat string `yaml:"timestamp_format" env:"SLUICE_TIMESTAMP_FORMAT"`

	// ChannelSize is the dispatch channel capacity. Zero means the
	// SLUICE_CHANNEL_SIZE environment value or the built-in default.
	ChannelSize int `yaml:"channel_size" env:"SLUICE_CHANNEL_SIZE"`

	// Tag is the root handle's thread-style label.
	Tag string `yaml:"tag" env:"SLUICE_TAG" env-default:"main"`

	// DisableCaller turns off call-site capture.
	DisableCaller bool `yaml:"disable_caller" env:"SLUICE_DISABLE_CALLER"`

	// DropReportInterval spaces the worker's synthesized channel-full
	// reports ("1s", "500ms"). "off" disables them; empty means 1s.
	DropReportInterval string `yaml:"drop_report_interval" env:"SLUICE_DROP_REPORT_INTERVAL"`

	// RootAppender names the appender receiving unrouted records.
	// Defaults to the first entry in Appenders.
	RootAppender string `yaml:"root_appender"`

	Appenders []AppenderConfig `yaml:"appenders"`
	Routes    []RouteConfig    `yaml:"routes"`
}

// AppenderConfig describes one named appender. Kind selects the
// implementation; the remaining fields apply per kind.
type AppenderConfig struct {
	Name string `yaml:"name"`

	// Kind is "file", "size", "console" or "stdout".
	Kind string `yaml:"kind"`

	// Path is the log file path; required for file and size kinds.
	Path string `yaml:"path"`

	// File kind: rotation granularity ("minute", "hour", "day",
	// "month", "year", "" for none), retention window as a duration
	// string, gzip of completed files, write buffer size, advisory
	// lock opt-out.
	Rotation        string `yaml:"rotation"`
	Retention       string `yaml:"retention"`
	Compress        bool   `yaml:"compress"`
	CompressWorkers int    `yaml:"compress_workers"`
	BufferSize      int    `yaml:"buffer_size"`
	DisableLock     bool   `yaml:"disable_lock"`

	// Size kind: lumberjack-style limits.
	MaxSizeMB  int `yaml:"max_size_mb"`
	MaxBackups int `yaml:"max_backups"`
	MaxAgeDays int `yaml:"max_age_days"`
}

// RouteConfig binds a module-path prefix to an appender. Appender may
// be "root" to name whichever appender is the root.
type RouteConfig struct {
	Prefix   string `yaml:"prefix"`
	Appender string `yaml:"appender"`
	Level    string `yaml:"level"`
}

// LoadConfig reads path as YAML and overlays SLUICE_* environment
// variables. The result is validated structurally here; path and
// filesystem errors surface when the engine is built.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, &ConfigError{Field: "config", Value: path, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks everything that can be checked without touching the
// filesystem: level and rotation names, kinds, duplicate appender
// names, route references. NewWithConfig calls it again before opening
// any file.
func (c *Config) Validate() error {
	if _, err := types.ParseLevel(c.levelName()); err != nil {
		return &ConfigError{Field: "level", Value: c.Level, Err: err}
	}
	if _, err := formatters.New(c.formatName(), formatters.DefaultFormatOptions()); err != nil {
		return &ConfigError{Field: "format", Value: c.Format, Err: err}
	}
	if _, err := c.dropReportInterval(); err != nil {
		return err
	}
	if c.ChannelSize < 0 {
		return configErrorf("channel_size", c.ChannelSize, "channel size cannot be negative")
	}

	if len(c.Appenders) == 0 {
		return configErrorf("appenders", nil, "at least one appender is required")
	}
	names := make(map[string]bool, len(c.Appenders))
	for i := range c.Appenders {
		ac := &c.Appenders[i]
		if ac.Name == "" {
			return configErrorf("appenders", i, "appender name cannot be empty")
		}
		if names[ac.Name] {
			return configErrorf("appenders", ac.Name, "duplicate appender name")
		}
		names[ac.Name] = true
		if err := ac.validate(); err != nil {
			return err
		}
	}

	root := c.rootName()
	if root != "" && !names[root] {
		return configErrorf("root_appender", root, "unknown appender")
	}
	for i, rc := range c.Routes {
		if rc.Prefix == "" {
			return configErrorf("routes", i, "route prefix cannot be empty")
		}
		if rc.Appender != "root" && !names[rc.Appender] {
			return configErrorf("routes", rc.Prefix, "unknown appender %q", rc.Appender)
		}
		if rc.Level != "" {
			if _, err := types.ParseLevel(rc.Level); err != nil {
				return &ConfigError{Field: "routes", Value: rc.Prefix, Err: err}
			}
		}
	}
	return nil
}

func (a *AppenderConfig) validate() error {
	switch a.Kind {
	case "", "file":
		if a.Path == "" {
			return configErrorf("appenders", a.Name, "file appender needs a path")
		}
		policy, err := features.ParseRotationPolicy(a.Rotation)
		if err != nil {
			return &ConfigError{Field: "appenders", Value: a.Name, Err: err}
		}
		window, err := a.retentionWindow()
		if err != nil {
			return err
		}
		if window > 0 && policy == features.RotateNone {
			return configErrorf("appenders", a.Name, "retention requires rotation")
		}
		if a.Compress && policy == features.RotateNone {
			return configErrorf("appenders", a.Name, "compression requires rotation")
		}
	case "size":
		if a.Path == "" {
			return configErrorf("appenders", a.Name, "size appender needs a path")
		}
	case "console", "stdout":
	default:
		return configErrorf("appenders", a.Name, "unknown appender kind %q", a.Kind)
	}
	return nil
}

// compile turns a validated Config into engine options, constructing
// the appenders. Already-built appenders are closed when a later one
// fails, so no locks or handles leak out of a failed build.
func (c *Config) compile() (*engineOptions, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	level, _ := types.ParseLevel(c.levelName())
	fopts := formatters.DefaultFormatOptions()
	if c.TimestampFormat != "" {
		fopts.TimestampFormat = c.TimestampFormat
	}
	formatter, _ := formatters.New(c.formatName(), fopts)
	dropReport, _ := c.dropReportInterval()

	built := make([]builtAppender, 0, len(c.Appenders))
	fail := func(name string, err error) (*engineOptions, error) {
		for _, a := range built {
			_ = a.app.Close()
		}
		return nil, &ConfigError{Field: "appender", Value: name, Err: err}
	}
	for i := range c.Appenders {
		ac := &c.Appenders[i]
		app, kind, err := ac.build()
		if err != nil {
			return fail(ac.Name, err)
		}
		built = append(built, builtAppender{name: ac.Name, kind: kind, path: ac.Path, app: app})
	}

	rootName := c.rootName()
	if rootName == "" {
		rootName = built[0].name
	}

	routes := make([]types.Route, 0, len(c.Routes))
	for _, rc := range c.Routes {
		target := rc.Appender
		if target == "root" {
			target = rootName
		}
		routeLevel := level
		if rc.Level != "" {
			routeLevel, _ = types.ParseLevel(rc.Level)
		}
		routes = append(routes, types.Route{Prefix: rc.Prefix, Appender: target, Level: routeLevel})
	}

	return &engineOptions{
		level:         level,
		channelSize:   c.ChannelSize,
		tag:           c.Tag,
		captureCaller: !c.DisableCaller,
		dropReport:    dropReport,
		formatter:     formatter,
		appenders:     built,
		rootName:      rootName,
		routes:        routes,
	}, nil
}

func (a *AppenderConfig) build() (types.Appender, string, error) {
	switch a.Kind {
	case "", "file":
		policy, err := features.ParseRotationPolicy(a.Rotation)
		if err != nil {
			return nil, "", err
		}
		window, err := a.retentionWindow()
		if err != nil {
			return nil, "", err
		}
		app, err := backends.NewFileAppender(a.Path, backends.FileOptions{
			Rotation:        policy,
			Retention:       window,
			Compress:        a.Compress,
			CompressWorkers: a.CompressWorkers,
			BufferSize:      a.BufferSize,
			DisableLock:     a.DisableLock,
		})
		if err != nil {
			return nil, "", err
		}
		return app, "file", nil
	case "size":
		return backends.NewSizeFileAppender(a.Path, backends.SizeOptions{
			MaxSizeMB:  a.MaxSizeMB,
			MaxBackups: a.MaxBackups,
			MaxAgeDays: a.MaxAgeDays,
			Compress:   a.Compress,
		}), "size", nil
	case "console":
		return backends.NewConsoleAppender(), "console", nil
	case "stdout":
		return backends.NewStdoutAppender(), "console", nil
	default:
		return nil, "", configErrorf("appenders", a.Name, "unknown appender kind %q", a.Kind)
	}
}

// RetentionWindow returns the appender's parsed retention window, zero
// when unset.
func (a *AppenderConfig) RetentionWindow() (time.Duration, error) {
	return a.retentionWindow()
}

func (a *AppenderConfig) retentionWindow() (time.Duration, error) {
	if a.Retention == "" {
		return 0, nil
	}
	window, err := time.ParseDuration(a.Retention)
	if err != nil {
		return 0, &ConfigError{Field: "appenders", Value: a.Name, Err: err}
	}
	if window < 0 {
		return 0, configErrorf("appenders", a.Name, "retention cannot be negative")
	}
	return window, nil
}

func (c *Config) levelName() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

func (c *Config) formatName() string {
	if c.Format == "" {
		return "text"
	}
	return c.Format
}

func (c *Config) rootName() string {
	return c.RootAppender
}

func (c *Config) dropReportInterval() (time.Duration, error) {
	switch c.DropReportInterval {
	case "":
		return DefaultDropReportInterval, nil
	case "off", "none", "0":
		return 0, nil
	}
	d, err := time.ParseDuration(c.DropReportInterval)
	if err != nil {
		return 0, &ConfigError{Field: "drop_report_interval", Value: c.DropReportInterval, Err: err}
	}
	if d < 0 {
		return 0, configErrorf("drop_report_interval", c.DropReportInterval, "interval cannot be negative")
	}
	return d, nil
}
