package features

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// RotationPolicy selects the wall-clock granularity at which a file
// appender starts a new file. Boundaries are evaluated in local time.
type RotationPolicy int

const (
	// RotateNone disables time-based rotation
	RotateNone RotationPolicy = iota
	// RotateMinute starts a new file every minute
	RotateMinute
	// RotateHour starts a new file every hour
	RotateHour
	// RotateDay starts a new file every day
	RotateDay
	// RotateMonth starts a new file every month
	RotateMonth
	// RotateYear starts a new file every year
	RotateYear
)

// String returns the config-file name of the policy.
func (p RotationPolicy) String() string {
	switch p {
	case RotateNone:
		return "none"
	case RotateMinute:
		return "minute"
	case RotateHour:
		return "hour"
	case RotateDay:
		return "day"
	case RotateMonth:
		return "month"
	case RotateYear:
		return "year"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseRotationPolicy converts a config-file name to a RotationPolicy.
// The empty string maps to RotateNone.
func ParseRotationPolicy(s string) (RotationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return RotateNone, nil
	case "minute":
		return RotateMinute, nil
	case "hour":
		return RotateHour, nil
	case "day":
		return RotateDay, nil
	case "month":
		return RotateMonth, nil
	case "year":
		return RotateYear, nil
	default:
		return RotateNone, fmt.Errorf("unknown rotation policy %q", s)
	}
}

// TokenLayout returns the time layout of the datetime token embedded in
// rotated file names: zero-padded, no internal separators, truncated to
// the policy's granularity ("2006" for year up to "200601021504" for
// minute). Empty for RotateNone.
func (p RotationPolicy) TokenLayout() string {
	switch p {
	case RotateMinute:
		return "200601021504"
	case RotateHour:
		return "2006010215"
	case RotateDay:
		return "20060102"
	case RotateMonth:
		return "200601"
	case RotateYear:
		return "2006"
	default:
		return ""
	}
}

// PeriodStart truncates t to the start of the rotation period containing
// it, in t's location. For RotateNone it returns t unchanged.
func (p RotationPolicy) PeriodStart(t time.Time) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch p {
	case RotateMinute:
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
	case RotateHour:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc)
	case RotateDay:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case RotateMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case RotateYear:
		return time.Date(y, 1, 1, 0, 0, 0, 0, loc)
	default:
		return t
	}
}

// PeriodEnd returns the start of the period following the one beginning
// at start. Month and year use calendar arithmetic, so period lengths
// follow the calendar rather than a fixed duration.
func (p RotationPolicy) PeriodEnd(start time.Time) time.Time {
	switch p {
	case RotateMinute:
		return start.Add(time.Minute)
	case RotateHour:
		return start.Add(time.Hour)
	case RotateDay:
		return start.AddDate(0, 0, 1)
	case RotateMonth:
		return start.AddDate(0, 1, 0)
	case RotateYear:
		return start.AddDate(1, 0, 0)
	default:
		return start
	}
}

// Token formats the datetime token for the period containing t.
func (p RotationPolicy) Token(t time.Time) string {
	layout := p.TokenLayout()
	if layout == "" {
		return ""
	}
	return p.PeriodStart(t).Format(layout)
}

// SplitLogPath splits a configured appender path into directory, stem and
// extension. The extension keeps its leading dot and may be empty.
func SplitLogPath(path string) (dir, stem, ext string) {
	dir = filepath.Dir(path)
	base := filepath.Base(path)
	ext = filepath.Ext(base)
	stem = strings.TrimSuffix(base, ext)
	if stem == "" {
		stem, ext = base, ""
	}
	return dir, stem, ext
}

// DatedPath returns the file written during the period containing t for
// the given configured path: dir/stem-<token><ext>. A path of
// "current.log" under minute rotation maps to "current-202201010000.log".
// With RotateNone the configured path is returned unchanged.
func DatedPath(path string, p RotationPolicy, t time.Time) string {
	if p == RotateNone {
		return path
	}
	dir, stem, ext := SplitLogPath(path)
	return filepath.Join(dir, stem+"-"+p.Token(t)+ext)
}

// RetentionScanner deletes rotated files that have fallen out of a
// retention window. It matches only the exact shape its appender
// produces: same stem, a datetime token of exactly the policy's width,
// same extension, optionally a ".gz" suffix left by compression. Nothing
// else in the directory is touched. Scans run on a dedicated goroutine
// kicked at rotation boundaries, so directory walks never delay the
// write path.
type RetentionScanner struct {
	dir     string
	stem    string
	ext     string
	policy  RotationPolicy
	window  time.Duration
	pattern *regexp.Regexp

	// DryRun reports expired files without removing them.
	DryRun bool

	// Now overrides the wall clock used by kicked scans, for tests.
	Now func() time.Time

	errorHandler  func(source, dest, msg string, err error)
	deleteHandler func(path string)

	trigger chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewRetentionScanner creates a scanner for the configured appender path.
// A file is removed only when its entire period is strictly older than
// now minus window. A zero window or RotateNone disables the scanner.
func NewRetentionScanner(path string, policy RotationPolicy, window time.Duration) *RetentionScanner {
	dir, stem, ext := SplitLogPath(path)
	s := &RetentionScanner{
		dir:     dir,
		stem:    stem,
		ext:     ext,
		policy:  policy,
		window:  window,
		trigger: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	if layout := policy.TokenLayout(); layout != "" {
		s.pattern = regexp.MustCompile(
			`^` + regexp.QuoteMeta(stem) + `-(\d{` + fmt.Sprint(len(layout)) + `})` +
				regexp.QuoteMeta(ext) + `(?:\.gz)?$`)
	}
	return s
}

// SetErrorHandler sets the handler notified about scan and per-file
// delete failures. Failures never abort a scan.
func (s *RetentionScanner) SetErrorHandler(handler func(source, dest, msg string, err error)) {
	s.errorHandler = handler
}

// SetDeleteHandler sets the callback invoked for every removed file.
func (s *RetentionScanner) SetDeleteHandler(handler func(path string)) {
	s.deleteHandler = handler
}

// Start launches the background scan goroutine.
func (s *RetentionScanner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.pattern == nil || s.window <= 0 {
		return
	}
	s.started = true
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil && s.errorHandler != nil {
				s.errorHandler("retention", s.dir, "scan goroutine panic", fmt.Errorf("%v", r))
			}
		}()
		for {
			select {
			case <-s.trigger:
				s.ScanOnce(s.clock())
			case <-s.done:
				return
			}
		}
	}()
}

func (s *RetentionScanner) clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Kick schedules a scan without blocking. A kick arriving while one is
// already pending is absorbed.
func (s *RetentionScanner) Kick() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop terminates the scan goroutine and waits for it to finish.
func (s *RetentionScanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	close(s.done)
	s.wg.Wait()
	s.done = make(chan struct{})
}

// ScanOnce walks the directory once and removes expired rotated files,
// returning the paths it deleted (or would delete under DryRun). Delete
// failures are reported to the error handler and the scan continues with
// the remaining candidates.
func (s *RetentionScanner) ScanOnce(now time.Time) []string {
	if s.pattern == nil || s.window <= 0 {
		return nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if s.errorHandler != nil {
			s.errorHandler("retention", s.dir, "read log directory", err)
		}
		return nil
	}

	cutoff := now.Add(-s.window)
	layout := s.policy.TokenLayout()
	var removed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := s.pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		start, err := time.ParseInLocation(layout, m[1], now.Location())
		if err != nil {
			continue
		}
		// Expired only once the file's entire period has left the window.
		if !s.policy.PeriodEnd(start).Before(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if !s.DryRun {
			if err := os.Remove(path); err != nil {
				if s.errorHandler != nil {
					s.errorHandler("retention", path, "remove expired log", err)
				}
				continue
			}
		}
		removed = append(removed, path)
		if s.deleteHandler != nil {
			s.deleteHandler(path)
		}
	}
	return removed
}
