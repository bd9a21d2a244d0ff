package sluice

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultChannelSize is the dispatch channel capacity used when
	// neither the configuration nor SLUICE_CHANNEL_SIZE say otherwise.
	DefaultChannelSize = 4096

	// DefaultTag is the thread-style label of the root handle.
	DefaultTag = "main"

	// DefaultDropReportInterval is the minimum spacing between the
	// synthesized records reporting channel-full drops.
	DefaultDropReportInterval = time.Second
)

// defaultChannelSize reads SLUICE_CHANNEL_SIZE, falling back to
// DefaultChannelSize for absent or unusable values.
func defaultChannelSize() int {
	if value, exists := os.LookupEnv("SLUICE_CHANNEL_SIZE"); exists {
		if size, err := strconv.Atoi(value); err == nil && size > 0 {
			return size
		}
	}
	return DefaultChannelSize
}

// isTestMode detects if we're running under go test.
func isTestMode() bool {
	for _, arg := range os.Args {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	if exe, err := os.Executable(); err == nil {
		if strings.HasSuffix(exe, ".test") {
			return true
		}
		basename := filepath.Base(exe)
		if basename == "go" || strings.Contains(basename, ".test") {
			return true
		}
	}
	return false
}
