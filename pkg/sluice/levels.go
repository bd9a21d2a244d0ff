package sluice

import "github.com/wayneeseguin/sluice/pkg/types"

// Level is re-exported from pkg/types so most callers need only this
// package.
type Level = types.Level

const (
	// LevelTrace is the most verbose level
	LevelTrace = types.LevelTrace
	// LevelDebug is for development diagnostics
	LevelDebug = types.LevelDebug
	// LevelInfo is for normal operational messages
	LevelInfo = types.LevelInfo
	// LevelWarn is for conditions that deserve attention
	LevelWarn = types.LevelWarn
	// LevelError is for failures
	LevelError = types.LevelError
)

// ParseLevel converts a level name to a Level. Names are
// case-insensitive; "warning" is accepted as an alias for "warn".
func ParseLevel(s string) (Level, error) {
	return types.ParseLevel(s)
}
