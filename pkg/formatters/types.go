package formatters

import (
	"time"
)

// DefaultTimestampFormat is the datetime layout of the default line
// format: local ISO-like time with millisecond precision and UTC offset,
// e.g. "2022-01-01T13:45:05.123+02:00".
const DefaultTimestampFormat = "2006-01-02T15:04:05.000-07:00"

// FormatOptions controls formatter output. The zero value is not useful;
// start from DefaultFormatOptions.
type FormatOptions struct {
	// TimestampFormat is the time layout for the datetime column.
	TimestampFormat string

	// TimeZone is the zone timestamps are rendered in. Defaults to the
	// system's local zone, matching rotation boundaries.
	TimeZone *time.Location

	// IncludeLatency renders the capture-to-write latency column.
	IncludeLatency bool
}

// DefaultFormatOptions returns the options producing the default line
// layout.
func DefaultFormatOptions() FormatOptions {
	return FormatOptions{
		TimestampFormat: DefaultTimestampFormat,
		TimeZone:        time.Local,
		IncludeLatency:  true,
	}
}
