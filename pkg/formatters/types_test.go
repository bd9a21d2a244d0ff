package formatters

import (
	"testing"
	"time"
)

func TestDefaultFormatOptions(t *testing.T) {
	opts := DefaultFormatOptions()

	if opts.TimestampFormat != DefaultTimestampFormat {
		t.Errorf("TimestampFormat = %q", opts.TimestampFormat)
	}
	if opts.TimeZone != time.Local {
		t.Errorf("TimeZone = %v, want local", opts.TimeZone)
	}
	if !opts.IncludeLatency {
		t.Error("IncludeLatency should default to true")
	}
}

func TestDefaultTimestampFormatShape(t *testing.T) {
	at := time.Date(2022, 1, 1, 13, 45, 5, 123*int(time.Millisecond), time.FixedZone("", 2*3600))
	got := at.Format(DefaultTimestampFormat)
	want := "2022-01-01T13:45:05.123+02:00"
	if got != want {
		t.Errorf("formatted = %q, want %q", got, want)
	}
}
