package formatters

import (
	"encoding/json"
	"time"

	"github.com/wayneeseguin/sluice/pkg/types"
)

// JSONFormatter renders records as line-delimited JSON objects with a
// fixed field order. It carries the same information as the text layout.
type JSONFormatter struct {
	Options FormatOptions
}

// NewJSONFormatter creates a JSON formatter with the default options.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{
		Options: DefaultFormatOptions(),
	}
}

type jsonEntry struct {
	Timestamp  string `json:"ts"`
	Level      string `json:"level"`
	Target     string `json:"target,omitempty"`
	Tag        string `json:"tag,omitempty"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line,omitempty"`
	LatencyMs  int64  `json:"latency_ms"`
	Suppressed uint64 `json:"suppressed,omitempty"`
	Message    string `json:"msg"`
}

// Format renders one record as a JSON line.
func (f *JSONFormatter) Format(rec *types.Record, now time.Time) ([]byte, error) {
	tz := f.Options.TimeZone
	if tz == nil {
		tz = time.Local
	}
	entry := jsonEntry{
		Timestamp:  rec.Time.In(tz).Format(f.Options.TimestampFormat),
		Level:      rec.Level.String(),
		Target:     rec.Target,
		Tag:        rec.Tag,
		File:       rec.File,
		Line:       rec.Line,
		Suppressed: rec.Suppressed,
		Message:    RenderMessage(rec),
	}
	if f.Options.IncludeLatency {
		entry.LatencyMs = latencyMillis(rec, now)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
