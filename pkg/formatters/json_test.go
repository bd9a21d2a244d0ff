package formatters

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/wayneeseguin/sluice/pkg/types"
)

func TestJSONFormatterFields(t *testing.T) {
	rec, now := fixedZoneRecord()
	rec.Suppressed = 2

	f := NewJSONFormatter()
	f.Options.TimeZone = rec.Time.Location()

	out, err := f.Format(rec, now)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.HasSuffix(string(out), "\n") {
		t.Fatal("JSON lines must end with a newline")
	}

	var got map[string]interface{}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	checks := map[string]interface{}{
		"ts":         "2022-01-01T13:45:05.123+02:00",
		"level":      "INFO",
		"target":     "server.http",
		"tag":        "main",
		"file":       "server.go",
		"line":       float64(42),
		"latency_ms": float64(2),
		"suppressed": float64(2),
		"msg":        "hello world",
	}
	for key, want := range checks {
		if got[key] != want {
			t.Errorf("%s = %v, want %v", key, got[key], want)
		}
	}
}

func TestJSONFormatterOmitsEmpty(t *testing.T) {
	now := time.Now()
	rec := &types.Record{
		Level:   types.LevelWarn,
		Time:    now,
		Message: "bare",
	}

	out, err := NewJSONFormatter().Format(rec, now)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	var got map[string]interface{}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, absent := range []string{"target", "tag", "file", "line", "suppressed"} {
		if _, ok := got[absent]; ok {
			t.Errorf("field %q should be omitted when empty", absent)
		}
	}
}

func TestJSONFormatterDeferredFormat(t *testing.T) {
	now := time.Now()
	rec := &types.Record{
		Level:  types.LevelInfo,
		Time:   now,
		Format: "count=%d",
		Args:   []interface{}{9},
	}

	out, err := NewJSONFormatter().Format(rec, now)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["msg"] != "count=9" {
		t.Errorf("msg = %v, want count=9", got["msg"])
	}
}
