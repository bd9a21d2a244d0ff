package formatters

import (
	"strconv"
	"time"

	"github.com/wayneeseguin/sluice/internal/buffer"
	"github.com/wayneeseguin/sluice/pkg/types"
)

// TextFormatter renders records in the default line layout:
//
//	<datetime> <latency>ms [<suppressed>] <LEVEL> <tag>/<target>:<line> <message>
//
// The suppressed column appears only when the record rode out a nonzero
// suppressed count; the latency column can be switched off through the
// options. One record becomes exactly one line.
type TextFormatter struct {
	Options FormatOptions
}

// NewTextFormatter creates a text formatter with the default options.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{
		Options: DefaultFormatOptions(),
	}
}

// Format renders one record. now is the worker's current instant, used
// for the latency column.
func (f *TextFormatter) Format(rec *types.Record, now time.Time) ([]byte, error) {
	buf := buffer.Get()
	defer buffer.Put(buf)

	tz := f.Options.TimeZone
	if tz == nil {
		tz = time.Local
	}
	buf.WriteString(rec.Time.In(tz).Format(f.Options.TimestampFormat))

	if f.Options.IncludeLatency {
		buf.WriteByte(' ')
		buf.WriteString(strconv.FormatInt(latencyMillis(rec, now), 10))
		buf.WriteString("ms")
	}

	if rec.Suppressed > 0 {
		buf.WriteString(" [")
		buf.WriteString(strconv.FormatUint(rec.Suppressed, 10))
		buf.WriteByte(']')
	}

	buf.WriteByte(' ')
	buf.WriteString(rec.Level.String())
	buf.WriteByte(' ')
	buf.WriteString(origin(rec))
	buf.WriteByte(' ')
	buf.WriteString(RenderMessage(rec))
	buf.WriteByte('\n')

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
