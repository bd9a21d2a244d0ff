package formatters

import (
	"fmt"
	"strings"
	"time"

	"github.com/wayneeseguin/sluice/pkg/types"
)

// RenderMessage produces the record's message text, running the deferred
// fmt.Sprintf and evaluating lazy arguments. This is the single place
// deferred payloads become strings; it runs on the dispatch worker only,
// and only for records that actually emit.
func RenderMessage(rec *types.Record) string {
	if rec.Format != "" {
		return fmt.Sprintf(rec.Format, evalArgs(rec.Args)...)
	}
	if len(rec.Args) > 0 {
		return strings.TrimSuffix(fmt.Sprintln(evalArgs(rec.Args)...), "\n")
	}
	return rec.Message
}

// evalArgs resolves lazy arguments in place of their wrappers. Plain
// values pass through untouched.
func evalArgs(args []interface{}) []interface{} {
	lazy := false
	for _, a := range args {
		switch a.(type) {
		case types.LazyValue, func() interface{}:
			lazy = true
		}
	}
	if !lazy {
		return args
	}
	out := make([]interface{}, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case types.LazyValue:
			out[i] = v.Value()
		case func() interface{}:
			out[i] = v()
		default:
			out[i] = a
		}
	}
	return out
}

// latencyMillis is the whole-millisecond latency between the record's
// capture and the worker's formatting instant. Negative differences
// (clock oddities with records built by hand) clamp to zero.
func latencyMillis(rec *types.Record, now time.Time) int64 {
	d := now.Sub(rec.Time)
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}

// origin renders the "<tag>/<target>:<line>" column. The tag and line
// parts drop out when absent so hand-built records stay readable.
func origin(rec *types.Record) string {
	var b strings.Builder
	if rec.Tag != "" {
		b.WriteString(rec.Tag)
		b.WriteByte('/')
	}
	b.WriteString(rec.Target)
	if rec.Line > 0 {
		b.WriteByte(':')
		fmt.Fprintf(&b, "%d", rec.Line)
	}
	return b.String()
}
