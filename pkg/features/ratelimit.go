package features

import (
	"sort"
	"time"

	"github.com/wayneeseguin/sluice/pkg/types"
)

// CallSiteKey identifies one logging statement for rate limiting: the
// record's target plus its capture location. With caller capture disabled
// File is empty and Line zero, so the key degrades to the target alone.
type CallSiteKey struct {
	Target string
	File   string
	Line   int
}

type rateState struct {
	lastEmit   time.Time
	suppressed uint64
	pending    *types.Record // most recently suppressed record, kept for the shutdown drain
}

// RateLimiter suppresses repeat emissions from individual call sites.
// A record carrying a nonzero Limit emits at most once per Limit interval
// per call site; suppressed records are counted and the count rides out
// on the next emission.
//
// The limiter is owned by the dispatch worker goroutine and is not safe
// for concurrent use. It deliberately takes no locks: all access is
// confined to its owner.
type RateLimiter struct {
	states map[CallSiteKey]*rateState
}

// NewRateLimiter creates an empty limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		states: make(map[CallSiteKey]*rateState),
	}
}

// Allow decides whether rec emits at instant now. Records without a Limit
// bypass the limiter and leave no state behind. When the record emits
// after a suppressed stretch, suppressed carries the number of records
// dropped since the call site's previous emission.
func (r *RateLimiter) Allow(rec *types.Record, now time.Time) (emit bool, suppressed uint64) {
	if rec.Limit <= 0 {
		return true, 0
	}

	key := CallSiteKey{Target: rec.Target, File: rec.File, Line: rec.Line}
	st, ok := r.states[key]
	if !ok {
		r.states[key] = &rateState{lastEmit: now}
		return true, 0
	}

	if now.Sub(st.lastEmit) < rec.Limit {
		st.suppressed++
		st.pending = rec
		return false, 0
	}

	suppressed = st.suppressed
	st.suppressed = 0
	st.pending = nil
	st.lastEmit = now
	return true, suppressed
}

// Drain returns, for every call site still holding a nonzero suppressed
// count, its most recently suppressed record with Suppressed filled in,
// then resets the limiter. The worker calls this during shutdown so
// suppressed tails are not lost silently. Results are ordered by call
// site for determinism.
func (r *RateLimiter) Drain() []*types.Record {
	var out []*types.Record
	for _, st := range r.states {
		if st.suppressed == 0 || st.pending == nil {
			continue
		}
		rec := st.pending
		rec.Suppressed = st.suppressed
		out = append(out, rec)
	}
	r.states = make(map[CallSiteKey]*rateState)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// Len reports how many call sites currently hold limiter state.
func (r *RateLimiter) Len() int {
	return len(r.states)
}
