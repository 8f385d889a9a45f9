package workers

import (
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"

	"github.com/novasynth/novaserver/rtlog"
)

// GlitchTracker counts block deadline overruns and rate-limits how often
// they're logged, so a sustained storm of overruns (e.g. a pathological
// tree on an overloaded host) produces a bounded number of log lines per
// window instead of one per block — per the error-handling design's
// "counted, logged, not surfaced per occurrence" policy for audio glitches.
type GlitchTracker struct {
	limiter *catrate.Limiter
	total   atomic.Int64
}

// NewGlitchTracker builds a tracker that logs at most maxPerWindow times
// per window.
func NewGlitchTracker(window time.Duration, maxPerWindow int) *GlitchTracker {
	return &GlitchTracker{
		limiter: catrate.NewLimiter(map[time.Duration]int{window: maxPerWindow}),
	}
}

// Total returns the cumulative number of glitches observed, regardless of
// how many were actually logged.
func (g *GlitchTracker) Total() int64 { return g.total.Load() }

// Observe records a block's elapsed time against deadline. If it
// overran, the glitch count is incremented and, subject to the rate
// limit, a warning is logged.
func (g *GlitchTracker) Observe(elapsed, deadline time.Duration) {
	if elapsed <= deadline {
		return
	}
	g.total.Add(1)
	if _, ok := g.limiter.Allow("block-overrun"); ok {
		rtlog.Warnf("workers", "block overran deadline: %s > %s (total glitches: %d)", elapsed, deadline, g.total.Load())
	}
}

// GlitchHandler adapts a GlitchTracker into the WithGlitchHandler option's
// callback shape, binding deadline at construction time.
func GlitchHandler(tracker *GlitchTracker, deadline time.Duration) func(time.Duration) {
	return func(elapsed time.Duration) { tracker.Observe(elapsed, deadline) }
}
