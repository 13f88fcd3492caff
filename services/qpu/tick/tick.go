// services/qpu/tick/tick.go
package tick

import (
	"sync/atomic"
	"time"

	"quantum-commodore/x/timex"
)

// Source is a free-running unsigned tick counter. It wraps silently; all
// timestamp arithmetic must go through Diff.
type Source interface {
	Ticks() uint32
}

// Diff returns the wrap-safe absolute difference between two tick values.
func Diff(a, b uint32) uint32 {
	d := a - b
	if d > 1<<31 {
		d = -d
	}
	return d
}

// Age returns now - then assuming then is not in the future (modular).
func Age(now, then uint32) uint32 {
	return now - then
}

// -----------------------------------------------------------------------------
// Sources
// -----------------------------------------------------------------------------

// TimeSource derives ticks from the host monotonic clock at a fixed rate.
type TimeSource struct {
	start  time.Time
	period time.Duration
}

// NewTimeSource builds a source ticking at hz. hz==0 is coerced to 1.
func NewTimeSource(hz uint32) *TimeSource {
	return &TimeSource{
		start:  time.Now(),
		period: time.Duration(timex.PeriodFromHz(hz)),
	}
}

func (s *TimeSource) Ticks() uint32 {
	return uint32(time.Since(s.start) / s.period)
}

// Manual is a hand-advanced source for tests and simulation.
type Manual struct {
	v atomic.Uint32
}

func (m *Manual) Ticks() uint32       { return m.v.Load() }
func (m *Manual) Set(t uint32)        { m.v.Store(t) }
func (m *Manual) Advance(d uint32)    { m.v.Add(d) }
