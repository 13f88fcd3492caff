// services/qpu/internal/photon/monitor.go
package photon

import (
	"sync/atomic"

	"quantum-commodore/services/qpu/tick"
)

// Event mirrors one detector pulse onto the telemetry path.
type Event struct {
	Channel int
	Tick    uint32
}

// Monitor tracks the two detector channels. Pulse is the ISR entry point;
// everything it touches is a single atomic word, so a main-context reader
// always sees a consistent (count, timestamp) pair and never a torn value.
type Monitor struct {
	clk    tick.Source
	window atomic.Uint32

	ch    [2]atomic.Uint64 // high 32: pulse count, low 32: last-pulse tick
	coinc atomic.Uint32

	// Telemetry mirror; sends MUST NOT block the ISR.
	events chan Event
	drops  atomic.Uint32
}

func NewMonitor(clk tick.Source, windowTicks uint32, eventBuf int) *Monitor {
	if eventBuf <= 0 {
		eventBuf = 64
	}
	m := &Monitor{
		clk:    clk,
		events: make(chan Event, eventBuf),
	}
	m.window.Store(windowTicks)
	return m
}

func pack(count, t uint32) uint64 { return uint64(count)<<32 | uint64(t) }

func unpack(v uint64) (count, t uint32) { return uint32(v >> 32), uint32(v) }

// Pulse records one detector edge on channel c (0 or 1). It runs at
// interrupt priority: one load, two stores, no allocation, no blocking.
func (m *Monitor) Pulse(c int) {
	if c < 0 || c > 1 {
		return
	}
	now := m.clk.Ticks()

	// The ISR is the only writer of its own channel word, so a plain
	// load/store pair is race-free; readers still get atomic snapshots.
	cnt, _ := unpack(m.ch[c].Load())
	m.ch[c].Store(pack(cnt+1, now))

	otherCnt, otherTick := unpack(m.ch[1-c].Load())
	if otherCnt > 0 && tick.Diff(now, otherTick) < m.window.Load() {
		m.coinc.Add(1)
	}

	select {
	case m.events <- Event{Channel: c, Tick: now}:
	default:
		m.drops.Add(1)
	}
}

// Snapshot returns the channel's (pulse count, last-pulse tick) pair as one
// consistent unit.
func (m *Monitor) Snapshot(c int) (count, lastTick uint32) {
	if c < 0 || c > 1 {
		return 0, 0
	}
	return unpack(m.ch[c].Load())
}

// Coincidences returns the shared coincidence count.
func (m *Monitor) Coincidences() uint32 { return m.coinc.Load() }

// Drops returns how many telemetry events were shed under pressure.
func (m *Monitor) Drops() uint32 { return m.drops.Load() }

// Events exposes the telemetry mirror.
func (m *Monitor) Events() <-chan Event { return m.events }

// SetWindow updates the coincidence window (ticks). Safe against the ISR.
func (m *Monitor) SetWindow(w uint32) { m.window.Store(w) }

// Window returns the current coincidence window in ticks.
func (m *Monitor) Window() uint32 { return m.window.Load() }
