// services/qpu/scheduler.go
package qpu

import (
	"time"

	"quantum-commodore/services/qpu/internal/steps"
	"quantum-commodore/services/qpu/tick"
)

// maintain runs the periodic coherence pass. It is gated by a minimum
// inter-invocation interval; within a pass, each idle qubit is refreshed
// according to its protection mode:
//
//   - standard: once LastRefresh is older than the short threshold, apply a
//     decoupling Pauli-X pair with a short gap between the pulses;
//   - topological: once older than the long threshold, apply whichever
//     Pauli corrections the syndrome bits call for (nothing when clear).
//
// Both paths stamp LastRefresh the moment the age threshold is crossed,
// even when no correction ends up being applied.
func (c *core) maintain(now time.Time) {
	t := c.ticks()
	if c.maintRan && tick.Age(t, c.lastMaint) < c.cfg.maintMinIntervalTicks() {
		return
	}
	c.lastMaint = t
	c.maintRan = true

	for i := 0; i < NumQubits; i++ {
		if c.queue.Busy(i) {
			continue // a command-issued program owns this slot right now
		}
		s := c.reg.Get(i)
		age := tick.Age(t, s.LastRefresh)

		if s.Topological {
			if age <= c.cfg.TopoRefreshAgeTicks {
				continue
			}
			s.LastRefresh = t
			c.topologicalRefresh(i)
			c.publishQubit(i)
			continue
		}

		if age <= c.cfg.RefreshAgeTicks {
			continue
		}
		s.LastRefresh = t
		c.standardRefresh(i, now)
	}
}

// standardRefresh schedules the decoupling pulse pair.
func (c *core) standardRefresh(i int, now time.Time) {
	p := steps.NewProgram("refresh", i)
	p.Step(0, func() { c.applyPauliX(i) })
	p.Step(c.cfg.decoupleGap(), func() {
		c.applyPauliX(i)
		c.publishQubit(i)
	})
	c.queue.Start(p, now)
}

// topologicalRefresh corrects only flagged errors, immediately.
func (c *core) topologicalRefresh(i int) {
	syn := c.reg.Get(i).Syndrome
	if syn&SynX != 0 {
		c.applyPauliX(i)
	}
	if syn&SynY != 0 {
		c.applyPauliY(i)
	}
	if syn&SynZ != 0 {
		c.applyPauliZ(i)
	}
}
