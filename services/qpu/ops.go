// services/qpu/ops.go
package qpu

import (
	"time"

	"quantum-commodore/services/qpu/internal/consts"
	"quantum-commodore/services/qpu/internal/steps"
	"quantum-commodore/x/ramp"
)

// Operations that involve settle intervals or ramps are expressed as step
// programs: the service loop keeps draining commands and running
// maintenance while a program's delays elapse, and a newer command for the
// same qubit preempts the in-flight program.

// opWeakMeasure performs the low-disturbance (Zeno) sampling: pump to low
// power, settle, report pulseCount(channel)/1000 as a float32, restore full
// power. Detector counters are not reset.
func (c *core) opWeakMeasure(q int, now time.Time) {
	if !c.validQubit(q) {
		return
	}
	c.preempt(q)

	ch := channelFor(q)
	var before uint32
	p := steps.NewProgram("weak_measure", q)
	p.Step(0, func() {
		before, _ = c.mon.Snapshot(ch)
		c.actuate(c.act.SetPower(PowerLow))
	})
	p.Step(c.cfg.weakSettle(), func() {
		count, _ := c.mon.Snapshot(ch)
		c.reg.Get(q).PhotonCount += count - before
		c.replyFloat(float32(count) / 1000.0)
		c.actuate(c.act.SetPower(PowerFull))
		c.publishQubit(q)
	})
	c.queue.Start(p, now)
}

// opSyndrome probes the three fixed polarization settings; bit i is set
// when channel 0's cumulative count exceeds channel 1's after the settle.
func (c *core) opSyndrome(q int, now time.Time) {
	if !c.validQubit(q) {
		return
	}
	c.preempt(q)

	angles := [3]float64{0, 45, 90}
	var syn uint8
	p := steps.NewProgram("syndrome", q)
	for i := 0; i < 3; i++ {
		i := i
		p.Step(0, func() { c.actuate(c.act.SetPolarization(angles[i])) })
		p.Step(c.cfg.syndromeSettle(), func() {
			c0, _ := c.mon.Snapshot(0)
			c1, _ := c.mon.Snapshot(1)
			if c0 > c1 {
				syn |= 1 << i
			}
		})
	}
	p.Step(0, func() {
		c.reg.Get(q).Syndrome = syn
		c.replyByte(syn)
		c.publishQubit(q)
	})
	c.queue.Start(p, now)
}

// opGeometricPhase ramps the phase modulator adiabatically from the qubit's
// current phase to current+angle, then commits the new phase. Preempting
// the ramp leaves the phase uncommitted.
func (c *core) opGeometricPhase(q int, angle float64, now time.Time) {
	if !c.validQubit(q) {
		return
	}
	c.preempt(q)

	from := c.reg.Get(q).Phase
	l := ramp.NewLinear(from, from+angle, c.cfg.RampSteps)
	p := steps.NewProgram("phase_ramp", q)
	for i := 0; i < l.Steps(); i++ {
		i := i
		p.Step(c.cfg.rampStep(), func() { c.actuate(c.act.SetPhase(l.At(i))) })
	}
	p.Step(0, func() {
		c.reg.Get(q).Phase += angle
		c.publishQubit(q)
	})
	c.queue.Start(p, now)
}

func (c *core) opPauliX(q int) {
	if !c.validQubit(q) {
		return
	}
	c.preempt(q)
	c.applyPauliX(q)
	c.publishQubit(q)
}

func (c *core) opPauliY(q int) {
	if !c.validQubit(q) {
		return
	}
	c.preempt(q)
	c.applyPauliY(q)
	c.publishQubit(q)
}

func (c *core) opPauliZ(q int) {
	if !c.validQubit(q) {
		return
	}
	c.preempt(q)
	c.applyPauliZ(q)
	c.publishQubit(q)
}

// opTopological switches the slot to the slow self-correcting maintenance
// policy and clears any flagged errors.
func (c *core) opTopological(q int) {
	if !c.validQubit(q) {
		return
	}
	c.preempt(q)
	s := c.reg.Get(q)
	s.Topological = true
	s.Syndrome = 0
	c.publishQubit(q)
}

// opEntangle samples the coincidence counter across a fixed accumulation
// window. A starved window (< half the expected rate) is taken as evidence
// of correlated channels and q1's syndrome is copied onto q2. This is a
// simplified entanglement proxy, not a real correlation measure.
func (c *core) opEntangle(q1, q2 int, now time.Time) {
	if !c.validQubit(q1) || !c.validQubit(q2) {
		return
	}
	c.preempt(q1)
	c.preempt(q2)

	var before uint32
	p := steps.NewProgram("entangle", q1, q2)
	p.Step(0, func() { before = c.mon.Coincidences() })
	p.Step(c.cfg.entangleAccum(), func() {
		delta := c.mon.Coincidences() - before
		if delta < c.cfg.ExpectedCoincidenceRate/2 {
			c.reg.Get(q2).Syndrome = c.reg.Get(q1).Syndrome
			c.publishQubit(q2)
		}
	})
	c.queue.Start(p, now)
}

// opMeasure samples the qubit's detector channel across a short delay and
// reports 0/1 against the count-delta threshold, collapsing the amplitude
// to the matching basis state. Phase is left as-is.
func (c *core) opMeasure(q int, now time.Time) {
	if !c.validQubit(q) {
		return
	}
	c.preempt(q)

	ch := channelFor(q)
	var before uint32
	p := steps.NewProgram("measure", q)
	p.Step(0, func() {
		c.actuate(c.act.SetPolarization(consts.BasisPolarizeDeg))
		c.actuate(c.act.SetWaveplate(consts.BasisWaveplateDeg))
		before, _ = c.mon.Snapshot(ch)
	})
	p.Step(c.cfg.measureDelay(), func() {
		after, _ := c.mon.Snapshot(ch)
		delta := after - before

		s := c.reg.Get(q)
		s.PhotonCount += delta

		var bit byte
		if delta > c.cfg.MeasureThreshold {
			bit = 1
			s.AmpRe, s.AmpIm = 0, 1
		} else {
			s.AmpRe, s.AmpIm = 1, 0
		}
		c.replyByte(bit)
		c.publishQubit(q)
	})
	c.queue.Start(p, now)
}
