// services/qpu/core_test.go
package qpu

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"quantum-commodore/services/qpu/internal/consts"
	"quantum-commodore/services/qpu/internal/photon"
	"quantum-commodore/services/qpu/tick"
)

// ----------------------------- fakes ------------------------------------------

type actCall struct {
	kind string
	v    float64
}

type fakeAct struct {
	calls []actCall
	power []PowerMode
}

func (a *fakeAct) SetPolarization(deg float64) error {
	a.calls = append(a.calls, actCall{"polarization", deg})
	return nil
}

func (a *fakeAct) SetPhase(rad float64) error {
	a.calls = append(a.calls, actCall{"phase", rad})
	return nil
}

func (a *fakeAct) SetWaveplate(deg float64) error {
	a.calls = append(a.calls, actCall{"waveplate", deg})
	return nil
}

func (a *fakeAct) SetPower(m PowerMode) error {
	a.power = append(a.power, m)
	return nil
}

func (a *fakeAct) count(kind string) int {
	n := 0
	for _, c := range a.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

// newTestCore builds a core against a manual clock, a recording actuator,
// and a loopback port. The returned port is the host side: replies land
// there.
func newTestCore(t *testing.T) (*core, *tick.Manual, *fakeAct, *RingPort) {
	t.Helper()
	clk := &tick.Manual{}
	mon := photon.NewMonitor(clk, consts.DefCoincidenceWindow, 8)
	act := &fakeAct{}
	dev, host := NewLoopback(256)
	c := newCore(DefaultConfig(), clk, mon, act, dev, nil)
	return c, clk, act, host
}

// runAll executes every pending program step in one shot.
func runAll(c *core, from time.Time) {
	c.queue.RunDue(from.Add(time.Hour))
}

func readReply(t *testing.T, p *RingPort, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	got := 0
	for got < n {
		m := p.TryRead(buf[got:])
		if m == 0 {
			t.Fatalf("reply truncated: got %d of %d bytes", got, n)
		}
		got += m
	}
	return buf
}

func wantNoReply(t *testing.T, p *RingPort) {
	t.Helper()
	var b [1]byte
	if p.TryRead(b[:]) != 0 {
		t.Fatalf("unexpected reply byte %#02x", b[0])
	}
}

// ----------------------------- gates -------------------------------------------

func TestPauliX_TwiceRestoresAmplitudes(t *testing.T) {
	c, _, act, _ := newTestCore(t)
	q := c.reg.Get(3)
	q.AmpRe, q.AmpIm = 0.8, 0.2

	c.opPauliX(3)
	if q.AmpRe != 0.2 || q.AmpIm != 0.8 {
		t.Fatalf("after X: (%v, %v)", q.AmpRe, q.AmpIm)
	}
	c.opPauliX(3)
	if q.AmpRe != 0.8 || q.AmpIm != 0.2 {
		t.Fatalf("after XX: (%v, %v)", q.AmpRe, q.AmpIm)
	}
	if act.count("waveplate") != 2 {
		t.Errorf("waveplate writes = %d, want 2", act.count("waveplate"))
	}
}

func TestPauliY(t *testing.T) {
	c, _, act, _ := newTestCore(t)
	q := c.reg.Get(0)
	q.AmpRe, q.AmpIm = 0.6, 0.3

	c.opPauliY(0)
	if q.AmpRe != -0.3 || q.AmpIm != 0.6 {
		t.Fatalf("after Y: (%v, %v)", q.AmpRe, q.AmpIm)
	}
	if act.count("phase") != 1 || act.count("waveplate") != 1 {
		t.Error("Y must write both waveplate and phase modulator")
	}
}

func TestPauliZ_PhaseAccumulatesRaw(t *testing.T) {
	c, _, _, _ := newTestCore(t)
	q := c.reg.Get(1)

	c.opPauliZ(1)
	c.opPauliZ(1)
	// No mod-2π reduction: two Z applications leave the raw sum.
	if q.Phase != 2*math.Pi {
		t.Fatalf("phase = %v, want 2π", q.Phase)
	}
}

func TestGeometricPhase_RampCommitsAtEnd(t *testing.T) {
	c, _, act, _ := newTestCore(t)
	now := time.Now()
	q := c.reg.Get(2)
	q.Phase = 1.0

	c.opGeometricPhase(2, math.Pi/2, now)
	if q.Phase != 1.0 {
		t.Fatal("phase committed before the ramp finished")
	}
	runAll(c, now)

	if q.Phase != 1.0+math.Pi/2 {
		t.Fatalf("phase = %v, want %v", q.Phase, 1.0+math.Pi/2)
	}
	if got := act.count("phase"); got != c.cfg.RampSteps {
		t.Errorf("modulator writes = %d, want %d", got, c.cfg.RampSteps)
	}
	// Final modulator setting is the ramp target.
	last := act.calls[len(act.calls)-1]
	if last.kind != "phase" || math.Abs(last.v-(1.0+math.Pi/2)) > 1e-9 {
		t.Errorf("last modulator write = %+v", last)
	}
}

func TestGeometricPhase_PreemptionLeavesPhaseUncommitted(t *testing.T) {
	c, _, _, _ := newTestCore(t)
	now := time.Now()
	q := c.reg.Get(2)

	c.opGeometricPhase(2, math.Pi, now)
	c.queue.RunDue(now.Add(3 * c.cfg.rampStep())) // a few steps in

	// A newer command for the same qubit cancels the ramp.
	c.opPauliX(2)
	runAll(c, now)

	if q.Phase != 0 {
		t.Fatalf("preempted ramp committed phase %v", q.Phase)
	}
	if c.queue.Len() != 0 {
		t.Error("cancelled program still queued")
	}
}

func TestTopologicalEnable_ClearsSyndrome(t *testing.T) {
	c, _, _, _ := newTestCore(t)
	q := c.reg.Get(5)
	q.Syndrome = SynX | SynZ

	c.opTopological(5)
	if !q.Topological || q.Syndrome != 0 {
		t.Fatalf("after enable: topo=%v syn=%#02x", q.Topological, q.Syndrome)
	}
}

// ----------------------------- measurements ------------------------------------

func TestWeakMeasure_ReportsCountOverThousand(t *testing.T) {
	c, _, act, host := newTestCore(t)
	now := time.Now()

	c.opWeakMeasure(0, now)
	c.queue.RunDue(now) // snapshot + power down

	for i := 0; i < 2500; i++ {
		c.mon.Pulse(0)
	}
	runAll(c, now)

	b := readReply(t, host, 4)
	got := math.Float32frombits(binary.LittleEndian.Uint32(b))
	if got != 2.5 {
		t.Fatalf("strength = %v, want 2.5", got)
	}
	if c.reg.Get(0).PhotonCount != 2500 {
		t.Errorf("photon count = %d", c.reg.Get(0).PhotonCount)
	}
	if len(act.power) != 2 || act.power[0] != PowerLow || act.power[1] != PowerFull {
		t.Errorf("power sequence = %v, want [low full]", act.power)
	}
}

func TestWeakMeasure_DoesNotResetDetectorCounters(t *testing.T) {
	c, _, _, host := newTestCore(t)
	now := time.Now()

	for i := 0; i < 1000; i++ {
		c.mon.Pulse(0)
	}
	c.opWeakMeasure(0, now)
	runAll(c, now)
	readReply(t, host, 4)

	cnt, _ := c.mon.Snapshot(0)
	if cnt != 1000 {
		t.Fatalf("detector counter = %d, want 1000 (no reset)", cnt)
	}
	// Second measurement reports the cumulative count.
	c.opWeakMeasure(0, now)
	runAll(c, now)
	b := readReply(t, host, 4)
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b)); got != 1.0 {
		t.Errorf("second strength = %v, want 1.0", got)
	}
}

func TestSyndrome_AllBitsWhenChannel0Leads(t *testing.T) {
	c, _, act, host := newTestCore(t)
	now := time.Now()

	for i := 0; i < 5; i++ {
		c.mon.Pulse(0)
	}
	c.opSyndrome(1, now)
	runAll(c, now)

	if b := readReply(t, host, 1); b[0] != 0x07 {
		t.Fatalf("syndrome = %#02x, want 0x07", b[0])
	}
	if c.reg.Get(1).Syndrome != 0x07 {
		t.Error("syndrome not committed to the registry")
	}
	// Three polarizer settings probed in order.
	var degs []float64
	for _, call := range act.calls {
		if call.kind == "polarization" {
			degs = append(degs, call.v)
		}
	}
	want := []float64{0, 45, 90}
	if len(degs) != 3 || degs[0] != want[0] || degs[1] != want[1] || degs[2] != want[2] {
		t.Errorf("polarizer settings = %v, want %v", degs, want)
	}
}

func TestSyndrome_ZeroWhenChannel1Leads(t *testing.T) {
	c, _, _, host := newTestCore(t)
	now := time.Now()

	for i := 0; i < 5; i++ {
		c.mon.Pulse(1)
	}
	c.opSyndrome(0, now)
	runAll(c, now)

	if b := readReply(t, host, 1); b[0] != 0 {
		t.Fatalf("syndrome = %#02x, want 0", b[0])
	}
}

func TestMeasure_AboveThresholdCollapsesToOne(t *testing.T) {
	c, _, _, host := newTestCore(t)
	now := time.Now()

	c.opMeasure(0, now)
	c.queue.RunDue(now) // basis set + before snapshot
	for i := 0; i < int(c.cfg.MeasureThreshold)+10; i++ {
		c.mon.Pulse(0)
	}
	runAll(c, now)

	if b := readReply(t, host, 1); b[0] != 1 {
		t.Fatalf("outcome = %d, want 1", b[0])
	}
	q := c.reg.Get(0)
	if q.AmpRe != 0 || q.AmpIm != 1 {
		t.Errorf("collapsed to (%v, %v), want (0, 1)", q.AmpRe, q.AmpIm)
	}
}

func TestMeasure_BelowThresholdCollapsesToZero(t *testing.T) {
	c, _, _, host := newTestCore(t)
	now := time.Now()
	q := c.reg.Get(1)
	q.Phase = 2.5

	c.opMeasure(1, now)
	runAll(c, now)

	if b := readReply(t, host, 1); b[0] != 0 {
		t.Fatalf("outcome = %d, want 0", b[0])
	}
	if q.AmpRe != 1 || q.AmpIm != 0 {
		t.Errorf("collapsed to (%v, %v), want (1, 0)", q.AmpRe, q.AmpIm)
	}
	if q.Phase != 2.5 {
		t.Error("measurement must not touch phase")
	}
}

// ----------------------------- entangle ----------------------------------------

func TestEntangle_StarvedWindowCopiesSyndrome(t *testing.T) {
	c, _, _, _ := newTestCore(t)
	now := time.Now()
	c.reg.Get(0).Syndrome = 0x05

	c.opEntangle(0, 1, now)
	runAll(c, now) // zero coincidences accumulated

	if got := c.reg.Get(1).Syndrome; got != 0x05 {
		t.Fatalf("target syndrome = %#02x, want 0x05", got)
	}
}

func TestEntangle_BusyWindowLeavesTargetAlone(t *testing.T) {
	c, _, _, _ := newTestCore(t)
	now := time.Now()
	c.reg.Get(0).Syndrome = 0x05

	c.opEntangle(0, 1, now)
	c.queue.RunDue(now) // baseline snapshot
	for i := 0; i < 30; i++ {
		c.mon.Pulse(0)
		c.mon.Pulse(1)
	}
	runAll(c, now)

	if got := c.reg.Get(1).Syndrome; got != 0 {
		t.Fatalf("target syndrome = %#02x, want untouched 0", got)
	}
}

// ----------------------------- drop policy -------------------------------------

func TestInvalidQubit_SilentByDefault(t *testing.T) {
	c, _, act, host := newTestCore(t)
	now := time.Now()

	c.opPauliX(8)
	c.opPauliX(-1)
	c.opWeakMeasure(250, now)
	c.opEntangle(0, 99, now)
	runAll(c, now)

	wantNoReply(t, host)
	if len(act.calls) != 0 {
		t.Errorf("actuator touched for invalid indices: %v", act.calls)
	}
	if c.queue.Len() != 0 {
		t.Error("programs queued for invalid indices")
	}
}

func TestInvalidQubit_NAKWhenConfigured(t *testing.T) {
	c, _, _, host := newTestCore(t)
	cfg := c.cfg
	cfg.ReplyErrors = true
	c.applyConfig(cfg)

	c.opPauliX(8)
	if b := readReply(t, host, 1); b[0] != consts.NAK {
		t.Fatalf("got %#02x, want NAK", b[0])
	}
}

func TestUnknownOpcode_NAKWhenConfigured(t *testing.T) {
	c, _, _, host := newTestCore(t)
	cfg := c.cfg
	cfg.ReplyErrors = true
	c.applyConfig(cfg)

	var d decoder
	cmd, ok := d.feed(0xEE)
	if !ok {
		t.Fatal("unknown opcode did not complete a command")
	}
	c.dispatch(cmd, time.Now())
	if b := readReply(t, host, 1); b[0] != consts.NAK {
		t.Fatalf("got %#02x, want NAK", b[0])
	}
}

// ----------------------------- registry ----------------------------------------

func TestRegistry_BootState(t *testing.T) {
	r := NewRegistry(77)
	amp := 1 / math.Sqrt2
	for i := 0; i < NumQubits; i++ {
		q := r.Get(i)
		if q.AmpRe != amp || q.AmpIm != amp {
			t.Fatalf("slot %d amplitudes (%v, %v)", i, q.AmpRe, q.AmpIm)
		}
		if q.LastRefresh != 77 || q.Topological || q.Syndrome != 0 {
			t.Fatalf("slot %d not at boot defaults: %+v", i, q)
		}
	}
	if r.Valid(-1) || r.Valid(NumQubits) {
		t.Error("out-of-range index reported valid")
	}
	if !r.Valid(0) || !r.Valid(NumQubits-1) {
		t.Error("in-range index reported invalid")
	}
}
