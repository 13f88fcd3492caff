// services/qpu/core.go
package qpu

import (
	"encoding/binary"
	"math"

	"quantum-commodore/bus"
	"quantum-commodore/errcode"
	"quantum-commodore/services/qpu/internal/consts"
	"quantum-commodore/services/qpu/internal/photon"
	"quantum-commodore/services/qpu/internal/steps"
	"quantum-commodore/services/qpu/tick"
)

// core owns the qubit registry and everything that mutates it. All methods
// run on the service-loop goroutine; the only concurrent neighbours are the
// detector ISRs, which touch nothing here except the photon monitor's
// atomics.
type core struct {
	cfg   Config
	reg   *Registry
	clk   tick.Source
	mon   *photon.Monitor
	act   Actuator
	out   Port
	queue *steps.Queue
	conn  *bus.Connection // nil in unit tests

	lastMaint uint32
	maintRan  bool
}

func newCore(cfg Config, clk tick.Source, mon *photon.Monitor, act Actuator, out Port, conn *bus.Connection) *core {
	cfg.sanitize()
	return &core{
		cfg:   cfg,
		reg:   NewRegistry(clk.Ticks()),
		clk:   clk,
		mon:   mon,
		act:   act,
		out:   out,
		queue: steps.NewQueue(),
		conn:  conn,
	}
}

// applyConfig merges a JSON document from config/qpu over the running
// configuration. Takes effect from the next operation.
func (c *core) applyConfig(cfg Config) {
	cfg.sanitize()
	c.cfg = cfg
	c.mon.SetWindow(cfg.CoincidenceWindowTicks)
}

// -----------------------------------------------------------------------------
// Replies
// -----------------------------------------------------------------------------

func (c *core) replyByte(b byte) {
	if c.out == nil {
		return
	}
	c.out.Write([]byte{b})
}

func (c *core) replyFloat(f float32) {
	if c.out == nil {
		return
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
	c.out.Write(buf[:])
}

// drop implements the error policy for invalid commands: silence on the
// wire by default, a single NAK byte when reply_errors is configured.
// Either way the code goes out on the telemetry bus.
func (c *core) drop(code errcode.Code) {
	if c.cfg.ReplyErrors {
		c.replyByte(consts.NAK)
	}
	c.publishError(code)
}

func (c *core) publishError(code errcode.Code) {
	if c.conn == nil {
		return
	}
	c.conn.Publish(c.conn.NewMessage(
		bus.T(consts.TokQPU, consts.TokError),
		string(code),
		false,
	))
}

// actuate reports actuator write failures without aborting the operation;
// the servo board retries on its own loop.
func (c *core) actuate(err error) {
	if err == nil {
		return
	}
	println("Warn: actuator write failed:", err.Error())
	code := errcode.Of(err)
	if code == errcode.Error {
		code = errcode.ActuatorFault
	}
	c.publishError(code)
}

// -----------------------------------------------------------------------------
// Telemetry
// -----------------------------------------------------------------------------

func (c *core) publishQubit(i int) {
	if c.conn == nil {
		return
	}
	q := c.reg.Get(i)
	c.conn.Publish(c.conn.NewMessage(
		bus.T(consts.TokQPU, consts.TokQubit, i, consts.TokState),
		map[string]any{
			"amp_re":       q.AmpRe,
			"amp_im":       q.AmpIm,
			"phase":        q.Phase,
			"photon_count": q.PhotonCount,
			"syndrome":     q.Syndrome,
			"topological":  q.Topological,
			"last_refresh": q.LastRefresh,
		},
		true,
	))
}

func (c *core) publishState(level, status string) {
	if c.conn == nil {
		return
	}
	c.conn.Publish(c.conn.NewMessage(
		bus.T(consts.TokQPU, consts.TokState),
		map[string]any{"level": level, "status": status},
		true,
	))
}

func (c *core) publishDetectorStats() {
	if c.conn == nil {
		return
	}
	c0, t0 := c.mon.Snapshot(0)
	c1, t1 := c.mon.Snapshot(1)
	c.conn.Publish(c.conn.NewMessage(
		bus.T(consts.TokQPU, consts.TokDetector, consts.TokStats),
		map[string]any{
			"pulses_0":     c0,
			"pulses_1":     c1,
			"last_tick_0":  t0,
			"last_tick_1":  t1,
			"coincidences": c.mon.Coincidences(),
			"event_drops":  c.mon.Drops(),
		},
		true,
	))
}

// -----------------------------------------------------------------------------
// Pauli primitives (shared by dispatched gates and maintenance)
// -----------------------------------------------------------------------------

func (c *core) applyPauliX(i int) {
	q := c.reg.Get(i)
	c.actuate(c.act.SetWaveplate(consts.PauliWaveplateDeg))
	q.AmpRe, q.AmpIm = q.AmpIm, q.AmpRe
}

func (c *core) applyPauliY(i int) {
	q := c.reg.Get(i)
	c.actuate(c.act.SetWaveplate(consts.PauliWaveplateDeg))
	c.actuate(c.act.SetPhase(math.Pi / 2))
	q.AmpRe, q.AmpIm = -q.AmpIm, q.AmpRe
}

func (c *core) applyPauliZ(i int) {
	q := c.reg.Get(i)
	q.Phase += math.Pi
	c.actuate(c.act.SetPhase(q.Phase))
}

// preempt cancels any in-flight program touching qubit i so a newly arrived
// command wins over a running ramp or settle sequence.
func (c *core) preempt(i int) {
	if c.queue.Cancel(i) {
		c.publishError(errcode.RampCancelled)
	}
}

// validQubit applies the bounds check. Invalid indices trigger the drop
// policy and nothing else: no reply, no state change.
func (c *core) validQubit(i int) bool {
	if c.reg.Valid(i) {
		return true
	}
	c.drop(errcode.QubitOutOfRange)
	return false
}

// channelFor maps a qubit slot onto its detector channel.
func channelFor(qubit int) int { return qubit % 2 }

func (c *core) ticks() uint32 { return c.clk.Ticks() }
