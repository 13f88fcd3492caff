// services/qpu/dispatcher.go
package qpu

import (
	"encoding/binary"
	"math"
	"time"

	"quantum-commodore/errcode"
	"quantum-commodore/services/qpu/internal/consts"
)

// Command is one decoded protocol unit.
type Command struct {
	Op    byte
	Q1    int
	Q2    int
	Angle float64
}

// operandLen returns the fixed operand byte count for an opcode.
// Unknown opcodes report ok=false.
func operandLen(op byte) (n int, ok bool) {
	switch op {
	case consts.OpWeakMeasure, consts.OpSyndrome, consts.OpPauliX,
		consts.OpPauliY, consts.OpPauliZ, consts.OpTopological,
		consts.OpMeasure:
		return 1, true
	case consts.OpPhaseGate:
		return 5, true // qubit + float32 angle
	case consts.OpEntangle:
		return 2, true
	default:
		return 0, false
	}
}

// decoder assembles opcode + operands from the byte stream. It is a plain
// state machine: no buffering beyond the operands of the command in flight.
type decoder struct {
	op       byte
	need     int
	buf      [8]byte
	n        int
	decoding bool
}

// feed consumes one byte. When a command completes it is returned with
// ok=true. An unknown opcode completes immediately so the dispatcher can
// apply the drop policy to it (its operand bytes, if any, will be misread
// as opcodes; resynchronizing on a byte stream without framing is the
// host's problem).
func (d *decoder) feed(b byte) (cmd Command, ok bool) {
	if !d.decoding {
		n, known := operandLen(b)
		if !known {
			return Command{Op: b}, true
		}
		d.op = b
		d.need = n
		d.n = 0
		d.decoding = true
		return Command{}, false
	}

	d.buf[d.n] = b
	d.n++
	if d.n < d.need {
		return Command{}, false
	}
	d.decoding = false
	return d.finish(), true
}

func (d *decoder) finish() Command {
	c := Command{Op: d.op, Q1: int(d.buf[0])}
	switch d.op {
	case consts.OpPhaseGate:
		bits := binary.LittleEndian.Uint32(d.buf[1:5])
		c.Angle = float64(math.Float32frombits(bits))
	case consts.OpEntangle:
		c.Q2 = int(d.buf[1])
	}
	return c
}

// dispatch routes a completed command to its operation. Unknown opcodes
// land in the default arm and are dropped per the error policy.
func (c *core) dispatch(cmd Command, now time.Time) {
	switch cmd.Op {
	case consts.OpWeakMeasure:
		c.opWeakMeasure(cmd.Q1, now)
	case consts.OpSyndrome:
		c.opSyndrome(cmd.Q1, now)
	case consts.OpPhaseGate:
		c.opGeometricPhase(cmd.Q1, cmd.Angle, now)
	case consts.OpPauliX:
		c.opPauliX(cmd.Q1)
	case consts.OpPauliY:
		c.opPauliY(cmd.Q1)
	case consts.OpPauliZ:
		c.opPauliZ(cmd.Q1)
	case consts.OpTopological:
		c.opTopological(cmd.Q1)
	case consts.OpEntangle:
		c.opEntangle(cmd.Q1, cmd.Q2, now)
	case consts.OpMeasure:
		c.opMeasure(cmd.Q1, now)
	default:
		c.drop(errcode.UnknownOpcode)
	}
}
