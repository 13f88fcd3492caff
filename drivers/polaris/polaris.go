// Package polaris drives the Polaris-B optical bench controller: a small
// I²C slave fronting the polarizer rotation stage, the electro-optic phase
// modulator, and the half-waveplate servo, plus the pump power DAC.
//
// Register writes are fire-and-forget; the board applies set-points on its
// own servo loop. All multi-byte registers are little-endian.
//
// NOTE: I2C.Tx MUST perform a write followed by a repeated-start read when
// both w and r are provided, without releasing the bus.
package polaris

import (
	"tinygo.org/x/drivers"

	"quantum-commodore/errcode"
)

// Default I2C address.
const Address = 0x52

// Register map.
const (
	regPower        = 0x00 // u8: 0 low pump power, 1 full
	regPolarization = 0x02 // u16: centidegrees, 0..18000
	regPhase        = 0x04 // i32: microradians, signed accumulated
	regWaveplate    = 0x08 // u16: centidegrees, 0..9000
	regWhoAmI       = 0x7F // u8: identity, reads 0xB3
)

const whoAmI = 0xB3

// ErrNotPresent is returned by Configure when the identity probe fails.
var ErrNotPresent = &errcode.E{
	C:   errcode.ActuatorFault,
	Op:  "polaris.Configure",
	Msg: "device not present",
}

// Device wraps an I2C connection to a Polaris-B board.
type Device struct {
	bus  drivers.I2C
	addr uint16
	w    [5]byte // reused write buffer, no allocations on the hot path
	r    [1]byte
}

// New creates the Device object; it does not touch the hardware.
// addr==0 selects the default address.
func New(bus drivers.I2C, addr uint16) *Device {
	if addr == 0 {
		addr = Address
	}
	return &Device{bus: bus, addr: addr}
}

// Configure probes the identity register.
func (d *Device) Configure() error {
	d.w[0] = regWhoAmI
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:1]); err != nil {
		return err
	}
	if d.r[0] != whoAmI {
		return ErrNotPresent
	}
	return nil
}

func (d *Device) writeU8(reg, val byte) error {
	d.w[0] = reg
	d.w[1] = val
	return d.bus.Tx(d.addr, d.w[:2], nil)
}

func (d *Device) writeU16(reg byte, val uint16) error {
	d.w[0] = reg
	d.w[1] = byte(val)
	d.w[2] = byte(val >> 8)
	return d.bus.Tx(d.addr, d.w[:3], nil)
}

func (d *Device) writeI32(reg byte, val int32) error {
	d.w[0] = reg
	d.w[1] = byte(val)
	d.w[2] = byte(val >> 8)
	d.w[3] = byte(val >> 16)
	d.w[4] = byte(val >> 24)
	return d.bus.Tx(d.addr, d.w[:5], nil)
}

// SetPolarization rotates the polarizer stage. Degrees are clamped to
// [0, 180] and quantized to centidegrees.
func (d *Device) SetPolarization(deg float64) error {
	if deg < 0 {
		deg = 0
	}
	if deg > 180 {
		deg = 180
	}
	return d.writeU16(regPolarization, uint16(deg*100+0.5))
}

// SetPhase drives the phase modulator. Radians are quantized to
// microradians; the register is signed and accumulates like the firmware's
// phase values (no wrapping).
func (d *Device) SetPhase(rad float64) error {
	const lim = 2147.0 // i32 µrad range guard
	if rad > lim {
		rad = lim
	}
	if rad < -lim {
		rad = -lim
	}
	return d.writeI32(regPhase, int32(rad*1e6))
}

// SetWaveplate positions the half-waveplate. Degrees clamped to [0, 90].
func (d *Device) SetWaveplate(deg float64) error {
	if deg < 0 {
		deg = 0
	}
	if deg > 90 {
		deg = 90
	}
	return d.writeU16(regWaveplate, uint16(deg*100+0.5))
}

// SetPower selects pump power: true = full, false = low.
func (d *Device) SetPower(full bool) error {
	if full {
		return d.writeU8(regPower, 1)
	}
	return d.writeU8(regPower, 0)
}
