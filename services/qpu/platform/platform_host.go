// services/qpu/platform/platform_host.go
//go:build !rp2040 && !rp2350

package platform

import (
	"context"
	"sync"

	"quantum-commodore/drivers/polaris"
	"quantum-commodore/services/qpu"
	"quantum-commodore/services/qpu/internal/consts"
	"quantum-commodore/services/qpu/tick"
)

// ----------------------------- I²C (host) ------------------------------------

// HostI2C implements tinygo drivers.I2C for host-side runs. It answers the
// Polaris-B identity probe and records the last transaction for tests.
type HostI2C struct {
	mu     sync.Mutex
	LastTx struct {
		Addr uint16
		W    []byte
		Rn   int
	}
}

func (h *HostI2C) Tx(addr uint16, w, r []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastTx.Addr = addr
	h.LastTx.W = append([]byte(nil), w...)
	h.LastTx.Rn = len(r)
	if len(w) == 1 && w[0] == 0x7F && len(r) > 0 {
		r[0] = 0xB3 // Polaris-B identity
	}
	return nil
}

// ----------------------------- Detector pins ---------------------------------

// SimPin implements qpu.DetectorPin; Fire plays the role of the hardware
// edge interrupt.
type SimPin struct {
	mu      sync.Mutex
	handler func()
}

func (p *SimPin) SetIRQ(h func()) error {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
	return nil
}

func (p *SimPin) ClearIRQ() error {
	p.mu.Lock()
	p.handler = nil
	p.mu.Unlock()
	return nil
}

// Fire invokes the registered handler, emulating the ISR.
func (p *SimPin) Fire() {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h != nil {
		h()
	}
}

// ----------------------------- Assembly --------------------------------------

// HostSetup extends Setup with the simulator-facing ends of the fakes.
type HostSetup struct {
	Setup

	// HostPort is the far end of the command-stream loopback: write opcodes
	// here, read replies here.
	HostPort *qpu.RingPort

	// Pins are the concrete detector pins, exposed so a photon source can
	// fire them.
	Pins [2]*SimPin

	I2C *HostI2C
}

// Default builds the host variant of the board setup.
func Default(ctx context.Context) *Setup {
	return &NewHost(ctx).Setup
}

// NewHost assembles the host variant: time-derived ticks, loopback command
// stream, Polaris driver against the inert host I²C, and manual detector
// pins. ctx is unused on host; MCU builds start UART pumps with it.
func NewHost(ctx context.Context) *HostSetup {
	_ = ctx

	i2c := &HostI2C{}
	dev := polaris.New(i2c, 0)
	_ = dev.Configure()

	devPort, hostPort := qpu.NewLoopback(1024)
	p0, p1 := &SimPin{}, &SimPin{}

	return &HostSetup{
		Setup: Setup{
			Clock:         tick.NewTimeSource(consts.DefTickHz),
			Port:          devPort,
			Actuator:      qpu.NewPolarisActuator(dev),
			Detectors:     [2]qpu.DetectorPin{p0, p1},
			ReadTempDeciC: func() int32 { return 423 },
		},
		HostPort: hostPort,
		Pins:     [2]*SimPin{p0, p1},
		I2C:      i2c,
	}
}
