// services/qpu/port.go
package qpu

import "quantum-commodore/x/ring"

// RingPort is a Port over a pair of SPSC byte rings. It backs the host
// build and the loopback used by tests and the simulator; on RP2 targets
// the UART pump fills the same rings (see platform).
type RingPort struct {
	rx *ring.Ring
	tx *ring.Ring
}

func NewRingPort(rx, tx *ring.Ring) *RingPort { return &RingPort{rx: rx, tx: tx} }

func (p *RingPort) Readable() <-chan struct{} { return p.rx.Readable() }

func (p *RingPort) TryRead(b []byte) int { return p.rx.ReadInto(b) }

// Write is best-effort: bytes that do not fit are shed rather than blocking
// the service loop.
func (p *RingPort) Write(b []byte) (int, error) { return p.tx.WriteFrom(b), nil }

// NewLoopback returns two connected ports: whatever one side writes, the
// other side reads. size is the per-direction ring capacity (power of two).
func NewLoopback(size int) (a, b *RingPort) {
	r1 := ring.New(size)
	r2 := ring.New(size)
	return NewRingPort(r1, r2), NewRingPort(r2, r1)
}
