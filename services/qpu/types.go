// services/qpu/types.go
package qpu

import "quantum-commodore/services/qpu/tick"

// PowerMode selects the optical pump power for a measurement.
type PowerMode uint8

const (
	PowerFull PowerMode = iota
	PowerLow
)

// Actuator drives the optical bench: polarizer rotation, phase modulator,
// and waveplate angle. Implementations must be cheap to call from the
// service loop; errors are reported but never abort an operation mid-flight.
type Actuator interface {
	SetPolarization(deg float64) error
	SetPhase(rad float64) error
	SetWaveplate(deg float64) error
	SetPower(mode PowerMode) error
}

// DetectorPin is an edge-triggered input. The handler runs at interrupt
// priority and must complete in a handful of instructions.
type DetectorPin interface {
	SetIRQ(handler func()) error
	ClearIRQ() error
}

// Port is the already-reliable command byte stream. Readable delivers a
// 0 -> nonzero edge; consumers drain with TryRead until it returns 0.
// Write is best-effort and must not block the service loop.
type Port interface {
	Readable() <-chan struct{}
	TryRead(p []byte) int
	Write(p []byte) (int, error)
}

// Deps carries everything platform-specific into Run.
type Deps struct {
	Clock     tick.Source
	Port      Port
	Actuator  Actuator
	Detectors [2]DetectorPin
}
