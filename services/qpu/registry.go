// services/qpu/registry.go
package qpu

import "math"

// NumQubits is the fixed capacity of the registry. Slots are created at
// startup and mutated in place for the life of the process; they are never
// destroyed or reallocated.
const NumQubits = 8

// Syndrome bit assignments.
const (
	SynX uint8 = 1 << 0
	SynY uint8 = 1 << 1
	SynZ uint8 = 1 << 2
)

// QubitState is one registry slot. Amplitudes are NOT kept unit-norm: gates
// apply their raw component updates and no renormalization step exists.
// Phase accumulates in radians and is never reduced mod 2π.
type QubitState struct {
	AmpRe, AmpIm float64
	Phase        float64
	PhotonCount  uint32
	LastRefresh  uint32 // tick timestamp of last maintenance action
	Syndrome     uint8  // bit0 X, bit1 Y, bit2 Z
	Topological  bool
}

// Registry is an arena-style fixed-capacity store addressed by integer
// index. It is mutated exclusively from service-loop context.
type Registry struct {
	slots [NumQubits]QubitState
}

// NewRegistry initializes all slots to the equal superposition with the
// given tick as their refresh baseline.
func NewRegistry(now uint32) *Registry {
	r := &Registry{}
	amp := 1 / math.Sqrt2
	for i := range r.slots {
		r.slots[i] = QubitState{AmpRe: amp, AmpIm: amp, LastRefresh: now}
	}
	return r
}

// Valid bounds-checks a qubit index.
func (r *Registry) Valid(i int) bool { return i >= 0 && i < NumQubits }

// Get returns the slot for a valid index. Callers must check Valid first.
func (r *Registry) Get(i int) *QubitState { return &r.slots[i] }
