package ramp

import "quantum-commodore/x/mathx"

// Linear describes a caller-driven linear sweep between two angles.
// The caller decides when each step fires; the ramp only supplies values.
// steps==0 degenerates to a single snap to 'to'.
type Linear struct {
	from, to float64
	steps    int
}

func NewLinear(from, to float64, steps int) Linear {
	if steps < 0 {
		steps = 0
	}
	return Linear{from: from, to: to, steps: steps}
}

// Steps returns the number of intermediate set-points, including the final one.
func (l Linear) Steps() int {
	if l.steps == 0 {
		return 1
	}
	return l.steps
}

// At returns the set-point for step i in [0, Steps()-1].
// The final step always lands exactly on 'to'.
func (l Linear) At(i int) float64 {
	n := l.Steps()
	if i >= n-1 {
		return l.to
	}
	if i < 0 {
		i = 0
	}
	return mathx.Lerp(l.from, l.to, float64(i+1)/float64(n))
}

// Target returns the ramp end value.
func (l Linear) Target() float64 { return l.to }
