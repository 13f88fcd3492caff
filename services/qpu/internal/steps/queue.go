// services/qpu/internal/steps/queue.go
package steps

import "time"

// Action runs in service-loop context. It must not block.
type Action func()

type step struct {
	after time.Duration // delay since the previous step ran
	run   Action
}

// Program is a resumable sequence of timed steps. Gate operations that used
// to busy-wait are expressed as programs so the command and maintenance
// paths are never starved while a ramp or settle interval elapses.
type Program struct {
	name   string
	qubits []int
	steps  []step

	idx       int
	due       time.Time
	cancelled bool
}

// NewProgram names a program and binds it to the qubit slots it touches.
func NewProgram(name string, qubits ...int) *Program {
	return &Program{name: name, qubits: qubits}
}

// Step appends an action that fires 'after' the previous step. Returns the
// program for chaining.
func (p *Program) Step(after time.Duration, fn Action) *Program {
	if after < 0 {
		after = 0
	}
	p.steps = append(p.steps, step{after: after, run: fn})
	return p
}

// Name returns the program's label (telemetry only).
func (p *Program) Name() string { return p.name }

func (p *Program) touches(q int) bool {
	for _, x := range p.qubits {
		if x == q {
			return true
		}
	}
	return false
}

// Queue schedules programs against wall-clock due times. It is owned by a
// single goroutine (the service loop); no internal locking.
type Queue struct {
	items []*Program
}

func NewQueue() *Queue { return &Queue{} }

// Start enqueues p; its first step fires at now + steps[0].after.
// Empty programs are discarded.
func (q *Queue) Start(p *Program, now time.Time) {
	if p == nil || len(p.steps) == 0 {
		return
	}
	p.idx = 0
	p.due = now.Add(p.steps[0].after)
	q.items = append(q.items, p)
}

// Busy reports whether any in-flight program touches qubit i.
func (q *Queue) Busy(i int) bool {
	for _, p := range q.items {
		if !p.cancelled && p.touches(i) {
			return true
		}
	}
	return false
}

// Cancel aborts every in-flight program touching qubit i. Already-executed
// steps are not undone; pending steps never run. Reports whether anything
// was cancelled.
func (q *Queue) Cancel(i int) bool {
	hit := false
	for _, p := range q.items {
		if !p.cancelled && p.touches(i) {
			p.cancelled = true
			hit = true
		}
	}
	return hit
}

// NextDue returns the earliest pending due time.
func (q *Queue) NextDue() (time.Time, bool) {
	var min time.Time
	for _, p := range q.items {
		if p.cancelled {
			continue
		}
		if min.IsZero() || p.due.Before(min) {
			min = p.due
		}
	}
	return min, !min.IsZero()
}

// RunDue executes every step whose due time has passed, advancing programs
// through consecutive zero-delay steps in one call. Finished and cancelled
// programs are dropped. Returns the number of steps executed.
func (q *Queue) RunDue(now time.Time) int {
	ran := 0
	var keep []*Program
	for _, p := range q.items {
		for !p.cancelled && p.idx < len(p.steps) && !now.Before(p.due) {
			fn := p.steps[p.idx].run
			p.idx++
			if p.idx < len(p.steps) {
				p.due = p.due.Add(p.steps[p.idx].after)
			}
			if fn != nil {
				fn()
			}
			ran++
		}
		if !p.cancelled && p.idx < len(p.steps) {
			keep = append(keep, p)
		}
	}
	q.items = keep
	return ran
}

// Len reports in-flight (non-cancelled) programs.
func (q *Queue) Len() int {
	n := 0
	for _, p := range q.items {
		if !p.cancelled {
			n++
		}
	}
	return n
}
