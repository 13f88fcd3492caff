// services/qpu/internal/steps/queue_test.go
package steps

import (
	"testing"
	"time"
)

func TestRunsInOrder(t *testing.T) {
	q := NewQueue()
	t0 := time.Now()

	var got []int
	p := NewProgram("seq", 0).
		Step(0, func() { got = append(got, 1) }).
		Step(10*time.Millisecond, func() { got = append(got, 2) }).
		Step(10*time.Millisecond, func() { got = append(got, 3) })
	q.Start(p, t0)

	if n := q.RunDue(t0); n != 1 {
		t.Fatalf("ran %d steps at t0, want 1", n)
	}
	if n := q.RunDue(t0.Add(9 * time.Millisecond)); n != 0 {
		t.Fatalf("ran %d steps before due, want 0", n)
	}
	q.RunDue(t0.Add(10 * time.Millisecond))
	q.RunDue(t0.Add(20 * time.Millisecond))

	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("order = %v, want [1 2 3]", got)
	}
	if q.Len() != 0 {
		t.Fatalf("queue not drained: %d", q.Len())
	}
}

func TestZeroDelayStepsCollapse(t *testing.T) {
	q := NewQueue()
	t0 := time.Now()

	ran := 0
	p := NewProgram("burst", 1).
		Step(0, func() { ran++ }).
		Step(0, func() { ran++ }).
		Step(0, func() { ran++ })
	q.Start(p, t0)

	if n := q.RunDue(t0); n != 3 {
		t.Fatalf("ran %d, want 3 in one call", n)
	}
	if ran != 3 {
		t.Fatalf("actions ran %d, want 3", ran)
	}
}

func TestBusyAndCancel(t *testing.T) {
	q := NewQueue()
	t0 := time.Now()

	committed := false
	p := NewProgram("ramp", 2).
		Step(0, func() {}).
		Step(time.Millisecond, func() { committed = true })
	q.Start(p, t0)
	q.RunDue(t0)

	if !q.Busy(2) {
		t.Fatal("qubit 2 should be busy")
	}
	if q.Busy(3) {
		t.Fatal("qubit 3 should be idle")
	}

	if !q.Cancel(2) {
		t.Fatal("Cancel reported no hit")
	}
	q.RunDue(t0.Add(time.Second))

	if committed {
		t.Fatal("cancelled step still ran")
	}
	if q.Busy(2) {
		t.Fatal("qubit 2 still busy after cancel")
	}
}

func TestTwoQubitProgramBlocksBoth(t *testing.T) {
	q := NewQueue()
	p := NewProgram("entangle", 1, 4).Step(time.Hour, func() {})
	q.Start(p, time.Now())

	if !q.Busy(1) || !q.Busy(4) {
		t.Fatal("both qubits should be busy")
	}
}

func TestNextDue(t *testing.T) {
	q := NewQueue()
	t0 := time.Now()

	if _, ok := q.NextDue(); ok {
		t.Fatal("empty queue reported a due time")
	}

	q.Start(NewProgram("a", 0).Step(20*time.Millisecond, func() {}), t0)
	q.Start(NewProgram("b", 1).Step(5*time.Millisecond, func() {}), t0)

	due, ok := q.NextDue()
	if !ok || !due.Equal(t0.Add(5*time.Millisecond)) {
		t.Fatalf("NextDue = %v ok=%v, want t0+5ms", due, ok)
	}
}
