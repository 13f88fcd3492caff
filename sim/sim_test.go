// sim/sim_test.go
package sim

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

type countPin struct{ n atomic.Int64 }

func (p *countPin) Fire() { p.n.Add(1) }

func TestLoadScenario_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	body := []byte("singles_hz: [100, 150]\npairs_hz: 300\nseed: 42\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatal(err)
	}
	if sc.SinglesHz != [2]float64{100, 150} {
		t.Errorf("singles = %v", sc.SinglesHz)
	}
	if sc.PairsHz != 300 || sc.Seed != 42 {
		t.Errorf("pairs=%v seed=%v", sc.PairsHz, sc.Seed)
	}
	// Jitter was omitted, keeps the default.
	if sc.PairJitter != DefaultScenario().PairJitter {
		t.Errorf("jitter = %v", sc.PairJitter)
	}
}

func TestLoadScenario_BadExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.toml")
	if err := os.WriteFile(path, []byte("x=1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(path); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestScenario_SanitizeNegativeRates(t *testing.T) {
	sc := Scenario{SinglesHz: [2]float64{-1, 5}, PairsHz: -3}
	sc.sanitize()
	if sc.SinglesHz[0] != 0 || sc.PairsHz != 0 {
		t.Errorf("negative rates survived: %+v", sc)
	}
	if sc.PairJitter <= 0 {
		t.Error("jitter not defaulted")
	}
}

func TestSource_FiresBothChannels(t *testing.T) {
	p0, p1 := &countPin{}, &countPin{}
	src := NewSource([2]Pin{p0, p1})

	src.Run(context.Background(), Scenario{
		SinglesHz:  [2]float64{2000, 2000},
		PairsHz:    2000,
		PairJitter: time.Microsecond,
		Seed:       1,
	})
	time.Sleep(200 * time.Millisecond)
	src.Stop()

	if p0.n.Load() == 0 || p1.n.Load() == 0 {
		t.Fatalf("pulses: ch0=%d ch1=%d, want both nonzero", p0.n.Load(), p1.n.Load())
	}
}

func TestWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	if err := os.WriteFile(path, []byte("pairs_hz: 100\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if got := w.Scenario().PairsHz; got != 100 {
		t.Fatalf("initial pairs_hz = %v", got)
	}

	changed := make(chan Scenario, 1)
	w.OnChange(func(_, sc Scenario) { changed <- sc })

	if err := os.WriteFile(path, []byte("pairs_hz: 250\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case sc := <-changed:
		if sc.PairsHz != 250 {
			t.Errorf("reloaded pairs_hz = %v", sc.PairsHz)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback never fired")
	}
}
