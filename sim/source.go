// sim/source.go
package sim

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Pin is the firing end of a simulated detector line.
type Pin interface {
	Fire()
}

// Source generates photon pulses against a pair of detector pins: a Poisson
// stream of uncorrelated singles per channel plus correlated pairs where the
// second pulse trails the first by a uniform jitter. Inter-arrival times are
// exponential, so the counting statistics match a real parametric
// down-conversion source well enough for threshold tuning.
type Source struct {
	pins [2]Pin

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSource(pins [2]Pin) *Source {
	return &Source{pins: pins}
}

// Run applies the scenario and generates pulses until Stop or ctx ends.
// Calling Run again with a new scenario replaces the running processes, so
// it doubles as the hot-reload hook.
func (s *Source) Run(ctx context.Context, sc Scenario) {
	sc.sanitize()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	seed := sc.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	for ch := 0; ch < 2; ch++ {
		if sc.SinglesHz[ch] <= 0 {
			continue
		}
		s.wg.Add(1)
		go s.singles(ctx, s.pins[ch], sc.SinglesHz[ch], seed+uint64(ch))
	}
	if sc.PairsHz > 0 {
		s.wg.Add(1)
		go s.pairs(ctx, sc.PairsHz, sc.PairJitter, seed+7)
	}
}

// Stop halts pulse generation and waits for the generators to exit.
func (s *Source) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Source) singles(ctx context.Context, pin Pin, hz float64, seed uint64) {
	defer s.wg.Done()
	exp := distuv.Exponential{Rate: hz, Src: rand.NewSource(seed)}
	for {
		wait := time.Duration(exp.Rand() * float64(time.Second))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
			pin.Fire()
		}
	}
}

func (s *Source) pairs(ctx context.Context, hz float64, jitter time.Duration, seed uint64) {
	defer s.wg.Done()
	src := rand.NewSource(seed)
	exp := distuv.Exponential{Rate: hz, Src: src}
	uni := distuv.Uniform{Min: 0, Max: float64(jitter), Src: src}
	for {
		wait := time.Duration(exp.Rand() * float64(time.Second))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		s.pins[0].Fire()
		// The delay to the partner pulse stays well inside the
		// coincidence window at the default tick rate.
		time.Sleep(time.Duration(uni.Rand()))
		s.pins[1].Fire()
	}
}
