// sim/scenario.go

// Package sim drives the host build of the controller with synthetic photon
// traffic: Poisson singles on each detector channel plus correlated pairs,
// described by a Scenario file that can be hot-reloaded while a run is live.
package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Scenario describes the synthetic optical bench.
type Scenario struct {
	// SinglesHz is the uncorrelated pulse rate per detector channel.
	SinglesHz [2]float64 `yaml:"singles_hz" json:"singles_hz"`

	// PairsHz is the rate of correlated pairs (one pulse on each channel,
	// the second delayed by up to PairJitter).
	PairsHz float64 `yaml:"pairs_hz" json:"pairs_hz"`

	// PairJitter is the max delay between the two pulses of a pair.
	PairJitter time.Duration `yaml:"pair_jitter" json:"pair_jitter"`

	// Seed makes runs reproducible; 0 seeds from the clock.
	Seed uint64 `yaml:"seed" json:"seed"`
}

// DefaultScenario is a bench with modest background singles and enough pair
// flux to trip the default entanglement threshold.
func DefaultScenario() Scenario {
	return Scenario{
		SinglesHz:  [2]float64{200, 200},
		PairsHz:    800,
		PairJitter: 2 * time.Microsecond,
	}
}

func (s *Scenario) sanitize() {
	for i := range s.SinglesHz {
		if s.SinglesHz[i] < 0 {
			s.SinglesHz[i] = 0
		}
	}
	if s.PairsHz < 0 {
		s.PairsHz = 0
	}
	if s.PairJitter <= 0 {
		s.PairJitter = 2 * time.Microsecond
	}
}

// LoadScenario reads a scenario from a YAML or JSON file, keyed on the
// extension. Missing fields keep their defaults.
func LoadScenario(path string) (Scenario, error) {
	sc := DefaultScenario()
	raw, err := os.ReadFile(path)
	if err != nil {
		return sc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &sc)
	case ".json":
		err = json.Unmarshal(raw, &sc)
	default:
		err = fmt.Errorf("unsupported scenario format: %s", path)
	}
	if err != nil {
		return DefaultScenario(), err
	}
	sc.sanitize()
	return sc, nil
}

// ----------------------------- Hot reload -------------------------------------

// ScenarioChange is called with the old and new scenario after a reload.
type ScenarioChange func(old, new Scenario)

// Watcher hot-reloads a scenario file on change.
type Watcher struct {
	path string

	mu sync.RWMutex
	sc Scenario

	fsw       *fsnotify.Watcher
	callbacks []ScenarioChange
	done      chan struct{}
}

// NewWatcher loads the initial scenario and begins watching the file.
func NewWatcher(path string) (*Watcher, error) {
	sc, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{path: path, sc: sc, fsw: fsw, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

// Scenario returns the current scenario.
func (w *Watcher) Scenario() Scenario {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sc
}

// OnChange registers a reload callback.
func (w *Watcher) OnChange(cb ScenarioChange) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, cb)
	w.mu.Unlock()
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	// Debounce: editors fire several events per save.
	var debounce *time.Timer
	for {
		select {
		case <-w.done:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Name != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, w.reload)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) reload() {
	sc, err := LoadScenario(w.path)
	if err != nil {
		println("Warn: sim: scenario reload failed:", err.Error())
		return
	}
	w.mu.Lock()
	old := w.sc
	w.sc = sc
	cbs := append([]ScenarioChange(nil), w.callbacks...)
	w.mu.Unlock()
	for _, cb := range cbs {
		cb(old, sc)
	}
}
