// services/qpu/qpu.go
package qpu

import (
	"context"
	"time"

	"quantum-commodore/bus"
	"quantum-commodore/services/qpu/internal/consts"
	"quantum-commodore/services/qpu/internal/photon"
	"quantum-commodore/services/qpu/internal/util"
	"quantum-commodore/x/timex"
)

// Run wires the QPU service and blocks until ctx is cancelled.
//
// Concurrency contract: this goroutine exclusively owns the qubit registry
// (dispatcher, operations, and the maintenance scheduler all execute here,
// strictly sequentially). The detector ISRs touch only the photon monitor's
// atomics. No locks anywhere else.
func Run(ctx context.Context, conn *bus.Connection, d Deps) {
	cfg := DefaultConfig()
	cfg.sanitize()

	mon := photon.NewMonitor(d.Clock, cfg.CoincidenceWindowTicks, 64)
	for i := range d.Detectors {
		if d.Detectors[i] == nil {
			continue
		}
		ch := i
		if err := d.Detectors[i].SetIRQ(func() { mon.Pulse(ch) }); err != nil {
			println("Warn: detector", ch, "irq registration failed:", err.Error())
		}
	}

	s := &service{
		core: newCore(cfg, d.Clock, mon, d.Actuator, d.Port, conn),
		port: d.Port,
	}
	s.loop(ctx)
}

type service struct {
	*core
	port  Port
	dec   decoder
	ready bool
}

func (s *service) loop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(bus.T(consts.TokConfig, consts.TokQPU))
	defer s.conn.Unsubscribe(cfgSub)

	s.publishState("starting", "warmup")

	warm := time.NewTimer(s.cfg.warmup())
	defer warm.Stop()

	stepTimer := time.NewTimer(time.Hour)
	if !stepTimer.Stop() {
		util.DrainTimer(stepTimer)
	}
	defer stepTimer.Stop()

	maint := time.NewTicker(timex.MsDur(s.cfg.MaintMinIntervalMS))
	defer maint.Stop()

	stats := time.NewTicker(time.Second)
	defer stats.Stop()

	for {
		// (re)arm the step timer to the earliest pending program step.
		if due, ok := s.queue.NextDue(); ok {
			util.ResetTimer(stepTimer, time.Until(due))
		} else {
			util.ResetTimer(stepTimer, time.Hour)
		}

		select {
		case <-ctx.Done():
			s.publishState("stopped", "context_cancelled")
			return

		case <-warm.C:
			s.ready = true
			s.port.Write([]byte("QPU ready: 8 qubit slots, 2 detector channels\r\n"))
			s.publishState("ready", "warmup_complete")
			println("Info: qpu ready")
			s.drainPort(time.Now())

		case msg := <-cfgSub.Channel():
			cfg := s.cfg
			if err := util.DecodeJSON(msg.Payload, &cfg); err != nil {
				println("Warn: qpu config decode failed:", err.Error())
				continue
			}
			s.applyConfig(cfg)
			maint.Reset(timex.MsDur(s.cfg.MaintMinIntervalMS))
			s.publishState("ready", "configured")

		case <-s.port.Readable():
			s.drainPort(time.Now())

		case <-stepTimer.C:
			s.queue.RunDue(time.Now())

		case <-maint.C:
			if s.ready {
				s.maintain(time.Now())
			}

		case <-stats.C:
			s.publishDetectorStats()

		case <-s.mon.Events():
			// Telemetry mirror; pulse accounting already happened in the ISR.
		}
	}
}

// drainPort consumes every available byte, dispatching completed commands
// in arrival order. Commands arriving before warm-up completes stay queued
// in the rx ring.
func (s *service) drainPort(now time.Time) {
	if !s.ready {
		return
	}
	var buf [64]byte
	for {
		n := s.port.TryRead(buf[:])
		if n == 0 {
			return
		}
		for _, b := range buf[:n] {
			if cmd, ok := s.dec.feed(b); ok {
				s.dispatch(cmd, now)
			}
		}
	}
}
