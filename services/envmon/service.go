// services/envmon/service.go
package envmon

import (
	"context"
	"time"

	"quantum-commodore/bus"
	"quantum-commodore/x/mathx"
)

var topicConfigEnvmon = bus.T("config", "envmon")

// Reading is published on env/temp every sample interval.
type Reading struct {
	DeciC     int32
	DriftOver bool
}

// Service watches the board temperature. Optical alignment drifts with
// thermals, so a sustained shift from the startup baseline is worth a
// warning before measurement counts start looking wrong.
type Service struct {
	// ReadTempDeciC samples the board sensor in tenths of a °C.
	ReadTempDeciC func() int32

	interval   time.Duration
	driftDeciC int32
}

func New(read func() int32) *Service {
	return &Service{
		ReadTempDeciC: read,
		interval:      5 * time.Second,
		driftDeciC:    20, // 2.0 °C
	}
}

func (s *Service) applyConfig(payload any) {
	m, ok := payload.(map[string]any)
	if !ok {
		return
	}
	if iv, ok := m["interval"].(float64); ok && iv > 0 {
		s.interval = time.Duration(iv) * time.Second
	}
	if d, ok := m["drift_deci_c"].(float64); ok && d > 0 {
		s.driftDeciC = int32(d)
	}
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigEnvmon)
	defer conn.Unsubscribe(cfgSub)

	baseline := s.ReadTempDeciC()

	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			println("Info: envmon service stopping")
			return
		case <-tick.C:
			t := s.ReadTempDeciC()
			drift := mathx.Abs(t - baseline)
			over := drift > s.driftDeciC
			if over {
				println("Warn: envmon: temperature drift", int(drift), "deci-C from baseline")
			}
			conn.Publish(conn.NewMessage(bus.T("env", "temp"),
				&Reading{DeciC: t, DriftOver: over}, true))
		case msg := <-cfgSub.Channel():
			s.applyConfig(msg.Payload)
			tick.Reset(s.interval)
		}
	}
}

// Start the environment monitor.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
