// services/envmon/service_test.go
package envmon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"quantum-commodore/bus"
)

func TestEnvmon_PublishesReadingsAndFlagsDrift(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("envmon")
	watch := b.NewConnection("watch")

	var temp atomic.Int32
	temp.Store(420)

	svc := New(func() int32 { return temp.Load() })
	svc.interval = 10 * time.Millisecond
	svc.driftDeciC = 15

	sub := watch.Subscribe(bus.T("env", "temp"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Start(ctx, conn); err != nil {
		t.Fatal(err)
	}

	// First reading: at baseline, no drift.
	select {
	case msg := <-sub.Channel():
		r := msg.Payload.(*Reading)
		if r.DeciC != 420 || r.DriftOver {
			t.Fatalf("got %+v, want 420 deci-C no drift", r)
		}
	case <-time.After(time.Second):
		t.Fatal("no reading published")
	}

	// Push the temperature past the drift threshold.
	temp.Store(440)
	deadline := time.After(time.Second)
	for {
		select {
		case msg := <-sub.Channel():
			r := msg.Payload.(*Reading)
			if r.DeciC == 440 && r.DriftOver {
				return
			}
		case <-deadline:
			t.Fatal("drift never flagged")
		}
	}
}

func TestEnvmon_ApplyConfig(t *testing.T) {
	svc := New(func() int32 { return 0 })
	svc.applyConfig(map[string]any{"interval": float64(7), "drift_deci_c": float64(30)})
	if svc.interval != 7*time.Second {
		t.Errorf("interval = %v, want 7s", svc.interval)
	}
	if svc.driftDeciC != 30 {
		t.Errorf("driftDeciC = %d, want 30", svc.driftDeciC)
	}
	// Invalid values are ignored.
	svc.applyConfig(map[string]any{"interval": float64(-1), "drift_deci_c": "x"})
	if svc.interval != 7*time.Second || svc.driftDeciC != 30 {
		t.Error("invalid config values were applied")
	}
}
