package main

import (
	"context"
	"time"

	"quantum-commodore/bus"
	"quantum-commodore/services/config"
	"quantum-commodore/services/envmon"
	"quantum-commodore/services/heartbeat"
	"quantum-commodore/services/qpu"
	"quantum-commodore/services/qpu/platform"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico-qpu")

	b := bus.NewBus(16)
	setup := platform.Default(ctx)

	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	hb := &heartbeat.Service{}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	env := envmon.New(setup.ReadTempDeciC)
	_ = env.Start(ctx, b.NewConnection("envmon"))

	// Runs on the main goroutine; everything else is ISR- or bus-driven.
	qpu.Run(ctx, b.NewConnection("qpu"), qpu.Deps{
		Clock:     setup.Clock,
		Port:      setup.Port,
		Actuator:  setup.Actuator,
		Detectors: setup.Detectors,
	})
}
