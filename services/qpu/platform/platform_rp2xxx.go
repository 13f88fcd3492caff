// services/qpu/platform/platform_rp2xxx.go
//go:build rp2040 || rp2350

package platform

import (
	"context"
	"machine"
	"runtime/volatile"
	"unsafe"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"quantum-commodore/drivers/polaris"
	"quantum-commodore/services/qpu"
	"quantum-commodore/x/ring"
)

// Board wiring for Pico / Pico 2. Detector pins carry the discriminator
// pulses from the two avalanche photodiodes; the Polaris-B optics stack sits
// on i2c0; the command stream arrives on uart0.
const (
	detPin0 = machine.Pin(2)
	detPin1 = machine.Pin(3)

	uartBaud = 115200
	uartTX   = machine.Pin(0)
	uartRX   = machine.Pin(1)
)

// ----------------------------- Tick source -----------------------------------

var timerRawL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTimeRawL)))

// hwTicks reads the low word of the free-running 1 MHz hardware timer
// directly. The raw register never latches, so reads are safe from ISRs.
type hwTicks struct{}

func (hwTicks) Ticks() uint32 { return timerRawL.Get() }

// ----------------------------- Detector pins ---------------------------------

type rp2Pin struct{ p machine.Pin }

func (r *rp2Pin) SetIRQ(h func()) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	return r.p.SetInterrupt(machine.PinRising, func(machine.Pin) { h() })
}

func (r *rp2Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

// ----------------------------- UART pump -------------------------------------

// pumpUART shuttles bytes between uart0 and the service's rings. Two
// goroutines: the receive side blocks in RecvSomeContext, the transmit side
// waits on the ring's readable edge. Both exit when ctx is cancelled.
func pumpUART(ctx context.Context, u *uartx.UART, rx, tx *ring.Ring) {
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := u.RecvSomeContext(ctx, buf)
			if err != nil {
				return
			}
			// Overflow sheds bytes; the decoder resynchronises on the
			// next opcode.
			_ = rx.WriteFrom(buf[:n])
		}
	}()
	go func() {
		buf := make([]byte, 64)
		for {
			select {
			case <-ctx.Done():
				return
			case <-tx.Readable():
			}
			for {
				n := tx.ReadInto(buf)
				if n == 0 {
					break
				}
				_, _ = u.Write(buf[:n])
			}
		}
	}()
}

// ----------------------------- Assembly --------------------------------------

// Default configures the RP2 peripherals and returns the board setup.
func Default(ctx context.Context) *Setup {
	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{
		BaudRate: uartBaud,
		TX:       uartTX,
		RX:       uartRX,
	})

	rx := ring.New(1024)
	tx := ring.New(1024)
	pumpUART(ctx, u, rx, tx)

	i2c := machine.I2C0
	_ = i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	})
	dev := polaris.New(i2c, 0)
	_ = dev.Configure()

	return &Setup{
		Clock:    hwTicks{},
		Port:     qpu.NewRingPort(rx, tx),
		Actuator: qpu.NewPolarisActuator(dev),
		Detectors: [2]qpu.DetectorPin{
			&rp2Pin{p: detPin0},
			&rp2Pin{p: detPin1},
		},
		ReadTempDeciC: readTempDeciC,
	}
}

// readTempDeciC samples the on-die sensor via machine.ReadTemperature,
// which reports milli-degrees.
func readTempDeciC() int32 {
	return machine.ReadTemperature() / 100
}
