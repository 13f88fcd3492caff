// cmd/qsim/main.go

// qsim runs the controller on the host against a synthetic photon source,
// plays a demo command sequence over the loopback port, and dumps the
// resulting qubit registry.
package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	flag "github.com/spf13/pflag"

	"quantum-commodore/bus"
	"quantum-commodore/services/config"
	"quantum-commodore/services/qpu"
	"quantum-commodore/services/qpu/platform"
	"quantum-commodore/sim"
)

var (
	scenarioPath = flag.String("scenario", "", "YAML/JSON photon scenario; watched for changes. Empty uses built-in defaults.")
	runFor       = flag.Duration("duration", 3*time.Second, "How long to keep the bench alive after the demo sequence.")
	dump         = flag.Bool("dump", true, "Dump collected qubit states at exit.")
	replyErrors  = flag.Bool("reply-errors", false, "Ask the controller to NAK invalid commands instead of dropping them.")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.NewBus(64)
	host := platform.NewHost(ctx)

	// Photon source, optionally scenario-driven with hot reload.
	src := sim.NewSource([2]sim.Pin{host.Pins[0], host.Pins[1]})
	sc := sim.DefaultScenario()
	if *scenarioPath != "" {
		w, err := sim.NewWatcher(*scenarioPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "qsim: scenario:", err)
			os.Exit(1)
		}
		defer w.Close()
		sc = w.Scenario()
		w.OnChange(func(_, next sim.Scenario) { src.Run(ctx, next) })
	}
	src.Run(ctx, sc)
	defer src.Stop()

	config.NewConfigService().Start(
		context.WithValue(ctx, config.CtxDeviceKey, "pico-qpu"),
		b.NewConnection("config"))

	go qpu.Run(ctx, b.NewConnection("qpu"), qpu.Deps{
		Clock:     host.Clock,
		Port:      host.Port,
		Actuator:  host.Actuator,
		Detectors: host.Detectors,
	})

	port := host.HostPort
	banner := readLine(port, 5*time.Second)
	fmt.Println(banner)

	if *replyErrors {
		conn := b.NewConnection("qsim")
		conn.Publish(conn.NewMessage(bus.T("config", "qpu"),
			map[string]any{"reply_errors": true}, true))
		time.Sleep(50 * time.Millisecond)
	}

	runDemo(port)

	time.Sleep(*runFor)

	if *dump {
		dumpQubits(b)
	}
}

// runDemo exercises one command of each class and prints the replies.
func runDemo(port *qpu.RingPort) {
	send := func(b ...byte) { port.Write(b) }

	fmt.Println("-- weak measure q0")
	send(0x01, 0x00)
	fmt.Printf("   strength = %.3f\n", readFloat(port))

	fmt.Println("-- syndrome q1")
	send(0x02, 0x01)
	fmt.Printf("   syndrome = %#02x\n", readByte(port))

	fmt.Println("-- phase gate q2, pi/4")
	var angle [4]byte
	binary.LittleEndian.PutUint32(angle[:], math.Float32bits(math.Pi/4))
	send(append([]byte{0x03, 0x02}, angle[:]...)...)

	fmt.Println("-- pauli X q3, topological enable q4")
	send(0x04, 0x03)
	send(0x10, 0x04)

	fmt.Println("-- entangle q0,q1")
	send(0x20, 0x00, 0x01)

	fmt.Println("-- measure q0")
	send(0x30, 0x00)
	fmt.Printf("   outcome = %d\n", readByte(port))
}

// dumpQubits collects the retained per-qubit state topics and spews them.
func dumpQubits(b *bus.Bus) {
	conn := b.NewConnection("dump")
	defer conn.Disconnect()

	states := make(map[int]any)
	for i := 0; i < qpu.NumQubits; i++ {
		sub := conn.Subscribe(bus.T("qpu", "qubit", i, "state"))
		select {
		case msg := <-sub.Channel():
			states[i] = msg.Payload
		case <-time.After(100 * time.Millisecond):
			// Slot never published; untouched since boot.
		}
		conn.Unsubscribe(sub)
	}
	spew.Dump(states)
}

// ----------------------------- port helpers -----------------------------------

func readN(port *qpu.RingPort, n int, timeout time.Duration) []byte {
	buf := make([]byte, 0, n)
	deadline := time.After(timeout)
	for len(buf) < n {
		var chunk [16]byte
		if m := port.TryRead(chunk[:n-len(buf)]); m > 0 {
			buf = append(buf, chunk[:m]...)
			continue
		}
		select {
		case <-port.Readable():
		case <-deadline:
			fmt.Fprintln(os.Stderr, "qsim: timed out waiting for reply")
			os.Exit(1)
		}
	}
	return buf
}

func readByte(port *qpu.RingPort) byte {
	return readN(port, 1, 2*time.Second)[0]
}

func readFloat(port *qpu.RingPort) float32 {
	b := readN(port, 4, 2*time.Second)
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func readLine(port *qpu.RingPort, timeout time.Duration) string {
	var line []byte
	deadline := time.After(timeout)
	for {
		var chunk [1]byte
		if port.TryRead(chunk[:]) == 1 {
			if chunk[0] == '\n' {
				for len(line) > 0 && line[len(line)-1] == '\r' {
					line = line[:len(line)-1]
				}
				return string(line)
			}
			line = append(line, chunk[0])
			continue
		}
		select {
		case <-port.Readable():
		case <-deadline:
			fmt.Fprintln(os.Stderr, "qsim: timed out waiting for banner")
			os.Exit(1)
		}
	}
}
