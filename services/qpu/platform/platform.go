// services/qpu/platform/platform.go
package platform

import (
	"quantum-commodore/services/qpu"
	"quantum-commodore/services/qpu/tick"
)

// Setup carries the hardware resources for one board. Default() builds the
// variant selected by build tags: RP2 hardware on MCU targets, fakes and
// loopbacks everywhere else.
type Setup struct {
	Clock    tick.Source
	Port     qpu.Port
	Actuator qpu.Actuator

	Detectors [2]qpu.DetectorPin

	// ReadTempDeciC samples the board temperature in tenths of a °C.
	ReadTempDeciC func() int32
}
