// services/qpu/actuator_polaris.go
package qpu

import "quantum-commodore/drivers/polaris"

// polarisActuator adapts the Polaris-B bench driver to the Actuator hooks.
type polarisActuator struct {
	dev *polaris.Device
}

// NewPolarisActuator wraps an already-configured Polaris-B device.
func NewPolarisActuator(dev *polaris.Device) Actuator {
	return &polarisActuator{dev: dev}
}

func (a *polarisActuator) SetPolarization(deg float64) error { return a.dev.SetPolarization(deg) }
func (a *polarisActuator) SetPhase(rad float64) error        { return a.dev.SetPhase(rad) }
func (a *polarisActuator) SetWaveplate(deg float64) error    { return a.dev.SetWaveplate(deg) }

func (a *polarisActuator) SetPower(mode PowerMode) error {
	return a.dev.SetPower(mode == PowerFull)
}
