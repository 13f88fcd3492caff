// services/config/defaultconfigs.go
package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPicoQPU = `{
  "qpu": {
      "coincidence_window_ticks": 10,
      "expected_coincidence_rate": 20,
      "measure_threshold": 50,
      "reply_errors": false
  },
  "heartbeat": {
      "interval": 2
  },
  "envmon": {
      "interval": 5,
      "drift_deci_c": 20
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico-qpu": []byte(cfgPicoQPU),
}
