package consts

// Command opcodes (wire protocol, one byte each).
const (
	OpWeakMeasure  = 0x01
	OpSyndrome     = 0x02
	OpPhaseGate    = 0x03
	OpPauliX       = 0x04
	OpPauliY       = 0x05
	OpPauliZ       = 0x06
	OpTopological  = 0x10
	OpEntangle     = 0x20
	OpMeasure      = 0x30
)

// NAK is sent for dropped commands when the reply-errors policy is enabled.
const NAK = 0xFF

// Top-level topics
const (
	TokConfig   = "config"
	TokQPU      = "qpu"
	TokQubit    = "qubit"
	TokState    = "state"
	TokDetector = "detector"
	TokStats    = "stats"
	TokEnv      = "env"
	TokError    = "error"
)

// Default timings and thresholds. All are overridable via the config/qpu
// topic; see qpu.Config.
const (
	DefTickHz                = 1_000_000 // RP2 hardware timer rate
	DefCoincidenceWindow     = 10        // ticks, strict less-than
	DefWeakSettleMS          = 10
	DefSyndromeSettleMS      = 5
	DefRampSteps             = 100
	DefRampStepUS            = 100
	DefEntangleAccumMS       = 50
	DefExpectedCoincidences  = 20 // per accumulation window
	DefMeasureDelayMS        = 10
	DefMeasureThreshold      = 50
	DefMaintMinIntervalMS    = 1
	DefRefreshAgeTicks       = 10_000
	DefTopoRefreshAgeTicks   = 100_000
	DefDecoupleGapMS         = 1
	DefWarmupMS              = 500
)

// Actuator set-points used by the fixed gate set.
const (
	PauliWaveplateDeg = 45.0
	BasisPolarizeDeg  = 0.0
	BasisWaveplateDeg = 0.0
)
