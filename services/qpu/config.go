// services/qpu/config.go
package qpu

import (
	"time"

	"quantum-commodore/services/qpu/internal/consts"
	"quantum-commodore/x/mathx"
	"quantum-commodore/x/timex"
)

// Config is supplied on the "config/qpu" bus topic as JSON. Zero values are
// replaced by defaults in sanitize, so partial documents are fine.
type Config struct {
	TickHz uint32 `json:"tick_hz,omitempty"`

	CoincidenceWindowTicks uint32 `json:"coincidence_window_ticks,omitempty"`

	WeakSettleMS     int `json:"weak_settle_ms,omitempty"`
	SyndromeSettleMS int `json:"syndrome_settle_ms,omitempty"`

	RampSteps  int `json:"ramp_steps,omitempty"`
	RampStepUS int `json:"ramp_step_us,omitempty"`

	EntangleAccumMS         int    `json:"entangle_accum_ms,omitempty"`
	ExpectedCoincidenceRate uint32 `json:"expected_coincidence_rate,omitempty"`

	MeasureDelayMS   int    `json:"measure_delay_ms,omitempty"`
	MeasureThreshold uint32 `json:"measure_threshold,omitempty"`

	MaintMinIntervalMS  int    `json:"maint_min_interval_ms,omitempty"`
	RefreshAgeTicks     uint32 `json:"refresh_age_ticks,omitempty"`
	TopoRefreshAgeTicks uint32 `json:"topo_refresh_age_ticks,omitempty"`
	DecoupleGapMS       int    `json:"decouple_gap_ms,omitempty"`

	WarmupMS int `json:"warmup_ms,omitempty"`

	// ReplyErrors switches the silent-drop policy to an explicit one-byte
	// NAK for invalid indices and unknown opcodes.
	ReplyErrors bool `json:"reply_errors,omitempty"`
}

// DefaultConfig returns the compile-time defaults.
func DefaultConfig() Config {
	return Config{
		TickHz:                  consts.DefTickHz,
		CoincidenceWindowTicks:  consts.DefCoincidenceWindow,
		WeakSettleMS:            consts.DefWeakSettleMS,
		SyndromeSettleMS:        consts.DefSyndromeSettleMS,
		RampSteps:               consts.DefRampSteps,
		RampStepUS:              consts.DefRampStepUS,
		EntangleAccumMS:         consts.DefEntangleAccumMS,
		ExpectedCoincidenceRate: consts.DefExpectedCoincidences,
		MeasureDelayMS:          consts.DefMeasureDelayMS,
		MeasureThreshold:        consts.DefMeasureThreshold,
		MaintMinIntervalMS:      consts.DefMaintMinIntervalMS,
		RefreshAgeTicks:         consts.DefRefreshAgeTicks,
		TopoRefreshAgeTicks:     consts.DefTopoRefreshAgeTicks,
		DecoupleGapMS:           consts.DefDecoupleGapMS,
		WarmupMS:                consts.DefWarmupMS,
	}
}

// sanitize fills zero fields from defaults and clamps the rest to sane
// operating ranges.
func (c *Config) sanitize() {
	def := DefaultConfig()
	if c.TickHz == 0 {
		c.TickHz = def.TickHz
	}
	if c.CoincidenceWindowTicks == 0 {
		c.CoincidenceWindowTicks = def.CoincidenceWindowTicks
	}
	if c.WeakSettleMS == 0 {
		c.WeakSettleMS = def.WeakSettleMS
	}
	if c.SyndromeSettleMS == 0 {
		c.SyndromeSettleMS = def.SyndromeSettleMS
	}
	if c.RampSteps == 0 {
		c.RampSteps = def.RampSteps
	}
	if c.RampStepUS == 0 {
		c.RampStepUS = def.RampStepUS
	}
	if c.EntangleAccumMS == 0 {
		c.EntangleAccumMS = def.EntangleAccumMS
	}
	if c.ExpectedCoincidenceRate == 0 {
		c.ExpectedCoincidenceRate = def.ExpectedCoincidenceRate
	}
	if c.MeasureDelayMS == 0 {
		c.MeasureDelayMS = def.MeasureDelayMS
	}
	if c.MeasureThreshold == 0 {
		c.MeasureThreshold = def.MeasureThreshold
	}
	if c.MaintMinIntervalMS == 0 {
		c.MaintMinIntervalMS = def.MaintMinIntervalMS
	}
	if c.RefreshAgeTicks == 0 {
		c.RefreshAgeTicks = def.RefreshAgeTicks
	}
	if c.TopoRefreshAgeTicks == 0 {
		c.TopoRefreshAgeTicks = def.TopoRefreshAgeTicks
	}
	if c.DecoupleGapMS == 0 {
		c.DecoupleGapMS = def.DecoupleGapMS
	}
	if c.WarmupMS == 0 {
		c.WarmupMS = def.WarmupMS
	}

	c.RampSteps = mathx.Clamp(c.RampSteps, 1, 10_000)
	c.RampStepUS = mathx.Clamp(c.RampStepUS, 1, 1_000_000)
	c.WeakSettleMS = mathx.Clamp(c.WeakSettleMS, 1, 10_000)
	c.SyndromeSettleMS = mathx.Clamp(c.SyndromeSettleMS, 1, 10_000)
	c.EntangleAccumMS = mathx.Clamp(c.EntangleAccumMS, 1, 60_000)
	c.MeasureDelayMS = mathx.Clamp(c.MeasureDelayMS, 1, 10_000)
	c.MaintMinIntervalMS = mathx.Clamp(c.MaintMinIntervalMS, 1, 60_000)
	c.DecoupleGapMS = mathx.Clamp(c.DecoupleGapMS, 1, 10_000)
	c.WarmupMS = mathx.Clamp(c.WarmupMS, 0, 60_000)
}

func (c *Config) weakSettle() time.Duration     { return timex.MsDur(c.WeakSettleMS) }
func (c *Config) syndromeSettle() time.Duration { return timex.MsDur(c.SyndromeSettleMS) }
func (c *Config) rampStep() time.Duration       { return timex.UsDur(c.RampStepUS) }
func (c *Config) entangleAccum() time.Duration  { return timex.MsDur(c.EntangleAccumMS) }
func (c *Config) measureDelay() time.Duration   { return timex.MsDur(c.MeasureDelayMS) }
func (c *Config) decoupleGap() time.Duration    { return timex.MsDur(c.DecoupleGapMS) }
func (c *Config) warmup() time.Duration         { return timex.MsDur(c.WarmupMS) }

// maintMinIntervalTicks converts the maintenance gate to clock ticks.
func (c *Config) maintMinIntervalTicks() uint32 {
	return uint32(uint64(c.MaintMinIntervalMS) * uint64(c.TickHz) / 1000)
}
