package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}

// MsDur converts a millisecond count to a time.Duration, clamping negatives to 0.
func MsDur(ms int) time.Duration {
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

// UsDur converts a microsecond count to a time.Duration, clamping negatives to 0.
func UsDur(us int) time.Duration {
	if us < 0 {
		us = 0
	}
	return time.Duration(us) * time.Microsecond
}
