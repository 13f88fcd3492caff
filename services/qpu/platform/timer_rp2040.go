// services/qpu/platform/timer_rp2040.go
//go:build rp2040

package platform

// RP2040 TIMER peripheral. timeRawL (base+0x28) is the unlatched low word of
// the 64-bit 1 MHz counter, the same register TinyGo's runtime reads.
const timerTimeRawL = 0x40054000 + 0x28
