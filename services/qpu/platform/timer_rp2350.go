// services/qpu/platform/timer_rp2350.go
//go:build rp2350

package platform

// RP2350 TIMER0 lives at a different base than the RP2040 timer; the raw-read
// register layout is the same.
const timerTimeRawL = 0x400B0000 + 0x28
