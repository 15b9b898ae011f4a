// Package machine drives the clock tree and GPIO pins of an LPC176x/5x chip.
//
// Both parts take their registers from the lpc17xx register map, so the same
// code runs on the chip (through mmio.Memory) and on a host against the sim
// package.
package machine

import "strconv"

// Generic constants.
const (
	KHz = 1000
	MHz = 1000_000
	GHz = 1000_000_000
)

// Hertz is a frequency in cycles per second.
type Hertz uint32

// String formats the frequency in the largest unit that divides it, such as
// "72MHz" or "32768Hz".
func (f Hertz) String() string {
	switch {
	case f != 0 && f%MHz == 0:
		return strconv.FormatUint(uint64(f/MHz), 10) + "MHz"
	case f != 0 && f%KHz == 0:
		return strconv.FormatUint(uint64(f/KHz), 10) + "kHz"
	}
	return strconv.FormatUint(uint64(f), 10) + "Hz"
}
