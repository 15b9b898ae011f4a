package machine

import (
	"math"
	"time"

	"github.com/tinygo-org/lpc17xx/device/lpc17xx"
)

// Frequency of the crystal on the main oscillator.
const mainOscillatorFrequency = 12 * MHz

// pllSetting is one operating point of PLL0 and the dividers behind it. All
// values are the real ratios; the registers store them minus one.
type pllSetting struct {
	cpu        Hertz
	multiplier uint32 // M
	preDivider uint32 // N
	cpuDivider uint32
	usbDivider uint32
	flashWait  uint32 // CPU clocks per flash access
}

// FCCO = 2 * M * Fin / N
func (s pllSetting) fcco() uint32 {
	return 2 * s.multiplier * mainOscillatorFrequency / s.preDivider
}

// Only one operating point is supported:
//
//	12MHz * 2 * 12 / 1 = 288MHz
//	CPU: 288MHz / 4 = 72MHz
//	USB: 288MHz / 6 = 48MHz
var pllSettings = []pllSetting{
	{cpu: 72 * MHz, multiplier: 12, preDivider: 1, cpuDivider: 4, usbDivider: 6, flashWait: 4},
}

func findPLLSetting(cpu Hertz) pllSetting {
	for _, s := range pllSettings {
		if s.cpu == cpu {
			return s
		}
	}
	panic("machine: unsupported CPU frequency")
}

// ClockConfig is a request for a clock configuration. Build it with
// NewClockConfig and apply it once with Freeze.
type ClockConfig struct {
	cpuFrequency Hertz
	enableUSB    bool
}

// NewClockConfig returns a configuration for a 72MHz CPU clock with the USB
// clock disabled.
func NewClockConfig() ClockConfig {
	return ClockConfig{
		cpuFrequency: 72 * MHz,
	}
}

// EnableUSB returns a copy of the configuration that also derives the 48MHz
// USB clock.
func (c ClockConfig) EnableUSB() ClockConfig {
	c.enableUSB = true
	return c
}

// Clocks describes the clock tree after Freeze. It is the only source of truth
// for code that needs to know the running frequencies.
type Clocks struct {
	cpuFrequency   Hertz
	mainOscillator Hertz
	usbFrequency   Hertz
	flashWait      uint32
}

// CPU returns the CPU clock frequency.
func (c Clocks) CPU() Hertz {
	return c.cpuFrequency
}

// MainOscillator returns the frequency of the main crystal oscillator.
func (c Clocks) MainOscillator() Hertz {
	return c.mainOscillator
}

// USB returns the USB clock frequency. The boolean is false if the USB clock
// was not enabled.
func (c Clocks) USB() (Hertz, bool) {
	return c.usbFrequency, c.usbFrequency != 0
}

// FlashWaitStates returns the number of CPU clocks used per flash access.
func (c Clocks) FlashWaitStates() uint32 {
	return c.flashWait
}

// CPUPeriod returns the period of a CPU clock cycle in nanoseconds, or 0 for
// a Clocks value that did not come from Freeze.
func (c Clocks) CPUPeriod() uint32 {
	if c.cpuFrequency == 0 {
		return 0
	}
	return 1e9 / uint32(c.cpuFrequency)
}

// DelayLoopCount returns how many iterations of a busy loop that takes
// cyclesPerIteration CPU cycles are needed to wait for d. The count saturates
// at math.MaxUint32.
func (c Clocks) DelayLoopCount(d time.Duration, cyclesPerIteration uint32) uint32 {
	if d <= 0 || cyclesPerIteration == 0 {
		return 0
	}
	// Split at whole seconds so the product cannot overflow.
	f := uint64(c.cpuFrequency)
	secs, frac := uint64(d/time.Second), uint64(d%time.Second)
	cycles := secs*f + frac*f/uint64(time.Second)
	n := cycles / uint64(cyclesPerIteration)
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

// Freeze switches the CPU from the internal RC oscillator to PLL0 driven by
// the main crystal, and derives the USB clock if it was requested.
//
// The steps must happen in this exact order. Both waits (oscillator ready and
// PLL lock) have no timeout: if the hardware never gets there the chip hangs,
// which is left to a watchdog to detect.
//
// Freeze claims syscon and panics if it has already been claimed, so the
// clock tree can only be configured once.
func (c ClockConfig) Freeze(syscon *lpc17xx.SYSCON_Type) Clocks {
	if !syscon.Claim() {
		panic("machine: clocks already frozen")
	}
	s := findPLLSetting(c.cpuFrequency)

	// Start the main oscillator, in the 1-20MHz range.
	syscon.SCS.Set(lpc17xx.SCS_OSCRANGE_LOW | lpc17xx.SCS_OSCEN)
	for !syscon.SCS.HasBits(lpc17xx.SCS_OSCSTAT) {
	}

	syscon.CLKSRCSEL.Set(lpc17xx.CLKSRCSEL_CLKSRC_MAIN_OSC << lpc17xx.CLKSRCSEL_CLKSRC_Pos)

	syscon.PLL0CFG.Set((s.multiplier-1)<<lpc17xx.PLL0CFG_MSEL0_Pos |
		(s.preDivider-1)<<lpc17xx.PLL0CFG_NSEL0_Pos)
	feedPLL0(syscon)

	// Enabling starts the PLL but does not connect it yet.
	syscon.PLL0CON.Set(lpc17xx.PLL0CON_PLLE0)
	feedPLL0(syscon)

	// The dividers are not protected by the feed sequence and apply at once.
	syscon.CCLKCFG.Set((s.cpuDivider - 1) << lpc17xx.CCLKCFG_CCLKSEL_Pos)
	if c.enableUSB {
		syscon.USBCLKCFG.Set((s.usbDivider - 1) << lpc17xx.USBCLKCFG_USBSEL_Pos)
	}

	// Flash is only rated for about 20MHz.
	syscon.FLASHCFG.ReplaceBits(s.flashWait-1, lpc17xx.FLASHCFG_FLASHTIM_Msk, lpc17xx.FLASHCFG_FLASHTIM_Pos)

	for !syscon.PLL0STAT.HasBits(lpc17xx.PLL0STAT_PLOCK0) {
	}

	// PLL0CON is written as a whole, so PLLE0 must be repeated here or the
	// PLL would be disabled while being connected.
	syscon.PLL0CON.Set(lpc17xx.PLL0CON_PLLE0 | lpc17xx.PLL0CON_PLLC0)
	feedPLL0(syscon)

	clocks := Clocks{
		cpuFrequency:   c.cpuFrequency,
		mainOscillator: mainOscillatorFrequency,
		flashWait:      s.flashWait,
	}
	if c.enableUSB {
		clocks.usbFrequency = Hertz(s.fcco() / s.usbDivider)
	}
	return clocks
}

// feedPLL0 commits the pending PLL0CON and PLL0CFG values. The two writes must
// be back to back; anything else leaves the old PLL settings in place.
func feedPLL0(syscon *lpc17xx.SYSCON_Type) {
	syscon.PLL0FEED.Set(lpc17xx.PLL0FEED_FIRST)
	syscon.PLL0FEED.Set(lpc17xx.PLL0FEED_SECOND)
}
