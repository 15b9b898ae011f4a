package machine_test

import (
	"math"
	"testing"
	"time"

	"github.com/tinygo-org/lpc17xx/device/lpc17xx"
	"github.com/tinygo-org/lpc17xx/machine"
	"github.com/tinygo-org/lpc17xx/sim"
)

func newChip(oscPolls, lockPolls int) (*sim.Chip, *lpc17xx.Peripherals) {
	chip := sim.New(sim.Config{OscReadyAfter: oscPolls, PLLLockAfter: lockPolls})
	return chip, lpc17xx.NewPeripherals(chip)
}

func sysconAddr(offset uintptr) uintptr {
	return lpc17xx.SYSCON_BASE + offset
}

func isPLLWrite(a sim.Access) bool {
	return a.Op == sim.Write &&
		(a.Addr == sysconAddr(lpc17xx.PLL0CON_OFFSET) || a.Addr == sysconAddr(lpc17xx.PLL0CFG_OFFSET))
}

func isFeed(a sim.Access, value uint32) bool {
	return a.Op == sim.Write && a.Addr == sysconAddr(lpc17xx.PLL0FEED_OFFSET) && a.Value == value
}

// Scenario: crystal ready after 3 polls, PLL locked after 5, no USB.
func TestFreezeCPUOnly(t *testing.T) {
	chip, p := newChip(3, 5)
	clocks := machine.NewClockConfig().Freeze(p.SYSCON)

	if clocks.CPU() != 72_000_000 {
		t.Errorf("CPU() = %d, want 72000000", clocks.CPU())
	}
	if clocks.MainOscillator() != 12_000_000 {
		t.Errorf("MainOscillator() = %d, want 12000000", clocks.MainOscillator())
	}
	if usb, ok := clocks.USB(); ok {
		t.Errorf("USB() = %d, true, want no USB clock", usb)
	}
	if chip.Feeds() != 3 {
		t.Errorf("got %d feed sequences, want 3", chip.Feeds())
	}

	pairs := 0
	trace := chip.Trace()
	for i := 0; i+1 < len(trace); i++ {
		if isFeed(trace[i], 0xAA) && isFeed(trace[i+1], 0x55) {
			pairs++
		}
	}
	if pairs != 3 {
		t.Errorf("got %d 0xAA/0x55 pairs in the trace, want 3", pairs)
	}

	// The simulated hardware agrees with the returned configuration.
	if got := chip.CPUFrequency(); got != 72_000_000 {
		t.Errorf("simulated CPU frequency = %d, want 72000000", got)
	}
	if got := chip.USBFrequency(); got != 288_000_000 {
		// USBCLKCFG was never written, so USB runs undivided from FCCO.
		t.Errorf("simulated USB frequency = %d, want 288000000", got)
	}
}

func TestFreezeWithUSB(t *testing.T) {
	chip, p := newChip(0, 0)
	clocks := machine.NewClockConfig().EnableUSB().Freeze(p.SYSCON)

	usb, ok := clocks.USB()
	if !ok || usb != 48_000_000 {
		t.Errorf("USB() = %d, %v, want 48000000, true", usb, ok)
	}
	if got := chip.USBFrequency(); got != 48_000_000 {
		t.Errorf("simulated USB frequency = %d, want 48000000", got)
	}
	if clocks.FlashWaitStates() != 4 {
		t.Errorf("FlashWaitStates() = %d, want 4", clocks.FlashWaitStates())
	}
}

func TestFreezeResultIsStable(t *testing.T) {
	for _, usb := range []bool{false, true} {
		var first machine.Clocks
		var digest uint16
		for i := 0; i < 3; i++ {
			chip, p := newChip(2, 4)
			cfg := machine.NewClockConfig()
			if usb {
				cfg = cfg.EnableUSB()
			}
			clocks := cfg.Freeze(p.SYSCON)
			if i == 0 {
				first, digest = clocks, chip.Digest()
				continue
			}
			if clocks != first {
				t.Errorf("usb=%v run %d: got %+v, want %+v", usb, i, clocks, first)
			}
			if chip.Digest() != digest {
				t.Errorf("usb=%v run %d: trace digest %#04x differs from %#04x", usb, i, chip.Digest(), digest)
			}
		}
	}
}

func TestFreezeFeedFollowsEveryPLLWrite(t *testing.T) {
	chip, p := newChip(1, 1)
	machine.NewClockConfig().EnableUSB().Freeze(p.SYSCON)

	writes := chip.Writes()
	n := 0
	for i, w := range writes {
		if !isPLLWrite(w) {
			continue
		}
		n++
		if i+2 >= len(writes) || !isFeed(writes[i+1], 0xAA) || !isFeed(writes[i+2], 0x55) {
			t.Errorf("write %d (%v) is not immediately followed by the feed sequence", i, w)
		}
	}
	if n != 3 {
		t.Errorf("got %d PLL0CON/PLL0CFG writes, want 3", n)
	}
}

func TestFreezeRegisterValues(t *testing.T) {
	chip, p := newChip(0, 0)
	// FLASHTIM resets to the wanted value already; start from 1 clock so the
	// update is visible.
	chip.Store32(sysconAddr(lpc17xx.FLASHCFG_OFFSET), 0x003A)
	chip.ResetTrace()
	machine.NewClockConfig().EnableUSB().Freeze(p.SYSCON)

	last := map[uintptr]uint32{}
	for _, w := range chip.Writes() {
		last[w.Addr] = w.Value
	}
	tests := []struct {
		name   string
		offset uintptr
		want   uint32
	}{
		{"SCS", lpc17xx.SCS_OFFSET, lpc17xx.SCS_OSCEN},
		{"CLKSRCSEL", lpc17xx.CLKSRCSEL_OFFSET, 1},
		{"PLL0CFG", lpc17xx.PLL0CFG_OFFSET, 11},
		{"PLL0CON", lpc17xx.PLL0CON_OFFSET, lpc17xx.PLL0CON_PLLE0 | lpc17xx.PLL0CON_PLLC0},
		{"CCLKCFG", lpc17xx.CCLKCFG_OFFSET, 3},
		{"USBCLKCFG", lpc17xx.USBCLKCFG_OFFSET, 5},
		{"FLASHCFG", lpc17xx.FLASHCFG_OFFSET, 0x303A},
	}
	for _, tc := range tests {
		got, ok := last[sysconAddr(tc.offset)]
		if !ok {
			t.Errorf("%s was never written", tc.name)
			continue
		}
		if got != tc.want {
			t.Errorf("%s = %#x, want %#x", tc.name, got, tc.want)
		}
	}
	if got := chip.Peek(sysconAddr(lpc17xx.PLL0STAT_OFFSET)); got&lpc17xx.PLL0STAT_PLLC0_STAT == 0 {
		t.Errorf("PLL0STAT = %#x, PLL0 not connected", got)
	}
}

func TestFreezeStepOrder(t *testing.T) {
	chip, p := newChip(3, 5)
	machine.NewClockConfig().EnableUSB().Freeze(p.SYSCON)

	var got []string
	for _, a := range chip.Trace() {
		name := a.Name()
		if a.Op == sim.Read {
			name = "?" + name
		}
		if len(got) > 0 && got[len(got)-1] == name {
			continue // collapse polls
		}
		got = append(got, name)
	}
	want := []string{
		"SCS", "?SCS",
		"CLKSRCSEL",
		"PLL0CFG", "PLL0FEED",
		"PLL0CON", "PLL0FEED",
		"CCLKCFG",
		"USBCLKCFG",
		"?FLASHCFG", "FLASHCFG",
		"?PLL0STAT",
		"PLL0CON", "PLL0FEED",
	}
	if len(got) != len(want) {
		t.Fatalf("got access sequence %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("access %d: got %s, want %s (sequence %v)", i, got[i], want[i], got)
		}
	}

	polls := map[string]int{}
	for _, a := range chip.Trace() {
		if a.Op == sim.Read {
			polls[a.Name()]++
		}
	}
	if polls["SCS"] != 4 {
		t.Errorf("SCS polled %d times, want 4", polls["SCS"])
	}
	if polls["PLL0STAT"] != 6 {
		t.Errorf("PLL0STAT polled %d times, want 6", polls["PLL0STAT"])
	}
}

func TestFreezeTwicePanics(t *testing.T) {
	_, p := newChip(0, 0)
	machine.NewClockConfig().Freeze(p.SYSCON)
	defer func() {
		if recover() == nil {
			t.Error("second Freeze did not panic")
		}
	}()
	machine.NewClockConfig().Freeze(p.SYSCON)
}

func TestClocksDerivedValues(t *testing.T) {
	_, p := newChip(0, 0)
	clocks := machine.NewClockConfig().Freeze(p.SYSCON)

	if got := clocks.CPUPeriod(); got != 13 {
		t.Errorf("CPUPeriod() = %d, want 13", got)
	}
	tests := []struct {
		d      time.Duration
		cycles uint32
		want   uint32
	}{
		{time.Millisecond, 1, 72_000},
		{time.Millisecond, 4, 18_000},
		{time.Second, 3, 24_000_000},
		{time.Minute, 1000, 4_320_000},
		{5 * time.Minute, 1000, 21_600_000},
		{time.Minute, 1, math.MaxUint32},
		{5 * time.Minute, 1, math.MaxUint32},
		{1500 * time.Millisecond, 1, 108_000_000},
		{0, 1, 0},
		{time.Second, 0, 0},
	}
	for _, tc := range tests {
		if got := clocks.DelayLoopCount(tc.d, tc.cycles); got != tc.want {
			t.Errorf("DelayLoopCount(%v, %d) = %d, want %d", tc.d, tc.cycles, got, tc.want)
		}
	}
}

func TestZeroClocks(t *testing.T) {
	var clocks machine.Clocks
	if got := clocks.CPUPeriod(); got != 0 {
		t.Errorf("CPUPeriod() of zero Clocks = %d, want 0", got)
	}
	if got := clocks.DelayLoopCount(time.Second, 1); got != 0 {
		t.Errorf("DelayLoopCount() of zero Clocks = %d, want 0", got)
	}
	if _, ok := clocks.USB(); ok {
		t.Error("zero Clocks reports a USB clock")
	}
}

func TestHertzString(t *testing.T) {
	tests := []struct {
		f    machine.Hertz
		want string
	}{
		{72 * machine.MHz, "72MHz"},
		{12 * machine.MHz, "12MHz"},
		{500 * machine.KHz, "500kHz"},
		{32768, "32768Hz"},
		{0, "0Hz"},
	}
	for _, tc := range tests {
		if got := tc.f.String(); got != tc.want {
			t.Errorf("Hertz(%d).String() = %q, want %q", uint32(tc.f), got, tc.want)
		}
	}
}
