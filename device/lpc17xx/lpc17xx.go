// Hand written file based on the LPC176x/5x user manual (UM10360), chapters 3,
// 4 and 9. Only the registers used by the machine package are described.

// Package lpc17xx is the register map of the NXP LPC176x/5x family.
package lpc17xx

import (
	"errors"
	"sync/atomic"

	"github.com/tinygo-org/lpc17xx/mmio"
)

// Device is the chip name this register map describes.
const Device = "LPC1769"

// Memory sections
const (
	SYSCON_BASE uintptr = 0x400FC000
	SYSCON_SIZE uintptr = 0x4000

	GPIO_BASE uintptr = 0x2009C000
	GPIO_SIZE uintptr = 0x4000

	GPIO_PORT_STRIDE uintptr = 0x20
	GPIO_NUM_PORTS           = 5
)

// System control register offsets.
const (
	FLASHCFG_OFFSET  uintptr = 0x000
	PLL0CON_OFFSET   uintptr = 0x080
	PLL0CFG_OFFSET   uintptr = 0x084
	PLL0STAT_OFFSET  uintptr = 0x088
	PLL0FEED_OFFSET  uintptr = 0x08C
	CCLKCFG_OFFSET   uintptr = 0x104
	USBCLKCFG_OFFSET uintptr = 0x108
	CLKSRCSEL_OFFSET uintptr = 0x10C
	SCS_OFFSET       uintptr = 0x1A0
)

// GPIO register offsets, relative to the start of a port.
const (
	FIODIR_OFFSET  uintptr = 0x00
	FIOMASK_OFFSET uintptr = 0x10
	FIOPIN_OFFSET  uintptr = 0x14
	FIOSET_OFFSET  uintptr = 0x18
	FIOCLR_OFFSET  uintptr = 0x1C
)

// Bitfields for SYSCON
const (
	// FLASHCFG: Flash accelerator configuration
	FLASHCFG_FLASHTIM_Pos = 0xc
	FLASHCFG_FLASHTIM_Msk = 0xf
	FLASHCFG_RESET        = 0x303A

	// PLL0CON: PLL0 control
	PLL0CON_PLLE0 = 0x1
	PLL0CON_PLLC0 = 0x2

	// PLL0CFG: PLL0 configuration
	PLL0CFG_MSEL0_Pos = 0x0
	PLL0CFG_MSEL0_Msk = 0x7fff
	PLL0CFG_NSEL0_Pos = 0x10
	PLL0CFG_NSEL0_Msk = 0xff

	// PLL0STAT: PLL0 status
	PLL0STAT_MSEL0_Pos  = 0x0
	PLL0STAT_MSEL0_Msk  = 0x7fff
	PLL0STAT_NSEL0_Pos  = 0x10
	PLL0STAT_NSEL0_Msk  = 0xff
	PLL0STAT_PLLE0_STAT = 0x1000000
	PLL0STAT_PLLC0_STAT = 0x2000000
	PLL0STAT_PLOCK0     = 0x4000000

	// PLL0FEED: PLL0 feed sequence
	PLL0FEED_FIRST  = 0xAA
	PLL0FEED_SECOND = 0x55

	// CCLKCFG: CPU clock divider
	CCLKCFG_CCLKSEL_Pos = 0x0
	CCLKCFG_CCLKSEL_Msk = 0xff

	// USBCLKCFG: USB clock divider
	USBCLKCFG_USBSEL_Pos = 0x0
	USBCLKCFG_USBSEL_Msk = 0xf

	// CLKSRCSEL: PLL0 clock source select
	CLKSRCSEL_CLKSRC_Pos      = 0x0
	CLKSRCSEL_CLKSRC_Msk      = 0x3
	CLKSRCSEL_CLKSRC_IRC      = 0x0
	CLKSRCSEL_CLKSRC_MAIN_OSC = 0x1
	CLKSRCSEL_CLKSRC_RTC_OSC  = 0x2

	// SCS: System controls and status
	SCS_OSCRANGE      = 0x10
	SCS_OSCRANGE_LOW  = 0x0  // 1 MHz to 20 MHz
	SCS_OSCRANGE_HIGH = 0x10 // 15 MHz to 25 MHz
	SCS_OSCEN         = 0x20
	SCS_OSCSTAT       = 0x40
)

// SYSCON_Type is the system control block: oscillators, PLL0 and the clock
// dividers derived from it.
type SYSCON_Type struct {
	FLASHCFG  mmio.Register32
	PLL0CON   mmio.Register32
	PLL0CFG   mmio.Register32
	PLL0STAT  mmio.Register32
	PLL0FEED  mmio.Register32
	CCLKCFG   mmio.Register32
	USBCLKCFG mmio.Register32
	CLKSRCSEL mmio.Register32
	SCS       mmio.Register32

	claimed bool
}

// Claim marks the block as owned by a driver. It returns false if it was
// already claimed.
func (s *SYSCON_Type) Claim() bool {
	if s.claimed {
		return false
	}
	s.claimed = true
	return true
}

// FIO_Type is one port of the fast GPIO controller. Each register is a 32-bit
// vector indexed by pin number.
type FIO_Type struct {
	FIODIR  mmio.Register32
	FIOMASK mmio.Register32
	FIOPIN  mmio.Register32
	FIOSET  mmio.Register32 // write 1 to drive high
	FIOCLR  mmio.Register32 // write 1 to drive low
}

// GPIO_Type is the fast GPIO controller with all of its ports.
type GPIO_Type struct {
	ports [GPIO_NUM_PORTS]FIO_Type

	claimed bool
	pins    [GPIO_NUM_PORTS]uint32 // pins handed to an owner, per port
}

// Port returns the registers of GPIO port n. It panics if the port does not
// exist.
func (g *GPIO_Type) Port(n uint8) *FIO_Type {
	if int(n) >= len(g.ports) {
		panic("lpc17xx: GPIO port out of range")
	}
	return &g.ports[n]
}

// Claim marks the block as owned by a driver. It returns false if it was
// already claimed.
func (g *GPIO_Type) Claim() bool {
	if g.claimed {
		return false
	}
	g.claimed = true
	return true
}

// ClaimPin marks one pin as owned. It returns false if the pin was already
// claimed. It panics if the port or bit does not exist.
func (g *GPIO_Type) ClaimPin(port, bit uint8) bool {
	if int(port) >= len(g.pins) || bit > 31 {
		panic("lpc17xx: GPIO pin out of range")
	}
	mask := uint32(1) << bit
	if g.pins[port]&mask != 0 {
		return false
	}
	g.pins[port] |= mask
	return true
}

func newSYSCON(bus mmio.Bus) *SYSCON_Type {
	b := mmio.Block{Name: "SYSCON", Bus: bus, Base: SYSCON_BASE, Size: SYSCON_SIZE}
	return &SYSCON_Type{
		FLASHCFG:  b.Register(FLASHCFG_OFFSET),
		PLL0CON:   b.Register(PLL0CON_OFFSET),
		PLL0CFG:   b.Register(PLL0CFG_OFFSET),
		PLL0STAT:  b.Register(PLL0STAT_OFFSET),
		PLL0FEED:  b.Register(PLL0FEED_OFFSET),
		CCLKCFG:   b.Register(CCLKCFG_OFFSET),
		USBCLKCFG: b.Register(USBCLKCFG_OFFSET),
		CLKSRCSEL: b.Register(CLKSRCSEL_OFFSET),
		SCS:       b.Register(SCS_OFFSET),
	}
}

func newGPIO(bus mmio.Bus) *GPIO_Type {
	b := mmio.Block{Name: "GPIO", Bus: bus, Base: GPIO_BASE, Size: GPIO_SIZE}
	g := &GPIO_Type{}
	for i := range g.ports {
		p := b.Sub("GPIO.FIO", uintptr(i)*GPIO_PORT_STRIDE, GPIO_PORT_STRIDE)
		g.ports[i] = FIO_Type{
			FIODIR:  p.Register(FIODIR_OFFSET),
			FIOMASK: p.Register(FIOMASK_OFFSET),
			FIOPIN:  p.Register(FIOPIN_OFFSET),
			FIOSET:  p.Register(FIOSET_OFFSET),
			FIOCLR:  p.Register(FIOCLR_OFFSET),
		}
	}
	return g
}

// Peripherals is the set of peripheral blocks of the chip.
type Peripherals struct {
	SYSCON *SYSCON_Type
	GPIO   *GPIO_Type
}

var (
	// ErrPeripheralsTaken is returned by Take after the first call.
	ErrPeripheralsTaken = errors.New("lpc17xx: peripherals already taken")
)

var taken atomic.Bool

// Take returns the peripherals of the running chip, reached through bus. It
// succeeds only once per program.
func Take(bus mmio.Bus) (*Peripherals, error) {
	if !taken.CompareAndSwap(false, true) {
		return nil, ErrPeripheralsTaken
	}
	return NewPeripherals(bus), nil
}

// NewPeripherals builds a fresh peripheral set over bus without the take-once
// check. It exists for simulated buses, where every test owns its own register
// map; firmware must use Take.
func NewPeripherals(bus mmio.Bus) *Peripherals {
	return &Peripherals{
		SYSCON: newSYSCON(bus),
		GPIO:   newGPIO(bus),
	}
}

// RegisterName returns the name of the register at addr, or "" if addr is not
// a register described in this package.
func RegisterName(addr uintptr) string {
	switch {
	case addr >= SYSCON_BASE && addr < SYSCON_BASE+SYSCON_SIZE:
		return sysconRegisterName(addr - SYSCON_BASE)
	case addr >= GPIO_BASE && addr < GPIO_BASE+GPIO_NUM_PORTS*GPIO_PORT_STRIDE:
		off := addr - GPIO_BASE
		port := off / GPIO_PORT_STRIDE
		name := ""
		switch off % GPIO_PORT_STRIDE {
		case FIODIR_OFFSET:
			name = "DIR"
		case FIOMASK_OFFSET:
			name = "MASK"
		case FIOPIN_OFFSET:
			name = "PIN"
		case FIOSET_OFFSET:
			name = "SET"
		case FIOCLR_OFFSET:
			name = "CLR"
		default:
			return ""
		}
		return "FIO" + string(rune('0'+port)) + name
	}
	return ""
}

func sysconRegisterName(off uintptr) string {
	switch off {
	case FLASHCFG_OFFSET:
		return "FLASHCFG"
	case PLL0CON_OFFSET:
		return "PLL0CON"
	case PLL0CFG_OFFSET:
		return "PLL0CFG"
	case PLL0STAT_OFFSET:
		return "PLL0STAT"
	case PLL0FEED_OFFSET:
		return "PLL0FEED"
	case CCLKCFG_OFFSET:
		return "CCLKCFG"
	case USBCLKCFG_OFFSET:
		return "USBCLKCFG"
	case CLKSRCSEL_OFFSET:
		return "CLKSRCSEL"
	case SCS_OFFSET:
		return "SCS"
	}
	return ""
}
