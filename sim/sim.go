// Package sim is a simulated LPC176x register map. It implements mmio.Bus, so
// the machine package can run on a host against it, and records every bus
// access for later inspection.
//
// Only the behavior the clock sequencer and GPIO driver depend on is modeled:
//
//   - SCS.OSCSTAT becomes set after a configurable number of polls once the
//     main oscillator is enabled, and stays set (latched).
//   - PLL0CON and PLL0CFG writes land in shadow registers. They only take
//     effect after a valid feed sequence (0xAA then 0x55 with no other access
//     in between). PLL0STAT reflects the effective values.
//   - PLL0STAT.PLOCK0 becomes set after a configurable number of polls once
//     PLL0 is effectively enabled, and stays set.
//   - FIOSET and FIOCLR are write-1-to-act on the port's output latch,
//     honoring FIOMASK.
package sim

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/sigurn/crc16"

	"github.com/tinygo-org/lpc17xx/device/lpc17xx"
)

const (
	ircFrequency     = 4_000_000
	defaultCrystalHz = 12_000_000
)

// Op is the kind of a bus access.
type Op uint8

const (
	Read Op = iota
	Write
)

func (op Op) String() string {
	if op == Write {
		return "W"
	}
	return "R"
}

// Access is one recorded bus access.
type Access struct {
	Op    Op
	Addr  uintptr
	Value uint32
}

// Name returns the register name of the access address, or its hexadecimal
// address if it is not a known register.
func (a Access) Name() string {
	if name := lpc17xx.RegisterName(a.Addr); name != "" {
		return name
	}
	return fmt.Sprintf("%#08x", a.Addr)
}

func (a Access) String() string {
	arrow := "->"
	if a.Op == Write {
		arrow = "<-"
	}
	return fmt.Sprintf("%s %-9s %s %#08x", a.Op, a.Name(), arrow, a.Value)
}

// Config describes the simulated board.
type Config struct {
	// Number of SCS reads that report the oscillator as not ready after it has
	// been enabled. Negative means never ready.
	OscReadyAfter int `yaml:"osc_ready_after"`

	// Number of PLL0STAT reads that report PLL0 as unlocked after it has been
	// enabled. Negative means never locked.
	PLLLockAfter int `yaml:"pll_lock_after"`

	// Frequency of the main crystal, in Hz. Zero means 12 MHz.
	CrystalHz uint32 `yaml:"crystal_hz"`
}

// Chip is a simulated register map. The zero value is not usable; use New.
type Chip struct {
	cfg   Config
	regs  map[uintptr]uint32
	trace []Access

	// OnAccess, if set, is called after every bus access.
	OnAccess func(Access)

	oscPolls  int
	oscReady  bool
	lockPolls int
	locked    bool

	pllCon    uint32 // effective PLL0CON
	pllCfg    uint32 // effective PLL0CFG
	feedStage int
	feeds     int
}

// New returns a chip in its reset state.
func New(cfg Config) *Chip {
	if cfg.CrystalHz == 0 {
		cfg.CrystalHz = defaultCrystalHz
	}
	c := &Chip{
		cfg:  cfg,
		regs: make(map[uintptr]uint32),
	}
	c.regs[syscon(lpc17xx.FLASHCFG_OFFSET)] = lpc17xx.FLASHCFG_RESET
	return c
}

func syscon(offset uintptr) uintptr {
	return lpc17xx.SYSCON_BASE + offset
}

// gpioRegister returns the port and register offset if addr lies in one of
// the GPIO ports.
func gpioRegister(addr uintptr) (port uintptr, offset uintptr, ok bool) {
	if addr < lpc17xx.GPIO_BASE || addr >= lpc17xx.GPIO_BASE+lpc17xx.GPIO_NUM_PORTS*lpc17xx.GPIO_PORT_STRIDE {
		return 0, 0, false
	}
	off := addr - lpc17xx.GPIO_BASE
	return off / lpc17xx.GPIO_PORT_STRIDE, off % lpc17xx.GPIO_PORT_STRIDE, true
}

func portRegister(port, offset uintptr) uintptr {
	return lpc17xx.GPIO_BASE + port*lpc17xx.GPIO_PORT_STRIDE + offset
}

// Load32 implements mmio.Bus.
func (c *Chip) Load32(addr uintptr) uint32 {
	if addr != syscon(lpc17xx.PLL0FEED_OFFSET) {
		c.feedStage = 0
	}
	switch addr {
	case syscon(lpc17xx.SCS_OFFSET):
		if c.regs[addr]&lpc17xx.SCS_OSCEN != 0 && !c.oscReady {
			c.oscPolls++
			if c.cfg.OscReadyAfter >= 0 && c.oscPolls > c.cfg.OscReadyAfter {
				c.oscReady = true
			}
		}
	case syscon(lpc17xx.PLL0STAT_OFFSET):
		if c.pllCon&lpc17xx.PLL0CON_PLLE0 != 0 && !c.locked {
			c.lockPolls++
			if c.cfg.PLLLockAfter >= 0 && c.lockPolls > c.cfg.PLLLockAfter {
				c.locked = true
			}
		}
	}
	value := c.Peek(addr)
	c.record(Access{Op: Read, Addr: addr, Value: value})
	return value
}

// Peek returns what a load of addr would return, without side effects and
// without recording it.
func (c *Chip) Peek(addr uintptr) uint32 {
	switch addr {
	case syscon(lpc17xx.SCS_OFFSET):
		v := c.regs[addr]
		if c.oscReady {
			v |= lpc17xx.SCS_OSCSTAT
		}
		return v
	case syscon(lpc17xx.PLL0STAT_OFFSET):
		return c.pllStatus()
	case syscon(lpc17xx.PLL0FEED_OFFSET):
		return 0
	}
	if port, off, ok := gpioRegister(addr); ok {
		switch off {
		case lpc17xx.FIOSET_OFFSET:
			return c.regs[portRegister(port, lpc17xx.FIOPIN_OFFSET)]
		case lpc17xx.FIOCLR_OFFSET:
			return 0
		}
	}
	return c.regs[addr]
}

func (c *Chip) pllStatus() uint32 {
	v := c.pllCfg & (lpc17xx.PLL0STAT_MSEL0_Msk<<lpc17xx.PLL0STAT_MSEL0_Pos | lpc17xx.PLL0STAT_NSEL0_Msk<<lpc17xx.PLL0STAT_NSEL0_Pos)
	if c.pllCon&lpc17xx.PLL0CON_PLLE0 != 0 {
		v |= lpc17xx.PLL0STAT_PLLE0_STAT
		if c.pllCon&lpc17xx.PLL0CON_PLLC0 != 0 {
			v |= lpc17xx.PLL0STAT_PLLC0_STAT
		}
		if c.locked {
			v |= lpc17xx.PLL0STAT_PLOCK0
		}
	}
	return v
}

// Store32 implements mmio.Bus.
func (c *Chip) Store32(addr uintptr, value uint32) {
	c.record(Access{Op: Write, Addr: addr, Value: value})
	if addr == syscon(lpc17xx.PLL0FEED_OFFSET) {
		c.feed(value)
		return
	}
	c.feedStage = 0

	switch addr {
	case syscon(lpc17xx.SCS_OFFSET):
		value &^= lpc17xx.SCS_OSCSTAT
		if value&lpc17xx.SCS_OSCEN == 0 {
			c.oscReady = false
			c.oscPolls = 0
		}
		c.regs[addr] = value
		return
	case syscon(lpc17xx.PLL0STAT_OFFSET):
		return // read-only
	}

	if port, off, ok := gpioRegister(addr); ok {
		pin := portRegister(port, lpc17xx.FIOPIN_OFFSET)
		mask := c.regs[portRegister(port, lpc17xx.FIOMASK_OFFSET)]
		switch off {
		case lpc17xx.FIOSET_OFFSET:
			c.regs[pin] |= value &^ mask
			return
		case lpc17xx.FIOCLR_OFFSET:
			c.regs[pin] &^= value &^ mask
			return
		case lpc17xx.FIOPIN_OFFSET:
			c.regs[pin] = c.regs[pin]&mask | value&^mask
			return
		}
	}
	c.regs[addr] = value
}

func (c *Chip) feed(value uint32) {
	switch {
	case value == lpc17xx.PLL0FEED_FIRST:
		c.feedStage = 1
	case value == lpc17xx.PLL0FEED_SECOND && c.feedStage == 1:
		c.feedStage = 0
		c.feeds++
		c.pllCfg = c.regs[syscon(lpc17xx.PLL0CFG_OFFSET)]
		c.pllCon = c.regs[syscon(lpc17xx.PLL0CON_OFFSET)]
		if c.pllCon&lpc17xx.PLL0CON_PLLE0 == 0 {
			c.locked = false
			c.lockPolls = 0
		}
	default:
		c.feedStage = 0
	}
}

func (c *Chip) record(a Access) {
	c.trace = append(c.trace, a)
	if c.OnAccess != nil {
		c.OnAccess(a)
	}
}

// Trace returns all accesses since the chip was created or the trace was last
// reset.
func (c *Chip) Trace() []Access {
	return c.trace
}

// Writes returns only the write accesses of the trace.
func (c *Chip) Writes() []Access {
	var writes []Access
	for _, a := range c.trace {
		if a.Op == Write {
			writes = append(writes, a)
		}
	}
	return writes
}

// ResetTrace discards the recorded accesses. The register state is kept.
func (c *Chip) ResetTrace() {
	c.trace = nil
}

// Feeds returns the number of valid feed sequences seen so far.
func (c *Chip) Feeds() int {
	return c.feeds
}

var digestTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// Digest returns a CRC-16/XMODEM checksum of the recorded trace. Two runs
// with the same digest performed the same accesses in the same order.
func (c *Chip) Digest() uint16 {
	buf := make([]byte, 0, len(c.trace)*9)
	for _, a := range c.trace {
		buf = append(buf, byte(a.Op))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(a.Addr))
		buf = binary.LittleEndian.AppendUint32(buf, a.Value)
	}
	return crc16.Checksum(buf, digestTable)
}

// Register is a register address together with its current value.
type Register struct {
	Addr  uintptr
	Value uint32
}

// Registers returns every register that has been written or has a non-zero
// reset value, sorted by address, with the value a load would return.
func (c *Chip) Registers() []Register {
	seen := map[uintptr]bool{
		syscon(lpc17xx.PLL0STAT_OFFSET): true,
	}
	for addr := range c.regs {
		seen[addr] = true
	}
	regs := make([]Register, 0, len(seen))
	for addr := range seen {
		regs = append(regs, Register{Addr: addr, Value: c.Peek(addr)})
	}
	sort.Slice(regs, func(i, j int) bool {
		return regs[i].Addr < regs[j].Addr
	})
	return regs
}

func (c *Chip) pllOutput() (fcco uint32, ok bool) {
	if c.pllCon&(lpc17xx.PLL0CON_PLLE0|lpc17xx.PLL0CON_PLLC0) != lpc17xx.PLL0CON_PLLE0|lpc17xx.PLL0CON_PLLC0 || !c.locked {
		return 0, false
	}
	msel := (c.pllCfg>>lpc17xx.PLL0CFG_MSEL0_Pos)&lpc17xx.PLL0CFG_MSEL0_Msk + 1
	nsel := (c.pllCfg>>lpc17xx.PLL0CFG_NSEL0_Pos)&lpc17xx.PLL0CFG_NSEL0_Msk + 1
	return uint32(2 * uint64(msel) * uint64(c.sourceFrequency()) / uint64(nsel)), true
}

func (c *Chip) sourceFrequency() uint32 {
	sel := c.regs[syscon(lpc17xx.CLKSRCSEL_OFFSET)] >> lpc17xx.CLKSRCSEL_CLKSRC_Pos & lpc17xx.CLKSRCSEL_CLKSRC_Msk
	switch sel {
	case lpc17xx.CLKSRCSEL_CLKSRC_MAIN_OSC:
		if c.oscReady {
			return c.cfg.CrystalHz
		}
		return 0
	case lpc17xx.CLKSRCSEL_CLKSRC_RTC_OSC:
		return 32768
	}
	return ircFrequency
}

// CPUFrequency returns the frequency the simulated CPU would run at with the
// effective register state.
func (c *Chip) CPUFrequency() uint32 {
	div := c.regs[syscon(lpc17xx.CCLKCFG_OFFSET)]>>lpc17xx.CCLKCFG_CCLKSEL_Pos&lpc17xx.CCLKCFG_CCLKSEL_Msk + 1
	if fcco, ok := c.pllOutput(); ok {
		return fcco / div
	}
	return c.sourceFrequency() / div
}

// USBFrequency returns the frequency of the USB clock, or 0 if PLL0 does not
// drive it.
func (c *Chip) USBFrequency() uint32 {
	fcco, ok := c.pllOutput()
	if !ok {
		return 0
	}
	div := c.regs[syscon(lpc17xx.USBCLKCFG_OFFSET)]>>lpc17xx.USBCLKCFG_USBSEL_Pos&lpc17xx.USBCLKCFG_USBSEL_Msk + 1
	return fcco / div
}
