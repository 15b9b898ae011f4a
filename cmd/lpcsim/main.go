// Command lpcsim runs the LPC176x clock sequencer and an optional pin script
// against a simulated register map and prints every register access.
//
//	lpcsim -usb -pins "output P1_1 P1_4; high P1_1"
package main

import (
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/inhies/go-bytesize"
	"github.com/marcinbor85/gohex"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-tty"

	"github.com/tinygo-org/lpc17xx/device/lpc17xx"
	"github.com/tinygo-org/lpc17xx/machine"
	"github.com/tinygo-org/lpc17xx/sim"
)

// Polling the same register this many times in a row means the firmware
// would hang.
const maxPolls = 1_000_000

var errHang = errors.New("hardware never became ready")

const (
	colorReset  = "\x1b[0m"
	colorGray   = "\x1b[90m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorBold   = "\x1b[1m"
)

type options struct {
	scenario scenario
	step     bool
	dump     string
	color    bool
}

// printer writes the access trace, collapsing consecutive identical reads
// (busy polling) into one line.
type printer struct {
	w      io.Writer
	last   sim.Access
	repeat int
	step   func() error
}

func (p *printer) access(a sim.Access) {
	if p.repeat > 0 && a == p.last && a.Op == sim.Read {
		p.repeat++
		if p.repeat > maxPolls {
			panic(errHang)
		}
		return
	}
	p.flush()
	p.last, p.repeat = a, 1
	if a.Op == sim.Write && p.step != nil {
		p.flush()
		if err := p.step(); err != nil {
			panic(err)
		}
	}
}

func (p *printer) flush() {
	if p.repeat == 0 {
		return
	}
	a := p.last
	color := colorGreen
	switch {
	case a.Op == sim.Read:
		color = colorGray
	case a.Addr == lpc17xx.SYSCON_BASE+lpc17xx.PLL0FEED_OFFSET:
		color = colorYellow
	}
	fmt.Fprintf(p.w, "%s%s%s", color, a, colorReset)
	if p.repeat > 1 {
		fmt.Fprintf(p.w, " (x%d)", p.repeat)
	}
	fmt.Fprintln(p.w)
	p.repeat = 0
}

func printMap(w io.Writer) {
	blocks := []struct {
		name       string
		base, size uintptr
	}{
		{"SYSCON", lpc17xx.SYSCON_BASE, lpc17xx.SYSCON_SIZE},
		{"GPIO", lpc17xx.GPIO_BASE, lpc17xx.GPIO_SIZE},
	}
	fmt.Fprintf(w, "%sdevice %s%s\n", colorBold, lpc17xx.Device, colorReset)
	for _, b := range blocks {
		fmt.Fprintf(w, "  %-7s %#08x %s\n", b.name, b.base, bytesize.New(float64(b.size)))
	}
}

func dumpHex(path string, regs []sim.Register) error {
	mem := gohex.NewMemory()
	for _, r := range regs {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], r.Value)
		if err := mem.AddBinary(uint32(r.Addr), buf[:]); err != nil {
			return fmt.Errorf("dump %#08x: %w", r.Addr, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := mem.DumpIntelHex(f, 16); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func run(w io.Writer, opts options) (err error) {
	sc := opts.scenario
	cmds, err := parseScript(sc.script())
	if err != nil {
		return err
	}

	chip := sim.New(sc.Config)
	p := &printer{w: w}
	if opts.step {
		t, err := tty.Open()
		if err != nil {
			return fmt.Errorf("open terminal: %w", err)
		}
		defer t.Close()
		p.step = func() error {
			_, err := t.ReadRune()
			return err
		}
	}
	chip.OnAccess = p.access
	defer func() {
		if r := recover(); r != nil {
			perr, ok := r.(error)
			if !ok {
				panic(r)
			}
			p.flush()
			err = fmt.Errorf("register %s: %w", p.last.Name(), perr)
		}
	}()

	printMap(w)
	periph := lpc17xx.NewPeripherals(chip)

	cfg := machine.NewClockConfig()
	if sc.USB {
		cfg = cfg.EnableUSB()
	}
	fmt.Fprintf(w, "%sfreeze%s\n", colorBold, colorReset)
	clocks := cfg.Freeze(periph.SYSCON)
	p.flush()

	if len(cmds) > 0 {
		fmt.Fprintf(w, "%spins%s\n", colorBold, colorReset)
		if err := runScript(machine.Split(periph.GPIO), cmds); err != nil {
			p.flush()
			return err
		}
		p.flush()
	}

	fmt.Fprintf(w, "%sclocks%s cpu %s, oscillator %s", colorBold, colorReset, clocks.CPU(), clocks.MainOscillator())
	if usb, ok := clocks.USB(); ok {
		fmt.Fprintf(w, ", usb %s", usb)
	}
	fmt.Fprintf(w, ", flash %d clocks\n", clocks.FlashWaitStates())
	fmt.Fprintf(w, "%ssimulated%s cpu %s", colorBold, colorReset, machine.Hertz(chip.CPUFrequency()))
	if f := chip.USBFrequency(); f != 0 {
		fmt.Fprintf(w, ", usb %s", machine.Hertz(f))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d accesses, %d feeds, digest %#04x\n", len(chip.Trace()), chip.Feeds(), chip.Digest())

	if opts.dump != "" {
		return dumpHex(opts.dump, chip.Registers())
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: lpcsim [flags]")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "YAML scenario file")
	usb := flag.Bool("usb", false, "also derive the 48MHz USB clock")
	oscPolls := flag.Int("osc-polls", 3, "SCS polls before the oscillator is ready (-1: never)")
	lockPolls := flag.Int("lock-polls", 5, "PLL0STAT polls before PLL0 locks (-1: never)")
	pins := flag.String("pins", "", "pin script, e.g. \"output P1_1; high P1_1\"")
	step := flag.Bool("step", false, "wait for a key press after every register write")
	dump := flag.String("dump", "", "write the final register state as Intel HEX")
	noColor := flag.Bool("no-color", false, "disable colored output")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 0 {
		usage()
		os.Exit(1)
	}

	opts := options{scenario: defaultScenario(), step: *step, dump: *dump, color: !*noColor}
	if *configPath != "" {
		sc, err := loadScenario(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		opts.scenario = sc
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "usb":
			opts.scenario.USB = *usb
		case "osc-polls":
			opts.scenario.OscReadyAfter = *oscPolls
		case "lock-polls":
			opts.scenario.PLLLockAfter = *lockPolls
		case "pins":
			opts.scenario.Pins = append(opts.scenario.Pins, *pins)
		}
	})

	var w io.Writer = colorable.NewColorableStdout()
	if !opts.color {
		w = colorable.NewNonColorable(os.Stdout)
	}
	if err := run(w, opts); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
