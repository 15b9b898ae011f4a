package lpc17xx_test

import (
	"errors"
	"testing"

	"github.com/tinygo-org/lpc17xx/device/lpc17xx"
)

type mapBus map[uintptr]uint32

func (b mapBus) Load32(addr uintptr) uint32         { return b[addr] }
func (b mapBus) Store32(addr uintptr, value uint32) { b[addr] = value }

func TestTakeOnce(t *testing.T) {
	bus := mapBus{}
	p, err := lpc17xx.Take(bus)
	if err != nil || p == nil {
		t.Fatalf("first Take returned %v, %v", p, err)
	}
	p2, err := lpc17xx.Take(bus)
	if p2 != nil || !errors.Is(err, lpc17xx.ErrPeripheralsTaken) {
		t.Errorf("second Take returned %v, %v, want nil, ErrPeripheralsTaken", p2, err)
	}
}

func TestRegisterAddresses(t *testing.T) {
	p := lpc17xx.NewPeripherals(mapBus{})
	tests := []struct {
		name string
		addr uintptr
		want uintptr
	}{
		{"FLASHCFG", p.SYSCON.FLASHCFG.Address(), 0x400FC000},
		{"PLL0CON", p.SYSCON.PLL0CON.Address(), 0x400FC080},
		{"PLL0CFG", p.SYSCON.PLL0CFG.Address(), 0x400FC084},
		{"PLL0STAT", p.SYSCON.PLL0STAT.Address(), 0x400FC088},
		{"PLL0FEED", p.SYSCON.PLL0FEED.Address(), 0x400FC08C},
		{"CCLKCFG", p.SYSCON.CCLKCFG.Address(), 0x400FC104},
		{"USBCLKCFG", p.SYSCON.USBCLKCFG.Address(), 0x400FC108},
		{"CLKSRCSEL", p.SYSCON.CLKSRCSEL.Address(), 0x400FC10C},
		{"SCS", p.SYSCON.SCS.Address(), 0x400FC1A0},
		{"FIO0DIR", p.GPIO.Port(0).FIODIR.Address(), 0x2009C000},
		{"FIO1SET", p.GPIO.Port(1).FIOSET.Address(), 0x2009C038},
		{"FIO1CLR", p.GPIO.Port(1).FIOCLR.Address(), 0x2009C03C},
		{"FIO4PIN", p.GPIO.Port(4).FIOPIN.Address(), 0x2009C094},
	}
	for _, tc := range tests {
		if tc.addr != tc.want {
			t.Errorf("%s: got address %#x, want %#x", tc.name, tc.addr, tc.want)
		}
		if got := lpc17xx.RegisterName(tc.addr); got != tc.name {
			t.Errorf("RegisterName(%#x) = %q, want %q", tc.addr, got, tc.name)
		}
	}
	if got := lpc17xx.RegisterName(0x10000000); got != "" {
		t.Errorf("RegisterName of RAM address = %q, want empty", got)
	}
}

func TestClaim(t *testing.T) {
	p := lpc17xx.NewPeripherals(mapBus{})
	if !p.SYSCON.Claim() || p.SYSCON.Claim() {
		t.Error("SYSCON must be claimable exactly once")
	}
	if !p.GPIO.Claim() || p.GPIO.Claim() {
		t.Error("GPIO must be claimable exactly once")
	}
}

func TestClaimPin(t *testing.T) {
	p := lpc17xx.NewPeripherals(mapBus{})
	if !p.GPIO.ClaimPin(1, 1) {
		t.Fatal("first ClaimPin(1, 1) failed")
	}
	if p.GPIO.ClaimPin(1, 1) {
		t.Error("ClaimPin(1, 1) succeeded twice")
	}
	if !p.GPIO.ClaimPin(1, 2) || !p.GPIO.ClaimPin(0, 1) {
		t.Error("claiming one pin blocked another pin")
	}
	for _, tc := range []struct{ port, bit uint8 }{{5, 0}, {0, 32}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("ClaimPin(%d, %d) did not panic", tc.port, tc.bit)
				}
			}()
			p.GPIO.ClaimPin(tc.port, tc.bit)
		}()
	}
}

func TestPortOutOfRange(t *testing.T) {
	p := lpc17xx.NewPeripherals(mapBus{})
	defer func() {
		if recover() == nil {
			t.Error("Port(5) did not panic")
		}
	}()
	p.GPIO.Port(lpc17xx.GPIO_NUM_PORTS)
}
