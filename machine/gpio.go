package machine

import (
	"github.com/tinygo-org/lpc17xx/device/lpc17xx"
)

// noCopy makes go vet's copylocks check report copies of pin handles. The
// ownership of a pin is tracked by the GPIO block, not by the handle.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// pin is the identity and port registers shared by both pin modes.
type pin struct {
	gpio *lpc17xx.GPIO_Type
	port *lpc17xx.FIO_Type
	num  uint8 // port number
	bit  uint8
}

func (p pin) mask() uint32 {
	return 1 << p.bit
}

// InputPin is an exclusively owned pin that has not been configured as an
// output. It cannot change the level of the pin; the only operation that
// touches hardware is IntoOutput, which consumes it.
type InputPin struct {
	_ noCopy
	pin
}

// Port returns the GPIO port number of the pin.
func (p *InputPin) Port() uint8 { return p.num }

// Bit returns the bit index of the pin within its port.
func (p *InputPin) Bit() uint8 { return p.bit }

// IntoOutput sets the direction bit of the pin and returns it as an output.
// The input handle must not be used afterwards: a second IntoOutput for the
// same pin panics, also through a copy of the handle.
func (p *InputPin) IntoOutput() *OutputPin {
	if !p.gpio.ClaimPin(p.num, p.bit) {
		panic("machine: pin already converted")
	}
	p.port.FIODIR.SetBits(p.mask())
	return &OutputPin{pin: p.pin}
}

// OutputPin is an exclusively owned pin configured as an output.
type OutputPin struct {
	_ noCopy
	pin
}

// Port returns the GPIO port number of the pin.
func (p *OutputPin) Port() uint8 { return p.num }

// Bit returns the bit index of the pin within its port.
func (p *OutputPin) Bit() uint8 { return p.bit }

// SetHigh drives the pin high. FIOSET only acts on the bits written as 1, so
// other pins of the port are unaffected.
func (p *OutputPin) SetHigh() {
	p.port.FIOSET.Set(p.mask())
}

// SetLow drives the pin low. FIOCLR only acts on the bits written as 1, so
// other pins of the port are unaffected.
func (p *OutputPin) SetLow() {
	p.port.FIOCLR.Set(p.mask())
}

// Set drives the pin high if high is true, low otherwise.
func (p *OutputPin) Set(high bool) {
	if high {
		p.SetHigh()
	} else {
		p.SetLow()
	}
}

// Split claims the GPIO controller and hands out one input pin per pin of
// the board. It panics if the controller has already been split.
func Split(gpio *lpc17xx.GPIO_Type) *Pins {
	if !gpio.Claim() {
		panic("machine: GPIO already split")
	}
	pins := &Pins{}
	for _, d := range pinTable {
		*d.field(pins) = &InputPin{
			pin: pin{gpio: gpio, port: gpio.Port(d.port), num: d.port, bit: d.bit},
		}
	}
	return pins
}

// ByName returns the pin with the given name, such as "P1_18". The handle is
// the same one stored in the named field.
func (p *Pins) ByName(name string) (*InputPin, bool) {
	for _, d := range pinTable {
		if d.name == name {
			return *d.field(p), true
		}
	}
	return nil, false
}
