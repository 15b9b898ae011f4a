package machine

// Pins holds one handle per usable pin. It is created by Split.
type Pins struct {
	P0_0 *InputPin
	P0_1 *InputPin
	P0_2 *InputPin
	P0_3 *InputPin

	P1_1  *InputPin
	P1_4  *InputPin
	P1_8  *InputPin
	P1_9  *InputPin
	P1_18 *InputPin
	P1_20 *InputPin
	P1_21 *InputPin
	P1_22 *InputPin
	P1_23 *InputPin
	P1_25 *InputPin
}

type pinDesc struct {
	name  string
	port  uint8
	bit   uint8
	field func(*Pins) **InputPin
}

var pinTable = [...]pinDesc{
	{"P0_0", 0, 0, func(p *Pins) **InputPin { return &p.P0_0 }},
	{"P0_1", 0, 1, func(p *Pins) **InputPin { return &p.P0_1 }},
	{"P0_2", 0, 2, func(p *Pins) **InputPin { return &p.P0_2 }},
	{"P0_3", 0, 3, func(p *Pins) **InputPin { return &p.P0_3 }},

	{"P1_1", 1, 1, func(p *Pins) **InputPin { return &p.P1_1 }},
	{"P1_4", 1, 4, func(p *Pins) **InputPin { return &p.P1_4 }},
	{"P1_8", 1, 8, func(p *Pins) **InputPin { return &p.P1_8 }},
	{"P1_9", 1, 9, func(p *Pins) **InputPin { return &p.P1_9 }},
	{"P1_18", 1, 18, func(p *Pins) **InputPin { return &p.P1_18 }},
	{"P1_20", 1, 20, func(p *Pins) **InputPin { return &p.P1_20 }},
	{"P1_21", 1, 21, func(p *Pins) **InputPin { return &p.P1_21 }},
	{"P1_22", 1, 22, func(p *Pins) **InputPin { return &p.P1_22 }},
	{"P1_23", 1, 23, func(p *Pins) **InputPin { return &p.P1_23 }},
	{"P1_25", 1, 25, func(p *Pins) **InputPin { return &p.P1_25 }},
}

// Names of the pins wired to the LEDs of the development board.
const (
	LED_USR = "P1_1"
	LED_RX  = "P1_4"
	LED_TX  = "P1_8"
	LED_1V8 = "P1_9"
	LED_USB = "P1_18"
)
