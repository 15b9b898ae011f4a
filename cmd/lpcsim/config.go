package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/tinygo-org/lpc17xx/sim"
)

// scenario is the content of a -config file:
//
//	osc_ready_after: 3
//	pll_lock_after: 5
//	usb: true
//	pins:
//	  - output P1_1 P1_4
//	  - high P1_1
type scenario struct {
	sim.Config `yaml:",inline"`

	USB  bool     `yaml:"usb"`
	Pins []string `yaml:"pins"`
}

func defaultScenario() scenario {
	return scenario{
		Config: sim.Config{OscReadyAfter: 3, PLLLockAfter: 5},
	}
}

func loadScenario(path string) (scenario, error) {
	sc := defaultScenario()
	data, err := os.ReadFile(path)
	if err != nil {
		return sc, err
	}
	if err := yaml.UnmarshalStrict(data, &sc); err != nil {
		return sc, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func (sc scenario) script() string {
	return strings.Join(sc.Pins, "\n")
}
