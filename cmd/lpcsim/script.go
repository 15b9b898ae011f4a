package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/shlex"

	"github.com/tinygo-org/lpc17xx/machine"
)

var (
	errUnknownPin    = errors.New("unknown pin")
	errUnknownAction = errors.New("unknown action")
	errNotOutput     = errors.New("pin is not an output")
	errAlreadyOutput = errors.New("pin is already an output")
)

// pinCommand is one step of a pin script, such as "output P1_1" or
// "high P1_1".
type pinCommand struct {
	action string
	pin    string
}

func (c pinCommand) String() string {
	return c.action + " " + c.pin
}

// parseScript splits a script into commands. Commands are separated by ';' or
// newlines; each command is an action followed by one or more pin names, so
// "output P1_1 P1_4" configures two pins.
func parseScript(script string) ([]pinCommand, error) {
	var cmds []pinCommand
	for _, line := range strings.FieldsFunc(script, func(r rune) bool { return r == ';' || r == '\n' }) {
		words, err := shlex.Split(line)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", line, err)
		}
		if len(words) == 0 {
			continue
		}
		action := strings.ToLower(words[0])
		switch action {
		case "output", "high", "low":
		default:
			return nil, fmt.Errorf("%q: %w", words[0], errUnknownAction)
		}
		if len(words) < 2 {
			return nil, fmt.Errorf("%q: missing pin name", line)
		}
		for _, name := range words[1:] {
			cmds = append(cmds, pinCommand{action: action, pin: strings.ToUpper(name)})
		}
	}
	return cmds, nil
}

// runScript executes the commands against freshly split pins. Driving a pin
// that was never made an output is an error, as it cannot be expressed with
// the machine package either.
func runScript(pins *machine.Pins, cmds []pinCommand) error {
	outputs := map[string]*machine.OutputPin{}
	for _, cmd := range cmds {
		in, ok := pins.ByName(cmd.pin)
		if !ok {
			return fmt.Errorf("%s: %w", cmd, errUnknownPin)
		}
		out := outputs[cmd.pin]
		switch cmd.action {
		case "output":
			if out != nil {
				return fmt.Errorf("%s: %w", cmd, errAlreadyOutput)
			}
			outputs[cmd.pin] = in.IntoOutput()
		case "high", "low":
			if out == nil {
				return fmt.Errorf("%s: %w", cmd, errNotOutput)
			}
			out.Set(cmd.action == "high")
		}
	}
	return nil
}
