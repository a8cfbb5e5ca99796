// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mcp23017

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
)

// portPin is a single output pin of the device.
type portPin struct {
	dev *Dev
	pin Pin
}

func (pp *portPin) Name() string {
	return fmt.Sprintf("%s_%s", pp.dev, pp.pin)
}

func (pp *portPin) Number() int {
	return pp.pin.Number()
}

func (pp *portPin) Function() string {
	return "Out"
}

func (pp *portPin) Halt() error {
	return nil
}

func (pp *portPin) String() string {
	return pp.Name()
}

func (pp *portPin) Out(l gpio.Level) error {
	return pp.dev.WritePin(pp.pin, l)
}

func (pp *portPin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrNotImplemented
}

// Group is a set of output pins written together. Bit n of the value passed
// to Out drives the n-th pin of the group.
type Group struct {
	dev         *Dev
	pins        []*portPin
	port        Port
	defaultMask gpio.GPIOValue
}

// Group returns a Group made up of the specified pins, in order. Whether the
// pins share one port is decided here, once.
func (dev *Dev) Group(pins ...Pin) (*Group, error) {
	if len(pins) == 0 || len(pins) > 16 {
		return nil, fmt.Errorf("%s: a group needs 1 to 16 pins, got %d", packageName, len(pins))
	}
	gr := &Group{
		dev:         dev,
		pins:        make([]*portPin, len(pins)),
		port:        Consolidate(pins...),
		defaultMask: gpio.GPIOValue((1 << len(pins)) - 1),
	}
	for ix, p := range pins {
		if !p.Wired() || !p.Valid() {
			return nil, fmt.Errorf("%s: group pin %d (%s) is not a device pin", packageName, ix, p)
		}
		gr.pins[ix] = &portPin{dev: dev, pin: p}
	}
	return gr, nil
}

// Port returns the port holding every pin of the group, or PortNone if the
// group spans both ports.
func (gr *Group) Port() Port {
	return gr.port
}

// Pins returns the set of pin.Pin that make up that group.
func (gr *Group) Pins() []pin.Pin {
	pins := make([]pin.Pin, len(gr.pins))
	for ix, p := range gr.pins {
		pins[ix] = p
	}
	return pins
}

// Given the offset within the group, return the corresponding GPIO pin.
func (gr *Group) ByOffset(offset int) pin.Pin {
	if offset < 0 || offset >= len(gr.pins) {
		return nil
	}
	return gr.pins[offset]
}

// Given the specific name of a pin, return it. If it can't be found, nil is
// returned.
func (gr *Group) ByName(name string) pin.Pin {
	for _, p := range gr.pins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Given the GPIO pin number, return that pin from the set.
func (gr *Group) ByNumber(number int) pin.Pin {
	for _, p := range gr.pins {
		if p.Number() == number {
			return p
		}
	}
	return nil
}

// Out writes value to the pins of the group selected by mask. If mask is 0,
// the default mask of all pins in the group is used.
//
// When the group sits on a single port, the bits are merged into that port's
// shadow and written in one transaction. Otherwise each selected pin is
// written individually, in group order; every write is attempted even if an
// earlier one failed.
func (gr *Group) Out(value, mask gpio.GPIOValue) error {
	if mask == 0 {
		mask = gr.defaultMask
	} else {
		mask &= gr.defaultMask
	}
	if gr.port == PortNone {
		var errs []error
		for ix, p := range gr.pins {
			bit := gpio.GPIOValue(1) << ix
			if mask&bit == 0 {
				continue
			}
			errs = append(errs, gr.dev.WritePin(p.pin, gpio.Level(value&bit != 0)))
		}
		return errors.Join(errs...)
	}
	// Convert the group relative value to the absolute port value.
	var wr, wrMask byte
	for ix, p := range gr.pins {
		bit := gpio.GPIOValue(1) << ix
		if mask&bit == 0 {
			continue
		}
		_, m := Resolve(p.pin)
		wrMask |= m
		if value&bit != 0 {
			wr |= m
		}
	}
	return gr.dev.WritePort(gr.port, wr, wrMask)
}

// Read is not supported. The driver never reads the device.
func (gr *Group) Read(mask gpio.GPIOValue) (gpio.GPIOValue, error) {
	return 0, ErrNotImplemented
}

// WaitForEdge is not supported.
func (gr *Group) WaitForEdge(timeout time.Duration) (number int, edge gpio.Edge, err error) {
	return -1, gpio.NoEdge, ErrNotImplemented
}

// Halt implements conn.Resource. It doesn't change the outputs.
func (gr *Group) Halt() error {
	return nil
}

// String returns the device name and the pins of the group.
func (gr *Group) String() string {
	s := fmt.Sprintf("%s - [ ", gr.dev)
	for _, p := range gr.pins {
		s += p.pin.String() + " "
	}
	return s + "]"
}

var _ gpio.PinOut = &portPin{}
var _ gpio.Group = &Group{}
