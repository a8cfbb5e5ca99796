// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mcp23017

import (
	"fmt"
	"math/bits"
)

// Port identifies one of the two 8-bit ports of the expander.
type Port uint8

const (
	// PortNone is the port of an unwired pin. It's also what Consolidate
	// returns when a set of pins spans both ports.
	PortNone Port = iota
	PortA
	PortB
)

func (p Port) String() string {
	switch p {
	case PortA:
		return "A"
	case PortB:
		return "B"
	default:
		return "none"
	}
}

// register returns the GPIO output register of the port.
func (p Port) register() byte {
	if p == PortB {
		return GPIOB
	}
	return GPIOA
}

// Pin is a single expander pin. The zero value is NC.
type Pin struct {
	Port Port
	Bit  uint8
}

// NC is the "not connected" pin.
var NC = Pin{}

var (
	PA0 = Pin{PortA, 0}
	PA1 = Pin{PortA, 1}
	PA2 = Pin{PortA, 2}
	PA3 = Pin{PortA, 3}
	PA4 = Pin{PortA, 4}
	PA5 = Pin{PortA, 5}
	PA6 = Pin{PortA, 6}
	PA7 = Pin{PortA, 7}
	PB0 = Pin{PortB, 0}
	PB1 = Pin{PortB, 1}
	PB2 = Pin{PortB, 2}
	PB3 = Pin{PortB, 3}
	PB4 = Pin{PortB, 4}
	PB5 = Pin{PortB, 5}
	PB6 = Pin{PortB, 6}
	PB7 = Pin{PortB, 7}
)

// Wired reports whether p refers to a real pin.
func (p Pin) Wired() bool {
	return p.Port == PortA || p.Port == PortB
}

// Valid reports whether p is either NC or a pin that exists on the device.
func (p Pin) Valid() bool {
	return p == NC || (p.Wired() && p.Bit < 8)
}

// Number returns the pin number on the device, 0-7 for port A and 8-15 for
// port B. NC returns -1.
func (p Pin) Number() int {
	switch p.Port {
	case PortA:
		return int(p.Bit)
	case PortB:
		return 8 + int(p.Bit)
	}
	return -1
}

func (p Pin) String() string {
	if !p.Wired() {
		return "NC"
	}
	return fmt.Sprintf("P%s%d", p.Port, p.Bit)
}

// Mask16 returns the legacy one-hot encoding of the pin: bits 0-7 for port A
// and 8-15 for port B. NC encodes as 0.
func (p Pin) Mask16() uint16 {
	if !p.Wired() {
		return 0
	}
	return uint16(1) << p.Number()
}

// PinFromMask converts the legacy one-hot encoding into a Pin. A value of 0
// returns NC. Values with more than one bit set are rejected.
func PinFromMask(v uint16) (Pin, error) {
	if v == 0 {
		return NC, nil
	}
	if bits.OnesCount16(v) != 1 {
		return NC, fmt.Errorf("mcp23017: pin value 0x%04x must have exactly one bit set", v)
	}
	n := bits.TrailingZeros16(v)
	if v > 0x00ff {
		return Pin{PortB, uint8(n - 8)}, nil
	}
	return Pin{PortA, uint8(n)}, nil
}

// Resolve returns the output register holding pin p and the pin's bit mask
// within that register. NC resolves to GPIOA with an empty mask.
func Resolve(p Pin) (register, mask byte) {
	if !p.Wired() {
		return GPIOA, 0
	}
	return p.Port.register(), 1 << (p.Bit & 7)
}

// Consolidate returns the port shared by all the pins, or PortNone if they
// are spread over both ports. The first pin decides the candidate port.
func Consolidate(pins ...Pin) Port {
	if len(pins) == 0 {
		return PortNone
	}
	port := pins[0].Port
	for _, p := range pins[1:] {
		if p.Port != port {
			return PortNone
		}
	}
	if port != PortA && port != PortB {
		return PortNone
	}
	return port
}
