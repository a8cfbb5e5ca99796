// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mcp23017

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// Register addresses with IOCON.BANK = 0, the power-on default.
const (
	IODIRA   byte = 0x00
	IODIRB   byte = 0x01
	IPOLA    byte = 0x02
	IPOLB    byte = 0x03
	GPINTENA byte = 0x04
	GPINTENB byte = 0x05
	DEFVALA  byte = 0x06
	DEFVALB  byte = 0x07
	INTCONA  byte = 0x08
	INTCONB  byte = 0x09
	IOCON    byte = 0x0a
	GPPUA    byte = 0x0c
	GPPUB    byte = 0x0d
	INTFA    byte = 0x0e
	INTFB    byte = 0x0f
	INTCAPA  byte = 0x10
	INTCAPB  byte = 0x11
	GPIOA    byte = 0x12
	GPIOB    byte = 0x13
	OLATA    byte = 0x14
	OLATB    byte = 0x15
)

const (
	// DefaultAddress is the device address with A2, A1 and A0 grounded.
	DefaultAddress uint16 = 0x20
	maxAddress     uint16 = 0x27

	packageName = "mcp23017"
)

// ErrNotImplemented is returned by the input side of pins and groups. This
// driver only writes to the device.
var ErrNotImplemented = fmt.Errorf("%s: %w", packageName, gpio.ErrGroupFeatureNotImplemented)

// BusError is returned when the transport fails a register write.
type BusError struct {
	Addr     uint16
	Register byte
	Value    byte
	Err      error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("%s: write 0x%02x to register 0x%02x at 0x%02x: %v", packageName, e.Value, e.Register, e.Addr, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// Dev is an MCP23017 with both ports used as outputs.
type Dev struct {
	mu    sync.Mutex
	d     *i2c.Dev
	gpioA byte
	gpioB byte
}

// New returns a Dev for the expander at address. Addresses 0-7 are taken
// as the A2..A0 strapping and added to DefaultAddress.
//
// No bus traffic happens until Reset or a write is performed.
func New(bus i2c.Bus, address uint16) (*Dev, error) {
	if address < 8 {
		address += DefaultAddress
	}
	if address < DefaultAddress || address > maxAddress {
		return nil, fmt.Errorf("%s: address 0x%02x out of range 0x%02x-0x%02x", packageName, address, DefaultAddress, maxAddress)
	}
	return &Dev{d: &i2c.Dev{Bus: bus, Addr: address}}, nil
}

// Addr returns the I²C address of the device.
func (dev *Dev) Addr() uint16 {
	return dev.d.Addr
}

// Reset configures both ports as outputs and drives every pin low.
//
// All four writes are attempted even if some of them fail.
func (dev *Dev) Reset() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.gpioA = 0
	dev.gpioB = 0
	return errors.Join(
		dev.writeRegister(IODIRA, 0x00),
		dev.writeRegister(IODIRB, 0x00),
		dev.writeRegister(GPIOA, dev.gpioA),
		dev.writeRegister(GPIOB, dev.gpioB),
	)
}

// Shadow returns the last value written to the output register of port.
func (dev *Dev) Shadow(port Port) byte {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return *dev.shadow(port)
}

// WriteRegister writes value to register reg.
func (dev *Dev) WriteRegister(reg, value byte) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.writeRegister(reg, value)
}

// WritePin sets a single pin and writes its port. Writing NC does nothing.
func (dev *Dev) WritePin(p Pin, l gpio.Level) error {
	if !p.Valid() {
		return fmt.Errorf("%s: port %s bit %d is not a device pin", packageName, p.Port, p.Bit)
	}
	if !p.Wired() {
		return nil
	}
	_, mask := Resolve(p)
	var value byte
	if l {
		value = mask
	}
	return dev.WritePort(p.Port, value, mask)
}

// WritePort replaces the bits of port selected by mask with the ones in
// value and writes the port. Bits outside mask keep their shadow value.
func (dev *Dev) WritePort(port Port, value, mask byte) error {
	if port != PortA && port != PortB {
		return fmt.Errorf("%s: invalid port %d", packageName, port)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	s := dev.shadow(port)
	*s = (*s &^ mask) | (value & mask)
	return dev.writeRegister(port.register(), *s)
}

// Pin returns p as a gpio.PinOut sharing this device's shadow state. This
// can be used to drive expander pins that aren't used by the display.
//
// Out on a pin that doesn't exist on the device returns an error and
// produces no bus traffic.
func (dev *Dev) Pin(p Pin) gpio.PinOut {
	return &portPin{dev: dev, pin: p}
}

// Halt implements conn.Resource. The outputs are left as they are.
func (dev *Dev) Halt() error {
	return nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("MCP23017_%x", dev.d.Addr)
}

func (dev *Dev) shadow(port Port) *byte {
	if port == PortB {
		return &dev.gpioB
	}
	return &dev.gpioA
}

// writeRegister performs the bus transaction. The shadow has already been
// updated by the caller and is kept even if the write fails.
func (dev *Dev) writeRegister(reg, value byte) error {
	err := dev.d.Tx([]byte{reg, value}, nil)
	if err == nil {
		return nil
	}
	berr := &BusError{Addr: dev.d.Addr, Register: reg, Value: value, Err: err}
	glog.Warning(berr)
	return berr
}

var _ conn.Resource = &Dev{}
