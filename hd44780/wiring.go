// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"

	"github.com/GermanBionicSystems/lcd23017/mcp23017"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// Wiring tells which MCP23017 pin each display line is connected to. RW and
// Backlight may be mcp23017.NC.
//
// With FourBit set only Data[4:] (D4-D7) are used and Data[:4] must be NC.
type Wiring struct {
	RS        mcp23017.Pin
	RW        mcp23017.Pin
	E         mcp23017.Pin
	Backlight mcp23017.Pin
	Data      [8]mcp23017.Pin
	FourBit   bool

	// BacklightActiveLow inverts the backlight pin.
	BacklightActiveLow bool
}

// DefaultWiring returns the 8 bit wiring used when none is supplied: the
// control lines on port A and D0-D7 on PB0-PB7.
func DefaultWiring() Wiring {
	return Wiring{
		RS:        mcp23017.PA7,
		RW:        mcp23017.PA6,
		E:         mcp23017.PA5,
		Backlight: mcp23017.PA1,
		Data: [8]mcp23017.Pin{
			mcp23017.PB0, mcp23017.PB1, mcp23017.PB2, mcp23017.PB3,
			mcp23017.PB4, mcp23017.PB5, mcp23017.PB6, mcp23017.PB7,
		},
	}
}

// WiringFromMasks builds a Wiring from one-hot 16 bit pin values, bits 0-7
// being port A and 8-15 port B. 0 means not connected. data holds D0-D7 or,
// for a 4 bit display, D4-D7.
func WiringFromMasks(rs, rw, e, backlight uint16, data ...uint16) (Wiring, error) {
	var w Wiring
	var first int
	switch len(data) {
	case 8:
	case 4:
		w.FourBit = true
		first = 4
	default:
		return w, fmt.Errorf("%s: need 4 or 8 data pins, got %d", packageName, len(data))
	}
	var err error
	conv := func(v uint16) mcp23017.Pin {
		p, perr := mcp23017.PinFromMask(v)
		if perr != nil && err == nil {
			err = perr
		}
		return p
	}
	w.RS, w.RW, w.E, w.Backlight = conv(rs), conv(rw), conv(e), conv(backlight)
	for ix, v := range data {
		w.Data[first+ix] = conv(v)
	}
	return w, wrap(err)
}

// dataPins returns the pins of the active data lines, D0-D7 or D4-D7.
func (w *Wiring) dataPins() []mcp23017.Pin {
	if w.FourBit {
		return w.Data[4:]
	}
	return w.Data[:]
}

// Validate checks that the required lines are wired, that every pin exists
// and that no pin is used twice.
func (w *Wiring) Validate() error {
	if !w.RS.Wired() || !w.E.Wired() {
		return fmt.Errorf("%s: RS and E must be wired", packageName)
	}
	used := map[mcp23017.Pin]string{}
	check := func(name string, p mcp23017.Pin) error {
		if !p.Valid() {
			return fmt.Errorf("%s: %s: invalid pin %d/%d", packageName, name, p.Port, p.Bit)
		}
		if !p.Wired() {
			return nil
		}
		if other, ok := used[p]; ok {
			return fmt.Errorf("%s: %s and %s both use %s", packageName, other, name, p)
		}
		used[p] = name
		return nil
	}
	for _, c := range []struct {
		name string
		pin  mcp23017.Pin
	}{{"RS", w.RS}, {"RW", w.RW}, {"E", w.E}, {"Backlight", w.Backlight}} {
		if err := check(c.name, c.pin); err != nil {
			return err
		}
	}
	for ix, p := range w.Data {
		name := fmt.Sprintf("D%d", ix)
		if w.FourBit && ix < 4 {
			if p != mcp23017.NC {
				return fmt.Errorf("%s: %s must be NC in 4 bit mode", packageName, name)
			}
			continue
		}
		if !p.Wired() {
			return fmt.Errorf("%s: %s must be wired", packageName, name)
		}
		if err := check(name, p); err != nil {
			return err
		}
	}
	return nil
}

// NewMCP23017 returns a display connected to an MCP23017 at address with
// the given wiring. A nil wiring selects DefaultWiring().
//
// Whether the data lines share one expander port is decided here. If they
// do, each transfer updates all of them in a single register write.
//
// Call Begin before using the display.
func NewMCP23017(bus i2c.Bus, address uint16, w *Wiring, opts ...Option) (*HD44780, error) {
	if w == nil {
		dw := DefaultWiring()
		w = &dw
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	mcp, err := mcp23017.New(bus, address)
	if err != nil {
		return nil, wrap(err)
	}
	data, err := mcp.Group(w.dataPins()...)
	if err != nil {
		return nil, wrap(err)
	}
	var rw gpio.PinOut
	if w.RW.Wired() {
		rw = mcp.Pin(w.RW)
	}
	var bl display.DisplayBacklight
	if w.Backlight.Wired() {
		bl = NewBacklight(mcp.Pin(w.Backlight), w.BacklightActiveLow)
	}
	lcd, err := NewHD44780(data, mcp.Pin(w.RS), rw, mcp.Pin(w.E), bl, opts...)
	if err != nil {
		return nil, err
	}
	lcd.expander = mcp
	return lcd, nil
}

// Expander returns the MCP23017 behind the display, or nil. Its spare pins
// can be driven through Expander().Pin() without disturbing the display.
func (lcd *HD44780) Expander() *mcp23017.Dev {
	return lcd.expander
}
