// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

// PinBacklight is a backlight switched by a single GPIO pin. Any non-zero
// intensity turns it on.
//
// Implements display.DisplayBacklight
type PinBacklight struct {
	blPin     gpio.PinOut
	activeLow bool
}

// NewBacklight returns a backlight driven by blPin. Set activeLow when the
// backlight transistor turns on with the pin low.
func NewBacklight(blPin gpio.PinOut, activeLow bool) *PinBacklight {
	return &PinBacklight{blPin: blPin, activeLow: activeLow}
}

// Turn the display backlight on or off.
func (bl *PinBacklight) Backlight(intensity display.Intensity) error {
	on := intensity > 0
	return bl.blPin.Out(gpio.Level(on != bl.activeLow))
}

var _ display.DisplayBacklight = &PinBacklight{}
