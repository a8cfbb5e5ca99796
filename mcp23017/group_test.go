// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mcp23017

import (
	"errors"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestGroup(t *testing.T) {
	dev, _ := getDev(t)
	gr, err := dev.Group(PA4, PA5, PA6, PA7)
	if err != nil {
		t.Fatal(err)
	}
	if gr.Port() != PortA {
		t.Errorf("Port()=%s, expected A", gr.Port())
	}
	if len(gr.Pins()) != 4 {
		t.Errorf("expected 4 pins, found %d", len(gr.Pins()))
	}
	for ix, p := range gr.Pins() {
		t.Logf("offset %d: %s", ix, p)
		if gr.ByOffset(ix) != p || gr.ByName(p.Name()) != p || gr.ByNumber(p.Number()) != p {
			t.Errorf("lookup of %s failed", p)
		}
	}
	if gr.ByOffset(4) != nil || gr.ByName("foo") != nil || gr.ByNumber(0) != nil {
		t.Error("lookup of a pin outside the group must return nil")
	}
	if s := gr.String(); s != "MCP23017_20 - [ PA4 PA5 PA6 PA7 ]" {
		t.Errorf("String()=%q", s)
	}
	if _, err := gr.Read(0); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("Read() expected ErrNotImplemented, got %v", err)
	}
	if _, _, err := gr.WaitForEdge(0); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("WaitForEdge() expected ErrNotImplemented, got %v", err)
	}

	if _, err := dev.Group(); err == nil {
		t.Error("empty group expected an error")
	}
	if _, err := dev.Group(PA0, NC); err == nil {
		t.Error("group with NC expected an error")
	}
}

func TestGroupConsolidated(t *testing.T) {
	dev, rec := getDev(t)
	gr, _ := dev.Group(PA4, PA5, PA6, PA7)
	_ = dev.WritePort(PortA, 0xab, 0xff)
	if err := gr.Out(0x0c, 0); err != nil {
		t.Fatal(err)
	}
	if s := dev.Shadow(PortA); s != 0xcb {
		t.Errorf("shadow=0x%02x, expected 0xcb", s)
	}
	diffOps(t, rec.Ops, []i2ctest.IO{
		write(GPIOA, 0xab),
		write(GPIOA, 0xcb),
	})
}

func TestGroupConsolidatedScrambled(t *testing.T) {
	dev, rec := getDev(t)
	// Pins need not be in bit order to share a port.
	gr, _ := dev.Group(PB7, PB0, PB3, PB1, PB2, PB6, PB4, PB5)
	if gr.Port() != PortB {
		t.Fatalf("Port()=%s, expected B", gr.Port())
	}
	_ = gr.Out(0x03, 0)
	_ = gr.Out(0x80, 0)
	diffOps(t, rec.Ops, []i2ctest.IO{
		write(GPIOB, 0x81),
		write(GPIOB, 0x20),
	})
	// mask limits the pins that are written.
	rec.Ops = nil
	_ = gr.Out(0xff, 0x01)
	diffOps(t, rec.Ops, []i2ctest.IO{write(GPIOB, 0xa0)})
}

func TestGroupSplit(t *testing.T) {
	dev, rec := getDev(t)
	gr, _ := dev.Group(PA0, PB1, PA2, PB3)
	if gr.Port() != PortNone {
		t.Fatalf("Port()=%s, expected none", gr.Port())
	}
	if err := gr.Out(0x05, 0); err != nil {
		t.Fatal(err)
	}
	// One transaction per pin, in group order.
	diffOps(t, rec.Ops, []i2ctest.IO{
		write(GPIOA, 0x01),
		write(GPIOB, 0x00),
		write(GPIOA, 0x05),
		write(GPIOB, 0x00),
	})
}

func TestGroupSplitErrors(t *testing.T) {
	bus := &failingBus{}
	dev, _ := New(bus, DefaultAddress)
	gr, _ := dev.Group(PA0, PB1, PA2, PB3)
	err := gr.Out(0x0f, 0)
	if !errors.Is(err, errBus) {
		t.Errorf("expected bus error, got %v", err)
	}
	if bus.n != 4 {
		t.Errorf("%d writes attempted, expected 4", bus.n)
	}
	if dev.Shadow(PortA) != 0x05 || dev.Shadow(PortB) != 0x0a {
		t.Error("shadow must hold the values written")
	}
}
