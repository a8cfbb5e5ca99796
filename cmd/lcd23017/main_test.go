// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/lcd23017/hd44780"
	"github.com/GermanBionicSystems/lcd23017/mcp23017"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

// transfer is a byte latched by the display on a falling edge of E.
type transfer struct {
	RS    bool
	Value byte
}

// instr is an instruction byte.
func instr(v byte) transfer {
	return transfer{Value: v}
}

func data(s string) []transfer {
	out := make([]transfer, len(s))
	for ix := range len(s) {
		out[ix] = transfer{RS: true, Value: s[ix]}
	}
	return out
}

// decode replays the recorded register writes against w and returns what
// the display latched from op index since onward. 4 bit transfers are
// merged into bytes.
func decode(t *testing.T, w hd44780.Wiring, ops []i2ctest.IO, since int) []transfer {
	t.Helper()
	var portA, portB byte
	level := func(p mcp23017.Pin) bool {
		reg, mask := mcp23017.Resolve(p)
		if reg == mcp23017.GPIOB {
			return portB&mask != 0
		}
		return portA&mask != 0
	}
	pins := w.Data[:]
	if w.FourBit {
		pins = w.Data[4:]
	}
	var nibbles []transfer
	prevE := false
	for ix, op := range ops {
		if len(op.W) != 2 {
			t.Fatalf("unexpected transaction %v", op)
		}
		switch op.W[0] {
		case mcp23017.GPIOA:
			portA = op.W[1]
		case mcp23017.GPIOB:
			portB = op.W[1]
		default:
			continue
		}
		e := level(w.E)
		if prevE && !e && ix >= since {
			var v byte
			for bit, p := range pins {
				if level(p) {
					v |= 1 << bit
				}
			}
			nibbles = append(nibbles, transfer{RS: level(w.RS), Value: v})
		}
		prevE = e
	}
	if !w.FourBit {
		return nibbles
	}
	if len(nibbles)%2 != 0 {
		t.Fatalf("odd number of nibbles: %v", nibbles)
	}
	var out []transfer
	for ix := 0; ix < len(nibbles); ix += 2 {
		out = append(out, transfer{RS: nibbles[ix].RS, Value: nibbles[ix].Value<<4 | nibbles[ix+1].Value})
	}
	return out
}

// setFlags overrides the command line flags for the duration of the test.
func setFlags(t *testing.T, four, attach bool, c, r int) {
	oldFour, oldAttach, oldCols, oldRows := *fourBit, *noBegin, *cols, *rows
	*fourBit, *noBegin, *cols, *rows = four, attach, c, r
	t.Cleanup(func() {
		*fourBit, *noBegin, *cols, *rows = oldFour, oldAttach, oldCols, oldRows
	})
}

func getLCD(t *testing.T) (*hd44780.HD44780, *i2ctest.Record) {
	t.Helper()
	bus := &i2ctest.Record{}
	lcd, err := open(bus, mcp23017.DefaultAddress, hd44780.WithSleep(func(time.Duration) {}))
	if err != nil {
		t.Fatal(err)
	}
	return lcd, bus
}

func TestWiring(t *testing.T) {
	for _, fourBit := range []bool{false, true} {
		w := wiring(fourBit)
		if err := w.Validate(); err != nil {
			t.Errorf("wiring(%t): %v", fourBit, err)
		}
		if w.FourBit != fourBit {
			t.Errorf("wiring(%t).FourBit = %t", fourBit, w.FourBit)
		}
	}
	w := wiring(true)
	if w.Data[4] != mcp23017.PB4 || w.Data[7] != mcp23017.PB7 {
		t.Errorf("4 bit data lines %s..%s, expected PB4..PB7", w.Data[4], w.Data[7])
	}
}

func TestParseAddress(t *testing.T) {
	if a, err := parseAddress(0x21); err != nil || a != 0x21 {
		t.Errorf("parseAddress(0x21) = 0x%x, %v", a, err)
	}
	if _, err := parseAddress(0x10020); err == nil {
		t.Error("parseAddress(0x10020) must fail instead of truncating to 0x20")
	}
}

func TestCmdText(t *testing.T) {
	for _, four := range []bool{false, true} {
		setFlags(t, four, false, 16, 2)
		lcd, bus := getLCD(t)
		mark := len(bus.Ops)
		if err := cmdText(lcd, `one\ntwo\nthree`); err != nil {
			t.Fatal(err)
		}
		var want []transfer
		want = append(want, instr(0x01), instr(0x80))
		want = append(want, data("one")...)
		want = append(want, instr(0xc0))
		want = append(want, data("two")...)
		if diff := cmp.Diff(decode(t, wiring(four), bus.Ops, mark), want); diff != "" {
			t.Errorf("4bit=%t difference (-got +want):\n%s", four, diff)
		}
	}
}

func TestCmdTextTruncate(t *testing.T) {
	setFlags(t, false, false, 8, 1)
	lcd, bus := getLCD(t)
	mark := len(bus.Ops)
	if err := cmdText(lcd, "a long line of text"); err != nil {
		t.Fatal(err)
	}
	want := append([]transfer{instr(0x01), instr(0x80)}, data("a long l")...)
	if diff := cmp.Diff(decode(t, wiring(false), bus.Ops, mark), want); diff != "" {
		t.Errorf("difference (-got +want):\n%s", diff)
	}
}

func TestCmdGlyph(t *testing.T) {
	setFlags(t, false, false, 16, 2)
	lcd, bus := getLCD(t)
	for _, args := range [][]string{
		{"0"},
		{"8", "0", "0", "0", "0", "0", "0", "0", "0"},
		{"0", "0", "0", "0", "0", "0", "0", "0", "zz"},
		{"0", "0", "0", "0", "0", "0", "0", "0", "100"},
	} {
		if err := cmdGlyph(lcd, args); err == nil {
			t.Errorf("cmdGlyph(%q) succeeded", args)
		}
	}
	mark := len(bus.Ops)
	args := []string{"3", "0x00", "0a", "1f", "1f", "0e", "04", "00", "00"}
	if err := cmdGlyph(lcd, args); err != nil {
		t.Fatal(err)
	}
	want := []transfer{instr(0x40 | 3<<3)}
	for _, b := range []byte{0x00, 0x0a, 0x1f, 0x1f, 0x0e, 0x04, 0x00, 0x00} {
		want = append(want, transfer{RS: true, Value: b})
	}
	want = append(want, instr(0x02), transfer{RS: true, Value: 3})
	if diff := cmp.Diff(decode(t, wiring(false), bus.Ops, mark), want); diff != "" {
		t.Errorf("difference (-got +want):\n%s", diff)
	}
}

func TestRun(t *testing.T) {
	setFlags(t, false, false, 16, 2)
	// The default wiring has the backlight on PA1.
	backlight := func(bus *i2ctest.Record) bool {
		for ix := len(bus.Ops) - 1; ix >= 0; ix-- {
			if w := bus.Ops[ix].W; w[0] == mcp23017.GPIOA {
				return w[1]&0x02 != 0
			}
		}
		t.Fatal("port A never written")
		return false
	}

	lcd, bus := getLCD(t)
	mark := len(bus.Ops)
	if err := run(lcd, "clear", nil); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(decode(t, wiring(false), bus.Ops, mark), []transfer{instr(0x01)}); diff != "" {
		t.Errorf("clear difference (-got +want):\n%s", diff)
	}

	if err := run(lcd, "backlight", []string{"off"}); err != nil {
		t.Fatal(err)
	}
	if backlight(bus) {
		t.Error("backlight off left PA1 high")
	}
	if err := run(lcd, "backlight", []string{"on"}); err != nil {
		t.Fatal(err)
	}
	if !backlight(bus) {
		t.Error("backlight on left PA1 low")
	}

	mark = len(bus.Ops)
	for _, tc := range []struct {
		cmd  string
		args []string
		msg  string
	}{
		{"backlight", nil, "usage"},
		{"backlight", []string{"dim"}, "not on or off"},
		{"glyph", []string{"1"}, "usage"},
		{"scroll", nil, "unknown command"},
	} {
		err := run(lcd, tc.cmd, tc.args)
		if err == nil || !strings.Contains(err.Error(), tc.msg) {
			t.Errorf("run(%q, %q) = %v, expected an error containing %q", tc.cmd, tc.args, err, tc.msg)
		}
	}
	if len(bus.Ops) != mark {
		t.Errorf("rejected commands wrote %d transactions", len(bus.Ops)-mark)
	}
}

// With -nobegin the display is attached to without the power-on sequence,
// and commands still work.
func TestNoBegin(t *testing.T) {
	setFlags(t, false, true, 16, 2)
	lcd, bus := getLCD(t)
	want := []i2ctest.IO{{Addr: mcp23017.DefaultAddress, W: []byte{mcp23017.GPIOA, 0x02}}}
	if diff := cmp.Diff(bus.Ops, want); diff != "" {
		t.Errorf("attach difference (-got +want):\n%s", diff)
	}
	for _, c := range []struct {
		cmd  string
		args []string
	}{
		{"text", []string{"hi"}},
		{"clear", nil},
		{"backlight", []string{"off"}},
		{"glyph", []string{"0", "1", "2", "3", "4", "5", "6", "7", "8"}},
	} {
		if err := run(lcd, c.cmd, c.args); err != nil {
			t.Errorf("run(%q) = %v", c.cmd, err)
		}
	}

	setFlags(t, false, true, 16, 2)
	lcd, bus = getLCD(t)
	mark := len(bus.Ops)
	if err := run(lcd, "text", []string{"hi"}); err != nil {
		t.Fatal(err)
	}
	want2 := append([]transfer{instr(0x01), instr(0x80)}, data("hi")...)
	if diff := cmp.Diff(decode(t, wiring(false), bus.Ops, mark), want2); diff != "" {
		t.Errorf("text difference (-got +want):\n%s", diff)
	}
}
