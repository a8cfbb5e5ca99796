// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// lcd23017 writes to an HD44780 character display attached to an MCP23017
// I²C expander.
//
// Usage:
//
//	lcd23017 [options] <command> [arguments]
//
// Commands:
//
//	text <message>             Clear the display and write message; \n starts a new row
//	clear                      Clear the display
//	backlight <on|off>         Switch the backlight
//	glyph <slot> <8 hex bytes> Store a custom character and show it
//	demo                       Cycle through the display features
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/GermanBionicSystems/lcd23017/hd44780"
	"github.com/GermanBionicSystems/lcd23017/mcp23017"
	"github.com/golang/glog"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var (
	busName = flag.String("bus", "", "I²C bus to use")
	addr    = flag.Uint("addr", uint(mcp23017.DefaultAddress), "MCP23017 address")
	hz      physic.Frequency
	cols    = flag.Int("cols", 16, "display columns")
	rows    = flag.Int("rows", 2, "display rows")
	fourBit = flag.Bool("4bit", false, "4 bit wiring: D4-D7 on PB4-PB7")
	noBegin = flag.Bool("nobegin", false, "attach to an already initialized display, skip the power-on initialization")
)

func init() {
	flag.Var(&hz, "hz", "I²C bus speed (e.g. 400kHz)")
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command> [arguments]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  text <message>             Clear the display and write message")
		fmt.Fprintln(os.Stderr, "  clear                      Clear the display")
		fmt.Fprintln(os.Stderr, "  backlight <on|off>         Switch the backlight")
		fmt.Fprintln(os.Stderr, "  glyph <slot> <8 hex bytes> Store a custom character and show it")
		fmt.Fprintln(os.Stderr, "  demo                       Cycle through the display features")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}
	flag.Parse()
	defer glog.Flush()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	if err := mainImpl(flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "lcd23017: %v\n", err)
		glog.Flush()
		os.Exit(1)
	}
}

func mainImpl(cmd string, args []string) error {
	address, err := parseAddress(*addr)
	if err != nil {
		return err
	}
	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(*busName)
	if err != nil {
		return err
	}
	defer bus.Close()
	if hz != 0 {
		if err := bus.SetSpeed(hz); err != nil {
			return err
		}
	}

	lcd, err := open(bus, address)
	if err != nil {
		return err
	}
	return run(lcd, cmd, args)
}

// parseAddress checks that v fits an I²C address. The range of the
// expander itself is checked by mcp23017.New.
func parseAddress(v uint) (uint16, error) {
	if v > 0xffff {
		return 0, fmt.Errorf("address 0x%x out of range", v)
	}
	return uint16(v), nil
}

// open returns the display, initialized with Begin or, with -nobegin,
// attached to as it is.
func open(bus i2c.Bus, address uint16, opts ...hd44780.Option) (*hd44780.HD44780, error) {
	w := wiring(*fourBit)
	lcd, err := hd44780.NewMCP23017(bus, address, &w, opts...)
	if err != nil {
		return nil, err
	}
	if *noBegin {
		err = lcd.Attach(*cols, *rows, hd44780.Dots5x8)
	} else {
		err = lcd.Begin(*cols, *rows, hd44780.Dots5x8)
	}
	// Bus errors are reported but not fatal; the display may still be
	// usable.
	if err != nil {
		glog.Errorf("init: %v", err)
	}
	return lcd, nil
}

func run(lcd *hd44780.HD44780, cmd string, args []string) error {
	switch cmd {
	case "text":
		return cmdText(lcd, strings.Join(args, " "))
	case "clear":
		return lcd.Clear()
	case "backlight":
		if len(args) != 1 {
			return fmt.Errorf("usage: backlight <on|off>")
		}
		switch args[0] {
		case "on":
			return lcd.Backlight(0xff)
		case "off":
			return lcd.Backlight(0)
		}
		return fmt.Errorf("backlight: %q is not on or off", args[0])
	case "glyph":
		return cmdGlyph(lcd, args)
	case "demo":
		return cmdDemo(lcd)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// wiring returns the default wiring, optionally reduced to 4 data lines on
// PB4-PB7.
func wiring(fourBit bool) hd44780.Wiring {
	w := hd44780.DefaultWiring()
	if fourBit {
		w.FourBit = true
		for ix := range 4 {
			w.Data[ix] = mcp23017.NC
		}
	}
	return w
}

func cmdText(lcd *hd44780.HD44780, text string) error {
	if err := lcd.Clear(); err != nil {
		return err
	}
	text = strings.ReplaceAll(text, `\n`, "\n")
	for row, line := range strings.Split(text, "\n") {
		if row >= lcd.Rows() {
			break
		}
		if err := lcd.SetCursor(0, row); err != nil {
			return err
		}
		if len(line) > lcd.Cols() {
			line = line[:lcd.Cols()]
		}
		if _, err := lcd.WriteString(line); err != nil {
			return err
		}
	}
	return nil
}

func cmdGlyph(lcd *hd44780.HD44780, args []string) error {
	if len(args) != 9 {
		return fmt.Errorf("usage: glyph <slot> <8 hex bytes>")
	}
	slot, err := strconv.ParseUint(args[0], 10, 3)
	if err != nil {
		return fmt.Errorf("glyph: slot must be 0-7: %w", err)
	}
	var glyph [8]byte
	for ix, s := range args[1:] {
		v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 8)
		if err != nil {
			return fmt.Errorf("glyph: row %d: %w", ix, err)
		}
		glyph[ix] = byte(v)
	}
	if err := lcd.CreateChar(byte(slot), glyph); err != nil {
		return err
	}
	if err := lcd.Home(); err != nil {
		return err
	}
	_, err = lcd.WriteChar(byte(slot))
	return err
}

func cmdDemo(lcd *hd44780.HD44780) error {
	pause := func() { time.Sleep(time.Second) }
	steps := []struct {
		name string
		f    func() error
	}{
		{"text", func() error { return cmdText(lcd, "lcd23017\\nMCP23017+HD44780") }},
		{"cursor", func() error { return lcd.Cursor(display.CursorUnderline) }},
		{"blink", func() error { return lcd.Blink(true) }},
		{"cursor off", func() error { return lcd.Cursor(display.CursorOff) }},
		{"scroll left", lcd.ScrollLeft},
		{"scroll right", lcd.ScrollRight},
		{"display off", func() error { return lcd.Display(false) }},
		{"display on", func() error { return lcd.Display(true) }},
		{"backlight off", func() error { return lcd.Backlight(0) }},
		{"backlight on", func() error { return lcd.Backlight(0xff) }},
		{"right to left", func() error {
			if err := lcd.Clear(); err != nil {
				return err
			}
			if err := lcd.SetCursor(lcd.Cols()-1, 0); err != nil {
				return err
			}
			if err := lcd.RightToLeft(); err != nil {
				return err
			}
			_, err := lcd.WriteString("olleh")
			return err
		}},
		{"left to right", lcd.LeftToRight},
		{"autoscroll", func() error {
			if err := lcd.SetCursor(lcd.Cols(), 1); err != nil {
				return err
			}
			if err := lcd.AutoScroll(true); err != nil {
				return err
			}
			for c := byte('0'); c <= '9'; c++ {
				if _, err := lcd.WriteChar(c); err != nil {
					return err
				}
				time.Sleep(200 * time.Millisecond)
			}
			return lcd.AutoScroll(false)
		}},
	}
	for _, s := range steps {
		glog.V(1).Infof("demo: %s", s.name)
		if err := s.f(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		pause()
	}
	return lcd.Halt()
}
