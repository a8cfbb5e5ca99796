// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls the Hitachi LCD display chipset HD-44780
//
// The display is driven through discrete GPIO lines: a gpio.Group for the 4
// or 8 data lines, and single pins for register select, read/write, enable
// and the backlight. NewMCP23017 wires all of them to an MCP23017 I²C
// expander with an arbitrary pin assignment.
//
// Every call is a synchronous sequence of writes. There is no busy flag
// polling (R/W is held low) so the driver waits the datasheet's worst case
// execution times instead.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780

import (
	"errors"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/lcd23017/mcp23017"
	"github.com/golang/glog"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

type writeMode bool

type ifMode byte

// DotSize selects the character font. 5x10 is only honoured on single line
// displays.
type DotSize byte

const (
	modeCommand writeMode = false
	modeData    writeMode = true

	mode4Bit ifMode = 0x04
	mode8Bit ifMode = 0x08

	Dots5x8  DotSize = 0x00
	Dots5x10 DotSize = 0x04

	packageName = "hd44780"
)

// Commands
const (
	lcdClearDisplay   byte = 0x01
	lcdReturnHome     byte = 0x02
	lcdEntryModeSet   byte = 0x04
	lcdDisplayControl byte = 0x08
	lcdCursorShift    byte = 0x10
	lcdFunctionSet    byte = 0x20
	lcdSetCGRAMAddr   byte = 0x40
	lcdSetDDRAMAddr   byte = 0x80
)

// Flags
const (
	// entry mode
	lcdEntryLeft           byte = 0x02
	lcdEntryShiftIncrement byte = 0x01

	// display on/off control
	lcdDisplayOn byte = 0x04
	lcdCursorOn  byte = 0x02
	lcdBlinkOn   byte = 0x01

	// display/cursor shift
	lcdDisplayMove byte = 0x08
	lcdCursorMove  byte = 0x00
	lcdMoveRight   byte = 0x04
	lcdMoveLeft    byte = 0x00

	// function set
	lcd8BitMode byte = 0x10
	lcd4BitMode byte = 0x00
	lcd2Line    byte = 0x08
)

const (
	delayPowerOn   = 50 * time.Millisecond
	delayInit      = 4500 * time.Microsecond
	delayInitShort = 150 * time.Microsecond
	delayPulse     = 1 * time.Microsecond
	delaySettle    = 100 * time.Microsecond
	delayHome      = 2000 * time.Microsecond

	maxRows = 4
)

var (
	// ErrNotStarted is returned by display operations issued before Begin.
	ErrNotStarted = errors.New(packageName + ": Begin() has not been called")

	ErrNotImplemented = fmt.Errorf("%s: %w", packageName, display.ErrNotImplemented)
)

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotStarted) || errors.Is(err, ErrNotImplemented) {
		return err
	}
	return fmt.Errorf("%s: %w", packageName, err)
}

// ByteSink accepts one character code at a time and reports how many bytes
// it took. Text output is composed on top of it.
type ByteSink interface {
	WriteChar(b byte) (int, error)
}

// Option changes the defaults of a new HD44780.
type Option func(*HD44780)

// WithSleep replaces time.Sleep for the protocol delays.
func WithSleep(sleep func(time.Duration)) Option {
	return func(lcd *HD44780) {
		lcd.sleep = sleep
	}
}

// HD44780 is an implementation that supports writing to LCD displays using a
// gpio.Group for the data pins, and discrete pins for the register select,
// read/write, enable, and backlight pins.
//
// Implements periph.io/conn/x/display/TextDisplay and display.DisplayBacklight
type HD44780 struct {
	dataPins     gpio.Group
	rsPin        gpio.PinOut
	rwPin        gpio.PinOut
	enablePin    gpio.PinOut
	backlightPin display.DisplayBacklight
	mode         ifMode
	sleep        func(time.Duration)

	// Set when the display sits behind an MCP23017.
	expander *mcp23017.Dev

	started    bool
	function   byte
	control    byte
	entry      byte
	rows       int
	cols       int
	rowOffsets [maxRows]byte
}

// NewHD44780 takes a GPIO group for the data lines and gpio.PinOut for
// register select, read/write and enable. rw and backlight may be nil when
// the line isn't wired; R/W must then be tied low on the display.
//
// The pins of the data group are D0-D7 in order for 8 bit mode or D4-D7 for
// 4 bit mode. If dataPinGroup is 8 or more pins, then it's assumed the
// display is connected using all 8 pins.
//
// No output is produced until Begin is called.
func NewHD44780(
	dataPinGroup gpio.Group,
	rs, rw, enable gpio.PinOut,
	backlight display.DisplayBacklight,
	opts ...Option) (*HD44780, error) {

	if dataPinGroup == nil || rs == nil || enable == nil {
		return nil, errors.New(packageName + ": data group, rs and enable pins are required")
	}
	mode := mode4Bit
	n := len(dataPinGroup.Pins())
	if n >= 8 {
		mode = mode8Bit
	} else if n < 4 {
		return nil, fmt.Errorf("%s: need at least 4 data pins, got %d", packageName, n)
	}

	lcd := &HD44780{
		dataPins:     dataPinGroup,
		rsPin:        rs,
		rwPin:        rw,
		enablePin:    enable,
		backlightPin: backlight,
		mode:         mode,
		sleep:        time.Sleep,
	}
	for _, opt := range opts {
		opt(lcd)
	}
	return lcd, nil
}

// Begin runs the power-on initialization for a display of cols x rows
// characters. It can be called again to re-initialize the display.
//
// Begin resets the expander (if any), waits for the supply to settle, forces
// the controller into the configured interface width and leaves the display
// on, cleared, with the backlight on and left to right text entry.
func (lcd *HD44780) Begin(cols, rows int, dots DotSize) error {
	lcd.configure(cols, rows, dots)

	var errs []error
	if lcd.expander != nil {
		errs = append(errs, lcd.expander.Reset())
	}
	// At least 40ms after Vcc rises above 2.7V.
	lcd.sleep(delayPowerOn)

	errs = append(errs,
		lcd.rsPin.Out(gpio.Level(modeCommand)),
		lcd.enablePin.Out(gpio.Low),
		lcd.writeRW())

	glog.V(1).Infof("%s: initializing display in %d-bit mode, %dx%d", packageName, lcd.mode, cols, rows)
	if lcd.mode == mode4Bit {
		// Figure 24: the controller may be in either mode. Three 8 bit
		// function sets are seen as such whatever the current mode, then
		// switch to 4 bits.
		errs = append(errs, lcd.write4Bits(0x03))
		lcd.sleep(delayInit)
		errs = append(errs, lcd.write4Bits(0x03))
		lcd.sleep(delayInit)
		errs = append(errs, lcd.write4Bits(0x03))
		lcd.sleep(delayInitShort)
		errs = append(errs, lcd.write4Bits(0x02))
	} else {
		// Figure 23
		errs = append(errs, lcd.command(lcdFunctionSet|lcd.function))
		lcd.sleep(delayInit)
		errs = append(errs, lcd.command(lcdFunctionSet|lcd.function))
		lcd.sleep(delayInitShort)
		errs = append(errs, lcd.command(lcdFunctionSet|lcd.function))
	}

	// Number of lines and font.
	errs = append(errs, lcd.command(lcdFunctionSet|lcd.function))

	lcd.control = lcdDisplayOn
	errs = append(errs, lcd.command(lcdDisplayControl|lcd.control))
	if lcd.backlightPin != nil {
		errs = append(errs, lcd.backlightPin.Backlight(display.Intensity(0xff)))
	}
	errs = append(errs, lcd.clear())

	lcd.entry = lcdEntryLeft
	errs = append(errs, lcd.command(lcdEntryModeSet|lcd.entry))

	lcd.started = true
	return wrap(errors.Join(errs...))
}

// Attach takes over a display that a previous Begin already initialized,
// for example from an earlier run of the program. No handshake is sent and
// the expander isn't reset.
//
// The state is assumed to be what Begin leaves: display on, cursor off,
// left to right entry. The backlight is switched on so that later writes to
// its port keep it that way.
func (lcd *HD44780) Attach(cols, rows int, dots DotSize) error {
	lcd.configure(cols, rows, dots)
	lcd.control = lcdDisplayOn
	lcd.entry = lcdEntryLeft
	lcd.started = true
	if lcd.backlightPin == nil {
		return nil
	}
	return wrap(lcd.backlightPin.Backlight(display.Intensity(0xff)))
}

// SetRowOffsets sets the DDRAM address of the first character of each row.
// Begin sets the standard offsets {0x00, 0x40, cols, 0x40+cols}; displays
// with a different memory layout can override them afterwards.
func (lcd *HD44780) SetRowOffsets(row0, row1, row2, row3 byte) {
	lcd.rowOffsets = [maxRows]byte{row0, row1, row2, row3}
}

// Clears the screen and moves the cursor to the first position.
func (lcd *HD44780) Clear() error {
	if !lcd.started {
		return ErrNotStarted
	}
	return wrap(lcd.clear())
}

// Move the cursor home (MinRow(),MinCol())
func (lcd *HD44780) Home() error {
	if !lcd.started {
		return ErrNotStarted
	}
	err := lcd.command(lcdReturnHome)
	lcd.sleep(delayHome)
	return wrap(err)
}

// SetCursor moves the cursor to the 0-based col and row. A row past the
// last one of the display is clamped to the last row.
func (lcd *HD44780) SetCursor(col, row int) error {
	if !lcd.started {
		return ErrNotStarted
	}
	return wrap(lcd.setCursor(col, row))
}

// Turn the display on / off
func (lcd *HD44780) Display(on bool) error {
	return lcd.setControl(lcdDisplayOn, on)
}

// ShowCursor turns the underline cursor on or off.
func (lcd *HD44780) ShowCursor(on bool) error {
	return lcd.setControl(lcdCursorOn, on)
}

// Blink turns the blinking block cursor on or off.
func (lcd *HD44780) Blink(on bool) error {
	return lcd.setControl(lcdBlinkOn, on)
}

// ScrollLeft shifts the whole display one position left without changing
// its contents.
func (lcd *HD44780) ScrollLeft() error {
	return lcd.checkedCommand(lcdCursorShift | lcdDisplayMove | lcdMoveLeft)
}

// ScrollRight shifts the whole display one position right.
func (lcd *HD44780) ScrollRight() error {
	return lcd.checkedCommand(lcdCursorShift | lcdDisplayMove | lcdMoveRight)
}

// LeftToRight makes text flow left to right from the cursor.
func (lcd *HD44780) LeftToRight() error {
	return lcd.setEntry(lcdEntryLeft, true)
}

// RightToLeft makes text flow right to left from the cursor.
func (lcd *HD44780) RightToLeft() error {
	return lcd.setEntry(lcdEntryLeft, false)
}

// AutoScroll shifts the display on each character written, which right
// justifies text at the cursor when enabled.
func (lcd *HD44780) AutoScroll(enabled bool) error {
	return lcd.setEntry(lcdEntryShiftIncrement, enabled)
}

// Turn the display's backlight on or off. Without a backlight pin this does
// nothing.
func (lcd *HD44780) Backlight(intensity display.Intensity) error {
	if !lcd.started {
		return ErrNotStarted
	}
	if lcd.backlightPin == nil {
		return nil
	}
	return wrap(lcd.backlightPin.Backlight(intensity))
}

// CreateChar stores a 5x8 glyph in one of the 8 CGRAM slots. Only the low 3
// bits of slot are used. The glyph is shown by writing the slot number as a
// character.
//
// The cursor position is lost; call SetCursor or Home afterwards.
func (lcd *HD44780) CreateChar(slot byte, glyph [8]byte) error {
	if !lcd.started {
		return ErrNotStarted
	}
	slot &= 0x07
	errs := []error{lcd.command(lcdSetCGRAMAddr | slot<<3)}
	for _, row := range glyph {
		errs = append(errs, lcd.send(row, modeData))
	}
	return wrap(errors.Join(errs...))
}

// Command sends a raw instruction byte.
func (lcd *HD44780) Command(b byte) error {
	return lcd.checkedCommand(b)
}

// WriteChar writes one character code at the cursor. It always reports one
// byte accepted; a bus failure is returned as the error.
func (lcd *HD44780) WriteChar(b byte) (int, error) {
	if !lcd.started {
		return 0, ErrNotStarted
	}
	return 1, wrap(lcd.send(b, modeData))
}

// Write a set of bytes to the display.
func (lcd *HD44780) Write(p []byte) (n int, err error) {
	if !lcd.started {
		return 0, ErrNotStarted
	}
	return writeAll(lcd, p)
}

// Write a string output to the display.
func (lcd *HD44780) WriteString(text string) (int, error) {
	return lcd.Write([]byte(text))
}

// writeAll feeds p to sink one byte at a time. Every byte is offered even if
// an earlier one failed.
func writeAll(sink ByteSink, p []byte) (n int, err error) {
	var errs []error
	for _, b := range p {
		c, e := sink.WriteChar(b)
		n += c
		errs = append(errs, e)
	}
	return n, errors.Join(errs...)
}

// Set the cursor mode. You can pass multiple arguments.
// Cursor(CursorOff, CursorUnderline)
func (lcd *HD44780) Cursor(modes ...display.CursorMode) error {
	if !lcd.started {
		return ErrNotStarted
	}
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			lcd.control &^= lcdCursorOn | lcdBlinkOn
		case display.CursorUnderline:
			lcd.control |= lcdCursorOn
		case display.CursorBlink, display.CursorBlock:
			lcd.control |= lcdBlinkOn
		default:
			return fmt.Errorf("%s: unexpected cursor: %d", packageName, mode)
		}
	}
	return wrap(lcd.command(lcdDisplayControl | lcd.control))
}

// Move the cursor forward or backward.
func (lcd *HD44780) Move(dir display.CursorDirection) error {
	switch dir {
	case display.Backward:
		return lcd.checkedCommand(lcdCursorShift | lcdCursorMove | lcdMoveLeft)
	case display.Forward:
		return lcd.checkedCommand(lcdCursorShift | lcdCursorMove | lcdMoveRight)
	default:
		return ErrNotImplemented
	}
}

// Move the cursor to arbitrary position. row and col are 1 based, see
// MinRow() and MinCol().
func (lcd *HD44780) MoveTo(row, col int) error {
	if !lcd.started {
		return ErrNotStarted
	}
	if row < lcd.MinRow() || row > lcd.rows || row > maxRows || col < lcd.MinCol() || col > lcd.cols {
		return fmt.Errorf("%s: MoveTo(%d,%d) value out of range", packageName, row, col)
	}
	return wrap(lcd.setCursor(col-1, row-1))
}

// Return the number of columns the display supports
func (lcd *HD44780) Cols() int {
	return lcd.cols
}

// Return the number of rows the display supports.
func (lcd *HD44780) Rows() int {
	return lcd.rows
}

// Return the min column position.
func (lcd *HD44780) MinCol() int {
	return 1
}

// Return the min row position.
func (lcd *HD44780) MinRow() int {
	return 1
}

// Return info about the display.
func (lcd *HD44780) String() string {
	return fmt.Sprintf("HD44780::%s - Rows: %d, Cols: %d", lcd.dataPins.String(), lcd.rows, lcd.cols)
}

// Halt clears the display, turns the backlight off, and turns the display off.
func (lcd *HD44780) Halt() error {
	if !lcd.started {
		return nil
	}
	return errors.Join(lcd.Clear(), lcd.Backlight(0), lcd.Display(false), lcd.dataPins.Halt())
}

// configure sets the geometry and the function set flags.
func (lcd *HD44780) configure(cols, rows int, dots DotSize) {
	if rows < 1 {
		rows = 1
	}
	lcd.rows = rows
	lcd.cols = cols
	lcd.function = lcd4BitMode
	if lcd.mode == mode8Bit {
		lcd.function = lcd8BitMode
	}
	if rows > 1 {
		lcd.function |= lcd2Line
	}
	lcd.SetRowOffsets(0x00, 0x40, byte(cols), byte(0x40+cols))
	// Some single line displays can use a 10 pixel high font.
	if dots != Dots5x8 && rows == 1 {
		lcd.function |= byte(Dots5x10)
	}
}

func (lcd *HD44780) clear() error {
	err := lcd.command(lcdClearDisplay)
	lcd.sleep(delayHome)
	return err
}

func (lcd *HD44780) setCursor(col, row int) error {
	if row >= maxRows {
		row = maxRows - 1
	}
	if row >= lcd.rows {
		row = lcd.rows - 1
	}
	if row < 0 {
		row = 0
	}
	if col < 0 {
		col = 0
	}
	return lcd.command(lcdSetDDRAMAddr | (byte(col) + lcd.rowOffsets[row]))
}

func (lcd *HD44780) setControl(flag byte, on bool) error {
	if !lcd.started {
		return ErrNotStarted
	}
	if on {
		lcd.control |= flag
	} else {
		lcd.control &^= flag
	}
	return wrap(lcd.command(lcdDisplayControl | lcd.control))
}

func (lcd *HD44780) setEntry(flag byte, on bool) error {
	if !lcd.started {
		return ErrNotStarted
	}
	if on {
		lcd.entry |= flag
	} else {
		lcd.entry &^= flag
	}
	return wrap(lcd.command(lcdEntryModeSet | lcd.entry))
}

func (lcd *HD44780) checkedCommand(b byte) error {
	if !lcd.started {
		return ErrNotStarted
	}
	return wrap(lcd.command(b))
}

func (lcd *HD44780) command(b byte) error {
	return lcd.send(b, modeCommand)
}

// send writes a command or a character, with RS selecting which.
func (lcd *HD44780) send(value byte, mode writeMode) error {
	errs := []error{
		lcd.rsPin.Out(gpio.Level(mode)),
		lcd.writeRW(),
	}
	if lcd.mode == mode8Bit {
		errs = append(errs, lcd.write8Bits(value))
	} else {
		// The controller reads D4-D7 only; high nibble first.
		errs = append(errs, lcd.write4Bits(value>>4), lcd.write4Bits(value&0x0f))
	}
	return errors.Join(errs...)
}

// writeRW holds R/W low. Reading from the display isn't supported.
func (lcd *HD44780) writeRW() error {
	if lcd.rwPin == nil {
		return nil
	}
	return lcd.rwPin.Out(gpio.Low)
}

func (lcd *HD44780) write4Bits(value byte) error {
	return lcd.writeBits(gpio.GPIOValue(value), 0x0f)
}

func (lcd *HD44780) write8Bits(value byte) error {
	return lcd.writeBits(gpio.GPIOValue(value), 0xff)
}

func (lcd *HD44780) writeBits(value, mask gpio.GPIOValue) error {
	return errors.Join(lcd.dataPins.Out(value, mask), lcd.pulseEnable())
}

// pulseEnable latches the data lines on the falling edge of E. The high
// time must be over 450ns and commands need over 37us to execute.
func (lcd *HD44780) pulseEnable() error {
	e1 := lcd.enablePin.Out(gpio.Low)
	lcd.sleep(delayPulse)
	e2 := lcd.enablePin.Out(gpio.High)
	lcd.sleep(delayPulse)
	e3 := lcd.enablePin.Out(gpio.Low)
	lcd.sleep(delaySettle)
	return errors.Join(e1, e2, e3)
}

var _ display.TextDisplay = &HD44780{}
var _ display.DisplayBacklight = &HD44780{}
var _ conn.Resource = &HD44780{}
var _ ByteSink = &HD44780{}
