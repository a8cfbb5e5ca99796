// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mcp23017 drives the output side of the Microchip MCP23017 16-bit
// I²C GPIO expander.
//
// The driver never reads the device. The last value written to each of the
// two output ports is kept in a shadow byte, and every pin or port write is a
// read-modify-write on that shadow followed by a single two byte register
// write ([register, value]).
//
// Pins are addressed as Port/Bit pairs. The zero Pin, NC, means "not wired"
// and writes to it are silently dropped. Pins can be combined into a Group;
// when every pin of a Group sits on the same port, Group.Out updates all of
// them with one register write, otherwise it falls back to one write per pin.
//
// # Datasheet
//
// https://ww1.microchip.com/downloads/en/DeviceDoc/20001952C.pdf
package mcp23017
