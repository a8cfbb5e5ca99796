// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcd23017 is a container for the HD44780 character display driver
// and the MCP23017 I²C expander it is attached through.
//
// See package hd44780 for the display and package mcp23017 for the
// expander. cmd/lcd23017 is a command line tool driving both.
package lcd23017
