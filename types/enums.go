// Copyright (C) 2025 Mono Technologies Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

package types

import (
	"fmt"
	"strings"
)

// ACState is the power source of the machine.
type ACState int

const (
	// ACStateUnknown is the initial state before the first power report.
	// In timeout requests it selects the current power source.
	ACStateUnknown ACState = iota - 1
	ACStateOnAC
	ACStateOnBattery
)

func (s ACState) String() string {
	switch s {
	case ACStateOnAC:
		return "ac"
	case ACStateOnBattery:
		return "battery"
	case ACStateUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("ACState(%d)", int(s))
	}
}

// Valid reports whether s is a concrete power source.
func (s ACState) Valid() bool {
	return s == ACStateOnAC || s == ACStateOnBattery
}

// ParseACState accepts "ac"/"on_ac" and "battery"/"on_battery". An empty
// string or "current" yields ACStateUnknown.
func ParseACState(s string) (ACState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ac", "on_ac":
		return ACStateOnAC, nil
	case "battery", "bat", "on_battery":
		return ACStateOnBattery, nil
	case "", "current":
		return ACStateUnknown, nil
	}
	return ACStateUnknown, fmt.Errorf("invalid ac state %q (expected ac or battery)", s)
}

// DisplayState is the power state of the display.
type DisplayState int

const (
	DisplayOn DisplayState = iota
	DisplayDimmed
	DisplayOff
)

func (s DisplayState) String() string {
	switch s {
	case DisplayOn:
		return "on"
	case DisplayDimmed:
		return "dimmed"
	case DisplayOff:
		return "off"
	default:
		return fmt.Sprintf("DisplayState(%d)", int(s))
	}
}

// Valid reports whether s is a known display state.
func (s DisplayState) Valid() bool {
	return s >= DisplayOn && s <= DisplayOff
}

// ParseDisplayState parses "on", "dim"/"dimmed" and "off".
func ParseDisplayState(s string) (DisplayState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on":
		return DisplayOn, nil
	case "dim", "dimmed":
		return DisplayDimmed, nil
	case "off":
		return DisplayOff, nil
	}
	return DisplayOn, fmt.Errorf("invalid display state %q (expected on, dim or off)", s)
}
