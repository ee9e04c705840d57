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

// State is the live status shared by all modules. Each field has exactly
// one writer; everyone else only reads it, always from the dispatch loop.
type State struct {
	ACState   ACState      `json:"ac_state"`  // upower
	Inhibited bool         `json:"inhibited"` // inhibit
	Suspended bool         `json:"suspended"` // suspend
	Display   DisplayState `json:"display"`   // display
	KbdPct    float64      `json:"kbd_pct"`   // keyboard
}

// NewState returns the state before any module has reported.
func NewState() *State {
	return &State{ACState: ACStateUnknown}
}

// Snapshot returns a copy safe to hand to other goroutines.
func (s *State) Snapshot() State {
	return *s
}
