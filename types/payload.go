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

// Payload is the closed set of message bodies. Each variant declares which
// topics may carry it.
type Payload interface {
	accepts(t Topic) bool
}

// ACStateChange carries a power source transition.
type ACStateChange struct {
	Old ACState
	New ACState
}

func (ACStateChange) accepts(t Topic) bool {
	return t == TopicACState || t == TopicReqACState
}

// InhibitChange carries an inhibition transition. Force on a request
// clears every outstanding inhibition at once.
type InhibitChange struct {
	Old   bool
	New   bool
	Force bool
}

func (InhibitChange) accepts(t Topic) bool {
	return t == TopicInhibited || t == TopicReqInhibit
}

// SuspendChange carries a suspended-state transition.
type SuspendChange struct {
	Old   bool
	New   bool
	Force bool
}

func (SuspendChange) accepts(t Topic) bool {
	return t == TopicSuspended || t == TopicReqSuspend
}

// DisplayChange carries a display power transition.
type DisplayChange struct {
	Old DisplayState
	New DisplayState
}

func (DisplayChange) accepts(t Topic) bool {
	return t == TopicDisplayState || t == TopicReqDisplay
}

// TimeoutChange asks to change an idle timeout, in seconds. State selects
// which power source the value is for; ACStateUnknown means the current one.
// A value <= 0 disables the feature for that state.
type TimeoutChange struct {
	State ACState
	New   int
}

func (TimeoutChange) accepts(t Topic) bool {
	return t == TopicReqDimmerTimeout || t == TopicReqDpmsTimeout || t == TopicReqKbdTimeout
}

// BacklightChange carries a backlight level in [0, 1].
type BacklightChange struct {
	Old    float64
	New    float64
	Smooth bool
}

func (BacklightChange) accepts(t Topic) bool {
	return t == TopicKbdPct || t == TopicReqKbdBacklight
}

// SimulateActivity asks idle clients to behave as if the user was active.
type SimulateActivity struct{}

func (SimulateActivity) accepts(t Topic) bool {
	return t == TopicReqSimulate
}
