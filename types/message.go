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
	"errors"
	"fmt"
)

// ErrPayloadMismatch is returned when a payload variant does not belong to
// the topic it is published on.
var ErrPayloadMismatch = errors.New("payload does not match topic")

// Message is a topic plus its payload. Messages are built through the typed
// constructors below or NewMessage, so topic and payload always agree.
type Message struct {
	topic   Topic
	payload Payload
}

// NewMessage builds a message after checking the topic is known and the
// payload variant belongs to it.
func NewMessage(topic Topic, payload Payload) (*Message, error) {
	if !topic.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	if payload == nil || !payload.accepts(topic) {
		return nil, fmt.Errorf("%w: %T on %s", ErrPayloadMismatch, payload, topic)
	}
	return &Message{topic: topic, payload: payload}, nil
}

func mustMessage(topic Topic, payload Payload) *Message {
	return &Message{topic: topic, payload: payload}
}

// Topic returns the message topic. A released message reports 0.
func (m *Message) Topic() Topic {
	return m.topic
}

// Payload returns the message body.
func (m *Message) Payload() Payload {
	return m.payload
}

// Clone returns a heap copy of the message. Payloads are plain values, so a
// shallow copy is independent of the original.
func (m *Message) Clone() *Message {
	c := *m
	return &c
}

// Reset zeroes the message so a stale reference cannot be mistaken for a
// live one.
func (m *Message) Reset() {
	m.topic = 0
	m.payload = nil
}

func (m *Message) String() string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s%+v", m.topic, m.payload)
}

// PayloadAs returns the payload as T if the message carries that variant.
func PayloadAs[T Payload](m *Message) (T, bool) {
	p, ok := m.payload.(T)
	return p, ok
}

// NewACStateUpdate announces a power source change.
func NewACStateUpdate(from, to ACState) *Message {
	return mustMessage(TopicACState, ACStateChange{Old: from, New: to})
}

// NewACStateRequest asks to override the detected power source.
func NewACStateRequest(to ACState) *Message {
	return mustMessage(TopicReqACState, ACStateChange{Old: ACStateUnknown, New: to})
}

// NewInhibitedUpdate announces an inhibition change.
func NewInhibitedUpdate(from, to bool) *Message {
	return mustMessage(TopicInhibited, InhibitChange{Old: from, New: to})
}

// NewInhibitRequest asks to take (to=true) or drop an inhibition.
func NewInhibitRequest(to, force bool) *Message {
	return mustMessage(TopicReqInhibit, InhibitChange{New: to, Force: force})
}

// NewSuspendedUpdate announces a suspended-state change.
func NewSuspendedUpdate(from, to bool) *Message {
	return mustMessage(TopicSuspended, SuspendChange{Old: from, New: to})
}

// NewSuspendRequest asks to enter (to=true) or leave the suspended state.
func NewSuspendRequest(to, force bool) *Message {
	return mustMessage(TopicReqSuspend, SuspendChange{New: to, Force: force})
}

// NewDisplayUpdate announces a display power change.
func NewDisplayUpdate(from, to DisplayState) *Message {
	return mustMessage(TopicDisplayState, DisplayChange{Old: from, New: to})
}

// NewDisplayRequest asks to move the display to a new state.
func NewDisplayRequest(to DisplayState) *Message {
	return mustMessage(TopicReqDisplay, DisplayChange{New: to})
}

// NewDimmerTimeoutRequest asks to change the dimmer timeout.
func NewDimmerTimeoutRequest(state ACState, seconds int) *Message {
	return mustMessage(TopicReqDimmerTimeout, TimeoutChange{State: state, New: seconds})
}

// NewDpmsTimeoutRequest asks to change the DPMS timeout.
func NewDpmsTimeoutRequest(state ACState, seconds int) *Message {
	return mustMessage(TopicReqDpmsTimeout, TimeoutChange{State: state, New: seconds})
}

// NewKbdTimeoutRequest asks to change the keyboard backlight timeout.
func NewKbdTimeoutRequest(state ACState, seconds int) *Message {
	return mustMessage(TopicReqKbdTimeout, TimeoutChange{State: state, New: seconds})
}

// NewKbdPctUpdate announces a keyboard backlight level change.
func NewKbdPctUpdate(from, to float64) *Message {
	return mustMessage(TopicKbdPct, BacklightChange{Old: from, New: to})
}

// NewKbdBacklightRequest asks to set the keyboard backlight level.
func NewKbdBacklightRequest(to float64, smooth bool) *Message {
	return mustMessage(TopicReqKbdBacklight, BacklightChange{New: to, Smooth: smooth})
}

// NewSimulateRequest asks idle clients to simulate user activity.
func NewSimulateRequest() *Message {
	return mustMessage(TopicReqSimulate, SimulateActivity{})
}
