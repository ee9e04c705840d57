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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicCatalog(t *testing.T) {
	topics := Topics()
	require.Len(t, topics, len(topicNames))

	seen := make(map[string]bool)
	for _, topic := range topics {
		assert.True(t, topic.Valid())
		name := topic.String()
		assert.False(t, seen[name], "duplicate topic name %s", name)
		seen[name] = true

		parsed, err := ParseTopic(name)
		require.NoError(t, err)
		assert.Equal(t, topic, parsed)
	}
}

func TestTopicValidity(t *testing.T) {
	var zero Topic
	assert.False(t, zero.Valid(), "zero topic must be invalid")
	assert.False(t, topicEnd.Valid())
	assert.False(t, Topic(-3).Valid())
	assert.Equal(t, "Topic(0)", zero.String())

	_, err := ParseTopic("NoSuchTopic")
	assert.True(t, errors.Is(err, ErrUnknownTopic))
}

func TestTopicIsRequest(t *testing.T) {
	tests := []struct {
		topic    Topic
		expected bool
	}{
		{TopicACState, false},
		{TopicInhibited, false},
		{TopicDisplayState, false},
		{TopicReqACState, true},
		{TopicReqDpmsTimeout, true},
		{TopicReqSimulate, true},
		{Topic(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.topic.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.topic.IsRequest())
		})
	}
}

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		topic   Topic
		payload Payload
		wantErr error
	}{
		{
			name:    "ac state update",
			topic:   TopicACState,
			payload: ACStateChange{Old: ACStateOnAC, New: ACStateOnBattery},
		},
		{
			name:    "timeout request on dpms topic",
			topic:   TopicReqDpmsTimeout,
			payload: TimeoutChange{State: ACStateUnknown, New: 60},
		},
		{
			name:    "simulate",
			topic:   TopicReqSimulate,
			payload: SimulateActivity{},
		},
		{
			name:    "unknown topic",
			topic:   Topic(99),
			payload: SimulateActivity{},
			wantErr: ErrUnknownTopic,
		},
		{
			name:    "zero topic",
			topic:   Topic(0),
			payload: SimulateActivity{},
			wantErr: ErrUnknownTopic,
		},
		{
			name:    "payload for another topic",
			topic:   TopicInhibited,
			payload: ACStateChange{},
			wantErr: ErrPayloadMismatch,
		},
		{
			name:    "nil payload",
			topic:   TopicInhibited,
			payload: nil,
			wantErr: ErrPayloadMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.topic, tt.payload)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, msg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.topic, msg.Topic())
			assert.Equal(t, tt.payload, msg.Payload())
		})
	}
}

func TestConstructorsAgreeWithTopic(t *testing.T) {
	msgs := []*Message{
		NewACStateUpdate(ACStateUnknown, ACStateOnAC),
		NewACStateRequest(ACStateOnBattery),
		NewInhibitedUpdate(false, true),
		NewInhibitRequest(true, false),
		NewSuspendedUpdate(false, true),
		NewSuspendRequest(false, true),
		NewDisplayUpdate(DisplayOn, DisplayOff),
		NewDisplayRequest(DisplayDimmed),
		NewDimmerTimeoutRequest(ACStateOnAC, 30),
		NewDpmsTimeoutRequest(ACStateOnBattery, 120),
		NewKbdTimeoutRequest(ACStateUnknown, 10),
		NewKbdPctUpdate(1, 0),
		NewKbdBacklightRequest(0.5, true),
		NewSimulateRequest(),
	}

	for _, msg := range msgs {
		t.Run(msg.Topic().String(), func(t *testing.T) {
			rebuilt, err := NewMessage(msg.Topic(), msg.Payload())
			require.NoError(t, err)
			assert.Equal(t, msg, rebuilt)
		})
	}
}

func TestPayloadAs(t *testing.T) {
	msg := NewDpmsTimeoutRequest(ACStateOnBattery, 42)

	tc, ok := PayloadAs[TimeoutChange](msg)
	require.True(t, ok)
	assert.Equal(t, ACStateOnBattery, tc.State)
	assert.Equal(t, 42, tc.New)

	_, ok = PayloadAs[ACStateChange](msg)
	assert.False(t, ok)
}

func TestMessageCloneAndReset(t *testing.T) {
	orig := NewInhibitRequest(true, true)
	clone := orig.Clone()

	clone.Reset()
	assert.Equal(t, Topic(0), clone.Topic())
	assert.Nil(t, clone.Payload())

	assert.Equal(t, TopicReqInhibit, orig.Topic())
	assert.Equal(t, InhibitChange{New: true, Force: true}, orig.Payload())
}

func TestParseACState(t *testing.T) {
	tests := []struct {
		input    string
		expected ACState
		wantErr  bool
	}{
		{"ac", ACStateOnAC, false},
		{"AC", ACStateOnAC, false},
		{"on_battery", ACStateOnBattery, false},
		{"battery", ACStateOnBattery, false},
		{"", ACStateUnknown, false},
		{"current", ACStateUnknown, false},
		{"mains", ACStateUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseACState(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseDisplayState(t *testing.T) {
	got, err := ParseDisplayState("dim")
	require.NoError(t, err)
	assert.Equal(t, DisplayDimmed, got)
	assert.Equal(t, "dimmed", got.String())

	_, err = ParseDisplayState("blank")
	assert.Error(t, err)
	assert.False(t, DisplayState(7).Valid())
}

func TestTimeouts(t *testing.T) {
	to := Timeouts{OnAC: 45, OnBattery: 20}

	assert.Equal(t, 45, to.For(ACStateOnAC))
	assert.Equal(t, 20, to.For(ACStateOnBattery))
	assert.Equal(t, 45, to.For(ACStateUnknown), "unknown reads the AC value")

	to.Set(ACStateOnBattery, 5)
	assert.Equal(t, 5, to.OnBattery)
	assert.Equal(t, 45, to.OnAC)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, Timeouts{OnAC: 45, OnBattery: 20}, cfg.Dimmer.Timeouts)
	assert.Equal(t, Timeouts{OnAC: 900, OnBattery: 300}, cfg.Dpms.Timeouts)
	assert.Equal(t, Timeouts{OnAC: 15, OnBattery: 5}, cfg.Keyboard.Timeouts)
	assert.True(t, cfg.HasFunctionalModule())

	cfg.Dimmer.Disabled = true
	cfg.Dpms.Disabled = true
	cfg.Keyboard.Disabled = true
	assert.False(t, cfg.HasFunctionalModule())
}

func TestNewState(t *testing.T) {
	s := NewState()
	assert.Equal(t, ACStateUnknown, s.ACState)
	assert.Equal(t, DisplayOn, s.Display)

	snap := s.Snapshot()
	s.Inhibited = true
	assert.False(t, snap.Inhibited)
}
