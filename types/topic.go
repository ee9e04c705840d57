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

// Package types defines the shared data model for the Lumo daemon: the
// topic catalog, typed message payloads, configuration and live state.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownTopic is returned for a topic outside the catalog.
var ErrUnknownTopic = errors.New("unknown topic")

// Topic identifies a kind of message on the bus. The zero value is invalid.
type Topic int

const (
	// Updates: facts that have happened.
	TopicACState Topic = iota + 1
	TopicInhibited
	TopicSuspended
	TopicDisplayState
	TopicKbdPct

	// Requests: asks for something to happen.
	TopicReqACState
	TopicReqInhibit
	TopicReqSuspend
	TopicReqDisplay
	TopicReqDimmerTimeout
	TopicReqDpmsTimeout
	TopicReqKbdTimeout
	TopicReqKbdBacklight
	TopicReqSimulate

	topicEnd
)

var topicNames = map[Topic]string{
	TopicACState:          "AcState",
	TopicInhibited:        "Inhibited",
	TopicSuspended:        "Suspended",
	TopicDisplayState:     "DisplayState",
	TopicKbdPct:           "KbdPct",
	TopicReqACState:       "ReqAcState",
	TopicReqInhibit:       "ReqInhibit",
	TopicReqSuspend:       "ReqSuspend",
	TopicReqDisplay:       "ReqDisplay",
	TopicReqDimmerTimeout: "ReqDimmerTo",
	TopicReqDpmsTimeout:   "ReqDpmsTo",
	TopicReqKbdTimeout:    "ReqKbdTo",
	TopicReqKbdBacklight:  "ReqKbdBl",
	TopicReqSimulate:      "ReqSimulate",
}

// Valid reports whether t belongs to the catalog.
func (t Topic) Valid() bool {
	return t > 0 && t < topicEnd
}

// String returns the stable wire name of the topic.
func (t Topic) String() string {
	if name, ok := topicNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Topic(%d)", int(t))
}

// IsRequest reports whether the topic names a request rather than an update.
// It is a naming convention only; the bus does not enforce it.
func (t Topic) IsRequest() bool {
	return t.Valid() && strings.HasPrefix(t.String(), "Req")
}

// Topics returns every topic in the catalog in declaration order.
func Topics() []Topic {
	topics := make([]Topic, 0, int(topicEnd)-1)
	for t := Topic(1); t < topicEnd; t++ {
		topics = append(topics, t)
	}
	return topics
}

// ParseTopic maps a wire name back to its topic.
func ParseTopic(name string) (Topic, error) {
	for t, n := range topicNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTopic, name)
}
