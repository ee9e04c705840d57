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

// Package bus implements the synchronous typed publish/subscribe bus that
// connects Lumo modules.
//
// Delivery is depth-first and unbuffered: Publish hands the message to
// every subscriber of its topic, in registration order, before returning.
// A subscriber may publish from inside its handler; the nested publish
// completes before the outer one moves to the next subscriber. Two modules
// that answer each other's messages unconditionally will loop until
// MaxPublishDepth stops them.
//
// The bus is not safe for concurrent use. It is owned by the dispatch loop
// and every call must come from there.
package bus

import (
	"errors"
	"fmt"

	"github.com/we-are-mono/lumo/daemon/logger"
	"github.com/we-are-mono/lumo/types"
)

// MaxPublishDepth bounds re-entrant publishing.
const MaxPublishDepth = 32

// ErrPublishDepth is returned when nested publishes exceed MaxPublishDepth.
var ErrPublishDepth = errors.New("publish depth exceeded")

// Ownership tells the bus who owns a published message.
type Ownership int

const (
	// Transient messages live in caller storage and are only valid for the
	// duration of the Publish call.
	Transient Ownership = iota
	// Durable messages are copied onto the heap by the bus, delivered, and
	// released exactly once when delivery finishes.
	Durable
)

func (o Ownership) String() string {
	if o == Durable {
		return "durable"
	}
	return "transient"
}

// Subscriber is a message recipient. Deliver dispatches to whatever
// behavior the subscriber has active at delivery time.
type Subscriber interface {
	Name() string
	Deliver(msg *types.Message)
}

// Bus is the topic registry and subscription table.
type Bus struct {
	subs      map[types.Topic][]Subscriber
	depth     int
	log       logger.Logger
	onRelease func(*types.Message)
	stats     Stats
}

// New creates an empty bus.
func New(log logger.Logger) *Bus {
	if log == nil {
		log = logger.Nop()
	}
	return &Bus{
		subs:  make(map[types.Topic][]Subscriber),
		log:   log.With(logger.Component("bus")),
		stats: newStats(),
	}
}

// OnRelease registers a hook called with every durable copy just before it
// is zeroed. It exists for diagnostics and tests.
func (b *Bus) OnRelease(fn func(*types.Message)) {
	b.onRelease = fn
}

// Subscribe registers sub for topic. Unknown topics are rejected; a repeated
// (sub, topic) pair is ignored so delivery stays exactly-once.
func (b *Bus) Subscribe(sub Subscriber, topic types.Topic) error {
	if !topic.Valid() {
		err := fmt.Errorf("%w: %s", types.ErrUnknownTopic, topic)
		b.log.Error("Subscribe to unknown topic",
			logger.Field{Key: "subscriber", Value: sub.Name()},
			logger.Field{Key: "topic", Value: int(topic)})
		return err
	}

	current := b.subs[topic]
	for _, s := range current {
		if s == sub {
			return nil
		}
	}

	// Copy on write so a dispatch pass in progress keeps its snapshot.
	next := make([]Subscriber, len(current), len(current)+1)
	copy(next, current)
	b.subs[topic] = append(next, sub)

	b.log.Debug("Subscribed",
		logger.Field{Key: "subscriber", Value: sub.Name()},
		logger.Field{Key: "topic", Value: topic.String()})
	return nil
}

// Unsubscribe removes every subscription held by sub. Modules call it only
// while tearing down.
func (b *Bus) Unsubscribe(sub Subscriber) {
	for topic, current := range b.subs {
		next := make([]Subscriber, 0, len(current))
		for _, s := range current {
			if s != sub {
				next = append(next, s)
			}
		}
		if len(next) == len(current) {
			continue
		}
		if len(next) == 0 {
			delete(b.subs, topic)
		} else {
			b.subs[topic] = next
		}
	}
}

// Subscribers returns the names subscribed to topic, in delivery order.
func (b *Bus) Subscribers(topic types.Topic) []string {
	names := make([]string, 0, len(b.subs[topic]))
	for _, s := range b.subs[topic] {
		names = append(names, s.Name())
	}
	return names
}

// Publish delivers msg synchronously to every current subscriber of its
// topic. Errors are returned and logged; they never affect other calls.
func (b *Bus) Publish(msg *types.Message, own Ownership) error {
	if msg == nil || !msg.Topic().Valid() {
		topic := types.Topic(0)
		if msg != nil {
			topic = msg.Topic()
		}
		b.log.Error("Publish on unknown topic", logger.Field{Key: "topic", Value: int(topic)})
		return fmt.Errorf("%w: %s", types.ErrUnknownTopic, topic)
	}

	if b.depth >= MaxPublishDepth {
		b.stats.DepthExceeded++
		b.log.Error("Dropping message, publish depth exceeded",
			logger.Field{Key: "topic", Value: msg.Topic().String()},
			logger.Field{Key: "depth", Value: b.depth})
		return fmt.Errorf("%w: %s at depth %d", ErrPublishDepth, msg.Topic(), b.depth)
	}

	if own == Durable {
		msg = msg.Clone()
		b.stats.DurableAllocated++
		defer b.release(msg)
	}

	b.depth++
	defer func() { b.depth-- }()
	if b.depth > b.stats.MaxDepth {
		b.stats.MaxDepth = b.depth
	}

	topic := msg.Topic()
	snapshot := b.subs[topic]
	b.stats.record(topic, len(snapshot))

	b.log.Debug("Publish",
		logger.Field{Key: "topic", Value: topic.String()},
		logger.Field{Key: "ownership", Value: own.String()},
		logger.Field{Key: "subscribers", Value: len(snapshot)})

	for _, sub := range snapshot {
		sub.Deliver(msg)
	}
	return nil
}

func (b *Bus) release(msg *types.Message) {
	if b.onRelease != nil {
		b.onRelease(msg)
	}
	msg.Reset()
	b.stats.DurableReleased++
}

// Depth returns the current publish nesting level.
func (b *Bus) Depth() int {
	return b.depth
}
