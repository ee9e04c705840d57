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

// Package logger provides structured logging for the Lumo daemon.
package logger

import (
	"sync"
	"sync/atomic"
)

// subscriberQueue is the backlog per subscriber; entries beyond it are
// dropped and counted.
const subscriberQueue = 256

// Subscriber receives every log entry emitted after it subscribes
type Subscriber interface {
	OnLogEvent(entry *Entry) error
}

type subscription struct {
	sub   Subscriber
	queue chan *Entry
	done  chan struct{}
}

// Emitter fans log events out to live subscribers such as log-streaming
// control socket clients. Each subscriber is fed by its own goroutine so a
// slow reader never blocks logging.
type Emitter struct {
	mu      sync.RWMutex
	subs    []*subscription
	dropped atomic.Uint64
}

// NewEmitter creates a new log event emitter
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Subscribe adds a subscriber to receive log events
func (e *Emitter) Subscribe(sub Subscriber) {
	s := &subscription{
		sub:   sub,
		queue: make(chan *Entry, subscriberQueue),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		for entry := range s.queue {
			_ = s.sub.OnLogEvent(entry)
		}
	}()

	e.mu.Lock()
	e.subs = append(e.subs, s)
	e.mu.Unlock()
}

// Unsubscribe removes a subscriber and waits for its pending entries to be
// delivered.
func (e *Emitter) Unsubscribe(sub Subscriber) {
	e.mu.Lock()
	var found *subscription
	for i, s := range e.subs {
		if s.sub == sub {
			found = s
			e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	if found != nil {
		close(found.queue)
		<-found.done
	}
}

// Emit queues a log entry for all subscribers
func (e *Emitter) Emit(entry *Entry) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, s := range e.subs {
		select {
		case s.queue <- entry:
		default:
			e.dropped.Add(1)
		}
	}
}

// Dropped returns how many entries were discarded because a subscriber fell
// behind.
func (e *Emitter) Dropped() uint64 {
	return e.dropped.Load()
}

// Len returns the number of active subscribers.
func (e *Emitter) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}
