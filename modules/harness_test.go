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

package modules

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/we-are-mono/lumo/bus"
	"github.com/we-are-mono/lumo/daemon/logger"
	"github.com/we-are-mono/lumo/module"
	"github.com/we-are-mono/lumo/types"
)

type event struct {
	topic   types.Topic
	payload types.Payload
}

// recorder copies every message it sees; durable messages are zeroed after
// delivery.
type recorder struct {
	events []event
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Deliver(msg *types.Message) {
	r.events = append(r.events, event{topic: msg.Topic(), payload: msg.Payload()})
}

type harness struct {
	t     *testing.T
	bus   *bus.Bus
	ctx   *module.Context
	rec   *recorder
	queue chan func()
	logs  *logger.BufferBackend
}

func newHarness(t *testing.T) *harness {
	backend := logger.NewBufferBackend(&bytes.Buffer{}, "json")
	log := logger.New(logger.Config{Level: "debug"}, []logger.Backend{backend}, nil)

	h := &harness{
		t:     t,
		bus:   bus.New(log),
		rec:   &recorder{},
		queue: make(chan func(), 64),
		logs:  backend,
	}
	h.ctx = &module.Context{
		Config: types.DefaultConfig(),
		State:  types.NewState(),
		Post:   func(fn func()) { h.queue <- fn },
		Log:    log,
	}
	for _, topic := range types.Topics() {
		require.NoError(t, h.bus.Subscribe(h.rec, topic))
	}
	return h
}

func (h *harness) start(def module.Definition) *module.Module {
	m := module.New(def, h.bus, h.ctx)
	require.NoError(h.t, m.Start())
	h.drain()
	return m
}

// drain runs every queued closure, including ones queued while draining.
func (h *harness) drain() {
	for {
		select {
		case fn := <-h.queue:
			fn()
		default:
			return
		}
	}
}

// waitPosted runs the next closure posted from another goroutine.
func (h *harness) waitPosted() {
	select {
	case fn := <-h.queue:
		fn()
	case <-time.After(time.Second):
		h.t.Fatal("nothing was posted")
	}
}

func (h *harness) publish(msg *types.Message) {
	require.NoError(h.t, h.bus.Publish(msg, bus.Durable))
	h.drain()
}

// setAC plays the power source module: update the state, then announce it.
func (h *harness) setAC(to types.ACState) {
	from := h.ctx.State.ACState
	h.ctx.State.ACState = to
	h.publish(types.NewACStateUpdate(from, to))
}

func (h *harness) setInhibited(to bool) {
	from := h.ctx.State.Inhibited
	h.ctx.State.Inhibited = to
	h.publish(types.NewInhibitedUpdate(from, to))
}

func (h *harness) setSuspended(to bool) {
	from := h.ctx.State.Suspended
	h.ctx.State.Suspended = to
	h.publish(types.NewSuspendedUpdate(from, to))
}

func (h *harness) payloads(topic types.Topic) []types.Payload {
	var out []types.Payload
	for _, e := range h.rec.events {
		if e.topic == topic {
			out = append(out, e.payload)
		}
	}
	return out
}

func (h *harness) clear() {
	h.rec.events = nil
}
