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

// Package module implements the per-module lifecycle and behavior stack on
// top of the message bus.
//
// A module is created from a Definition, started once, and from then on
// receives the messages it subscribed to during initialization through
// whichever Behavior is on top of its stack. Like the bus, a Module is used
// only from the dispatch loop.
package module

import (
	"errors"
	"fmt"

	"github.com/we-are-mono/lumo/bus"
	"github.com/we-are-mono/lumo/daemon/logger"
	"github.com/we-are-mono/lumo/types"
)

// MaxBehaviorDepth bounds the behavior stack, the default behavior included.
const MaxBehaviorDepth = 8

var (
	ErrBehaviorOverflow  = errors.New("behavior stack overflow")
	ErrBehaviorUnderflow = errors.New("behavior stack underflow")
	ErrNotInitializing   = errors.New("subscriptions are only allowed during initialization")
	ErrNotActive         = errors.New("module is not active")
	ErrAlreadyStarted    = errors.New("module already started")
)

// State is a module lifecycle state.
type State int

const (
	Uninitialized State = iota
	Initializing
	Running
	Paused
	Destroyed
	Poisoned
	// Inactive is terminal: a gate rejected the module, it never ran.
	Inactive
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Destroyed:
		return "destroyed"
	case Poisoned:
		return "poisoned"
	case Inactive:
		return "inactive"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == Destroyed || s == Poisoned || s == Inactive
}

// Handler reacts to one message.
type Handler func(msg *types.Message)

// Behavior is a named message handler that can be pushed on a module's
// behavior stack.
type Behavior struct {
	Name    string
	Receive Handler
}

// Context is the shared state handed to every module. Config is written
// only by the daemon on reload and State only by the module that owns each
// field (see types.State). Post schedules a closure on the dispatch loop and
// is the only member that may be used from other goroutines.
type Context struct {
	Config *types.Config
	State  *types.State
	Post   func(func())
	Log    logger.Logger
}

// Definition is implemented by every concrete module.
type Definition interface {
	Name() string
	// Check reports whether the module can ever run on this system.
	Check() bool
	// Evaluate reports whether the module is enabled by the current
	// configuration.
	Evaluate(ctx *Context) bool
	// Init subscribes to topics and performs one-time setup. An error
	// poisons the module.
	Init(m *Module) error
	// Receive is the default behavior.
	Receive(msg *types.Message)
	// Destroy releases whatever Init acquired. It runs at most once.
	Destroy()
}

// Pauser is implemented by definitions that need to stop side effects when
// paused and restart them on resume.
type Pauser interface {
	OnPause()
	OnResume()
}

// Module is one running instance of a Definition.
type Module struct {
	def       Definition
	bus       *bus.Bus
	ctx       *Context
	log       logger.Logger
	state     State
	behaviors []Behavior
	pauses    int
	err       error
	cleanups  []func()
	torn      bool
	delivered uint64
	dropped   uint64
}

// New wraps def into a module attached to b.
func New(def Definition, b *bus.Bus, ctx *Context) *Module {
	log := ctx.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Module{
		def: def,
		bus: b,
		ctx: ctx,
		log: log.With(logger.Component(def.Name())),
	}
}

// Name returns the definition name.
func (m *Module) Name() string { return m.def.Name() }

// Context returns the shared context.
func (m *Module) Context() *Context { return m.ctx }

// Log returns the module's logger.
func (m *Module) Log() logger.Logger { return m.log }

// State returns the lifecycle state.
func (m *Module) State() State { return m.state }

// Err returns the error that poisoned the module, if any.
func (m *Module) Err() error { return m.err }

// Start runs the gates and Init. A rejected module becomes Inactive and
// Start returns nil; a failed Init poisons the module and returns the error.
func (m *Module) Start() error {
	if m.state != Uninitialized {
		return fmt.Errorf("%s: %w", m.Name(), ErrAlreadyStarted)
	}

	if !m.def.Check() || !m.def.Evaluate(m.ctx) {
		m.state = Inactive
		m.log.Info("Module disabled")
		return nil
	}

	m.state = Initializing
	m.behaviors = []Behavior{{Name: "default", Receive: m.def.Receive}}

	if err := m.def.Init(m); err != nil {
		m.Poison(err)
		return fmt.Errorf("%s: init failed: %w", m.Name(), err)
	}
	if m.state == Initializing {
		m.state = Running
	}
	m.log.Debug("Module started", logger.Field{Key: "behavior", Value: m.Behavior()})
	return nil
}

// Subscribe registers the module for topic. Only legal during Init.
func (m *Module) Subscribe(topic types.Topic) error {
	if m.state != Initializing {
		return fmt.Errorf("%s: %w", m.Name(), ErrNotInitializing)
	}
	return m.bus.Subscribe(m, topic)
}

// Become pushes b on the behavior stack.
func (m *Module) Become(b Behavior) error {
	if m.state.Terminal() || m.state == Uninitialized {
		return fmt.Errorf("%s: %w", m.Name(), ErrNotActive)
	}
	if len(m.behaviors) >= MaxBehaviorDepth {
		err := fmt.Errorf("%s: %w pushing %q", m.Name(), ErrBehaviorOverflow, b.Name)
		m.log.Error("Behavior stack overflow",
			logger.Field{Key: "behavior", Value: b.Name},
			logger.Field{Key: "depth", Value: len(m.behaviors)})
		return err
	}
	m.behaviors = append(m.behaviors, b)
	m.log.Debug("Become", logger.Field{Key: "behavior", Value: b.Name})
	return nil
}

// Unbecome pops the top behavior. The default behavior cannot be popped.
func (m *Module) Unbecome() error {
	if m.state.Terminal() || m.state == Uninitialized {
		return fmt.Errorf("%s: %w", m.Name(), ErrNotActive)
	}
	if len(m.behaviors) <= 1 {
		m.log.Error("Behavior stack underflow")
		return fmt.Errorf("%s: %w", m.Name(), ErrBehaviorUnderflow)
	}
	popped := m.behaviors[len(m.behaviors)-1]
	m.behaviors = m.behaviors[:len(m.behaviors)-1]
	m.log.Debug("Unbecome",
		logger.Field{Key: "popped", Value: popped.Name},
		logger.Field{Key: "behavior", Value: m.Behavior()})
	return nil
}

// Behavior returns the name of the active behavior.
func (m *Module) Behavior() string {
	if len(m.behaviors) == 0 {
		return ""
	}
	return m.behaviors[len(m.behaviors)-1].Name
}

// Depth returns the behavior stack size, the default behavior included.
func (m *Module) Depth() int {
	return len(m.behaviors)
}

// Pause suspends side-effecting work while keeping subscriptions alive.
// Pauses nest: each Pause needs its own Resume.
func (m *Module) Pause() {
	if m.state != Running && m.state != Paused {
		return
	}
	m.pauses++
	if m.state == Running {
		m.state = Paused
		if p, ok := m.def.(Pauser); ok {
			p.OnPause()
		}
		m.log.Debug("Module paused")
	}
}

// Resume undoes one Pause.
func (m *Module) Resume() {
	if m.state != Paused {
		return
	}
	m.pauses--
	if m.pauses > 0 {
		return
	}
	m.state = Running
	if p, ok := m.def.(Pauser); ok {
		p.OnResume()
	}
	m.log.Debug("Module resumed")
}

// Paused reports whether at least one Pause is outstanding.
func (m *Module) Paused() bool {
	return m.state == Paused
}

// Poison marks the module permanently inert after an unrecoverable fault
// and tears it down. The rest of the daemon keeps running.
func (m *Module) Poison(err error) {
	if m.state.Terminal() {
		return
	}
	m.err = err
	m.log.Error("Module poisoned", logger.Err(err))
	m.teardown()
	m.state = Poisoned
}

// Stop tears the module down for shutdown. Safe to call in any state.
func (m *Module) Stop() {
	if m.state.Terminal() {
		return
	}
	if m.state != Uninitialized {
		m.teardown()
	}
	m.state = Destroyed
}

// OnTeardown registers fn to run when the module is destroyed or poisoned.
// Cleanups run in reverse registration order, before Definition.Destroy.
func (m *Module) OnTeardown(fn func()) {
	m.cleanups = append(m.cleanups, fn)
}

func (m *Module) teardown() {
	if m.torn {
		return
	}
	m.torn = true

	m.bus.Unsubscribe(m)
	for i := len(m.cleanups) - 1; i >= 0; i-- {
		m.safely("cleanup", m.cleanups[i])
	}
	m.cleanups = nil
	m.safely("destroy", m.def.Destroy)
	m.behaviors = nil
	m.pauses = 0
}

// safely runs fn, turning a panic into an error log.
func (m *Module) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("Recovered panic",
				logger.Field{Key: "in", Value: what},
				logger.Field{Key: "panic", Value: fmt.Sprint(r)})
		}
	}()
	fn()
}

// Publish sends msg on the bus as a durable message.
func (m *Module) Publish(msg *types.Message) error {
	if m.state.Terminal() || m.state == Uninitialized {
		return fmt.Errorf("%s: %w", m.Name(), ErrNotActive)
	}
	return m.bus.Publish(msg, bus.Durable)
}

// Deliver dispatches msg to the active behavior. Modules that are not
// running or paused drop it. A panicking behavior is logged and the bus
// carries on with the remaining subscribers.
func (m *Module) Deliver(msg *types.Message) {
	if (m.state != Running && m.state != Paused) || len(m.behaviors) == 0 {
		m.dropped++
		return
	}
	m.delivered++
	top := m.behaviors[len(m.behaviors)-1]
	m.safely("behavior "+top.Name, func() { top.Receive(msg) })
}

// Status is a point-in-time view of a module for diagnostics.
type Status struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Behavior  string `json:"behavior,omitempty"`
	Depth     int    `json:"depth"`
	Pauses    int    `json:"pauses,omitempty"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Status returns a snapshot of the module.
func (m *Module) Status() Status {
	s := Status{
		Name:      m.Name(),
		State:     m.state.String(),
		Behavior:  m.Behavior(),
		Depth:     m.Depth(),
		Pauses:    m.pauses,
		Delivered: m.delivered,
		Dropped:   m.dropped,
	}
	if m.err != nil {
		s.Error = m.err.Error()
	}
	return s
}
