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

package system

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/we-are-mono/lumo/daemon/logger"
)

// SignalConn is the subset of *dbus.Conn used for signal routing.
type SignalConn interface {
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
}

// SignalMatch selects signals by object path, interface and member. Empty
// fields match anything.
type SignalMatch struct {
	Path      dbus.ObjectPath
	Interface string
	Member    string
}

func (m SignalMatch) options() []dbus.MatchOption {
	var opts []dbus.MatchOption
	if m.Path != "" {
		opts = append(opts, dbus.WithMatchObjectPath(m.Path))
	}
	if m.Interface != "" {
		opts = append(opts, dbus.WithMatchInterface(m.Interface))
	}
	if m.Member != "" {
		opts = append(opts, dbus.WithMatchMember(m.Member))
	}
	return opts
}

func (m SignalMatch) matches(sig *dbus.Signal) bool {
	if m.Path != "" && sig.Path != m.Path {
		return false
	}
	dot := strings.LastIndex(sig.Name, ".")
	if dot < 0 {
		return false
	}
	if m.Interface != "" && sig.Name[:dot] != m.Interface {
		return false
	}
	if m.Member != "" && sig.Name[dot+1:] != m.Member {
		return false
	}
	return true
}

func (m SignalMatch) String() string {
	return fmt.Sprintf("%s %s.%s", m.Path, m.Interface, m.Member)
}

type route struct {
	id    uint64
	match SignalMatch
	fn    func(*dbus.Signal)
}

// SignalRouter reads every signal of one connection and hands the matching
// ones to their handlers on the dispatch loop.
type SignalRouter struct {
	conn SignalConn
	post func(func())
	log  logger.Logger
	ch   chan *dbus.Signal

	mu     sync.Mutex
	routes []route
	nextID uint64
}

// NewSignalRouter creates a router for conn. Handlers are scheduled with post.
func NewSignalRouter(conn SignalConn, post func(func()), log logger.Logger) *SignalRouter {
	if log == nil {
		log = logger.Nop()
	}
	return &SignalRouter{
		conn: conn,
		post: post,
		log:  log,
		ch:   make(chan *dbus.Signal, 32),
	}
}

// Watch installs a match rule and registers fn for it. The returned cancel
// removes both and is safe to call more than once.
func (r *SignalRouter) Watch(match SignalMatch, fn func(*dbus.Signal)) (func(), error) {
	if err := r.conn.AddMatchSignal(match.options()...); err != nil {
		return nil, fmt.Errorf("add match %s: %w", match, err)
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.routes = append(r.routes, route{id: id, match: match, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.remove(id)
			if err := r.conn.RemoveMatchSignal(match.options()...); err != nil {
				r.log.Debug("Failed to remove match rule",
					logger.Field{Key: "match", Value: match.String()}, logger.Err(err))
			}
		})
	}
	return cancel, nil
}

func (r *SignalRouter) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rt := range r.routes {
		if rt.id == id {
			r.routes = append(r.routes[:i:i], r.routes[i+1:]...)
			return
		}
	}
}

func (r *SignalRouter) active(id uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rt := range r.routes {
		if rt.id == id {
			return true
		}
	}
	return false
}

// Run receives signals until ctx is done or the connection goes away.
func (r *SignalRouter) Run(ctx context.Context) error {
	r.conn.Signal(r.ch)
	defer r.conn.RemoveSignal(r.ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-r.ch:
			if !ok {
				return errors.New("dbus signal channel closed")
			}
			r.dispatch(sig)
		}
	}
}

func (r *SignalRouter) dispatch(sig *dbus.Signal) {
	r.mu.Lock()
	var matched []route
	for _, rt := range r.routes {
		if rt.match.matches(sig) {
			matched = append(matched, rt)
		}
	}
	r.mu.Unlock()

	for _, rt := range matched {
		rt := rt
		r.post(func() {
			// The route may have been cancelled while this was queued.
			if r.active(rt.id) {
				rt.fn(sig)
			}
		})
	}
}
