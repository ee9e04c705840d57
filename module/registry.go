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

package module

import (
	"errors"
	"fmt"
	"sync"
)

// Registry keeps modules in registration order.
type Registry struct {
	modules []*Module
	byName  map[string]*Module
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Module)}
}

// Register adds a module. Names must be unique.
func (r *Registry) Register(m *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[m.Name()]; exists {
		return fmt.Errorf("module '%s' already registered", m.Name())
	}
	r.modules = append(r.modules, m)
	r.byName[m.Name()] = m
	return nil
}

// Get retrieves a module by name
func (r *Registry) Get(name string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byName[name]
	return m, ok
}

// List returns module names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for _, m := range r.modules {
		names = append(names, m.Name())
	}
	return names
}

func (r *Registry) snapshot() []*Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Module, len(r.modules))
	copy(out, r.modules)
	return out
}

// StartAll starts every module in registration order. A failing module is
// logged and skipped; the returned error joins all failures.
func (r *Registry) StartAll() error {
	var errs []error
	for _, m := range r.snapshot() {
		if err := m.Start(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StopAll stops every module in reverse registration order.
func (r *Registry) StopAll() {
	mods := r.snapshot()
	for i := len(mods) - 1; i >= 0; i-- {
		mods[i].Stop()
	}
}

// Statuses returns a snapshot of every module in registration order.
func (r *Registry) Statuses() []Status {
	mods := r.snapshot()
	out := make([]Status, 0, len(mods))
	for _, m := range mods {
		out = append(out, m.Status())
	}
	return out
}

// CountIn returns how many modules are in one of the given states.
func (r *Registry) CountIn(states ...State) int {
	n := 0
	for _, m := range r.snapshot() {
		for _, s := range states {
			if m.state == s {
				n++
				break
			}
		}
	}
	return n
}
