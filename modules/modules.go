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

// Package modules holds the concrete behaviors of the daemon: power source
// tracking, inhibition, suspend, idle-driven dimming and DPMS, display
// control and keyboard backlight.
package modules

import (
	"fmt"

	"github.com/we-are-mono/lumo/bus"
	"github.com/we-are-mono/lumo/daemon/logger"
	"github.com/we-are-mono/lumo/module"
	"github.com/we-are-mono/lumo/system"
	"github.com/we-are-mono/lumo/types"
	"github.com/we-are-mono/lumo/validation"
)

// Deps are the system clients the modules talk to. Nil clients disable the
// modules that need them.
type Deps struct {
	Power         system.PowerSource
	PowerFallback system.PowerSource
	Sleep         system.SleepWatcher
	Idle          system.IdleService
	Dpms          system.DpmsClient
	Backlight     system.BacklightClient
	Kbd           system.KbdBacklightClient
	Timers        system.TimerClient
	ScreenSaver   system.ExportConn // session bus, may be nil
}

// All returns every module definition in start order.
func All(d Deps) []module.Definition {
	return []module.Definition{
		NewUPower(d.Power, d.PowerFallback),
		NewInhibit(d.ScreenSaver),
		NewSuspend(d.Sleep),
		NewDisplay(d.Dpms, d.Backlight),
		NewKeyboard(d.Kbd, d.Timers),
		NewDimmer(d.Idle),
		NewDpms(d.Idle, d.Dpms),
	}
}

// Register wraps every definition into a module and adds it to r.
func Register(r *module.Registry, b *bus.Bus, ctx *module.Context, d Deps) error {
	for _, def := range All(d) {
		if err := r.Register(module.New(def, b, ctx)); err != nil {
			return err
		}
	}
	return nil
}

// subscribe registers m for every topic, stopping at the first failure.
func subscribe(m *module.Module, topics ...types.Topic) error {
	for _, t := range topics {
		if err := m.Subscribe(t); err != nil {
			return fmt.Errorf("subscribe %s: %w", t, err)
		}
	}
	return nil
}

// validRequest logs and rejects malformed requests.
func validRequest(m *module.Module, msg *types.Message) bool {
	if err := validation.ValidateRequest(msg); err != nil {
		m.Log().Warn("Invalid request dropped",
			logger.Field{Key: "topic", Value: msg.Topic().String()},
			logger.Err(err))
		return false
	}
	return true
}

// publish sends msg and logs a failure; callers have nothing better to do
// with it.
func publish(m *module.Module, msg *types.Message) {
	if err := m.Publish(msg); err != nil {
		m.Log().Error("Publish failed",
			logger.Field{Key: "topic", Value: msg.Topic().String()},
			logger.Err(err))
	}
}

// effectiveState is the power source timeouts are read for. An unknown
// source counts as AC.
func effectiveState(st *types.State) types.ACState {
	if st.ACState == types.ACStateOnBattery {
		return types.ACStateOnBattery
	}
	return types.ACStateOnAC
}

// resolveState maps ACStateUnknown in a request to the current power source.
func resolveState(requested types.ACState, st *types.State) types.ACState {
	if requested == types.ACStateUnknown {
		return effectiveState(st)
	}
	return requested
}
