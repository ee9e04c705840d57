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
	"github.com/we-are-mono/lumo/daemon/logger"
	"github.com/we-are-mono/lumo/module"
	"github.com/we-are-mono/lumo/system"
	"github.com/we-are-mono/lumo/types"
)

// UPower tracks the power source and publishes AcState. It is the only
// writer of State.ACState.
type UPower struct {
	source   system.PowerSource
	fallback system.PowerSource
	m        *module.Module
	cancel   func()
}

// NewUPower creates the power source module. fallback is consulted when
// source cannot be read; with neither the machine is assumed on AC.
func NewUPower(source, fallback system.PowerSource) *UPower {
	return &UPower{source: source, fallback: fallback}
}

func (u *UPower) Name() string                      { return "upower" }
func (u *UPower) Check() bool                       { return true }
func (u *UPower) Evaluate(ctx *module.Context) bool { return true }

func (u *UPower) Init(m *module.Module) error {
	u.m = m
	if err := subscribe(m, types.TopicReqACState); err != nil {
		return err
	}

	initial := u.read()
	if u.source != nil {
		cancel, err := u.source.Watch(func(onBattery bool) { u.set(fromBattery(onBattery)) })
		if err != nil {
			m.Log().Warn("Power source changes will not be tracked", logger.Err(err))
		} else {
			u.cancel = cancel
		}
	}

	// Published once every module has subscribed.
	m.Context().Post(func() { u.set(initial) })
	return nil
}

func (u *UPower) read() types.ACState {
	for _, src := range []system.PowerSource{u.source, u.fallback} {
		if src == nil {
			continue
		}
		onBattery, err := src.OnBattery()
		if err == nil {
			return fromBattery(onBattery)
		}
		u.m.Log().Warn("Failed to read power source", logger.Err(err))
	}
	u.m.Log().Info("No power source available, assuming AC")
	return types.ACStateOnAC
}

func fromBattery(onBattery bool) types.ACState {
	if onBattery {
		return types.ACStateOnBattery
	}
	return types.ACStateOnAC
}

func (u *UPower) set(to types.ACState) {
	st := u.m.Context().State
	if st.ACState == to || u.m.State().Terminal() {
		return
	}
	from := st.ACState
	st.ACState = to
	u.m.Log().Info("AC state changed",
		logger.Field{Key: "from", Value: from.String()},
		logger.Field{Key: "to", Value: to.String()})
	publish(u.m, types.NewACStateUpdate(from, to))
}

func (u *UPower) Receive(msg *types.Message) {
	if msg.Topic() != types.TopicReqACState || !validRequest(u.m, msg) {
		return
	}
	if p, ok := types.PayloadAs[types.ACStateChange](msg); ok {
		u.set(p.New)
	}
}

func (u *UPower) Destroy() {
	if u.cancel != nil {
		u.cancel()
	}
}
