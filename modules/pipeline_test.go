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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/we-are-mono/lumo/module"
	"github.com/we-are-mono/lumo/system"
	"github.com/we-are-mono/lumo/types"
	"go.uber.org/goleak"
)

func TestPipeline(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := newHarness(t)

	dimmerIdle := &system.MockIdleService{}
	dpmsIdle := &system.MockIdleService{}
	bl := &system.MockBacklightClient{Pct: 0.9}
	kbd := &system.MockKbdBacklightClient{Pct: 1}
	dpms := &system.MockDpmsClient{}
	deps := Deps{
		Power:     &system.MockPowerSource{},
		Sleep:     &system.MockSleepWatcher{},
		Dpms:      dpms,
		Backlight: bl,
		Kbd:       kbd,
		Timers:    system.NewMockTimerClient(),
	}

	reg := module.NewRegistry()
	// Dimmer and DPMS get separate mocks so each client can be driven.
	for _, def := range []module.Definition{
		NewUPower(deps.Power, nil),
		NewInhibit(nil),
		NewSuspend(deps.Sleep),
		NewDisplay(deps.Dpms, deps.Backlight),
		NewKeyboard(deps.Kbd, deps.Timers),
		NewDimmer(dimmerIdle),
		NewDpms(dpmsIdle, deps.Dpms),
	} {
		require.NoError(t, reg.Register(module.New(def, h.bus, h.ctx)))
	}
	require.NoError(t, reg.StartAll())
	h.drain()
	defer reg.StopAll()

	assert.Equal(t, 7, reg.CountIn(module.Running))
	assert.Equal(t, types.ACStateOnAC, h.ctx.State.ACState)
	require.NotNil(t, dimmerIdle.Last())
	require.NotNil(t, dpmsIdle.Last())
	assert.Equal(t, []string{"start 45"}, dimmerIdle.Last().Calls)
	assert.Equal(t, []string{"start 900"}, dpmsIdle.Last().Calls)

	// Idle: dim, and the keyboard follows the display.
	dimmerIdle.Last().Idle(true)
	assert.Equal(t, types.DisplayDimmed, h.ctx.State.Display)
	assert.Equal(t, 0.2, bl.Pct)
	assert.Equal(t, 0.0, h.ctx.State.KbdPct)

	dpmsIdle.Last().Idle(true)
	assert.Equal(t, types.DisplayOff, h.ctx.State.Display)

	// Activity: everything comes back.
	dpmsIdle.Last().Idle(false)
	assert.Equal(t, types.DisplayOn, h.ctx.State.Display)
	assert.Equal(t, 0.9, bl.Pct)
	assert.Equal(t, 1.0, h.ctx.State.KbdPct)
	assert.Equal(t, []int{system.DpmsOff, system.DpmsOn}, dpms.SetCalls)

	// An inhibition pauses both idle clients.
	h.publish(types.NewInhibitRequest(true, false))
	assert.True(t, h.ctx.State.Inhibited)
	assert.False(t, dimmerIdle.Last().Running)
	assert.False(t, dpmsIdle.Last().Running)
	assert.Equal(t, 2, reg.CountIn(module.Paused))

	h.publish(types.NewInhibitRequest(false, true))
	assert.True(t, dimmerIdle.Last().Running)
	assert.True(t, dpmsIdle.Last().Running)

	reg.StopAll()
	assert.True(t, dimmerIdle.Last().Destroyed)
	assert.True(t, dpmsIdle.Last().Destroyed)
	assert.Equal(t, 7, reg.CountIn(module.Destroyed))
}

func TestRegisterAll(t *testing.T) {
	h := newHarness(t)
	reg := module.NewRegistry()

	require.NoError(t, Register(reg, h.bus, h.ctx, Deps{}))
	assert.Equal(t, []string{"upower", "inhibit", "suspend", "display", "keyboard", "dimmer", "dpms"}, reg.List())

	// Without any system client only the bookkeeping modules can run.
	require.NoError(t, reg.StartAll())
	h.drain()
	assert.Equal(t, 3, reg.CountIn(module.Running))
	assert.Equal(t, 4, reg.CountIn(module.Inactive))
	reg.StopAll()
}
