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
	"fmt"

	"github.com/we-are-mono/lumo/daemon/logger"
	"github.com/we-are-mono/lumo/module"
	"github.com/we-are-mono/lumo/system"
	"github.com/we-are-mono/lumo/types"
)

// idleModule drives one clightd idle client. It waits for the first AcState
// to know which timeout to use, then starts the client, stops it while the
// session is inhibited or suspended and applies timeout requests.
type idleModule struct {
	name         string
	timeoutTopic types.Topic
	timeouts     func(cfg *types.Config) *types.Timeouts
	enabled      func(cfg *types.Config) bool
	onIdle       func(idle bool)
	// onAcquired runs once the idle client exists.
	onAcquired func()

	service system.IdleService
	client  system.IdleClient
	m       *module.Module
}

func (i *idleModule) Name() string { return i.name }

func (i *idleModule) Check() bool { return i.service != nil }

func (i *idleModule) Evaluate(ctx *module.Context) bool { return i.enabled(ctx.Config) }

func (i *idleModule) Init(m *module.Module) error {
	i.m = m
	err := subscribe(m,
		types.TopicACState,
		types.TopicInhibited,
		types.TopicSuspended,
		i.timeoutTopic,
		types.TopicReqSimulate)
	if err != nil {
		return err
	}
	return m.Become(module.Behavior{Name: "waiting_acstate", Receive: i.receiveWaitingACState})
}

func (i *idleModule) timeout() int {
	ctx := i.m.Context()
	return i.timeouts(ctx.Config).For(ctx.State.ACState)
}

func (i *idleModule) receiveWaitingACState(msg *types.Message) {
	if msg.Topic() != types.TopicACState {
		return
	}

	client, err := i.service.Acquire(i.timeout(), func(idle bool) {
		if i.m.State().Terminal() {
			return
		}
		i.m.Log().Debug("Idle changed", logger.Field{Key: "idle", Value: idle})
		i.onIdle(idle)
	})
	if err != nil {
		i.m.Poison(fmt.Errorf("acquire idle client: %w", err))
		return
	}
	i.client = client
	i.m.Log().Info("Idle client acquired", logger.Field{Key: "timeout", Value: i.timeout()})

	if err := i.m.Unbecome(); err != nil {
		return
	}
	if i.onAcquired != nil {
		i.onAcquired()
	}
	// Inhibition may have started before the client existed.
	i.updatePause()
}

// Receive is the default behavior.
func (i *idleModule) Receive(msg *types.Message) {
	switch msg.Topic() {
	case types.TopicACState:
		i.restart()
	case types.TopicInhibited, types.TopicSuspended:
		i.updatePause()
	case i.timeoutTopic:
		i.setTimeout(msg)
	case types.TopicReqSimulate:
		if validRequest(i.m, msg) && i.timeout() > 0 {
			i.warn("reset", i.client.Reset(i.timeout()))
		}
	}
}

// receiveInhibited drops simulated activity; everything else is handled as
// usual.
func (i *idleModule) receiveInhibited(msg *types.Message) {
	if msg.Topic() == types.TopicReqSimulate {
		return
	}
	i.Receive(msg)
}

func (i *idleModule) restart() {
	if i.m.Paused() {
		return
	}
	i.start()
}

// start runs the client with the current timeout. A timeout <= 0 disables
// the module until the next change, so the client is stopped instead.
func (i *idleModule) start() {
	t := i.timeout()
	if t <= 0 {
		i.warn("stop", i.client.Stop())
		return
	}
	i.warn("start", i.client.Start(t))
}

func (i *idleModule) setTimeout(msg *types.Message) {
	if !validRequest(i.m, msg) {
		return
	}
	p, ok := types.PayloadAs[types.TimeoutChange](msg)
	if !ok {
		return
	}
	st := i.m.Context().State
	target := resolveState(p.State, st)
	i.timeouts(i.m.Context().Config).Set(target, p.New)
	i.m.Log().Info("Timeout changed",
		logger.Field{Key: "state", Value: target.String()},
		logger.Field{Key: "timeout", Value: p.New})
	if target == effectiveState(st) {
		i.restart()
	}
}

func (i *idleModule) updatePause() {
	st := i.m.Context().State
	pause := st.Inhibited || st.Suspended
	if pause == i.m.Paused() {
		return
	}
	if pause {
		if err := i.m.Become(module.Behavior{Name: "inhibited", Receive: i.receiveInhibited}); err != nil {
			return
		}
		i.m.Pause()
		return
	}
	if err := i.m.Unbecome(); err != nil {
		return
	}
	i.m.Resume()
}

// OnPause stops the idle client.
func (i *idleModule) OnPause() {
	i.m.Log().Debug("Pausing idle client")
	i.warn("stop", i.client.Stop())
}

// OnResume restarts it with the current timeout.
func (i *idleModule) OnResume() {
	i.m.Log().Debug("Resuming idle client")
	i.start()
}

func (i *idleModule) warn(op string, err error) {
	if err != nil {
		i.m.Log().Warn("Idle client "+op+" failed", logger.Err(err))
	}
}

func (i *idleModule) Destroy() {
	if i.client != nil {
		i.warn("destroy", i.client.Destroy())
	}
}

func requestDisplay(m *module.Module, to types.DisplayState) {
	publish(m, types.NewDisplayRequest(to))
}
