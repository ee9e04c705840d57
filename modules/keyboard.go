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
	"time"

	"github.com/we-are-mono/lumo/daemon/logger"
	"github.com/we-are-mono/lumo/module"
	"github.com/we-are-mono/lumo/system"
	"github.com/we-are-mono/lumo/types"
)

// A smooth change of the keyboard backlight moves in kbdFadeSteps equal
// steps, kbdFadeInterval apart.
const (
	kbdFadeSteps    = 10
	kbdFadeInterval = 30 * time.Millisecond
)

// Keyboard switches the keyboard backlight off after a timeout without
// activity and owns State.KbdPct. The countdown runs on a timerfd; a change
// of power source or timeout keeps the time already elapsed.
type Keyboard struct {
	kbd    system.KbdBacklightClient
	timers system.TimerClient
	timer  *system.Timer
	m      *module.Module
	off    bool

	fade    *time.Timer
	fadeGen int
}

// NewKeyboard creates the keyboard backlight module.
func NewKeyboard(kbd system.KbdBacklightClient, timers system.TimerClient) *Keyboard {
	return &Keyboard{kbd: kbd, timers: timers}
}

func (k *Keyboard) Name() string { return "keyboard" }

// Check probes clightd for a keyboard backlight.
func (k *Keyboard) Check() bool {
	if k.kbd == nil || k.timers == nil {
		return false
	}
	_, err := k.kbd.Get()
	return err == nil
}

func (k *Keyboard) Evaluate(ctx *module.Context) bool { return !ctx.Config.Keyboard.Disabled }

func (k *Keyboard) Init(m *module.Module) error {
	k.m = m
	err := subscribe(m,
		types.TopicACState,
		types.TopicSuspended,
		types.TopicDisplayState,
		types.TopicReqKbdTimeout,
		types.TopicReqKbdBacklight,
		types.TopicReqSimulate)
	if err != nil {
		return err
	}

	timer, err := system.NewTimer(k.timers)
	if err != nil {
		return err
	}
	k.timer = timer
	m.OnTeardown(func() { _ = timer.Close() })
	m.OnTeardown(k.stopFade)
	timer.Watch(m.Context().Post, k.onTimeout)

	if pct, err := k.kbd.Get(); err == nil {
		m.Context().State.KbdPct = pct
	}
	k.arm()
	return nil
}

func (k *Keyboard) timeouts() *types.Timeouts {
	return &k.m.Context().Config.Keyboard.Timeouts
}

func (k *Keyboard) arm() {
	t := k.timeouts().For(k.m.Context().State.ACState)
	if err := k.timer.Arm(t, 0); err != nil {
		k.m.Log().Warn("Failed to arm keyboard timer", logger.Err(err))
	}
}

func (k *Keyboard) onTimeout() {
	if k.m.Paused() || k.m.State().Terminal() {
		return
	}
	k.m.Log().Debug("Keyboard idle timeout")
	k.switchOff()
}

func (k *Keyboard) switchOff() {
	k.stopFade()
	if err := k.timer.Pause(); err != nil {
		k.m.Log().Warn("Failed to pause keyboard timer", logger.Err(err))
	}
	if k.off {
		return
	}
	if k.setPct(0) {
		k.off = true
	}
}

// activity restores the backlight and restarts the countdown.
func (k *Keyboard) activity() {
	k.stopFade()
	if k.off && k.setPct(k.m.Context().Config.Keyboard.Pct) {
		k.off = false
	}
	k.arm()
}

func (k *Keyboard) setPct(pct float64) bool {
	if err := k.kbd.Set(pct); err != nil {
		k.m.Log().Warn("Failed to set keyboard backlight",
			logger.Field{Key: "pct", Value: pct}, logger.Err(err))
		return false
	}
	st := k.m.Context().State
	if st.KbdPct != pct {
		from := st.KbdPct
		st.KbdPct = pct
		publish(k.m, types.NewKbdPctUpdate(from, pct))
	}
	return true
}

// fadeTo walks the backlight to pct, one step per interval. Every step runs
// on the loop; a newer change of the backlight cancels the rest.
func (k *Keyboard) fadeTo(pct float64) bool {
	k.stopFade()
	from := k.m.Context().State.KbdPct
	post := k.m.Context().Post
	gen := k.fadeGen

	var step func(i int) bool
	step = func(i int) bool {
		if gen != k.fadeGen {
			return false
		}
		level := pct
		if i < kbdFadeSteps {
			level = from + (pct-from)*float64(i)/kbdFadeSteps
		}
		if !k.setPct(level) || i == kbdFadeSteps {
			k.fade = nil
			return i == kbdFadeSteps
		}
		k.fade = time.AfterFunc(kbdFadeInterval, func() {
			post(func() { step(i + 1) })
		})
		return true
	}
	return step(1)
}

func (k *Keyboard) stopFade() {
	k.fadeGen++
	if k.fade != nil {
		k.fade.Stop()
		k.fade = nil
	}
}

// resume carries the elapsed countdown over to a new timeout.
func (k *Keyboard) resume(oldTimeout, newTimeout int) {
	if k.off {
		return
	}
	if err := k.timer.ResumeWithElapsed(oldTimeout, newTimeout); err != nil {
		k.m.Log().Warn("Failed to reprogram keyboard timer", logger.Err(err))
	}
}

func (k *Keyboard) Receive(msg *types.Message) {
	switch p := msg.Payload().(type) {
	case types.ACStateChange:
		k.resume(k.timeouts().For(p.Old), k.timeouts().For(p.New))
	case types.SuspendChange:
		if p.New {
			k.suspend()
		}
	case types.DisplayChange:
		if p.New == types.DisplayOn {
			k.activity()
		} else {
			k.switchOff()
		}
	case types.TimeoutChange:
		k.setTimeout(msg, p)
	case types.BacklightChange:
		k.setBacklight(msg, p)
	case types.SimulateActivity:
		k.activity()
	}
}

func (k *Keyboard) setTimeout(msg *types.Message, p types.TimeoutChange) {
	if !validRequest(k.m, msg) {
		return
	}
	st := k.m.Context().State
	target := resolveState(p.State, st)
	old := k.timeouts().For(target)
	k.timeouts().Set(target, p.New)
	k.m.Log().Info("Timeout changed",
		logger.Field{Key: "state", Value: target.String()},
		logger.Field{Key: "timeout", Value: p.New})
	if target == effectiveState(st) && !k.m.Paused() {
		k.resume(old, p.New)
	}
}

func (k *Keyboard) setBacklight(msg *types.Message, p types.BacklightChange) {
	if !validRequest(k.m, msg) || k.m.Paused() {
		return
	}
	k.stopFade()
	if p.Smooth && p.New != k.m.Context().State.KbdPct {
		if !k.fadeTo(p.New) {
			return
		}
	} else if !k.setPct(p.New) {
		return
	}
	k.off = p.New == 0
	if k.off {
		_ = k.timer.Pause()
	} else {
		k.arm()
	}
}

func (k *Keyboard) suspend() {
	err := k.m.Become(module.Behavior{Name: "suspended", Receive: k.receiveSuspended})
	if err != nil {
		return
	}
	k.m.Pause()
}

// receiveSuspended waits for the resume; timeout requests are still
// recorded so they apply afterwards.
func (k *Keyboard) receiveSuspended(msg *types.Message) {
	switch p := msg.Payload().(type) {
	case types.SuspendChange:
		if !p.New {
			if err := k.m.Unbecome(); err != nil {
				return
			}
			k.m.Resume()
		}
	case types.TimeoutChange:
		k.setTimeout(msg, p)
	}
}

// OnPause stops the countdown while the system sleeps.
func (k *Keyboard) OnPause() {
	k.stopFade()
	if err := k.timer.Pause(); err != nil {
		k.m.Log().Warn("Failed to pause keyboard timer", logger.Err(err))
	}
}

// OnResume treats waking up as activity.
func (k *Keyboard) OnResume() {
	if k.m.Context().State.Display == types.DisplayOn {
		k.activity()
	}
}

func (k *Keyboard) Destroy() {}

var (
	_ module.Definition = (*Keyboard)(nil)
	_ module.Pauser     = (*Keyboard)(nil)
)
