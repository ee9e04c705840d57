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

// Dpms switches the display off after the DPMS idle timeout and back on at
// the first activity. It also follows Dpms.Changed for the configured
// display, so power changes made outside lumo are reflected in
// DisplayState.
type Dpms struct {
	idleModule
	dpms   system.DpmsClient
	cancel func()
}

// NewDpms creates the DPMS module.
func NewDpms(service system.IdleService, dpms system.DpmsClient) *Dpms {
	d := &Dpms{dpms: dpms}
	d.idleModule = idleModule{
		name:         "dpms",
		timeoutTopic: types.TopicReqDpmsTimeout,
		timeouts:     func(cfg *types.Config) *types.Timeouts { return &cfg.Dpms.Timeouts },
		enabled:      func(cfg *types.Config) bool { return !cfg.Dpms.Disabled },
		service:      service,
		onIdle:       d.idleChanged,
		onAcquired:   d.watchChanged,
	}
	return d
}

func (d *Dpms) idleChanged(idle bool) {
	if idle {
		requestDisplay(d.m, types.DisplayOff)
	} else {
		requestDisplay(d.m, types.DisplayOn)
	}
}

func (d *Dpms) watchChanged() {
	if d.dpms == nil {
		return
	}
	cancel, err := d.dpms.Watch(d.onChanged)
	if err != nil {
		d.m.Log().Warn("Dpms.Changed will not be tracked", logger.Err(err))
		return
	}
	d.cancel = cancel
}

func (d *Dpms) onChanged(display string, level int) {
	if d.m.State().Terminal() {
		return
	}
	if want := d.m.Context().Config.Dpms.Display; want != "" && display != want {
		return
	}
	d.idleChanged(level > system.DpmsOn)
}

func (d *Dpms) Destroy() {
	if d.cancel != nil {
		d.cancel()
	}
	d.idleModule.Destroy()
}

// Dimmer dims the display after the dimmer idle timeout and restores it at
// the first activity.
type Dimmer struct {
	idleModule
}

// NewDimmer creates the dimmer module.
func NewDimmer(service system.IdleService) *Dimmer {
	d := &Dimmer{}
	d.idleModule = idleModule{
		name:         "dimmer",
		timeoutTopic: types.TopicReqDimmerTimeout,
		timeouts:     func(cfg *types.Config) *types.Timeouts { return &cfg.Dimmer.Timeouts },
		enabled:      func(cfg *types.Config) bool { return !cfg.Dimmer.Disabled },
		service:      service,
		onIdle:       d.idleChanged,
	}
	return d
}

func (d *Dimmer) idleChanged(idle bool) {
	if idle {
		requestDisplay(d.m, types.DisplayDimmed)
	} else {
		requestDisplay(d.m, types.DisplayOn)
	}
}

var (
	_ module.Definition = (*Dpms)(nil)
	_ module.Pauser     = (*Dpms)(nil)
	_ module.Definition = (*Dimmer)(nil)
	_ module.Pauser     = (*Dimmer)(nil)
)
