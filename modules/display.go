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

// Display applies ReqDisplay through clightd and owns State.Display.
type Display struct {
	dpms      system.DpmsClient
	backlight system.BacklightClient
	m         *module.Module

	// Backlight level to restore when leaving the dimmed state; negative
	// when the dimmer did not touch the backlight.
	restorePct float64
}

// NewDisplay creates the display module.
func NewDisplay(dpms system.DpmsClient, backlight system.BacklightClient) *Display {
	return &Display{dpms: dpms, backlight: backlight, restorePct: -1}
}

func (d *Display) Name() string { return "display" }

func (d *Display) Check() bool { return d.dpms != nil || d.backlight != nil }

// Evaluate enables the module whenever something may request a display
// change.
func (d *Display) Evaluate(ctx *module.Context) bool {
	return !ctx.Config.Dpms.Disabled || !ctx.Config.Dimmer.Disabled
}

func (d *Display) Init(m *module.Module) error {
	d.m = m
	return subscribe(m, types.TopicReqDisplay)
}

func (d *Display) Receive(msg *types.Message) {
	if msg.Topic() != types.TopicReqDisplay || !validRequest(d.m, msg) {
		return
	}
	p, ok := types.PayloadAs[types.DisplayChange](msg)
	if !ok {
		return
	}

	st := d.m.Context().State
	from, to := st.Display, p.New
	if from == to {
		return
	}

	var applied bool
	switch to {
	case types.DisplayOff:
		applied = d.setDpms(system.DpmsOff)
	case types.DisplayDimmed:
		if from == types.DisplayOff {
			// Dimming a display that is already off would light it up.
			return
		}
		applied = d.dim()
	case types.DisplayOn:
		applied = d.wake(from)
	}
	if !applied {
		return
	}

	st.Display = to
	d.m.Log().Info("Display state changed",
		logger.Field{Key: "from", Value: from.String()},
		logger.Field{Key: "to", Value: to.String()})
	publish(d.m, types.NewDisplayUpdate(from, to))
}

func (d *Display) setDpms(level int) bool {
	if d.dpms == nil {
		return true
	}
	if err := d.dpms.Set(d.m.Context().Config.Dpms.Display, level); err != nil {
		d.m.Log().Warn("Failed to set DPMS level",
			logger.Field{Key: "level", Value: level}, logger.Err(err))
		return false
	}
	return true
}

func (d *Display) dim() bool {
	if d.backlight == nil {
		return true
	}
	cfg := d.m.Context().Config.Dimmer
	cur, err := d.backlight.Get()
	if err != nil {
		d.m.Log().Warn("Failed to read backlight", logger.Err(err))
		return false
	}
	if cur <= cfg.DimmedPct {
		// Already darker than the dimmed level.
		d.restorePct = -1
		return true
	}
	if err := d.backlight.Set(cfg.DimmedPct, !cfg.NoSmooth); err != nil {
		d.m.Log().Warn("Failed to dim backlight", logger.Err(err))
		return false
	}
	d.restorePct = cur
	return true
}

func (d *Display) wake(from types.DisplayState) bool {
	if from == types.DisplayOff && !d.setDpms(system.DpmsOn) {
		return false
	}
	d.restore()
	return true
}

func (d *Display) restore() {
	if d.restorePct < 0 || d.backlight == nil {
		return
	}
	pct := d.restorePct
	d.restorePct = -1
	if err := d.backlight.Set(pct, !d.m.Context().Config.Dimmer.NoSmooth); err != nil {
		d.m.Log().Warn("Failed to restore backlight", logger.Err(err))
	}
}

func (d *Display) Destroy() {
	// Never leave the screen dark behind us.
	if d.m != nil && d.m.Context().State.Display != types.DisplayOn {
		if d.m.Context().State.Display == types.DisplayOff {
			d.setDpms(system.DpmsOn)
		}
		d.restore()
	}
}
