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

// Package daemon implements the Lumo daemon: the dispatch loop, the module
// wiring and the control socket protocol.
package daemon

import (
	"github.com/we-are-mono/lumo/bus"
	"github.com/we-are-mono/lumo/module"
	"github.com/we-are-mono/lumo/types"
)

// LogFilter defines filtering criteria for log streaming
type LogFilter struct {
	Level     string `json:"level,omitempty"`     // Filter by log level (debug, info, warn, error)
	Component string `json:"component,omitempty"` // Filter by component name
}

// Request represents a command sent to the daemon
type Request struct {
	Command   string     `json:"command"`          // status, inhibit, suspend, acstate, timeout, simulate, display, kbd, stats, store, reload, logs-subscribe
	Target    string     `json:"target,omitempty"` // timeout: dimmer, dpms or keyboard
	Value     string     `json:"value,omitempty"`  // on/off, ac/battery, on/dim/off
	State     string     `json:"state,omitempty"`  // power source a timeout applies to; empty means current
	Seconds   int        `json:"seconds,omitempty"`
	Pct       float64    `json:"pct,omitempty"`
	Force     bool       `json:"force,omitempty"`
	Smooth    bool       `json:"smooth,omitempty"`
	LogFilter *LogFilter `json:"log_filter,omitempty"` // Log filter for logs-subscribe command
}

// Response represents the daemon's response
type Response struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Success bool        `json:"success"`
}

// StatusInfo is the payload of a status response.
type StatusInfo struct {
	State      types.State     `json:"state"`
	Modules    []module.Status `json:"modules"`
	Config     *types.Config   `json:"config"`
	ConfigPath string          `json:"config_path"`
	Uptime     string          `json:"uptime"`
}

// StatsInfo is the payload of a stats response.
type StatsInfo struct {
	Bus      bus.Stats `json:"bus"`
	Rate     []float64 `json:"rate"`     // messages per second, oldest first
	Interval string    `json:"interval"` // time between rate samples
	Queue    int       `json:"queue"`    // closures waiting on the dispatch loop
}
