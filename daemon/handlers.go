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

package daemon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/we-are-mono/lumo/bus"
	"github.com/we-are-mono/lumo/module"
	"github.com/we-are-mono/lumo/state"
	"github.com/we-are-mono/lumo/types"
	"github.com/we-are-mono/lumo/validation"
)

func errorResponse(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

// publish validates a request and publishes it, durably, on the loop.
func (s *Server) publish(ctx context.Context, msg *types.Message) Response {
	if err := validation.ValidateRequest(msg); err != nil {
		return errorResponse(err)
	}

	var pubErr error
	if err := s.loop.Call(ctx, func() { pubErr = s.bus.Publish(msg, bus.Durable) }); err != nil {
		return errorResponse(err)
	}
	if pubErr != nil {
		return errorResponse(pubErr)
	}
	return Response{Success: true, Message: fmt.Sprintf("%s published", msg.Topic())}
}

func parseOnOff(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid value %q (expected on or off)", value)
}

func (s *Server) handleStatus(ctx context.Context, req Request) Response {
	var info StatusInfo
	err := s.loop.Call(ctx, func() {
		info = StatusInfo{
			State:      s.mctx.State.Snapshot(),
			Modules:    s.registry.Statuses(),
			Config:     s.mctx.Config.Clone(),
			ConfigPath: s.configPath(),
			Uptime:     time.Since(s.started).Round(time.Second).String(),
		}
	})
	if err != nil {
		return errorResponse(err)
	}
	return Response{Success: true, Data: info}
}

func (s *Server) handleInhibit(ctx context.Context, req Request) Response {
	on, err := parseOnOff(req.Value)
	if err != nil {
		return errorResponse(err)
	}
	return s.publish(ctx, types.NewInhibitRequest(on, req.Force))
}

func (s *Server) handleSuspend(ctx context.Context, req Request) Response {
	on, err := parseOnOff(req.Value)
	if err != nil {
		return errorResponse(err)
	}
	return s.publish(ctx, types.NewSuspendRequest(on, req.Force))
}

func (s *Server) handleACState(ctx context.Context, req Request) Response {
	st, err := types.ParseACState(req.Value)
	if err != nil {
		return errorResponse(err)
	}
	return s.publish(ctx, types.NewACStateRequest(st))
}

func (s *Server) handleTimeout(ctx context.Context, req Request) Response {
	st, err := types.ParseACState(req.State)
	if err != nil {
		return errorResponse(err)
	}

	switch req.Target {
	case "dimmer":
		return s.publish(ctx, types.NewDimmerTimeoutRequest(st, req.Seconds))
	case "dpms":
		return s.publish(ctx, types.NewDpmsTimeoutRequest(st, req.Seconds))
	case "keyboard", "kbd":
		return s.publish(ctx, types.NewKbdTimeoutRequest(st, req.Seconds))
	}
	return errorResponse(fmt.Errorf("unknown timeout target %q (expected dimmer, dpms or keyboard)", req.Target))
}

func (s *Server) handleSimulate(ctx context.Context, req Request) Response {
	return s.publish(ctx, types.NewSimulateRequest())
}

func (s *Server) handleDisplay(ctx context.Context, req Request) Response {
	to, err := types.ParseDisplayState(req.Value)
	if err != nil {
		return errorResponse(err)
	}
	return s.publish(ctx, types.NewDisplayRequest(to))
}

func (s *Server) handleKbd(ctx context.Context, req Request) Response {
	return s.publish(ctx, types.NewKbdBacklightRequest(req.Pct, req.Smooth))
}

func (s *Server) handleStats(ctx context.Context, req Request) Response {
	var info StatsInfo
	err := s.loop.Call(ctx, func() {
		info = StatsInfo{
			Bus:      s.bus.Stats(),
			Rate:     s.history.Values(),
			Interval: s.opts.StatsInterval.String(),
			Queue:    s.loop.Pending(),
		}
	})
	if err != nil {
		return errorResponse(err)
	}
	return Response{Success: true, Data: info}
}

// handleStore writes the live configuration, including timeouts changed at
// runtime, back to disk.
func (s *Server) handleStore(ctx context.Context, req Request) Response {
	var cfg *types.Config
	if err := s.loop.Call(ctx, func() { cfg = s.mctx.Config.Clone() }); err != nil {
		return errorResponse(err)
	}

	path := s.configPath()
	if err := state.SaveLumoConfig(path, cfg); err != nil {
		return errorResponse(err)
	}
	return Response{Success: true, Message: fmt.Sprintf("configuration stored in %s", path)}
}

func (s *Server) handleReload(ctx context.Context, req Request) Response {
	if err := s.reload(ctx); err != nil {
		return errorResponse(err)
	}
	return Response{Success: true, Message: "configuration reloaded"}
}

func (s *Server) configPath() string {
	if s.opts.ConfigPath != "" {
		return s.opts.ConfigPath
	}
	return state.SystemConfigPath()
}

// Statuses returns the module statuses. Tests and diagnostics only.
func (s *Server) Statuses(ctx context.Context) ([]module.Status, error) {
	var out []module.Status
	err := s.loop.Call(ctx, func() { out = s.registry.Statuses() })
	return out, err
}
