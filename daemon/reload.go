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
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/we-are-mono/lumo/bus"
	"github.com/we-are-mono/lumo/daemon/logger"
	"github.com/we-are-mono/lumo/state"
	"github.com/we-are-mono/lumo/types"
)

// reloadDebounce coalesces the burst of events an editor or SaveConfig
// produces for a single change.
const reloadDebounce = 250 * time.Millisecond

// watchConfig reloads the configuration whenever its file changes. The
// directory is watched so atomic renames are seen.
func (s *Server) watchConfig(ctx context.Context) error {
	path := filepath.Clean(s.opts.ConfigPath)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Warn("Config watcher unavailable", logger.Err(err))
		return nil
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		s.log.Warn("Not watching config for changes",
			logger.Field{Key: "path", Value: path}, logger.Err(err))
		return nil
	}

	fire := make(chan struct{}, 1)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if debounce == nil {
				debounce = time.AfterFunc(reloadDebounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				debounce.Reset(reloadDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("Config watcher error", logger.Err(err))
		case <-fire:
			s.log.Info("Config file changed", logger.Field{Key: "path", Value: path})
			_ = s.reload(ctx)
		}
	}
}

// reload reads the configuration file again and applies it on the loop.
func (s *Server) reload(ctx context.Context) error {
	next, err := state.LoadLumoConfigFrom(s.configPath())
	if err != nil {
		s.log.Warn("Config reload failed, keeping current configuration", logger.Err(err))
		return err
	}
	return s.loop.Call(ctx, func() { s.applyConfig(next) })
}

type timeoutSetting struct {
	name string
	cur  *types.Timeouts
	next types.Timeouts
	req  func(types.ACState, int) *types.Message
}

// applyConfig moves the live configuration to next. Changed timeouts are
// published as requests so running countdowns carry their elapsed time
// over. Enabling or disabling a module needs a restart.
func (s *Server) applyConfig(next *types.Config) {
	cur := s.mctx.Config

	settings := []timeoutSetting{
		{"dimmer", &cur.Dimmer.Timeouts, next.Dimmer.Timeouts, types.NewDimmerTimeoutRequest},
		{"dpms", &cur.Dpms.Timeouts, next.Dpms.Timeouts, types.NewDpmsTimeoutRequest},
		{"keyboard", &cur.Keyboard.Timeouts, next.Keyboard.Timeouts, types.NewKbdTimeoutRequest},
	}
	for _, set := range settings {
		for _, st := range []types.ACState{types.ACStateOnAC, types.ACStateOnBattery} {
			want := set.next.For(st)
			if set.cur.For(st) == want {
				continue
			}
			s.log.Info("Timeout changed on disk",
				logger.Field{Key: "module", Value: set.name},
				logger.Field{Key: "state", Value: st.String()},
				logger.Field{Key: "timeout", Value: want})
			// On disk any value <= 0 disables the timeout; requests use 0.
			if err := s.bus.Publish(set.req(st, max(want, 0)), bus.Durable); err != nil {
				s.log.Warn("Failed to publish timeout change", logger.Err(err))
			}
			// Modules that are not running never see the request.
			set.cur.Set(st, want)
		}
	}

	if next.Dimmer.Disabled != cur.Dimmer.Disabled ||
		next.Dpms.Disabled != cur.Dpms.Disabled ||
		next.Keyboard.Disabled != cur.Keyboard.Disabled ||
		next.Inhibit.ExportScreenSaver != cur.Inhibit.ExportScreenSaver {
		s.log.Warn("Module selection changed, restart lumo to apply it")
	}

	cur.Dimmer.DimmedPct = next.Dimmer.DimmedPct
	cur.Dimmer.NoSmooth = next.Dimmer.NoSmooth
	cur.Dpms.Display = next.Dpms.Display
	cur.Keyboard.Pct = next.Keyboard.Pct

	if next.Logging.Level != cur.Logging.Level {
		logger.SetLevel(s.opts.Log, next.Logging.Level)
		cur.Logging.Level = next.Logging.Level
	}
}
