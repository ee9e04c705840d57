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
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/we-are-mono/lumo/daemon/logger"
	"github.com/we-are-mono/lumo/modules"
	"github.com/we-are-mono/lumo/system"
	"golang.org/x/sync/errgroup"
)

// Bridge owns the D-Bus connections and the system clients built on them.
type Bridge struct {
	Deps modules.Deps

	system  *dbus.Conn
	session *dbus.Conn
	routers []*system.SignalRouter
	log     logger.Logger
}

// ConnectBridge connects to the system bus (clightd, UPower, logind) and,
// when available, the session bus for the ScreenSaver export. Missing buses
// are logged; the modules that need them then fail their Check.
func ConnectBridge(post func(func()), log logger.Logger) *Bridge {
	b := &Bridge{log: log}
	b.Deps = modules.Deps{
		PowerFallback: system.NewSysfsPowerSupply(system.NewDefaultFilesystemClient(), system.DefaultPowerSupplyDir),
		Timers:        system.NewDefaultTimerClient(),
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		log.Warn("System bus unavailable, clightd features disabled", logger.Err(err))
	} else {
		b.system = conn
		router := system.NewSignalRouter(conn, post, log.With(logger.Component("dbus")))
		b.routers = append(b.routers, router)

		b.Deps.Power = system.NewUPower(conn, router)
		b.Deps.Sleep = system.NewLogind(router)
		if clightdRunning(conn) {
			b.Deps.Idle = system.NewClightdIdle(conn, router)
			b.Deps.Dpms = system.NewClightdDpms(conn, router, os.Getenv("XAUTHORITY"))
			b.Deps.Backlight = system.NewClightdBacklight(conn)
			b.Deps.Kbd = system.NewClightdKbdBacklight(conn)
		} else {
			log.Warn("clightd is not running", logger.Field{Key: "service", Value: system.ClightdService})
		}
	}

	session, err := dbus.ConnectSessionBus()
	if err != nil {
		log.Debug("Session bus unavailable", logger.Err(err))
	} else {
		b.session = session
		b.Deps.ScreenSaver = session
	}
	return b
}

// clightdRunning asks the bus whether clightd owns its name or can be
// activated.
func clightdRunning(conn *dbus.Conn) bool {
	var names []string
	for _, method := range []string{"org.freedesktop.DBus.ListNames", "org.freedesktop.DBus.ListActivatableNames"} {
		if err := conn.BusObject().Call(method, 0).Store(&names); err != nil {
			continue
		}
		for _, name := range names {
			if name == system.ClightdService {
				return true
			}
		}
	}
	return false
}

// Run receives signals on every connection until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range b.routers {
		r := r
		g.Go(func() error {
			if err := r.Run(gctx); err != nil {
				return fmt.Errorf("signal router: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close closes the bus connections.
func (b *Bridge) Close() {
	for _, conn := range []*dbus.Conn{b.system, b.session} {
		if conn == nil {
			continue
		}
		if err := conn.Close(); err != nil {
			b.log.Debug("Failed to close bus connection", logger.Err(err))
		}
	}
}
