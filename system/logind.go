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

package system

import (
	"github.com/godbus/dbus/v5"
)

// Logind implements SleepWatcher on systemd-logind.
type Logind struct {
	router *SignalRouter
}

// NewLogind creates a logind watcher.
func NewLogind(router *SignalRouter) *Logind {
	return &Logind{router: router}
}

func (l *Logind) WatchPrepareForSleep(fn func(start bool)) (func(), error) {
	return l.router.Watch(SignalMatch{
		Path:      "/org/freedesktop/login1",
		Interface: "org.freedesktop.login1.Manager",
		Member:    "PrepareForSleep",
	}, func(sig *dbus.Signal) {
		if len(sig.Body) < 1 {
			return
		}
		if start, ok := sig.Body[0].(bool); ok {
			fn(start)
		}
	})
}
