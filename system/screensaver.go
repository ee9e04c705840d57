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
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	screenSaverName  = "org.freedesktop.ScreenSaver"
	screenSaverIface = "org.freedesktop.ScreenSaver"
)

// Applications use either path.
var screenSaverPaths = []dbus.ObjectPath{"/org/freedesktop/ScreenSaver", "/ScreenSaver"}

// ExportConn is the subset of *dbus.Conn needed to serve an object.
type ExportConn interface {
	Export(v interface{}, path dbus.ObjectPath, iface string) error
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
	ReleaseName(name string) (dbus.ReleaseNameReply, error)
}

// ScreenSaver serves org.freedesktop.ScreenSaver Inhibit/UnInhibit. Calls
// arrive on godbus goroutines; the callbacks run on the dispatch loop.
type ScreenSaver struct {
	post        func(func())
	onInhibit   func(cookie uint32, app, reason string)
	onUnInhibit func(cookie uint32)

	mu      sync.Mutex
	next    uint32
	cookies map[uint32]string
}

// NewScreenSaver creates the exported object.
func NewScreenSaver(post func(func()), onInhibit func(cookie uint32, app, reason string), onUnInhibit func(cookie uint32)) *ScreenSaver {
	return &ScreenSaver{
		post:        post,
		onInhibit:   onInhibit,
		onUnInhibit: onUnInhibit,
		cookies:     make(map[uint32]string),
	}
}

// Inhibit is the D-Bus method. It returns a cookie for UnInhibit.
func (s *ScreenSaver) Inhibit(app, reason string) (uint32, *dbus.Error) {
	s.mu.Lock()
	s.next++
	cookie := s.next
	s.cookies[cookie] = app
	s.mu.Unlock()

	s.post(func() { s.onInhibit(cookie, app, reason) })
	return cookie, nil
}

// UnInhibit is the D-Bus method.
func (s *ScreenSaver) UnInhibit(cookie uint32) *dbus.Error {
	s.mu.Lock()
	_, ok := s.cookies[cookie]
	delete(s.cookies, cookie)
	s.mu.Unlock()

	if !ok {
		return dbus.MakeFailedError(fmt.Errorf("unknown cookie %d", cookie))
	}
	s.post(func() { s.onUnInhibit(cookie) })
	return nil
}

// Active returns the number of outstanding cookies.
func (s *ScreenSaver) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cookies)
}

// Export publishes the object and takes the well-known name. The returned
// function undoes both.
func (s *ScreenSaver) Export(conn ExportConn) (func(), error) {
	for _, path := range screenSaverPaths {
		if err := conn.Export(s, path, screenSaverIface); err != nil {
			return nil, fmt.Errorf("export %s: %w", path, err)
		}
	}

	reply, err := conn.RequestName(screenSaverName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return nil, fmt.Errorf("request name %s: %w", screenSaverName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		for _, path := range screenSaverPaths {
			_ = conn.Export(nil, path, screenSaverIface)
		}
		return nil, errors.New(screenSaverName + " is already owned")
	}

	return func() {
		for _, path := range screenSaverPaths {
			_ = conn.Export(nil, path, screenSaverIface)
		}
		_, _ = conn.ReleaseName(screenSaverName)
	}, nil
}
