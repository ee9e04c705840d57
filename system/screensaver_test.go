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
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExportConn struct {
	exported map[dbus.ObjectPath]interface{}
	reply    dbus.RequestNameReply
	nameErr  error
	released bool
}

func newFakeExportConn() *fakeExportConn {
	return &fakeExportConn{
		exported: make(map[dbus.ObjectPath]interface{}),
		reply:    dbus.RequestNameReplyPrimaryOwner,
	}
}

func (f *fakeExportConn) Export(v interface{}, path dbus.ObjectPath, iface string) error {
	if v == nil {
		delete(f.exported, path)
		return nil
	}
	f.exported[path] = v
	return nil
}

func (f *fakeExportConn) RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error) {
	return f.reply, f.nameErr
}

func (f *fakeExportConn) ReleaseName(name string) (dbus.ReleaseNameReply, error) {
	f.released = true
	return dbus.ReleaseNameReplyReleased, nil
}

func TestScreenSaverCookies(t *testing.T) {
	var events []string
	ss := NewScreenSaver(immediate,
		func(cookie uint32, app, reason string) { events = append(events, "inhibit "+app) },
		func(cookie uint32) { events = append(events, "uninhibit") })

	c1, derr := ss.Inhibit("firefox", "video")
	require.Nil(t, derr)
	c2, derr := ss.Inhibit("mpv", "video")
	require.Nil(t, derr)
	assert.NotEqual(t, c1, c2)
	assert.Equal(t, 2, ss.Active())

	require.Nil(t, ss.UnInhibit(c1))
	assert.NotNil(t, ss.UnInhibit(c1), "a cookie can be released once")
	assert.Equal(t, 1, ss.Active())

	assert.Equal(t, []string{"inhibit firefox", "inhibit mpv", "uninhibit"}, events)
}

func TestScreenSaverExport(t *testing.T) {
	conn := newFakeExportConn()
	ss := NewScreenSaver(immediate, func(uint32, string, string) {}, func(uint32) {})

	unexport, err := ss.Export(conn)
	require.NoError(t, err)
	assert.Len(t, conn.exported, 2)

	unexport()
	assert.Empty(t, conn.exported)
	assert.True(t, conn.released)
}

func TestScreenSaverExportNameTaken(t *testing.T) {
	conn := newFakeExportConn()
	conn.reply = dbus.RequestNameReplyExists
	ss := NewScreenSaver(immediate, func(uint32, string, string) {}, func(uint32) {})

	_, err := ss.Export(conn)
	require.Error(t, err)
	assert.Empty(t, conn.exported)

	conn.nameErr = errors.New("bus gone")
	_, err = ss.Export(conn)
	assert.Error(t, err)
}
