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
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeSignalConn struct {
	mu       sync.Mutex
	added    int
	removed  int
	addErr   error
	ch       chan<- *dbus.Signal
	attached chan struct{}
}

func newFakeSignalConn() *fakeSignalConn {
	return &fakeSignalConn{attached: make(chan struct{})}
}

func (f *fakeSignalConn) AddMatchSignal(options ...dbus.MatchOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added++
	return nil
}

func (f *fakeSignalConn) RemoveMatchSignal(options ...dbus.MatchOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed++
	return nil
}

func (f *fakeSignalConn) Signal(ch chan<- *dbus.Signal) {
	f.mu.Lock()
	f.ch = ch
	f.mu.Unlock()
	close(f.attached)
}

func (f *fakeSignalConn) RemoveSignal(ch chan<- *dbus.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ch = nil
}

func immediate(fn func()) { fn() }

func TestSignalMatch(t *testing.T) {
	sig := &dbus.Signal{
		Path: "/org/clightd/clightd/Dpms",
		Name: "org.clightd.clightd.Dpms.Changed",
	}

	tests := []struct {
		name  string
		match SignalMatch
		want  bool
	}{
		{"everything", SignalMatch{}, true},
		{"exact", SignalMatch{Path: "/org/clightd/clightd/Dpms", Interface: "org.clightd.clightd.Dpms", Member: "Changed"}, true},
		{"member only", SignalMatch{Member: "Changed"}, true},
		{"other path", SignalMatch{Path: "/org/clightd/clightd/Idle"}, false},
		{"parent interface", SignalMatch{Interface: "org.clightd.clightd"}, false},
		{"other member", SignalMatch{Interface: "org.clightd.clightd.Dpms", Member: "Set"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.match.matches(sig))
		})
	}
}

func TestSignalRouterDispatch(t *testing.T) {
	conn := newFakeSignalConn()
	r := NewSignalRouter(conn, immediate, nil)

	var got []string
	cancelA, err := r.Watch(SignalMatch{Member: "Idle"}, func(*dbus.Signal) { got = append(got, "a") })
	require.NoError(t, err)
	_, err = r.Watch(SignalMatch{Member: "Idle"}, func(*dbus.Signal) { got = append(got, "b") })
	require.NoError(t, err)
	_, err = r.Watch(SignalMatch{Member: "Changed"}, func(*dbus.Signal) { got = append(got, "c") })
	require.NoError(t, err)
	assert.Equal(t, 3, conn.added)

	idle := &dbus.Signal{Path: "/c", Name: "org.clightd.clightd.Idle.Client.Idle", Body: []interface{}{true}}
	r.dispatch(idle)
	assert.Equal(t, []string{"a", "b"}, got)

	cancelA()
	cancelA()
	assert.Equal(t, 1, conn.removed)

	got = nil
	r.dispatch(idle)
	assert.Equal(t, []string{"b"}, got)
}

func TestSignalRouterCancelledWhileQueued(t *testing.T) {
	var queued []func()
	r := NewSignalRouter(newFakeSignalConn(), func(fn func()) { queued = append(queued, fn) }, nil)

	calls := 0
	cancel, err := r.Watch(SignalMatch{}, func(*dbus.Signal) { calls++ })
	require.NoError(t, err)

	r.dispatch(&dbus.Signal{Name: "a.b"})
	cancel()
	for _, fn := range queued {
		fn()
	}
	assert.Equal(t, 0, calls)
}

func TestSignalRouterWatchError(t *testing.T) {
	conn := newFakeSignalConn()
	conn.addErr = errors.New("access denied")
	r := NewSignalRouter(conn, immediate, nil)

	_, err := r.Watch(SignalMatch{Member: "Idle"}, func(*dbus.Signal) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestSignalRouterRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	posted := make(chan func(), 1)
	conn := newFakeSignalConn()
	r := NewSignalRouter(conn, func(fn func()) { posted <- fn }, nil)

	var got *dbus.Signal
	_, err := r.Watch(SignalMatch{Member: "PrepareForSleep"}, func(sig *dbus.Signal) { got = sig })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	<-conn.attached
	sig := &dbus.Signal{Name: "org.freedesktop.login1.Manager.PrepareForSleep", Body: []interface{}{true}}
	conn.mu.Lock()
	conn.ch <- sig
	conn.mu.Unlock()

	select {
	case fn := <-posted:
		fn()
	case <-time.After(time.Second):
		t.Fatal("signal was not posted")
	}
	assert.Same(t, sig, got)

	cancel()
	require.NoError(t, <-done)
}

func TestSignalRouterRunChannelClosed(t *testing.T) {
	conn := newFakeSignalConn()
	r := NewSignalRouter(conn, immediate, nil)
	close(r.ch)

	err := r.Run(context.Background())
	assert.Error(t, err)
}
