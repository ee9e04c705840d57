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

//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/we-are-mono/lumo/client"
	"github.com/we-are-mono/lumo/daemon"
	"github.com/we-are-mono/lumo/daemon/logger"
	"github.com/we-are-mono/lumo/modules"
	"github.com/we-are-mono/lumo/state"
	"github.com/we-are-mono/lumo/system"
	"github.com/we-are-mono/lumo/types"
)

// TestHarness runs an in-process daemon against mock system services and
// talks to it through the client package, the same way the CLI does.
type TestHarness struct {
	t          *testing.T
	configDir  string
	configPath string
	socketPath string
	logs       *logger.BufferBackend

	srv    *daemon.Server
	cancel context.CancelFunc
	errCh  chan error

	Power     *system.MockPowerSource
	Sleep     *system.MockSleepWatcher
	DimIdle   *system.MockIdleService
	DpmsIdle  *system.MockIdleService
	Dpms      *system.MockDpmsClient
	Backlight *system.MockBacklightClient
	Kbd       *system.MockKbdBacklightClient
	Timers    *system.MockTimerClient
}

// NewTestHarness creates an isolated environment: its own config directory
// and socket, selected through the LUMO_* environment.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	configDir := t.TempDir()
	h := &TestHarness{
		t:          t,
		configDir:  configDir,
		configPath: filepath.Join(configDir, state.ConfigFileName),
		socketPath: filepath.Join(configDir, "lumo.sock"),
		logs:       logger.NewBufferBackend(&bytes.Buffer{}, "json"),
		errCh:      make(chan error, 1),
		Power:      &system.MockPowerSource{},
		Sleep:      &system.MockSleepWatcher{},
		DimIdle:    &system.MockIdleService{},
		DpmsIdle:   &system.MockIdleService{},
		Dpms:       &system.MockDpmsClient{},
		Backlight:  &system.MockBacklightClient{Pct: 0.8},
		Kbd:        &system.MockKbdBacklightClient{Pct: 1},
		Timers:     system.NewMockTimerClient(),
	}

	t.Setenv("LUMO_CONFIG_DIR", configDir)
	t.Setenv("LUMO_SOCKET_PATH", h.socketPath)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(configDir, "user"))

	t.Logf("Created test harness: socket=%s", h.socketPath)
	return h
}

// WriteConfig writes the configuration file the daemon loads and watches.
func (h *TestHarness) WriteConfig(content string) {
	h.t.Helper()
	require.NoError(h.t, os.WriteFile(h.configPath, []byte(content), 0644))
}

// StartDaemon loads the configuration like "lumo daemon" does and runs the
// server until Cleanup.
func (h *TestHarness) StartDaemon() {
	h.t.Helper()

	cfg, err := state.LoadLumoConfigFrom(h.configPath)
	require.NoError(h.t, err)

	// Initialize logger infrastructure so logs-subscribe has an emitter
	logger.Init(logger.Config{Level: "debug", Format: "json", Component: "daemon"},
		[]logger.Backend{h.logs}, logger.NewEmitter())

	srv, err := daemon.NewServer(daemon.Options{
		Config:        cfg,
		ConfigPath:    h.configPath,
		Log:           logger.Default(),
		StatsInterval: 20 * time.Millisecond,
	})
	require.NoError(h.t, err)

	// dimmer and dpms each hold their own idle client
	idle := &splitIdle{services: []*system.MockIdleService{h.DimIdle, h.DpmsIdle}}
	require.NoError(h.t, srv.Register(modules.Deps{
		Power:     h.Power,
		Sleep:     h.Sleep,
		Idle:      idle,
		Dpms:      h.Dpms,
		Backlight: h.Backlight,
		Kbd:       h.Kbd,
		Timers:    h.Timers,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	h.srv = srv
	h.cancel = cancel
	go func() { h.errCh <- srv.Run(ctx) }()

	h.WaitForDaemon(5 * time.Second)
}

// WaitForDaemon waits for daemon to be ready to accept connections
func (h *TestHarness) WaitForDaemon(timeout time.Duration) {
	h.t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if status, err := h.Status(); err == nil && status.State.ACState != types.ACStateUnknown {
			h.t.Logf("Daemon is ready")
			return
		}
		time.Sleep(20 * time.Millisecond)
	}

	h.t.Fatal("Daemon did not become ready within timeout")
}

// SendRequest sends a request to the daemon and returns the response
func (h *TestHarness) SendRequest(req daemon.Request) (*daemon.Response, error) {
	return client.Send(req)
}

// MustSucceed sends a request and fails the test unless it succeeds.
func (h *TestHarness) MustSucceed(req daemon.Request) *daemon.Response {
	h.t.Helper()
	resp, err := client.Send(req)
	require.NoError(h.t, err)
	require.True(h.t, resp.Success, "%s failed: %s", req.Command, resp.Error)
	return resp
}

// Status fetches and decodes the daemon status.
func (h *TestHarness) Status() (*daemon.StatusInfo, error) {
	resp, err := client.Send(daemon.Request{Command: "status"})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	var info daemon.StatusInfo
	if err := decode(resp.Data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// OnLoop runs fn on the daemon's dispatch loop and waits for it. Mock
// signals must be raised here, where the real bridge would deliver them.
func (h *TestHarness) OnLoop(fn func()) {
	h.t.Helper()
	done := make(chan struct{})
	h.srv.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		h.t.Fatal("dispatch loop did not run the closure")
	}
}

// StopDaemon cancels the daemon and waits for its shutdown.
func (h *TestHarness) StopDaemon() {
	h.t.Helper()
	if h.cancel == nil {
		return
	}
	h.cancel()
	h.cancel = nil
	select {
	case err := <-h.errCh:
		require.NoError(h.t, err)
	case <-time.After(5 * time.Second):
		h.t.Fatal("daemon did not stop")
	}
}

// Cleanup tears down the test environment
func (h *TestHarness) Cleanup() {
	h.t.Helper()
	h.StopDaemon()
	logger.Shutdown()
	os.Remove(h.socketPath)
	h.t.Logf("Test harness cleanup complete")
}

// Logs returns everything the daemon logged so far.
func (h *TestHarness) Logs() string {
	return h.logs.String()
}

// splitIdle hands each Acquire to the next mock service in turn.
type splitIdle struct {
	services []*system.MockIdleService
	next     int
}

func (s *splitIdle) Acquire(timeout int, onIdle func(idle bool)) (system.IdleClient, error) {
	svc := s.services[s.next%len(s.services)]
	s.next++
	return svc.Acquire(timeout, onIdle)
}

func decode(data interface{}, v interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
