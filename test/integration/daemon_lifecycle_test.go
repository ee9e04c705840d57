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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/we-are-mono/lumo/daemon"
	"github.com/we-are-mono/lumo/types"
)

// TestDaemonStartStop tests basic daemon lifecycle
func TestDaemonStartStop(t *testing.T) {
	harness := NewTestHarness(t)
	defer harness.Cleanup()

	harness.StartDaemon()

	resp, err := harness.SendRequest(daemon.Request{Command: "status"})
	require.NoError(t, err, "status request should succeed")
	assert.True(t, resp.Success, "status should return success")

	harness.StopDaemon()

	// Daemon should no longer respond
	_, err = harness.SendRequest(daemon.Request{Command: "status"})
	assert.Error(t, err, "daemon should not respond after shutdown")
	_, err = os.Stat(harness.socketPath)
	assert.True(t, os.IsNotExist(err), "socket should be removed on shutdown")

	// Every idle client is released on the way out
	assert.True(t, harness.DimIdle.Last().Destroyed)
	assert.True(t, harness.DpmsIdle.Last().Destroyed)
}

// TestDaemonStatus tests the status command
func TestDaemonStatus(t *testing.T) {
	harness := NewTestHarness(t)
	defer harness.Cleanup()

	harness.StartDaemon()

	status, err := harness.Status()
	require.NoError(t, err)

	assert.Equal(t, types.ACStateOnAC, status.State.ACState)
	assert.Equal(t, types.DisplayOn, status.State.Display)
	assert.Equal(t, harness.configPath, status.ConfigPath)
	require.NotNil(t, status.Config)
	assert.Equal(t, 45, status.Config.Dimmer.Timeouts.OnAC)

	names := make([]string, 0, len(status.Modules))
	for _, m := range status.Modules {
		names = append(names, m.Name)
		assert.Equal(t, "running", m.State, "module %s", m.Name)
	}
	assert.Equal(t, []string{"upower", "inhibit", "suspend", "display", "keyboard", "dimmer", "dpms"}, names)
}

// TestDaemonMultipleClients tests concurrent client connections
func TestDaemonMultipleClients(t *testing.T) {
	harness := NewTestHarness(t)
	defer harness.Cleanup()

	harness.StartDaemon()

	const numClients = 10
	results := make(chan error, numClients)

	for i := 0; i < numClients; i++ {
		go func() {
			resp, err := harness.SendRequest(daemon.Request{Command: "simulate"})
			if err != nil {
				results <- err
				return
			}
			if !resp.Success {
				results <- assert.AnError
				return
			}
			results <- nil
		}()
	}

	for i := 0; i < numClients; i++ {
		err := <-results
		assert.NoError(t, err, "concurrent request should succeed")
	}

	// Each simulated activity resets both idle clients
	harness.OnLoop(func() {
		assert.Len(t, harness.DimIdle.Last().Calls, 1+numClients)
		assert.Len(t, harness.DpmsIdle.Last().Calls, 1+numClients)
	})
}

// TestDaemonDisabledModules tests that disabled modules never start
func TestDaemonDisabledModules(t *testing.T) {
	harness := NewTestHarness(t)
	defer harness.Cleanup()

	harness.WriteConfig(`{"dpms": {"disabled": true}, "keyboard": {"disabled": true}}`)
	harness.StartDaemon()

	status, err := harness.Status()
	require.NoError(t, err)

	states := make(map[string]string)
	for _, m := range status.Modules {
		states[m.Name] = m.State
	}
	assert.Equal(t, "running", states["dimmer"])
	assert.Equal(t, "inactive", states["dpms"])
	assert.Equal(t, "inactive", states["keyboard"])
	harness.OnLoop(func() { assert.Empty(t, harness.DpmsIdle.Clients) })
}
