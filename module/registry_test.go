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

package module

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegister(t *testing.T) {
	b, ctx, _ := newTestEnv()
	r := NewRegistry()

	require.NoError(t, r.Register(New(newFakeDef("upower"), b, ctx)))
	require.NoError(t, r.Register(New(newFakeDef("dpms"), b, ctx)))

	err := r.Register(New(newFakeDef("dpms"), b, ctx))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	assert.Equal(t, []string{"upower", "dpms"}, r.List())

	m, ok := r.Get("dpms")
	require.True(t, ok)
	assert.Equal(t, "dpms", m.Name())

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistryStartAllContinuesAfterFailure(t *testing.T) {
	b, ctx, _ := newTestEnv()
	r := NewRegistry()

	broken := newFakeDef("broken")
	broken.initFn = func(*Module) error { return errors.New("no clightd") }
	disabled := newFakeDef("disabled")
	disabled.evaluate = false

	require.NoError(t, r.Register(New(broken, b, ctx)))
	require.NoError(t, r.Register(New(disabled, b, ctx)))
	require.NoError(t, r.Register(New(newFakeDef("ok"), b, ctx)))

	err := r.StartAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no clightd")

	statuses := r.Statuses()
	require.Len(t, statuses, 3)
	assert.Equal(t, "poisoned", statuses[0].State)
	assert.Equal(t, "no clightd", statuses[0].Error)
	assert.Equal(t, "inactive", statuses[1].State)
	assert.Equal(t, "running", statuses[2].State)

	assert.Equal(t, 1, r.CountIn(Running, Paused))
}

func TestRegistryStopAllReverseOrder(t *testing.T) {
	b, ctx, _ := newTestEnv()
	r := NewRegistry()

	var trace []string
	for _, name := range []string{"a", "b", "c"} {
		def := newFakeDef(name)
		def.trace = &trace
		require.NoError(t, r.Register(New(def, b, ctx)))
	}

	require.NoError(t, r.StartAll())
	r.StopAll()
	r.StopAll()

	assert.Equal(t, []string{"destroy:c", "destroy:b", "destroy:a"}, trace)
	assert.Equal(t, 3, r.CountIn(Destroyed))
}
