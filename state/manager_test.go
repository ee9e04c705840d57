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

package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/we-are-mono/lumo/types"
)

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumo.json")
	writeFile(t, path, `{"dpms": {"timeouts": {"battery": 120}, "display": ":1"}}`)

	cfg := types.DefaultConfig()
	require.NoError(t, LoadConfig(path, cfg))

	assert.Equal(t, 120, cfg.Dpms.Timeouts.OnBattery)
	assert.Equal(t, 900, cfg.Dpms.Timeouts.OnAC, "fields missing from the file keep their value")
	assert.Equal(t, ":1", cfg.Dpms.Display)
	assert.Equal(t, 45, cfg.Dimmer.Timeouts.OnAC)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		data     string // empty means the file does not exist
		contains []string
	}{
		{
			name:     "missing file",
			contains: []string{"failed to read config"},
		},
		{
			name:     "trailing comma",
			data:     `{"dimmer": {"disabled": true},}`,
			contains: []string{"failed to parse config", "line 1"},
		},
		{
			name:     "syntax error position",
			data:     "{\n  \"dimmer\": {\n    \"dimmed_pct\":\n  }\n}",
			contains: []string{"line 4", "column"},
		},
		{
			name:     "wrong type",
			data:     `{"keyboard": {"timeouts": {"ac": "fifteen"}}}`,
			contains: []string{"keyboard.timeouts.ac must be int", "not string"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "lumo.json")
			if tt.data != "" {
				writeFile(t, path, tt.data)
			}

			err := LoadConfig(path, types.DefaultConfig())
			require.Error(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, err.Error(), want)
			}
			if tt.data == "" {
				assert.ErrorIs(t, err, os.ErrNotExist)
			}
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "lumo", "lumo.json")

	cfg := types.DefaultConfig()
	cfg.Keyboard.Disabled = true
	cfg.Logging.Outputs = []string{"journald", "sqlite"}
	require.NoError(t, SaveConfig(path, cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := &types.Config{}
	require.NoError(t, LoadConfig(path, loaded))
	assert.Equal(t, cfg, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".tmp")
	}
}

func TestSaveConfigBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lumo.json")

	cfg := types.DefaultConfig()
	require.NoError(t, SaveConfig(path, cfg))
	assert.Empty(t, Backups(path), "first save has nothing to back up")

	cfg.Dimmer.Timeouts.OnAC = 30
	require.NoError(t, SaveConfig(path, cfg))

	backups := Backups(path)
	require.Len(t, backups, 1)
	previous := &types.Config{}
	require.NoError(t, LoadConfig(backups[0], previous))
	assert.Equal(t, 45, previous.Dimmer.Timeouts.OnAC)

	current := &types.Config{}
	require.NoError(t, LoadConfig(path, current))
	assert.Equal(t, 30, current.Dimmer.Timeouts.OnAC)
}

func TestPruneBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lumo.json")
	stamps := []string{"20250101-000000", "20250102-000000", "20250103-000000", "20250104-000000"}
	for _, s := range stamps {
		writeFile(t, path+".backup."+s, "{}")
	}

	pruneBackups(path, 2)

	assert.Equal(t, []string{
		path + ".backup.20250103-000000",
		path + ".backup.20250104-000000",
	}, Backups(path))
}

func TestSaveConfigInvalidData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumo.json")

	err := SaveConfig(path, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to marshal")
	assert.NoFileExists(t, path)
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("LUMO_CONFIG_DIR", "")
	assert.Equal(t, "/etc/lumo", GetConfigDir())

	t.Setenv("LUMO_CONFIG_DIR", "/tmp/custom-lumo-config")
	assert.Equal(t, "/tmp/custom-lumo-config", GetConfigDir())
}

func TestGetLineCol(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		offset   int64
		wantLine int
		wantCol  int
	}{
		{name: "first character", data: "{}", offset: 0, wantLine: 1, wantCol: 1},
		{name: "middle of first line", data: `{"dpms": {}}`, offset: 9, wantLine: 1, wantCol: 10},
		{name: "after newline", data: "{\n}", offset: 2, wantLine: 2, wantCol: 1},
		{name: "offset past end", data: "{}", offset: 10, wantLine: 1, wantCol: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, col := getLineCol([]byte(tt.data), tt.offset)
			assert.Equal(t, tt.wantLine, line, "line number mismatch")
			assert.Equal(t, tt.wantCol, col, "column number mismatch")
		})
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "lumo.json")
	writeFile(t, src, `{"version": "1"}`)

	dst := filepath.Join(dir, "copy.json")
	require.NoError(t, copyFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, `{"version": "1"}`, string(data))

	assert.Error(t, copyFile(filepath.Join(dir, "missing.json"), dst))
}
