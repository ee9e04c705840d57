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
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/we-are-mono/lumo/types"
	"github.com/we-are-mono/lumo/validation"
)

const (
	// ConfigFileName is the name of the configuration file in every
	// searched directory.
	ConfigFileName = "lumo.json"

	// EnvPrefix prefixes every environment override, e.g. LUMO_DPMS_DISABLED.
	EnvPrefix = "LUMO_"
)

// SystemConfigPath returns the path of the system-wide lumo.json.
func SystemConfigPath() string {
	return filepath.Join(GetConfigDir(), ConfigFileName)
}

// ConfigPath returns the file LoadLumoConfig reads: a per-user
// $XDG_CONFIG_HOME/lumo/lumo.json when present, the system file otherwise.
func ConfigPath() string {
	if path, err := xdg.SearchConfigFile(filepath.Join("lumo", ConfigFileName)); err == nil {
		return path
	}
	return SystemConfigPath()
}

// LoadLumoConfig loads and validates the configuration. A missing file
// yields the defaults; environment overrides are applied on top either way.
// The returned path is the file that was (or would have been) read.
func LoadLumoConfig() (*types.Config, string, error) {
	path := ConfigPath()
	cfg, err := LoadLumoConfigFrom(path)
	return cfg, path, err
}

// LoadLumoConfigFrom is LoadLumoConfig for an explicit file.
func LoadLumoConfigFrom(path string) (*types.Config, error) {
	config := types.DefaultConfig()

	err := LoadConfig(path, config)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load lumo config: %w", err)
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := validation.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid lumo config %s: %w", path, err)
	}

	return config, nil
}

// SaveLumoConfig stores config at path.
func SaveLumoConfig(path string, config *types.Config) error {
	if err := validation.ValidateConfig(config); err != nil {
		return fmt.Errorf("refusing to store invalid config: %w", err)
	}
	return SaveConfig(path, config)
}
