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

// Package state manages configuration loading and persistence for Lumo.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	defaultConfigBasePath = "/etc/lumo"

	// maxBackups is how many timestamped copies SaveConfig keeps.
	maxBackups = 5

	backupTimeFormat = "20060102-150405"
)

// GetConfigDir returns the system configuration directory path.
// Checks LUMO_CONFIG_DIR environment variable, falls back to /etc/lumo
func GetConfigDir() string {
	if dir := os.Getenv("LUMO_CONFIG_DIR"); dir != "" {
		return dir
	}
	return defaultConfigBasePath
}

// LoadConfig loads the JSON file at path into config, which must be a
// pointer. Fields missing from the file keep their current values, so
// config is usually pre-filled with defaults.
func LoadConfig(path string, config interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			line, col := getLineCol(data, syntaxErr.Offset)
			return fmt.Errorf("failed to parse config at %s line %d, column %d: %w",
				path, line, col, err)
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fmt.Errorf("failed to parse config %s: %s must be %s, not %s",
				path, typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return nil
}

// getLineCol calculates the line and column number for a byte offset in JSON data
func getLineCol(data []byte, offset int64) (line, col int) {
	line = 1
	col = 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return
}

// SaveConfig writes config to path as indented JSON through a temp file
// and a rename. A file already at path is kept as path.backup.<time>; only
// the newest maxBackups of those survive.
func SaveConfig(path string, config interface{}) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		backupPath := fmt.Sprintf("%s.backup.%s", path, time.Now().Format(backupTimeFormat))
		if err := copyFile(path, backupPath); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
		pruneBackups(path, maxBackups)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Backups lists the backups of path, oldest first.
func Backups(path string) []string {
	matches, err := filepath.Glob(path + ".backup.*")
	if err != nil {
		return nil
	}
	// The timestamp format sorts lexically.
	sort.Strings(matches)
	return matches
}

func pruneBackups(path string, keep int) {
	backups := Backups(path)
	for len(backups) > keep {
		os.Remove(backups[0])
		backups = backups[1:]
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, 0600)
}
