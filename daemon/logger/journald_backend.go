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

// Package logger provides structured logging for the Lumo daemon.
package logger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// JournaldBackend writes log entries to the systemd journal through its
// native socket. Structured fields become journal fields.
type JournaldBackend struct {
	identifier string
}

// NewJournaldBackend creates a new journald backend
// Returns an error if systemd journal is not available
func NewJournaldBackend(identifier string) (*JournaldBackend, error) {
	if !journal.Enabled() {
		return nil, fmt.Errorf("systemd journal socket not available")
	}
	return &JournaldBackend{identifier: identifier}, nil
}

func journalPriority(level string) journal.Priority {
	switch level {
	case "debug":
		return journal.PriDebug
	case "warn":
		return journal.PriWarning
	case "error":
		return journal.PriErr
	default:
		return journal.PriInfo
	}
}

// journalField turns a field key into a valid journal field name:
// uppercase letters, digits and underscores, not starting with one.
func journalField(key string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return strings.TrimLeft(sb.String(), "_")
}

// Write writes a log entry to systemd journal
func (b *JournaldBackend) Write(entry *Entry) error {
	vars := map[string]string{
		"SYSLOG_IDENTIFIER": b.identifier,
	}
	if entry.Component != "" {
		vars["LUMO_COMPONENT"] = entry.Component
	}

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	msg := entry.Message
	for _, k := range keys {
		name := journalField(k)
		if name == "" {
			continue
		}
		v := jsonString(entry.Fields[k])
		vars["LUMO_"+name] = v
		msg += " " + k + "=" + v
	}

	if err := journal.Send(msg, journalPriority(entry.Level), vars); err != nil {
		return fmt.Errorf("failed to write to journal: %w", err)
	}
	return nil
}

// Close closes the journald backend
func (b *JournaldBackend) Close() error {
	// Nothing to close for journald
	return nil
}
