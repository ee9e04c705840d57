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
	"io"

	"github.com/hashicorp/go-hclog"
)

// ConsoleBackend renders entries through hclog, for running the daemon in
// the foreground.
type ConsoleBackend struct {
	log hclog.Logger
}

// NewConsoleBackend creates a console backend writing to w. Filtering is
// done by the Logger, so hclog itself passes everything through.
func NewConsoleBackend(w io.Writer, color bool) *ConsoleBackend {
	opts := &hclog.LoggerOptions{
		Name:   "lumo",
		Output: w,
		Level:  hclog.Trace,
	}
	if color {
		opts.Color = hclog.AutoColor
	}
	return &ConsoleBackend{log: hclog.New(opts)}
}

// Write writes a log entry to the console
func (b *ConsoleBackend) Write(entry *Entry) error {
	l := b.log
	if entry.Component != "" {
		l = l.Named(entry.Component)
	}

	args := make([]interface{}, 0, 2*len(entry.Fields))
	for _, k := range entry.sortedKeys() {
		args = append(args, k, entry.Fields[k])
	}

	switch entry.Level {
	case "debug":
		l.Debug(entry.Message, args...)
	case "warn":
		l.Warn(entry.Message, args...)
	case "error":
		l.Error(entry.Message, args...)
	default:
		l.Info(entry.Message, args...)
	}
	return nil
}

// Close is a no-op for the console backend
func (b *ConsoleBackend) Close() error {
	return nil
}
