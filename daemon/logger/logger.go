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
	"os"
	"sync"
	"sync/atomic"
)

// Logger is the interface for structured logging
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger // Create child logger with preset fields
}

// Field represents a structured log field
type Field struct {
	Key   string
	Value interface{}
}

// Err is shorthand for the conventional error field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Component names the subsystem a child logger belongs to.
func Component(name string) Field {
	return Field{Key: "component", Value: name}
}

// Backend is the interface for log output backends
type Backend interface {
	Write(entry *Entry) error
	Close() error
}

// Config holds logger configuration
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // text, json
	Component string // Default component name
}

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a string to a LogLevel. Unknown names map to info.
func ParseLevel(level string) LogLevel {
	switch level {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// String returns the string representation of a LogLevel
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// sink is shared by a root logger and all children derived with With, so a
// level change applies to the whole tree.
type sink struct {
	level    atomic.Int32
	backends []Backend
	emitter  *Emitter
	mu       sync.Mutex // serializes backend writes
}

type standardLogger struct {
	sink      *sink
	component string
	fields    map[string]interface{}
}

// New creates a new logger with the given configuration and backends
func New(config Config, backends []Backend, emitter *Emitter) Logger {
	s := &sink{backends: backends, emitter: emitter}
	s.level.Store(int32(ParseLevel(config.Level)))
	return &standardLogger{
		sink:      s,
		component: config.Component,
		fields:    make(map[string]interface{}),
	}
}

func (l *standardLogger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l *standardLogger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l *standardLogger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l *standardLogger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

// With creates a child logger with preset fields. A "component" field
// replaces the component instead of becoming a field.
func (l *standardLogger) With(fields ...Field) Logger {
	child := &standardLogger{
		sink:      l.sink,
		component: l.component,
		fields:    make(map[string]interface{}, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	for _, f := range fields {
		if s, ok := f.Value.(string); ok && f.Key == "component" {
			child.component = s
			continue
		}
		child.fields[f.Key] = f.Value
	}
	return child
}

func (l *standardLogger) log(level LogLevel, msg string, fields []Field) {
	if int32(level) < l.sink.level.Load() {
		return
	}

	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	entry := NewEntry(level.String(), l.component, msg, merged)

	l.sink.mu.Lock()
	for _, backend := range l.sink.backends {
		if err := backend.Write(entry); err != nil {
			fmt.Fprintf(os.Stderr, "Logger backend error: %v\n", err)
		}
	}
	l.sink.mu.Unlock()

	if l.sink.emitter != nil {
		l.sink.emitter.Emit(entry)
	}
}

// SetLevel changes the minimum level of l and every logger sharing its
// backends. Loggers not created by New are left alone.
func SetLevel(l Logger, level string) {
	if sl, ok := l.(*standardLogger); ok {
		sl.sink.level.Store(int32(ParseLevel(level)))
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (n nopLogger) With(...Field) Logger { return n }

// Nop returns a logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

var (
	std           Logger = nopLogger{}
	globalEmitter *Emitter
	backendsMu    sync.Mutex
	globalBackend []Backend
)

// Init initializes the global logger
func Init(config Config, backends []Backend, emitter *Emitter) {
	backendsMu.Lock()
	globalBackend = backends
	backendsMu.Unlock()
	globalEmitter = emitter
	std = New(config, backends, emitter)
}

// Default returns the global logger. Before Init it discards everything.
func Default() Logger {
	return std
}

// Shutdown closes the global backends.
func Shutdown() {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	for _, b := range globalBackend {
		_ = b.Close()
	}
	globalBackend = nil
}

// GetEmitter returns the global emitter for live log subscriptions
func GetEmitter() *Emitter {
	return globalEmitter
}

// Debug logs a debug message using the global logger
func Debug(msg string, fields ...Field) {
	std.Debug(msg, fields...)
}

// Info logs an info message using the global logger
func Info(msg string, fields ...Field) {
	std.Info(msg, fields...)
}

// Warn logs a warning message using the global logger
func Warn(msg string, fields ...Field) {
	std.Warn(msg, fields...)
}

// Error logs an error message using the global logger
func Error(msg string, fields ...Field) {
	std.Error(msg, fields...)
}
