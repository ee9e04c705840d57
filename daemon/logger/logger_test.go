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

package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newBufferLogger(level string) (Logger, *BufferBackend) {
	backend := NewBufferBackend(&bytes.Buffer{}, "json")
	return New(Config{Level: level, Component: "test"}, []Backend{backend}, nil), backend
}

func TestLoggerLevelFiltering(t *testing.T) {
	log, backend := newBufferLogger("warn")

	log.Debug("debug message")
	log.Info("info message")
	log.Warn("warn message")
	log.Error("error message")

	entries := backend.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0].Level)
	assert.Equal(t, "error", entries[1].Level)
}

func TestLoggerSetLevelAppliesToChildren(t *testing.T) {
	log, backend := newBufferLogger("error")
	child := log.With(Component("bus"))

	child.Info("dropped")
	SetLevel(log, "debug")
	child.Debug("kept")

	entries := backend.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Message)
}

func TestLoggerWith(t *testing.T) {
	log, backend := newBufferLogger("debug")

	child := log.With(Component("dpms"), Field{Key: "display", Value: "HDMI-1"})
	child.Info("display off", Err(errors.New("boom")))

	entries := backend.Entries()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "dpms", e.Component)
	assert.Equal(t, "HDMI-1", e.Fields["display"])
	assert.Equal(t, "boom", e.Fields["error"])
	assert.NotContains(t, e.Fields, "component")

	// Parent is unchanged.
	log.Info("parent")
	entries = backend.Entries()
	assert.Equal(t, "test", entries[1].Component)
	assert.NotContains(t, entries[1].Fields, "display")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
	assert.Equal(t, "warn", LevelWarn.String())
}

func TestEntryToTextSortsFields(t *testing.T) {
	e := NewEntry("info", "bus", "published", map[string]interface{}{
		"topic": "AcState",
		"depth": 2,
	})
	e.Timestamp = "T"

	assert.Equal(t, "T [info] [bus] published depth=2 topic=AcState", e.ToText())

	line, err := e.Format("text")
	require.NoError(t, err)
	assert.Equal(t, byte('\n'), line[len(line)-1])
}

func TestNopLogger(t *testing.T) {
	log := Nop()
	log.Error("nothing")
	assert.Equal(t, log, log.With(Component("x")))
}

type collectingSubscriber struct {
	mu      sync.Mutex
	entries []*Entry
}

func (c *collectingSubscriber) OnLogEvent(entry *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
	return nil
}

func (c *collectingSubscriber) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func TestEmitterDelivery(t *testing.T) {
	defer goleak.VerifyNone(t)

	emitter := NewEmitter()
	sub := &collectingSubscriber{}
	emitter.Subscribe(sub)
	assert.Equal(t, 1, emitter.Len())

	log := New(Config{Level: "info"}, nil, emitter)
	log.Info("one")
	log.Info("two")

	// Unsubscribe flushes the queue before returning.
	emitter.Unsubscribe(sub)
	assert.Equal(t, 2, sub.count())
	assert.Equal(t, 0, emitter.Len())

	log.Info("three")
	assert.Equal(t, 2, sub.count())
}

type blockingSubscriber struct {
	release chan struct{}
}

func (b *blockingSubscriber) OnLogEvent(*Entry) error {
	<-b.release
	return nil
}

func TestEmitterDropsForSlowSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)

	emitter := NewEmitter()
	sub := &blockingSubscriber{release: make(chan struct{})}
	emitter.Subscribe(sub)

	for i := 0; i < subscriberQueue+50; i++ {
		emitter.Emit(NewEntry("info", "", "x", nil))
	}
	assert.Greater(t, emitter.Dropped(), uint64(0))

	close(sub.release)
	emitter.Unsubscribe(sub)
}

func TestFileBackendRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "lumo.log")
	backend, err := NewFileBackend(path, "text")
	require.NoError(t, err)
	defer backend.Close()
	backend.SetMaxSize(200)

	for i := 0; i < 10; i++ {
		require.NoError(t, backend.Write(NewEntry("info", "test", "a fairly long log message to fill the file", nil)))
	}

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "rotated file should exist")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(200))
}

func TestFileBackendClosed(t *testing.T) {
	backend, err := NewFileBackend(filepath.Join(t.TempDir(), "lumo.log"), "json")
	require.NoError(t, err)
	require.NoError(t, backend.Close())
	require.NoError(t, backend.Close())
	assert.Error(t, backend.Write(NewEntry("info", "", "late", nil)))
}

func TestSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")
	backend, err := NewSQLiteBackend(path, 0)
	require.NoError(t, err)

	log := New(Config{Level: "debug", Component: "daemon"}, []Backend{backend}, nil)
	log.Info("started")
	log.With(Component("dpms")).Warn("idle client lost", Field{Key: "retry", Value: 3})
	log.Error("failed")

	entries, err := backend.Query(QueryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "started", entries[0].Message)
	assert.Equal(t, "failed", entries[2].Message)

	entries, err = backend.Query(QueryFilter{Component: "dpms"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, float64(3), entries[0].Fields["retry"])

	entries, err = backend.Query(QueryFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "idle client lost", entries[0].Message, "limit keeps the newest entries")

	require.NoError(t, backend.Close())

	entries, err = QueryLogs(path, QueryFilter{Level: "ERROR"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "failed", entries[0].Message)
}

func TestQueryLogsMissingDatabase(t *testing.T) {
	_, err := QueryLogs(filepath.Join(t.TempDir(), "none.db"), QueryFilter{})
	assert.Error(t, err)
}

func TestConsoleBackend(t *testing.T) {
	var buf bytes.Buffer
	backend := NewConsoleBackend(&buf, false)

	entry := NewEntry("warn", "keyboard", "backlight failed", map[string]interface{}{"pct": 0.5})
	entry.Timestamp = time.Now().Format(time.RFC3339)
	require.NoError(t, backend.Write(entry))

	out := buf.String()
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "lumo.keyboard")
	assert.Contains(t, out, "backlight failed")
	assert.Contains(t, out, "pct=0.5")
}
