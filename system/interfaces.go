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

// Package system provides low-level system integration: timerfd countdowns,
// power supply inspection and the D-Bus bridge to clightd, UPower, logind
// and the session screensaver interface.
package system

import (
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// TimerClient abstracts timerfd creation for testability.
type TimerClient interface {
	Create() (TimerFD, error)
}

// TimerFD is one kernel countdown resource.
type TimerFD interface {
	// Settime programs the countdown. A zero value disarms it.
	Settime(value *unix.ItimerSpec) error
	// Gettime reads the time left until the next expiration.
	Gettime() (unix.ItimerSpec, error)
	// Wait blocks until the countdown expires and returns the number of
	// expirations since the last read. It fails once the fd is closed.
	Wait() (uint64, error)
	Close() error
}

// FilesystemClient abstracts filesystem reads for testability.
type FilesystemClient interface {
	// ReadFile reads the entire file content
	ReadFile(filename string) ([]byte, error)
	// ReadDir lists entry names of a directory
	ReadDir(dirname string) ([]string, error)
}

// DefaultTimerClient implements TimerClient with CLOCK_BOOTTIME timerfds, so
// countdowns keep running across system suspend.
type DefaultTimerClient struct{}

// NewDefaultTimerClient creates a new DefaultTimerClient.
func NewDefaultTimerClient() *DefaultTimerClient {
	return &DefaultTimerClient{}
}

func (c *DefaultTimerClient) Create() (TimerFD, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_BOOTTIME, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("timerfd_create: %w", err)
	}
	// A non-blocking fd lets the runtime poller park Wait, and Close wakes it.
	return &timerFile{fd: fd, file: os.NewFile(uintptr(fd), "timerfd")}, nil
}

type timerFile struct {
	fd   int
	file *os.File
}

func (t *timerFile) Settime(value *unix.ItimerSpec) error {
	return unix.TimerfdSettime(t.fd, 0, value, nil)
}

func (t *timerFile) Gettime() (unix.ItimerSpec, error) {
	var cur unix.ItimerSpec
	err := unix.TimerfdGettime(t.fd, &cur)
	return cur, err
}

func (t *timerFile) Wait() (uint64, error) {
	buf := make([]byte, 8)
	if _, err := t.file.Read(buf); err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint64(buf), nil
}

func (t *timerFile) Close() error {
	return t.file.Close()
}

// DefaultFilesystemClient implements FilesystemClient using real filesystem operations.
type DefaultFilesystemClient struct{}

// NewDefaultFilesystemClient creates a new DefaultFilesystemClient.
func NewDefaultFilesystemClient() *DefaultFilesystemClient {
	return &DefaultFilesystemClient{}
}

func (c *DefaultFilesystemClient) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

func (c *DefaultFilesystemClient) ReadDir(dirname string) ([]string, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// IdleService hands out clightd idle clients. onIdle runs on the dispatch
// loop each time the client reports an idle transition.
type IdleService interface {
	Acquire(timeout int, onIdle func(idle bool)) (IdleClient, error)
}

// IdleClient is one clightd idle client.
type IdleClient interface {
	// Start programs the timeout and starts the client if it is not
	// running. A timeout <= 0 stops it instead.
	Start(timeout int) error
	Stop() error
	// Reset restarts the countdown as if the user had been active.
	Reset(timeout int) error
	// Destroy releases the client on the clightd side. Safe to call twice.
	Destroy() error
}

// DpmsClient drives display power through clightd.
type DpmsClient interface {
	Set(display string, level int) error
	Get(display string) (int, error)
	// Watch reports Dpms.Changed signals on the dispatch loop.
	Watch(onChange func(display string, level int)) (cancel func(), err error)
}

// BacklightClient reads and sets the screen backlight in [0, 1].
type BacklightClient interface {
	Get() (float64, error)
	Set(pct float64, smooth bool) error
}

// KbdBacklightClient reads and sets the keyboard backlight in [0, 1].
type KbdBacklightClient interface {
	Get() (float64, error)
	Set(pct float64) error
}

// PowerSource reports whether the machine runs on battery.
type PowerSource interface {
	OnBattery() (bool, error)
	// Watch reports power source changes on the dispatch loop.
	Watch(onChange func(onBattery bool)) (cancel func(), err error)
}

// SleepWatcher reports system suspend and resume.
type SleepWatcher interface {
	// WatchPrepareForSleep calls fn with true before suspend and false
	// after resume, on the dispatch loop.
	WatchPrepareForSleep(fn func(start bool)) (cancel func(), err error)
}
