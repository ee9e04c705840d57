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

package system

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// MockTimerClient is a mock implementation of TimerClient for testing.
type MockTimerClient struct {
	mu sync.Mutex

	// State
	Timers []*MockTimerFD

	// Call counters for verification
	CreateCalls int

	// Error injection for testing error paths
	CreateError error
}

// NewMockTimerClient creates a new MockTimerClient.
func NewMockTimerClient() *MockTimerClient {
	return &MockTimerClient{}
}

func (m *MockTimerClient) Create() (TimerFD, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++

	if m.CreateError != nil {
		return nil, m.CreateError
	}

	fd := NewMockTimerFD()
	m.Timers = append(m.Timers, fd)
	return fd, nil
}

// Last returns the most recently created timer.
func (m *MockTimerClient) Last() *MockTimerFD {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Timers) == 0 {
		return nil
	}
	return m.Timers[len(m.Timers)-1]
}

// MockTimerFD is a timerfd with a manually driven clock. Settime records
// the programmed value; Advance moves time forward and fires the countdown
// when it reaches zero.
type MockTimerFD struct {
	mu sync.Mutex

	// State
	Programmed []time.Duration // every value passed to Settime, in order
	remaining  time.Duration
	closed     bool
	fires      chan uint64
	done       chan struct{}

	// Call counters
	SettimeCalls int
	GettimeCalls int
	CloseCalls   int

	// Error injection
	SettimeError error
	GettimeError error
}

// NewMockTimerFD creates a disarmed mock timer.
func NewMockTimerFD() *MockTimerFD {
	return &MockTimerFD{
		fires: make(chan uint64, 16),
		done:  make(chan struct{}),
	}
}

func (m *MockTimerFD) Settime(value *unix.ItimerSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SettimeCalls++

	if m.SettimeError != nil {
		return m.SettimeError
	}
	if m.closed {
		return os.ErrClosed
	}

	d := time.Duration(value.Value.Nano())
	m.Programmed = append(m.Programmed, d)
	m.remaining = d
	return nil
}

func (m *MockTimerFD) Gettime() (unix.ItimerSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GettimeCalls++

	if m.GettimeError != nil {
		return unix.ItimerSpec{}, m.GettimeError
	}
	return unix.ItimerSpec{Value: unix.NsecToTimespec(int64(m.remaining))}, nil
}

func (m *MockTimerFD) Wait() (uint64, error) {
	select {
	case n := <-m.fires:
		return n, nil
	case <-m.done:
		return 0, os.ErrClosed
	}
}

func (m *MockTimerFD) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++

	if m.closed {
		return os.ErrClosed
	}
	m.closed = true
	close(m.done)
	return nil
}

// Advance moves the clock forward by d. If the countdown reaches zero it
// fires once.
func (m *MockTimerFD) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.remaining <= 0 || m.closed {
		return
	}
	if d < m.remaining {
		m.remaining -= d
		return
	}
	m.remaining = 0
	m.fires <- 1
}

// SetRemaining overrides the time left without firing.
func (m *MockTimerFD) SetRemaining(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remaining = d
}

// Remaining returns the time left on the mock clock.
func (m *MockTimerFD) Remaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining
}

// LastProgrammed returns the most recent Settime value.
func (m *MockTimerFD) LastProgrammed() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Programmed) == 0 {
		return 0, false
	}
	return m.Programmed[len(m.Programmed)-1], true
}

// IsClosed reports whether Close was called.
func (m *MockTimerFD) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockFilesystemClient is a mock implementation of FilesystemClient for testing.
type MockFilesystemClient struct {
	mu sync.Mutex

	// State
	Files map[string][]byte

	// Call counters
	ReadFileCalls int
	ReadDirCalls  int

	// Error injection
	ReadFileError error
	ReadDirError  error
}

// NewMockFilesystemClient creates a new MockFilesystemClient.
func NewMockFilesystemClient() *MockFilesystemClient {
	return &MockFilesystemClient{
		Files: make(map[string][]byte),
	}
}

func (m *MockFilesystemClient) ReadFile(filename string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadFileCalls++

	if m.ReadFileError != nil {
		return nil, m.ReadFileError
	}

	data, ok := m.Files[filename]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", filename)
	}
	return data, nil
}

// ReadDir lists the direct children of dirname among the mock files.
func (m *MockFilesystemClient) ReadDir(dirname string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadDirCalls++

	if m.ReadDirError != nil {
		return nil, m.ReadDirError
	}

	prefix := strings.TrimSuffix(dirname, "/") + "/"
	seen := make(map[string]bool)
	for path := range m.Files {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimPrefix(path, prefix), "/")
		seen[name] = true
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("directory not found: %s", dirname)
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// MockIdleService is a mock implementation of IdleService for testing.
type MockIdleService struct {
	Clients      []*MockIdleClient
	AcquireCalls int
	AcquireError error
}

func (m *MockIdleService) Acquire(timeout int, onIdle func(idle bool)) (IdleClient, error) {
	m.AcquireCalls++
	if m.AcquireError != nil {
		return nil, m.AcquireError
	}
	c := &MockIdleClient{onIdle: onIdle}
	if err := c.Start(timeout); err != nil {
		return nil, err
	}
	m.Clients = append(m.Clients, c)
	return c, nil
}

// Last returns the most recently acquired client.
func (m *MockIdleService) Last() *MockIdleClient {
	if len(m.Clients) == 0 {
		return nil
	}
	return m.Clients[len(m.Clients)-1]
}

// MockIdleClient records every call made on an idle client.
type MockIdleClient struct {
	Running   bool
	Destroyed bool
	Timeout   int
	Calls     []string // "start 45", "stop", "reset 45", "destroy"

	onIdle func(bool)
}

func (m *MockIdleClient) Start(timeout int) error {
	if timeout <= 0 {
		return m.Stop()
	}
	m.Calls = append(m.Calls, fmt.Sprintf("start %d", timeout))
	m.Timeout = timeout
	m.Running = true
	return nil
}

func (m *MockIdleClient) Stop() error {
	m.Calls = append(m.Calls, "stop")
	m.Running = false
	return nil
}

func (m *MockIdleClient) Reset(timeout int) error {
	m.Calls = append(m.Calls, fmt.Sprintf("reset %d", timeout))
	m.Timeout = timeout
	return nil
}

func (m *MockIdleClient) Destroy() error {
	if !m.Destroyed {
		m.Calls = append(m.Calls, "destroy")
	}
	m.Destroyed = true
	return nil
}

// Idle simulates the client's Idle signal.
func (m *MockIdleClient) Idle(idle bool) {
	if m.onIdle != nil && !m.Destroyed {
		m.onIdle(idle)
	}
}

// MockDpmsClient is a mock implementation of DpmsClient for testing.
type MockDpmsClient struct {
	Levels     map[string]int
	SetCalls   []int
	SetError   error
	WatchError error
	Cancelled  bool

	onChange func(string, int)
}

func (m *MockDpmsClient) Set(display string, level int) error {
	m.SetCalls = append(m.SetCalls, level)
	if m.SetError != nil {
		return m.SetError
	}
	if m.Levels == nil {
		m.Levels = make(map[string]int)
	}
	m.Levels[display] = level
	return nil
}

func (m *MockDpmsClient) Get(display string) (int, error) {
	return m.Levels[display], nil
}

func (m *MockDpmsClient) Watch(onChange func(display string, level int)) (func(), error) {
	if m.WatchError != nil {
		return nil, m.WatchError
	}
	m.onChange = onChange
	return func() {
		m.Cancelled = true
		m.onChange = nil
	}, nil
}

// Changed simulates a Dpms.Changed signal.
func (m *MockDpmsClient) Changed(display string, level int) {
	if m.onChange != nil {
		m.onChange(display, level)
	}
}

// MockBacklightClient is a mock implementation of BacklightClient for testing.
type MockBacklightClient struct {
	Pct      float64
	SetCalls []float64
	Smooth   []bool
	GetError error
}

func (m *MockBacklightClient) Get() (float64, error) {
	if m.GetError != nil {
		return 0, m.GetError
	}
	return m.Pct, nil
}

func (m *MockBacklightClient) Set(pct float64, smooth bool) error {
	m.SetCalls = append(m.SetCalls, pct)
	m.Smooth = append(m.Smooth, smooth)
	m.Pct = pct
	return nil
}

// MockKbdBacklightClient is a mock implementation of KbdBacklightClient for testing.
type MockKbdBacklightClient struct {
	Pct      float64
	SetCalls []float64
	SetError error
	GetError error
}

func (m *MockKbdBacklightClient) Get() (float64, error) {
	if m.GetError != nil {
		return 0, m.GetError
	}
	return m.Pct, nil
}

func (m *MockKbdBacklightClient) Set(pct float64) error {
	m.SetCalls = append(m.SetCalls, pct)
	if m.SetError != nil {
		return m.SetError
	}
	m.Pct = pct
	return nil
}

// MockPowerSource is a mock implementation of PowerSource for testing.
type MockPowerSource struct {
	Battery    bool
	Error      error
	WatchError error
	Cancelled  bool

	onChange func(bool)
}

func (m *MockPowerSource) OnBattery() (bool, error) {
	return m.Battery, m.Error
}

func (m *MockPowerSource) Watch(onChange func(onBattery bool)) (func(), error) {
	if m.WatchError != nil {
		return nil, m.WatchError
	}
	m.onChange = onChange
	return func() {
		m.Cancelled = true
		m.onChange = nil
	}, nil
}

// Change simulates a power source change signal.
func (m *MockPowerSource) Change(onBattery bool) {
	m.Battery = onBattery
	if m.onChange != nil {
		m.onChange(onBattery)
	}
}

// MockSleepWatcher is a mock implementation of SleepWatcher for testing.
type MockSleepWatcher struct {
	WatchError error
	Cancelled  bool

	fn func(bool)
}

func (m *MockSleepWatcher) WatchPrepareForSleep(fn func(start bool)) (func(), error) {
	if m.WatchError != nil {
		return nil, m.WatchError
	}
	m.fn = fn
	return func() {
		m.Cancelled = true
		m.fn = nil
	}, nil
}

// PrepareForSleep simulates the logind signal.
func (m *MockSleepWatcher) PrepareForSleep(start bool) {
	if m.fn != nil {
		m.fn(start)
	}
}
