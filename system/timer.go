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
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// ErrTimerClosed is returned by operations on a closed timer.
var ErrTimerClosed = errors.New("timer closed")

// Timer is a one-shot countdown bound to a single timerfd. Apart from the
// waiter goroutine started by Watch, a Timer is used only from the
// dispatch loop.
type Timer struct {
	fd        TimerFD
	armed     bool
	closed    bool
	closeOnce sync.Once
}

// NewTimer creates a disarmed timer.
func NewTimer(client TimerClient) (*Timer, error) {
	fd, err := client.Create()
	if err != nil {
		return nil, fmt.Errorf("failed to create timer: %w", err)
	}
	return &Timer{fd: fd}, nil
}

// Arm programs a one-shot countdown. Negative seconds count as zero and
// (0, 0) disarms the timer.
func (t *Timer) Arm(seconds, nanoseconds int) error {
	if t.closed {
		return ErrTimerClosed
	}
	if seconds < 0 {
		seconds = 0
	}
	if nanoseconds < 0 {
		nanoseconds = 0
	}

	d := time.Duration(seconds)*time.Second + time.Duration(nanoseconds)
	spec := unix.ItimerSpec{Value: unix.NsecToTimespec(int64(d))}
	if err := t.fd.Settime(&spec); err != nil {
		return fmt.Errorf("failed to program timer: %w", err)
	}
	t.armed = d > 0
	return nil
}

// Pause disarms the timer. The countdown is lost; callers that want to
// carry elapsed time over use ResumeWithElapsed instead.
func (t *Timer) Pause() error {
	return t.Arm(0, 0)
}

// Armed reports whether a countdown is pending or has fired without the
// fire being handled yet.
func (t *Timer) Armed() bool {
	return t.armed
}

// Remaining returns the time left on the countdown. It is zero when the
// timer is disarmed or has fired.
func (t *Timer) Remaining() (time.Duration, error) {
	if t.closed {
		return 0, ErrTimerClosed
	}
	cur, err := t.fd.Gettime()
	if err != nil {
		return 0, fmt.Errorf("failed to read timer: %w", err)
	}
	return time.Duration(cur.Value.Nano()), nil
}

// ResumeWithElapsed reprograms a countdown that was started for oldTimeout
// seconds so that it fires newTimeout seconds after its original start.
//
//   - a disarmed timer is armed fresh for newTimeout;
//   - a timer that already fired but whose fire is still pending is left
//     alone when newTimeout > 0;
//   - if newTimeout is past the elapsed time the remainder is armed;
//   - otherwise a positive newTimeout fires immediately (1ns) and a
//     non-positive one disarms.
func (t *Timer) ResumeWithElapsed(oldTimeout, newTimeout int) error {
	if !t.armed || oldTimeout <= 0 {
		return t.Arm(newTimeout, 0)
	}

	remaining, err := t.Remaining()
	if err != nil {
		return err
	}
	// Whole seconds, matching the granularity timeouts are configured in.
	remainingSec := int(remaining / time.Second)
	if remaining == 0 && newTimeout > 0 {
		return nil
	}

	elapsed := oldTimeout - remainingSec
	switch {
	case newTimeout > elapsed:
		return t.Arm(newTimeout-elapsed, 0)
	case newTimeout > 0:
		return t.Arm(0, 1)
	default:
		return t.Arm(0, 0)
	}
}

// Watch starts a goroutine that waits for expirations and hands each one to
// post, which must run the closure on the dispatch loop. onFire runs there
// only if the timer is still armed and the countdown really reached zero;
// fires overtaken by a reprogram are dropped. The goroutine exits on Close.
func (t *Timer) Watch(post func(func()), onFire func()) {
	go func() {
		for {
			if _, err := t.fd.Wait(); err != nil {
				return
			}
			post(func() {
				if t.closed || !t.armed {
					return
				}
				if remaining, err := t.Remaining(); err != nil || remaining > 0 {
					return
				}
				t.armed = false
				onFire()
			})
		}
	}()
}

// Close releases the timerfd. It is safe to call more than once.
func (t *Timer) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.closed = true
		t.armed = false
		err = t.fd.Close()
	})
	return err
}
