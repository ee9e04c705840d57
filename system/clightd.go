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

	"github.com/godbus/dbus/v5"
)

// clightd object layout on the system bus.
const (
	ClightdService = "org.clightd.clightd"

	clightdIdlePath        = "/org/clightd/clightd/Idle"
	clightdIdleInterface   = "org.clightd.clightd.Idle"
	clightdClientInterface = "org.clightd.clightd.Idle.Client"

	clightdDpmsPath      = "/org/clightd/clightd/Dpms"
	clightdDpmsInterface = "org.clightd.clightd.Dpms"

	clightdBacklightPath      = "/org/clightd/clightd/Backlight2"
	clightdBacklightInterface = "org.clightd.clightd.Backlight2"

	clightdKbdPath      = "/org/clightd/clightd/KbdBacklight"
	clightdKbdInterface = "org.clightd.clightd.KbdBacklight"
)

// DPMS levels understood by clightd.
const (
	DpmsOn      = 0
	DpmsStandby = 1
	DpmsSuspend = 2
	DpmsOff     = 3
)

// Smooth backlight transitions move in steps of this size every
// backlightStepMillis.
const (
	backlightStep       = 0.05
	backlightStepMillis = 30
)

// ObjectConn is the subset of *dbus.Conn used to reach remote objects.
type ObjectConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
}

// ClightdIdle implements IdleService on top of clightd's Idle interface.
type ClightdIdle struct {
	conn   ObjectConn
	router *SignalRouter
}

// NewClightdIdle creates an idle service client.
func NewClightdIdle(conn ObjectConn, router *SignalRouter) *ClightdIdle {
	return &ClightdIdle{conn: conn, router: router}
}

// Acquire asks clightd for a new idle client, listens to its Idle signal and
// starts it with timeout.
func (c *ClightdIdle) Acquire(timeout int, onIdle func(idle bool)) (IdleClient, error) {
	var path dbus.ObjectPath
	call := c.conn.Object(ClightdService, clightdIdlePath).Call(clightdIdleInterface+".GetClient", 0)
	if err := call.Store(&path); err != nil {
		return nil, fmt.Errorf("get idle client: %w", err)
	}

	client := &clightdIdleClient{
		service: c.conn.Object(ClightdService, clightdIdlePath),
		obj:     c.conn.Object(ClightdService, path),
		path:    path,
	}

	cancel, err := c.router.Watch(SignalMatch{
		Path:      path,
		Interface: clightdClientInterface,
		Member:    "Idle",
	}, func(sig *dbus.Signal) {
		if len(sig.Body) < 1 {
			return
		}
		if idle, ok := sig.Body[0].(bool); ok {
			onIdle(idle)
		}
	})
	if err != nil {
		_ = client.Destroy()
		return nil, err
	}
	client.cancel = cancel

	if err := client.Start(timeout); err != nil {
		_ = client.Destroy()
		return nil, err
	}
	return client, nil
}

type clightdIdleClient struct {
	service   dbus.BusObject
	obj       dbus.BusObject
	path      dbus.ObjectPath
	cancel    func()
	running   bool
	destroyed bool
}

var errClientDestroyed = errors.New("idle client destroyed")

func (c *clightdIdleClient) setTimeout(timeout int) error {
	err := c.obj.SetProperty(clightdClientInterface+".Timeout", dbus.MakeVariant(uint32(timeout)))
	if err != nil {
		return fmt.Errorf("set idle timeout on %s: %w", c.path, err)
	}
	return nil
}

func (c *clightdIdleClient) Start(timeout int) error {
	if c.destroyed {
		return errClientDestroyed
	}
	if timeout <= 0 {
		return c.Stop()
	}
	if err := c.setTimeout(timeout); err != nil {
		return err
	}
	if c.running {
		return nil
	}
	if err := c.obj.Call(clightdClientInterface+".Start", 0).Err; err != nil {
		return fmt.Errorf("start idle client %s: %w", c.path, err)
	}
	c.running = true
	return nil
}

func (c *clightdIdleClient) Stop() error {
	if c.destroyed {
		return errClientDestroyed
	}
	if !c.running {
		return nil
	}
	if err := c.obj.Call(clightdClientInterface+".Stop", 0).Err; err != nil {
		return fmt.Errorf("stop idle client %s: %w", c.path, err)
	}
	c.running = false
	return nil
}

func (c *clightdIdleClient) Reset(timeout int) error {
	if c.destroyed {
		return errClientDestroyed
	}
	if timeout <= 0 || !c.running {
		return nil
	}
	if err := c.setTimeout(timeout); err != nil {
		return err
	}
	if err := c.obj.Call(clightdClientInterface+".Reset", 0).Err; err != nil {
		return fmt.Errorf("reset idle client %s: %w", c.path, err)
	}
	return nil
}

func (c *clightdIdleClient) Destroy() error {
	if c.destroyed {
		return nil
	}
	c.destroyed = true
	if c.cancel != nil {
		c.cancel()
	}
	if err := c.service.Call(clightdIdleInterface+".DestroyClient", 0, c.path).Err; err != nil {
		return fmt.Errorf("destroy idle client %s: %w", c.path, err)
	}
	return nil
}

// ClightdDpms implements DpmsClient.
type ClightdDpms struct {
	conn       ObjectConn
	router     *SignalRouter
	xauthority string
}

// NewClightdDpms creates a DPMS client. xauthority is passed along for X11
// displays and may be empty.
func NewClightdDpms(conn ObjectConn, router *SignalRouter, xauthority string) *ClightdDpms {
	return &ClightdDpms{conn: conn, router: router, xauthority: xauthority}
}

func (c *ClightdDpms) object() dbus.BusObject {
	return c.conn.Object(ClightdService, clightdDpmsPath)
}

// Set switches display to level.
func (c *ClightdDpms) Set(display string, level int) error {
	if err := c.object().Call(clightdDpmsInterface+".Set", 0, display, c.xauthority, int32(level)).Err; err != nil {
		return fmt.Errorf("set dpms level %d: %w", level, err)
	}
	return nil
}

// Get reads the current level of display.
func (c *ClightdDpms) Get(display string) (int, error) {
	var level int32
	if err := c.object().Call(clightdDpmsInterface+".Get", 0, display, c.xauthority).Store(&level); err != nil {
		return 0, fmt.Errorf("get dpms level: %w", err)
	}
	return int(level), nil
}

// Watch reports Dpms.Changed(display, level) signals.
func (c *ClightdDpms) Watch(onChange func(display string, level int)) (func(), error) {
	return c.router.Watch(SignalMatch{
		Path:      clightdDpmsPath,
		Interface: clightdDpmsInterface,
		Member:    "Changed",
	}, func(sig *dbus.Signal) {
		if len(sig.Body) < 2 {
			return
		}
		display, ok := sig.Body[0].(string)
		if !ok {
			return
		}
		level, ok := sig.Body[1].(int32)
		if !ok {
			return
		}
		onChange(display, int(level))
	})
}

// ClightdBacklight implements BacklightClient over Backlight2.
type ClightdBacklight struct {
	conn ObjectConn
}

// NewClightdBacklight creates a backlight client.
func NewClightdBacklight(conn ObjectConn) *ClightdBacklight {
	return &ClightdBacklight{conn: conn}
}

type backlightLevel struct {
	Name string
	Pct  float64
}

type backlightTransition struct {
	Step    float64
	Timeout uint32
}

// Get returns the mean backlight level over every internal and external
// screen clightd knows about.
func (c *ClightdBacklight) Get() (float64, error) {
	var levels []backlightLevel
	call := c.conn.Object(ClightdService, clightdBacklightPath).Call(clightdBacklightInterface+".Get", 0)
	if err := call.Store(&levels); err != nil {
		return 0, fmt.Errorf("get backlight: %w", err)
	}
	if len(levels) == 0 {
		return 0, errors.New("get backlight: no screens")
	}
	var sum float64
	for _, l := range levels {
		sum += l.Pct
	}
	return sum / float64(len(levels)), nil
}

// Set moves every screen to pct.
func (c *ClightdBacklight) Set(pct float64, smooth bool) error {
	var t backlightTransition
	if smooth {
		t = backlightTransition{Step: backlightStep, Timeout: backlightStepMillis}
	}
	call := c.conn.Object(ClightdService, clightdBacklightPath).Call(clightdBacklightInterface+".Set", 0, pct, t)
	if call.Err != nil {
		return fmt.Errorf("set backlight to %.2f: %w", pct, call.Err)
	}
	return nil
}

// ClightdKbdBacklight implements KbdBacklightClient.
type ClightdKbdBacklight struct {
	conn ObjectConn
}

// NewClightdKbdBacklight creates a keyboard backlight client.
func NewClightdKbdBacklight(conn ObjectConn) *ClightdKbdBacklight {
	return &ClightdKbdBacklight{conn: conn}
}

func (c *ClightdKbdBacklight) Get() (float64, error) {
	var pct float64
	if err := c.conn.Object(ClightdService, clightdKbdPath).Call(clightdKbdInterface+".Get", 0).Store(&pct); err != nil {
		return 0, fmt.Errorf("get keyboard backlight: %w", err)
	}
	return pct, nil
}

func (c *ClightdKbdBacklight) Set(pct float64) error {
	if err := c.conn.Object(ClightdService, clightdKbdPath).Call(clightdKbdInterface+".Set", 0, pct).Err; err != nil {
		return fmt.Errorf("set keyboard backlight to %.2f: %w", pct, err)
	}
	return nil
}
