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
	"path/filepath"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	upowerService   = "org.freedesktop.UPower"
	upowerPath      = "/org/freedesktop/UPower"
	propertiesIface = "org.freedesktop.DBus.Properties"

	// DefaultPowerSupplyDir is where the kernel lists power supplies.
	DefaultPowerSupplyDir = "/sys/class/power_supply"
)

// ErrNoPowerSupply is returned when no mains adapter can be found.
var ErrNoPowerSupply = errors.New("no mains power supply found")

// UPower implements PowerSource on the UPower daemon.
type UPower struct {
	conn   ObjectConn
	router *SignalRouter
}

// NewUPower creates a UPower client.
func NewUPower(conn ObjectConn, router *SignalRouter) *UPower {
	return &UPower{conn: conn, router: router}
}

// OnBattery reads the OnBattery property.
func (u *UPower) OnBattery() (bool, error) {
	v, err := u.conn.Object(upowerService, upowerPath).GetProperty(upowerService + ".OnBattery")
	if err != nil {
		return false, fmt.Errorf("read OnBattery: %w", err)
	}
	onBattery, ok := v.Value().(bool)
	if !ok {
		return false, fmt.Errorf("unexpected type %s for OnBattery", v.Signature())
	}
	return onBattery, nil
}

// Watch reports OnBattery changes carried by PropertiesChanged.
func (u *UPower) Watch(onChange func(onBattery bool)) (func(), error) {
	return u.router.Watch(SignalMatch{
		Path:      upowerPath,
		Interface: propertiesIface,
		Member:    "PropertiesChanged",
	}, func(sig *dbus.Signal) {
		if onBattery, ok := parseOnBattery(sig); ok {
			onChange(onBattery)
		}
	})
}

func parseOnBattery(sig *dbus.Signal) (bool, bool) {
	if len(sig.Body) < 2 {
		return false, false
	}
	if iface, ok := sig.Body[0].(string); !ok || iface != upowerService {
		return false, false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return false, false
	}
	v, ok := changed["OnBattery"]
	if !ok {
		return false, false
	}
	onBattery, ok := v.Value().(bool)
	return onBattery, ok
}

// SysfsPowerSupply implements PowerSource by reading mains adapters under
// /sys/class/power_supply. It cannot watch for changes.
type SysfsPowerSupply struct {
	fs  FilesystemClient
	dir string
}

// NewSysfsPowerSupply creates a sysfs power source rooted at dir.
func NewSysfsPowerSupply(fs FilesystemClient, dir string) *SysfsPowerSupply {
	if dir == "" {
		dir = DefaultPowerSupplyDir
	}
	return &SysfsPowerSupply{fs: fs, dir: dir}
}

// OnBattery reports true when no mains adapter is online.
func (s *SysfsPowerSupply) OnBattery() (bool, error) {
	names, err := s.fs.ReadDir(s.dir)
	if err != nil {
		return false, fmt.Errorf("list power supplies: %w", err)
	}

	found := false
	for _, name := range names {
		typ, err := s.fs.ReadFile(filepath.Join(s.dir, name, "type"))
		if err != nil || strings.TrimSpace(string(typ)) != "Mains" {
			continue
		}
		found = true
		online, err := s.fs.ReadFile(filepath.Join(s.dir, name, "online"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(online)) == "1" {
			return false, nil
		}
	}
	if !found {
		return false, ErrNoPowerSupply
	}
	return true, nil
}

// Watch is a no-op; sysfs attributes do not notify.
func (s *SysfsPowerSupply) Watch(func(onBattery bool)) (func(), error) {
	return func() {}, nil
}
