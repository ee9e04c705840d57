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

package types

// Timeouts holds one idle timeout per power source, in seconds. A value <= 0
// disables the feature on that source.
type Timeouts struct {
	OnAC      int `json:"ac" env:"AC"`
	OnBattery int `json:"battery" env:"BATTERY"`
}

// For returns the timeout for a power source. ACStateUnknown reads the
// on-AC value.
func (t Timeouts) For(s ACState) int {
	if s == ACStateOnBattery {
		return t.OnBattery
	}
	return t.OnAC
}

// Set stores the timeout for a power source.
func (t *Timeouts) Set(s ACState, seconds int) {
	if s == ACStateOnBattery {
		t.OnBattery = seconds
		return
	}
	t.OnAC = seconds
}

// DimmerConfig configures display dimming on idle.
type DimmerConfig struct {
	Timeouts  Timeouts `json:"timeouts" envPrefix:"TIMEOUT_"`
	DimmedPct float64  `json:"dimmed_pct" env:"PCT"` // backlight level while dimmed
	Disabled  bool     `json:"disabled" env:"DISABLED"`
	NoSmooth  bool     `json:"no_smooth" env:"NO_SMOOTH"`
}

// DpmsConfig configures display power-off on idle.
type DpmsConfig struct {
	Display  string   `json:"display,omitempty" env:"DISPLAY"` // empty means the default display
	Timeouts Timeouts `json:"timeouts" envPrefix:"TIMEOUT_"`
	Disabled bool     `json:"disabled" env:"DISABLED"`
}

// KeyboardConfig configures keyboard backlight auto-off.
type KeyboardConfig struct {
	Timeouts Timeouts `json:"timeouts" envPrefix:"TIMEOUT_"`
	Pct      float64  `json:"pct" env:"PCT"` // level restored on activity
	Disabled bool     `json:"disabled" env:"DISABLED"`
}

// InhibitConfig configures inhibition sources.
type InhibitConfig struct {
	// ExportScreenSaver serves org.freedesktop.ScreenSaver on the session bus
	// so applications can inhibit through it.
	ExportScreenSaver bool `json:"export_screensaver" env:"EXPORT_SCREENSAVER"`
}

// LoggingConfig represents configuration for the logging system
type LoggingConfig struct {
	Level    string   `json:"level" env:"LEVEL"`                      // debug, info, warn, error (default: info)
	Format   string   `json:"format" env:"FORMAT"`                    // text, json (default: json)
	Outputs  []string `json:"outputs" env:"OUTPUTS" envSeparator:","` // file, journald, sqlite (default: auto-detect)
	File     string   `json:"file" env:"FILE"`                        // Log file path (default: /var/log/lumo/lumo.log)
	Database string   `json:"database,omitempty" env:"DATABASE"`      // SQLite log store for the sqlite output
}

// Config represents the main Lumo configuration (/etc/lumo/lumo.json)
type Config struct {
	Dimmer   DimmerConfig   `json:"dimmer" envPrefix:"DIMMER_"`
	Dpms     DpmsConfig     `json:"dpms" envPrefix:"DPMS_"`
	Keyboard KeyboardConfig `json:"keyboard" envPrefix:"KBD_"`
	Inhibit  InhibitConfig  `json:"inhibit" envPrefix:"INHIBIT_"`
	Logging  LoggingConfig  `json:"logging" envPrefix:"LOG_"`
	Version  string         `json:"version"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Dimmer: DimmerConfig{
			Timeouts:  Timeouts{OnAC: 45, OnBattery: 20},
			DimmedPct: 0.2,
		},
		Dpms: DpmsConfig{
			Timeouts: Timeouts{OnAC: 900, OnBattery: 300},
		},
		Keyboard: KeyboardConfig{
			Timeouts: Timeouts{OnAC: 15, OnBattery: 5},
			Pct:      1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File:   "/var/log/lumo/lumo.log",
		},
		Version: "1",
	}
}

// HasFunctionalModule reports whether at least one module that acts on
// idleness is enabled.
func (c *Config) HasFunctionalModule() bool {
	return !c.Dimmer.Disabled || !c.Dpms.Disabled || !c.Keyboard.Disabled
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	if c.Logging.Outputs != nil {
		out.Logging.Outputs = append([]string(nil), c.Logging.Outputs...)
	}
	return &out
}
