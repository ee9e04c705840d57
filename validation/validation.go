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

// Package validation checks configuration files and bus requests before
// they reach the modules.
package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/we-are-mono/lumo/types"
)

// MaxTimeout is the largest accepted idle timeout, in seconds.
const MaxTimeout = 24 * 60 * 60

var (
	validLevels  = []string{"debug", "info", "warn", "warning", "error"}
	validFormats = []string{"json", "text"}
	validOutputs = []string{"file", "journald", "sqlite", "console"}
)

// ValidateTimeout validates a requested idle timeout. Zero disables the
// feature; negative values are rejected.
func ValidateTimeout(seconds int) error {
	if seconds < 0 || seconds > MaxTimeout {
		return fmt.Errorf("timeout %d out of valid range [0, %d]", seconds, MaxTimeout)
	}
	return nil
}

// ValidateConfigTimeout validates a timeout read from the config file,
// where any value <= 0 means disabled.
func ValidateConfigTimeout(seconds int) error {
	if seconds > MaxTimeout {
		return fmt.Errorf("timeout %d exceeds maximum %d", seconds, MaxTimeout)
	}
	return nil
}

// ValidateACState validates a power source. allowUnknown accepts
// ACStateUnknown, which requests read as "the current state".
func ValidateACState(s types.ACState, allowUnknown bool) error {
	if s == types.ACStateUnknown && allowUnknown {
		return nil
	}
	if s != types.ACStateOnAC && s != types.ACStateOnBattery {
		return fmt.Errorf("invalid AC state %d", int(s))
	}
	return nil
}

// ValidateBacklightPct validates a backlight level in [0, 1].
func ValidateBacklightPct(pct float64) error {
	if math.IsNaN(pct) || pct < 0 || pct > 1 {
		return fmt.Errorf("backlight level %v out of valid range [0, 1]", pct)
	}
	return nil
}

// ValidateDisplayState validates a display power state.
func ValidateDisplayState(s types.DisplayState) error {
	if !s.Valid() {
		return fmt.Errorf("invalid display state %d", int(s))
	}
	return nil
}

// ValidateTimeoutRequest validates a ReqDimmerTo/ReqDpmsTo/ReqKbdTo payload.
func ValidateTimeoutRequest(p types.TimeoutChange) error {
	if err := ValidateACState(p.State, true); err != nil {
		return err
	}
	return ValidateTimeout(p.New)
}

// ValidateACStateRequest validates a ReqAcState payload. A request must name
// a concrete power source.
func ValidateACStateRequest(p types.ACStateChange) error {
	return ValidateACState(p.New, false)
}

// ValidateBacklightRequest validates a ReqKbdBl payload.
func ValidateBacklightRequest(p types.BacklightChange) error {
	return ValidateBacklightPct(p.New)
}

// ValidateDisplayRequest validates a ReqDisplay payload.
func ValidateDisplayRequest(p types.DisplayChange) error {
	return ValidateDisplayState(p.New)
}

// ValidateRequest validates the payload of any request message. Update
// messages and requests without arguments always pass.
func ValidateRequest(msg *types.Message) error {
	switch p := msg.Payload().(type) {
	case types.TimeoutChange:
		return ValidateTimeoutRequest(p)
	case types.ACStateChange:
		if msg.Topic() == types.TopicReqACState {
			return ValidateACStateRequest(p)
		}
	case types.BacklightChange:
		if msg.Topic() == types.TopicReqKbdBacklight {
			return ValidateBacklightRequest(p)
		}
	case types.DisplayChange:
		if msg.Topic() == types.TopicReqDisplay {
			return ValidateDisplayRequest(p)
		}
	}
	return nil
}

func validateOneOf(what, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q (must be one of: %s)", what, value, strings.Join(allowed, ", "))
}

// ValidateLogLevel validates a log level name. Empty means the default.
func ValidateLogLevel(level string) error {
	if level == "" {
		return nil
	}
	return validateOneOf("log level", strings.ToLower(level), validLevels)
}

// ValidateLogFormat validates a log format name. Empty means the default.
func ValidateLogFormat(format string) error {
	if format == "" {
		return nil
	}
	return validateOneOf("log format", format, validFormats)
}

// ValidateLogOutput validates one log output name.
func ValidateLogOutput(output string) error {
	return validateOneOf("log output", output, validOutputs)
}

func validateTimeouts(s Section, t types.Timeouts) {
	s.Key("timeout on AC", ValidateConfigTimeout(t.OnAC))
	s.Key("timeout on battery", ValidateConfigTimeout(t.OnBattery))
}

// ValidateConfig checks a whole configuration and reports every problem.
func ValidateConfig(cfg *types.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	var r Report

	dimmer := r.Section("dimmer")
	validateTimeouts(dimmer, cfg.Dimmer.Timeouts)
	dimmer.Key("dimmed_pct", ValidateBacklightPct(cfg.Dimmer.DimmedPct))

	validateTimeouts(r.Section("dpms"), cfg.Dpms.Timeouts)

	kbd := r.Section("keyboard")
	validateTimeouts(kbd, cfg.Keyboard.Timeouts)
	kbd.Key("pct", ValidateBacklightPct(cfg.Keyboard.Pct))

	logging := r.Section("logging")
	logging.Check(ValidateLogLevel(cfg.Logging.Level))
	logging.Check(ValidateLogFormat(cfg.Logging.Format))
	for _, out := range cfg.Logging.Outputs {
		logging.Check(ValidateLogOutput(out))
	}
	return r.Err()
}
