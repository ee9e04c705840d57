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

package daemon

import (
	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/we-are-mono/lumo/daemon/logger"
)

const (
	sdReady    = sddaemon.SdNotifyReady
	sdStopping = sddaemon.SdNotifyStopping
)

// notify reports the service state to systemd. It is a no-op outside a
// Type=notify unit. Tests replace it.
var notify = func(state string) {
	if _, err := sddaemon.SdNotify(false, state); err != nil {
		logger.Debug("sd_notify failed", logger.Err(err))
	}
}
