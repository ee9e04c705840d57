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
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/we-are-mono/lumo/daemon/logger"
)

func TestRequestWireFormat(t *testing.T) {
	data, err := json.Marshal(Request{Command: "timeout", Target: "dpms", Seconds: 60})
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"timeout","target":"dpms","seconds":60}`, string(data))

	data, err = json.Marshal(Request{Command: "logs-subscribe", LogFilter: &LogFilter{Level: "warn"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"logs-subscribe","log_filter":{"level":"warn"}}`, string(data))
}

func TestResponseAlwaysCarriesSuccess(t *testing.T) {
	data, err := json.Marshal(Response{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false}`, string(data))
}

func TestRateHistory(t *testing.T) {
	h := newRateHistory(3)

	h.add(100, time.Second)
	assert.Empty(t, h.Values(), "first sample only primes the baseline")

	h.add(110, time.Second)
	h.add(130, 2*time.Second)
	assert.Equal(t, []float64{10, 10}, h.Values())

	h.add(130, time.Second)
	h.add(160, time.Second)
	assert.Equal(t, []float64{10, 0, 30}, h.Values())

	values := h.Values()
	values[0] = 99
	assert.Equal(t, 10.0, h.Values()[0], "Values returns a copy")
}

func TestSocketLogSubscriberFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter *LogFilter
		entry  *logger.Entry
		want   bool
	}{
		{"no filter", nil, logger.NewEntry("debug", "bus", "x", nil), true},
		{"below level", &LogFilter{Level: "warn"}, logger.NewEntry("info", "dpms", "x", nil), false},
		{"at level", &LogFilter{Level: "warn"}, logger.NewEntry("warn", "dpms", "x", nil), true},
		{"above level", &LogFilter{Level: "warn"}, logger.NewEntry("error", "dpms", "x", nil), true},
		{"other component", &LogFilter{Component: "dpms"}, logger.NewEntry("info", "bus", "x", nil), false},
		{"component", &LogFilter{Component: "dpms"}, logger.NewEntry("info", "dpms", "x", nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := NewSocketLogSubscriber(nil, tt.filter)
			assert.Equal(t, tt.want, sub.Matches(tt.entry))
		})
	}
}

func TestSocketLogSubscriberWrites(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	sub := NewSocketLogSubscriber(server, &LogFilter{Level: "info"})
	done := make(chan error, 1)
	go func() {
		assert.NoError(t, sub.OnLogEvent(logger.NewEntry("debug", "bus", "skipped", nil)))
		done <- sub.OnLogEvent(logger.NewEntry("info", "dpms", "Idle changed", map[string]interface{}{"idle": true}))
	}()

	line, err := bufio.NewReader(client).ReadBytes('\n')
	require.NoError(t, err)
	require.NoError(t, <-done)

	var entry logger.Entry
	require.NoError(t, json.Unmarshal(line, &entry))
	assert.Equal(t, "Idle changed", entry.Message)
	assert.Equal(t, true, entry.Fields["idle"])

	sub.Close()
	assert.NoError(t, sub.OnLogEvent(logger.NewEntry("error", "dpms", "after close", nil)))
	server.Close()
}
