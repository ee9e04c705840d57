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

// Package client provides a client library for communicating with the Lumo daemon.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/we-are-mono/lumo/daemon"
)

// GetSocketPath returns the daemon socket path (LUMO_SOCKET_PATH or /run/lumo.sock).
func GetSocketPath() string {
	return daemon.GetSocketPath()
}

func dial(req daemon.Request) (net.Conn, error) {
	conn, err := net.Dial("unix", GetSocketPath())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon (is it running?): %w", err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	data = append(data, '\n')
	if _, err = conn.Write(data); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return conn, nil
}

// Send sends one request and waits for the response.
func Send(req daemon.Request) (*daemon.Response, error) {
	conn, err := dial(req)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp daemon.Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &resp, nil
}

// StreamLogs subscribes to the daemon's live log stream and calls fn with
// every JSON-encoded entry until ctx is cancelled, the daemon goes away, or
// fn returns an error.
func StreamLogs(ctx context.Context, filter *daemon.LogFilter, fn func(logData []byte) error) error {
	conn, err := dial(daemon.Request{Command: "logs-subscribe", LogFilter: filter})
	if err != nil {
		return err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("log stream ended: %w", err)
		}

		// The daemon answers with a plain Response when it cannot stream.
		var probe struct {
			Success *bool  `json:"success"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(line, &probe) == nil && probe.Success != nil && !*probe.Success {
			return fmt.Errorf("daemon refused log stream: %s", probe.Error)
		}

		if err := fn(line); err != nil {
			return err
		}
	}
}
