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

package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/we-are-mono/lumo/daemon"
	"go.uber.org/goleak"
)

func TestGetSocketPath(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected string
	}{
		{name: "default path when env not set", envValue: "", expected: "/run/lumo.sock"},
		{name: "custom path from env", envValue: "/tmp/custom-lumo.sock", expected: "/tmp/custom-lumo.sock"},
		{name: "relative path from env", envValue: "./lumo.sock", expected: "./lumo.sock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LUMO_SOCKET_PATH", tt.envValue)
			assert.Equal(t, tt.expected, GetSocketPath())
		})
	}
}

func TestSend_Success(t *testing.T) {
	defer goleak.VerifyNone(t)
	sockPath := useTempSocket(t)

	var got daemon.Request
	stopServer := startMockServer(t, sockPath, func(req daemon.Request) daemon.Response {
		got = req
		return daemon.Response{
			Success: true,
			Message: "OK",
			Data:    map[string]interface{}{"inhibited": true},
		}
	})
	defer stopServer()

	resp, err := Send(daemon.Request{Command: "inhibit", Value: "on", Force: true})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "OK", resp.Message)
	assert.Equal(t, daemon.Request{Command: "inhibit", Value: "on", Force: true}, got)

	dataMap, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "Data should be a map")
	assert.Equal(t, true, dataMap["inhibited"])
}

func TestSend_ConnectionFailure(t *testing.T) {
	t.Setenv("LUMO_SOCKET_PATH", filepath.Join(t.TempDir(), "missing.sock"))

	resp, err := Send(daemon.Request{Command: "status"})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "failed to connect to daemon")
}

func TestSend_ReadFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	sockPath := useTempSocket(t)

	stop := startRawServer(t, sockPath, func(c net.Conn) {})
	defer stop()

	resp, err := Send(daemon.Request{Command: "status"})
	require.Error(t, err)
	assert.Nil(t, resp)
	errStr := err.Error()
	assert.True(t,
		strings.Contains(errStr, "failed to read response") ||
			strings.Contains(errStr, "failed to send request"),
		"error should be about read or write failure, got: %s", errStr)
}

func TestSend_InvalidJSONResponse(t *testing.T) {
	defer goleak.VerifyNone(t)
	sockPath := useTempSocket(t)

	stop := startRawServer(t, sockPath, func(c net.Conn) {
		_, _ = bufio.NewReader(c).ReadBytes('\n')
		_, _ = c.Write([]byte("invalid json\n"))
	})
	defer stop()

	resp, err := Send(daemon.Request{Command: "status"})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestSend_ConcurrentRequests(t *testing.T) {
	defer goleak.VerifyNone(t)
	sockPath := useTempSocket(t)

	var requestCount int
	var mu sync.Mutex
	stopServer := startMockServer(t, sockPath, func(req daemon.Request) daemon.Response {
		mu.Lock()
		requestCount++
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		return daemon.Response{Success: true, Message: "OK"}
	})
	defer stopServer()

	const numRequests = 10
	var wg sync.WaitGroup
	errs := make(chan error, numRequests)
	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Send(daemon.Request{Command: "simulate"}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent request failed: %v", err)
	}
	mu.Lock()
	assert.Equal(t, numRequests, requestCount)
	mu.Unlock()
}

func TestStreamLogs(t *testing.T) {
	defer goleak.VerifyNone(t)
	sockPath := useTempSocket(t)

	stop := startRawServer(t, sockPath, func(c net.Conn) {
		line, err := bufio.NewReader(c).ReadBytes('\n')
		if err != nil {
			return
		}
		var req daemon.Request
		if json.Unmarshal(line, &req) != nil || req.Command != "logs-subscribe" || req.LogFilter.Level != "warn" {
			return
		}
		for i := 0; i < 3; i++ {
			fmt.Fprintf(c, `{"level":"warn","component":"dpms","message":"m%d"}`+"\n", i)
		}
	})
	defer stop()

	var messages []string
	err := StreamLogs(context.Background(), &daemon.LogFilter{Level: "warn"}, func(data []byte) error {
		var entry struct{ Message string }
		require.NoError(t, json.Unmarshal(data, &entry))
		messages = append(messages, entry.Message)
		return nil
	})
	require.Error(t, err, "the stream ends when the daemon closes it")
	assert.Contains(t, err.Error(), "log stream ended")
	assert.Equal(t, []string{"m0", "m1", "m2"}, messages)
}

func TestStreamLogsCallbackError(t *testing.T) {
	defer goleak.VerifyNone(t)
	sockPath := useTempSocket(t)

	hold := make(chan struct{})
	stop := startRawServer(t, sockPath, func(c net.Conn) {
		_, _ = bufio.NewReader(c).ReadBytes('\n')
		fmt.Fprintln(c, `{"message":"one"}`)
		<-hold
	})
	defer stop()
	defer close(hold)

	stopErr := errors.New("enough")
	err := StreamLogs(context.Background(), nil, func([]byte) error { return stopErr })
	assert.ErrorIs(t, err, stopErr)
}

func TestStreamLogsCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	sockPath := useTempSocket(t)

	hold := make(chan struct{})
	stop := startRawServer(t, sockPath, func(c net.Conn) {
		_, _ = bufio.NewReader(c).ReadBytes('\n')
		<-hold
	})
	defer stop()
	defer close(hold)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := StreamLogs(ctx, nil, func([]byte) error { return nil })
	assert.NoError(t, err)
}

func TestStreamLogsRefused(t *testing.T) {
	defer goleak.VerifyNone(t)
	sockPath := useTempSocket(t)

	stop := startRawServer(t, sockPath, func(c net.Conn) {
		_, _ = bufio.NewReader(c).ReadBytes('\n')
		fmt.Fprintln(c, `{"success":false,"error":"log streaming is not available"}`)
	})
	defer stop()

	err := StreamLogs(context.Background(), nil, func([]byte) error {
		t.Error("no entry expected")
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log streaming is not available")
}

// Helper functions

func useTempSocket(t *testing.T) string {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "lumo.sock")
	t.Setenv("LUMO_SOCKET_PATH", sockPath)
	return sockPath
}

// startRawServer accepts connections and hands each to handle, closing it
// afterwards.
func startRawServer(t *testing.T, sockPath string, handle func(net.Conn)) func() {
	t.Helper()

	listener, err := net.Listen("unix", sockPath)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			wg.Add(1)
			go func(c net.Conn) {
				defer wg.Done()
				defer c.Close()
				handle(c)
			}(conn)
		}
	}()

	return func() {
		listener.Close()
		wg.Wait()
	}
}

func startMockServer(t *testing.T, sockPath string, handler func(daemon.Request) daemon.Response) func() {
	t.Helper()
	return startRawServer(t, sockPath, func(c net.Conn) {
		reqData, err := bufio.NewReader(c).ReadBytes('\n')
		if err != nil {
			return
		}

		var req daemon.Request
		if err := json.Unmarshal(reqData, &req); err != nil {
			return
		}

		respData, _ := json.Marshal(handler(req))
		_, _ = c.Write(append(respData, '\n'))
	})
}
