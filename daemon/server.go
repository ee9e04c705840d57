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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/we-are-mono/lumo/bus"
	"github.com/we-are-mono/lumo/daemon/logger"
	"github.com/we-are-mono/lumo/module"
	"github.com/we-are-mono/lumo/modules"
	"github.com/we-are-mono/lumo/types"
	"golang.org/x/sync/errgroup"
)

// GetSocketPath returns the socket path, preferring LUMO_SOCKET_PATH env var
func GetSocketPath() string {
	if path := os.Getenv("LUMO_SOCKET_PATH"); path != "" {
		return path
	}
	return "/run/lumo.sock"
}

// handlerFunc is a function that handles a daemon command
type handlerFunc func(ctx context.Context, req Request) Response

// Options configures a Server.
type Options struct {
	Config *types.Config
	// ConfigPath is the file watched for changes and written by "store".
	// Empty disables live reload.
	ConfigPath string
	SocketPath string
	Log        logger.Logger
	// StatsInterval is the publish-rate sampling period; zero means 5s.
	StatsInterval time.Duration
}

// Server runs the dispatch loop, the modules and the control socket.
type Server struct {
	opts     Options
	log      logger.Logger
	loop     *Loop
	bus      *bus.Bus
	registry *module.Registry
	mctx     *module.Context
	history  *rateHistory
	listener net.Listener
	handlers map[string]handlerFunc
	runners  []func(context.Context) error
	started  time.Time

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
	connWG sync.WaitGroup
}

// NewServer creates the server and binds the control socket.
func NewServer(opts Options) (*Server, error) {
	if opts.Config == nil {
		opts.Config = types.DefaultConfig()
	}
	if opts.SocketPath == "" {
		opts.SocketPath = GetSocketPath()
	}
	if opts.Log == nil {
		opts.Log = logger.Default()
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = statsInterval
	}

	os.Remove(opts.SocketPath)
	listener, err := net.Listen("unix", opts.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create socket: %w", err)
	}
	if err := os.Chmod(opts.SocketPath, 0666); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log := opts.Log.With(logger.Component("server"))
	s := &Server{
		opts:     opts,
		log:      log,
		loop:     NewLoop(log),
		bus:      bus.New(opts.Log.With(logger.Component("bus"))),
		registry: module.NewRegistry(),
		history:  newRateHistory(statsSamples),
		listener: listener,
		conns:    make(map[net.Conn]struct{}),
	}
	s.mctx = &module.Context{
		Config: opts.Config,
		State:  types.NewState(),
		Post:   s.loop.Post,
		Log:    opts.Log,
	}

	s.handlers = map[string]handlerFunc{
		"status":   s.handleStatus,
		"inhibit":  s.handleInhibit,
		"suspend":  s.handleSuspend,
		"acstate":  s.handleACState,
		"timeout":  s.handleTimeout,
		"simulate": s.handleSimulate,
		"display":  s.handleDisplay,
		"kbd":      s.handleKbd,
		"stats":    s.handleStats,
		"store":    s.handleStore,
		"reload":   s.handleReload,
	}

	return s, nil
}

// Post queues fn on the dispatch loop.
func (s *Server) Post(fn func()) {
	s.loop.Post(fn)
}

// Register creates the modules on top of d. It must be called before Run.
func (s *Server) Register(d modules.Deps) error {
	return modules.Register(s.registry, s.bus, s.mctx, d)
}

// Go adds a goroutine supervised with the server: it receives the run
// context and an error from it stops the daemon.
func (s *Server) Go(fn func(ctx context.Context) error) {
	s.runners = append(s.runners, fn)
}

// Run serves until ctx is cancelled or a supervised goroutine fails, then
// stops every module and removes the socket.
func (s *Server) Run(ctx context.Context) error {
	s.started = time.Now()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.loop.Run(gctx) })
	s.loop.Post(s.startModules)

	g.Go(func() error { return s.serve(gctx) })
	g.Go(func() error { return s.sample(gctx) })
	if s.opts.ConfigPath != "" {
		g.Go(func() error { return s.watchConfig(gctx) })
	}
	for _, fn := range s.runners {
		fn := fn
		g.Go(func() error { return fn(gctx) })
	}

	s.log.Info("Daemon listening", logger.Field{Key: "socket", Value: s.opts.SocketPath})
	err := g.Wait()
	s.shutdown()
	return err
}

func (s *Server) startModules() {
	if err := s.registry.StartAll(); err != nil {
		s.log.Warn("Some modules failed to start", logger.Err(err))
	}
	s.log.Info("Modules started",
		logger.Field{Key: "running", Value: s.registry.CountIn(module.Running, module.Paused)},
		logger.Field{Key: "inactive", Value: s.registry.CountIn(module.Inactive)},
		logger.Field{Key: "poisoned", Value: s.registry.CountIn(module.Poisoned)})
	notify(sdReady)
}

// shutdown runs after the loop has exited, so it owns the modules.
func (s *Server) shutdown() {
	notify(sdStopping)
	s.registry.StopAll()

	s.listener.Close()
	s.connMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connMu.Unlock()
	s.connWG.Wait()

	os.Remove(s.opts.SocketPath)
	s.log.Info("Daemon stopped")
}

func (s *Server) serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.listener.Close() })
	defer stop()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error("Failed to accept connection", logger.Err(err))
			continue
		}

		s.connMu.Lock()
		s.conns[conn] = struct{}{}
		s.connWG.Add(1)
		s.connMu.Unlock()

		go func() {
			defer s.connWG.Done()
			defer func() {
				s.connMu.Lock()
				delete(s.conns, conn)
				s.connMu.Unlock()
				conn.Close()
			}()
			s.handleConnection(ctx, conn)
		}()
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil {
		return
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendResponse(conn, Response{
			Success: false,
			Error:   fmt.Sprintf("invalid request: %v", err),
		})
		return
	}

	// Log streaming keeps the connection open
	if req.Command == "logs-subscribe" {
		s.handleLogsSubscribe(conn, req.LogFilter)
		return
	}

	s.sendResponse(conn, s.handleRequest(ctx, req))
}

func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	handler, exists := s.handlers[req.Command]
	if !exists {
		return Response{
			Success: false,
			Error:   fmt.Sprintf("unknown command: %s", req.Command),
		}
	}
	return handler(ctx, req)
}

func (s *Server) sendResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("Failed to marshal response", logger.Err(err))
		return
	}

	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.log.Error("Failed to write response", logger.Err(err))
	}
}

// handleLogsSubscribe streams log events until the client disconnects.
func (s *Server) handleLogsSubscribe(conn net.Conn, filter *LogFilter) {
	emitter := logger.GetEmitter()
	if emitter == nil {
		s.sendResponse(conn, Response{Success: false, Error: "log streaming is not available"})
		return
	}

	subscriber := NewSocketLogSubscriber(conn, filter)
	emitter.Subscribe(subscriber)
	defer func() {
		emitter.Unsubscribe(subscriber)
		subscriber.Close()
	}()

	s.log.Info("Client subscribed to log stream",
		logger.Field{Key: "level", Value: subscriber.filter.Level},
		logger.Field{Key: "component", Value: subscriber.filter.Component})

	// Read until the client goes away
	buffer := make([]byte, 1)
	for {
		if _, err := conn.Read(buffer); err != nil {
			s.log.Info("Client unsubscribed from log stream")
			return
		}
	}
}
