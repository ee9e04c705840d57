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

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/we-are-mono/lumo/daemon"
	"github.com/we-are-mono/lumo/daemon/logger"
	"github.com/we-are-mono/lumo/state"
	"github.com/we-are-mono/lumo/types"
)

// sqliteMaxEntries caps the sqlite log store.
const sqliteMaxEntries = 50000

var daemonForeground bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run Lumo as a daemon",
	Long: `Starts the Lumo daemon. It connects to UPower, logind and clightd on the
system bus, runs the dimmer, dpms and keyboard modules, and listens for
commands on a Unix socket.`,
	Run: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	daemonCmd.Flags().BoolVar(&daemonForeground, "foreground", false, "Log to the console instead of journald or the log file")
}

func runDaemon(cmd *cobra.Command, args []string) {
	// Check for existing daemon via PID file
	pidFile := os.Getenv("LUMO_PID_FILE")
	if pidFile == "" {
		pidFile = "/run/lumo.pid"
	}
	if err := checkExistingDaemon(pidFile); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}

	cfg, cfgPath, err := state.LoadLumoConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}

	if err := initializeLogger(cfg.Logging, daemonForeground, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Shutdown()

	if !cfg.HasFunctionalModule() {
		logger.Warn("Dimmer, dpms and keyboard are all disabled, nothing to do",
			logger.Field{Key: "config", Value: cfgPath})
		return
	}

	// Write our PID to file
	if err := writePIDFile(pidFile); err != nil {
		logger.Error("Failed to write PID file", logger.Err(err))
		os.Exit(1)
	}
	defer os.Remove(pidFile)

	if err := runServer(cfg, cfgPath); err != nil {
		logger.Error("Server failed", logger.Err(err))
		logger.Shutdown()
		os.Remove(pidFile)
		os.Exit(1)
	}
}

func runServer(cfg *types.Config, cfgPath string) error {
	log := logger.Default()

	server, err := daemon.NewServer(daemon.Options{
		Config:     cfg,
		ConfigPath: cfgPath,
		Log:        log,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	bridge := daemon.ConnectBridge(server.Post, log)
	defer bridge.Close()

	if err := server.Register(bridge.Deps); err != nil {
		return err
	}
	server.Go(bridge.Run)

	// Handle shutdown gracefully
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Lumo daemon started",
		logger.Field{Key: "config", Value: cfgPath},
		logger.Field{Key: "socket", Value: daemon.GetSocketPath()})

	err = server.Run(ctx)
	logger.Info("Shutting down...")
	return err
}

// checkExistingDaemon checks if another daemon is already running
func checkExistingDaemon(pidFile string) error {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			// No PID file exists, we're good to start
			return nil
		}
		return fmt.Errorf("PID file exists but cannot be read: %w (remove %s manually if daemon is not running)", err, pidFile)
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return fmt.Errorf("invalid PID in %s: %s (remove file manually if daemon is not running)", pidFile, pidStr)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		os.Remove(pidFile)
		return nil
	}

	// Signal 0 only probes for existence
	if err := process.Signal(syscall.Signal(0)); err != nil {
		os.Remove(pidFile)
		return nil
	}

	return fmt.Errorf("daemon already running with PID %d (stop it first or remove %s if it's stale)", pid, pidFile)
}

// writePIDFile writes the current process PID to a file
func writePIDFile(pidFile string) error {
	return os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0600)
}

// logOutputs resolves the configured outputs. Without an explicit list the
// daemon logs to the console in the foreground and to journald otherwise.
func logOutputs(cfg types.LoggingConfig, foreground bool) []string {
	if len(cfg.Outputs) > 0 {
		return cfg.Outputs
	}
	if foreground {
		return []string{"console"}
	}
	return []string{"journald"}
}

// openBackends creates one backend per output. A journald output that is
// unavailable falls back to the log file.
func openBackends(cfg types.LoggingConfig, outputs []string, stderr io.Writer) ([]logger.Backend, []string, error) {
	var (
		backends []logger.Backend
		opened   []string
	)
	closeAll := func() {
		for _, b := range backends {
			b.Close()
		}
	}

	for _, out := range outputs {
		switch out {
		case "console":
			backends = append(backends, logger.NewConsoleBackend(stderr, true))
		case "journald":
			jb, err := logger.NewJournaldBackend("lumo")
			if err != nil {
				fmt.Fprintf(stderr, "[WARN] Could not initialize journald backend: %v, falling back to file\n", err)
				out = "file"
				fb, ferr := logger.NewFileBackend(cfg.File, cfg.Format)
				if ferr != nil {
					closeAll()
					return nil, nil, fmt.Errorf("failed to initialize file backend: %w", ferr)
				}
				backends = append(backends, fb)
				break
			}
			backends = append(backends, jb)
		case "file":
			fb, err := logger.NewFileBackend(cfg.File, cfg.Format)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("failed to initialize file backend: %w", err)
			}
			backends = append(backends, fb)
		case "sqlite":
			path := cfg.Database
			if path == "" {
				path = logger.DefaultDatabasePath
			}
			sb, err := logger.NewSQLiteBackend(path, sqliteMaxEntries)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("failed to initialize sqlite backend: %w", err)
			}
			backends = append(backends, sb)
		default:
			closeAll()
			return nil, nil, fmt.Errorf("unknown log output %q", out)
		}
		opened = append(opened, out)
	}
	return backends, opened, nil
}

// initializeLogger sets up the global structured logger from the logging
// section of the configuration.
func initializeLogger(cfg types.LoggingConfig, foreground bool, stderr io.Writer) error {
	backends, opened, err := openBackends(cfg, logOutputs(cfg, foreground), stderr)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		Component: "daemon",
	}, backends, logger.NewEmitter())

	logger.Info("Logging initialized",
		logger.Field{Key: "outputs", Value: strings.Join(opened, ",")},
		logger.Field{Key: "level", Value: cfg.Level},
		logger.Field{Key: "format", Value: cfg.Format})
	return nil
}
