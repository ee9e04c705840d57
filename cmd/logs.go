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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/we-are-mono/lumo/client"
	"github.com/we-are-mono/lumo/daemon"
	"github.com/we-are-mono/lumo/daemon/logger"
)

const defaultLogFile = "/var/log/lumo/lumo.log"

var (
	logsFollow    bool
	logsLines     int
	logsSince     string
	logsDB        string
	logsLevel     string
	logsComponent string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show Lumo daemon logs",
	Long: `Display logs from the Lumo daemon using journalctl (systemd) or tail (non-systemd).
With --db the sqlite log store is queried instead.`,
	Run: runLogs,
}

var logsWatchCmd = &cobra.Command{
	Use:   "watch [level]",
	Short: "Watch logs in real-time from Lumo daemon",
	Long:  `Stream logs from Lumo daemon in real-time. Optionally filter by minimum log level (debug, info, warn, error).`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runLogsWatch,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsWatchCmd)
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output in real-time")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since time (e.g., '1 hour ago', '2024-01-01')")
	logsCmd.Flags().StringVar(&logsDB, "db", "", "Query a sqlite log store (e.g. "+logger.DefaultDatabasePath+")")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "With --db, only show entries of this level")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Filter by component name")

	logsWatchCmd.Flags().StringVar(&logsComponent, "component", "", "Filter by component name")
}

func runLogs(cmd *cobra.Command, args []string) {
	var err error
	switch {
	case logsDB != "":
		err = executeQueryLogs(cmd.OutOrStdout(), logsDB, logger.QueryFilter{
			Level:     logsLevel,
			Component: logsComponent,
			Limit:     logsLines,
		})
	case hasJournalctl():
		err = runExternal(journalctlArgs(logsFollow, logsLines, logsSince))
	default:
		if _, statErr := os.Stat(defaultLogFile); os.IsNotExist(statErr) {
			fmt.Fprintf(os.Stderr, "[INFO] Make sure lumo daemon is running or has been run at least once.\n")
			err = fmt.Errorf("log file not found: %s", defaultLogFile)
			break
		}
		if logsSince != "" {
			fmt.Fprintf(os.Stderr, "[WARN] --since flag is not supported without journalctl, ignoring\n")
		}
		err = runExternal(tailArgs(logsFollow, logsLines, defaultLogFile))
	}

	if err != nil {
		cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
		exitWithError()
	}
}

func hasJournalctl() bool {
	_, err := exec.LookPath("journalctl")
	return err == nil
}

func journalctlArgs(follow bool, lines int, since string) []string {
	args := []string{"journalctl", "-t", "lumo"}
	if follow {
		args = append(args, "-f")
	}
	if lines > 0 && !follow {
		args = append(args, "-n", fmt.Sprintf("%d", lines))
	}
	if since != "" {
		args = append(args, "--since", since)
	}
	// Paging only gets in the way when the output is bounded
	if !follow {
		args = append(args, "--no-pager")
	}
	return args
}

func tailArgs(follow bool, lines int, file string) []string {
	args := []string{"tail"}
	if follow {
		args = append(args, "-f")
	}
	if lines > 0 {
		args = append(args, "-n", fmt.Sprintf("%d", lines))
	}
	return append(args, file)
}

func runExternal(args []string) error {
	execCmd := exec.Command(args[0], args[1:]...) //nolint:gosec // Command built from hardcoded journalctl/tail with validated flags
	execCmd.Stdout = os.Stdout
	execCmd.Stderr = os.Stderr
	execCmd.Stdin = os.Stdin
	if err := execCmd.Run(); err != nil {
		return fmt.Errorf("failed to run %s: %w", args[0], err)
	}
	return nil
}

// executeQueryLogs prints entries from a sqlite log store.
func executeQueryLogs(w io.Writer, path string, filter logger.QueryFilter) error {
	entries, err := logger.QueryLogs(path, filter)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Fprintln(w, formatEntry(entry))
	}
	return nil
}

// formatEntry renders an entry on one line, fields sorted by key.
func formatEntry(entry *logger.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] [%s] %s: %s", entry.Timestamp, entry.Level, entry.Component, entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, entry.Fields[k])
	}
	return sb.String()
}

func runLogsWatch(cmd *cobra.Command, args []string) {
	filter := &daemon.LogFilter{Component: logsComponent}
	if len(args) > 0 {
		filter.Level = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := watchLogs(ctx, cmd.OutOrStdout(), filter)
	if ctx.Err() != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "\nStopping log stream...")
		return
	}
	if err != nil {
		cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
		exitWithError()
	}
}

// streamLogs is replaced in tests.
var streamLogs = client.StreamLogs

func watchLogs(ctx context.Context, w io.Writer, filter *daemon.LogFilter) error {
	err := streamLogs(ctx, filter, func(logData []byte) error {
		var entry logger.Entry
		if err := json.Unmarshal(logData, &entry); err != nil {
			return fmt.Errorf("failed to parse log entry: %w", err)
		}
		fmt.Fprintln(w, formatEntry(&entry))
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
