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
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/we-are-mono/lumo/daemon"
)

var (
	inhibitForce bool
	suspendForce bool
	timeoutState string
	kbdSmooth    bool
)

var inhibitCmd = &cobra.Command{
	Use:   "inhibit on|off",
	Short: "Inhibit or release idle actions",
	Long: `Requests inhibition. While inhibited the dimmer and dpms modules are paused.
Without --force a release only drops one reference; --force clears all of them.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRequest(cmd, daemon.Request{Command: "inhibit", Value: args[0], Force: inhibitForce})
	},
}

var suspendCmd = &cobra.Command{
	Use:   "suspend on|off",
	Short: "Suspend or resume all idle actions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRequest(cmd, daemon.Request{Command: "suspend", Value: args[0], Force: suspendForce})
	},
}

var acstateCmd = &cobra.Command{
	Use:   "acstate ac|battery",
	Short: "Override the detected power source",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRequest(cmd, daemon.Request{Command: "acstate", Value: args[0]})
	},
}

var timeoutCmd = &cobra.Command{
	Use:   "timeout dimmer|dpms|keyboard SECONDS",
	Short: "Change an idle timeout at runtime",
	Long: `Changes an idle timeout without touching the configuration file. A value
of 0 or less disables the action. Use "lumo store" to persist the change.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		req, err := parseTimeoutArgs(args, timeoutState)
		if err != nil {
			cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
			exitWithError()
			return
		}
		runRequest(cmd, req)
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate user activity",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runRequest(cmd, daemon.Request{Command: "simulate"})
	},
}

var displayCmd = &cobra.Command{
	Use:   "display on|dim|off",
	Short: "Set the display state",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRequest(cmd, daemon.Request{Command: "display", Value: args[0]})
	},
}

var kbdCmd = &cobra.Command{
	Use:   "kbd PCT",
	Short: "Set the keyboard backlight level (0.0 - 1.0)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pct, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			cmd.PrintErrln(fmt.Sprintf("[ERROR] invalid keyboard level %q", args[0]))
			exitWithError()
			return
		}
		runRequest(cmd, daemon.Request{Command: "kbd", Pct: pct, Smooth: kbdSmooth})
	},
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Write the running configuration to disk",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runRequest(cmd, daemon.Request{Command: "store"})
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the configuration file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runRequest(cmd, daemon.Request{Command: "reload"})
	},
}

func init() {
	rootCmd.AddCommand(inhibitCmd, suspendCmd, acstateCmd, timeoutCmd, simulateCmd,
		displayCmd, kbdCmd, storeCmd, reloadCmd)

	inhibitCmd.Flags().BoolVar(&inhibitForce, "force", false, "Clear every inhibit reference on release")
	suspendCmd.Flags().BoolVar(&suspendForce, "force", false, "Apply even if the state is unchanged")
	timeoutCmd.Flags().StringVar(&timeoutState, "state", "", "Power source the timeout applies to (ac or battery, default current)")
	kbdCmd.Flags().BoolVar(&kbdSmooth, "smooth", false, "Fade to the new level")
}

func runRequest(cmd *cobra.Command, req daemon.Request) {
	if err := executeRequest(cmd.OutOrStdout(), defaultClient, req); err != nil {
		cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
		exitWithError()
	}
}

// executeRequest sends a request that only carries a message back.
func executeRequest(w io.Writer, client ClientInterface, req daemon.Request) error {
	resp, err := sendOK(client, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "[OK] %s\n", resp.Message)
	return nil
}

func parseTimeoutArgs(args []string, state string) (daemon.Request, error) {
	seconds, err := strconv.Atoi(args[1])
	if err != nil {
		return daemon.Request{}, fmt.Errorf("invalid timeout %q (expected seconds)", args[1])
	}
	return daemon.Request{
		Command: "timeout",
		Target:  args[0],
		Seconds: seconds,
		State:   state,
	}, nil
}
