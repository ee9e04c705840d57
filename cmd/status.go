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
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/we-are-mono/lumo/daemon"
	"github.com/we-are-mono/lumo/types"
)

var verboseStatus bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and module status",
	Long:  `Displays the power source, inhibition, display state and the state of every module.`,
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVarP(&verboseStatus, "verbose", "v", false, "Show configured timeouts")
}

func runStatus(cmd *cobra.Command, args []string) {
	if err := executeStatus(cmd.OutOrStdout(), defaultClient, verboseStatus); err != nil {
		cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
		exitWithError()
	}
}

// sendOK sends a request and turns a refused response into an error.
func sendOK(client ClientInterface, req daemon.Request) (*daemon.Response, error) {
	resp, err := client.Send(req)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	return resp, nil
}

// decodeData converts the generic Data of a response into v.
func decodeData(resp *daemon.Response, v interface{}) error {
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// executeStatus executes the status command with the given client.
func executeStatus(w io.Writer, client ClientInterface, verbose bool) error {
	resp, err := sendOK(client, daemon.Request{Command: "status"})
	if err != nil {
		return err
	}

	var info daemon.StatusInfo
	if err := decodeData(resp, &info); err != nil {
		return err
	}

	fmt.Fprintln(w, "Lumo Display Power Daemon")
	fmt.Fprintln(w, "=========================")
	fmt.Fprintf(w, "  Uptime:     %s\n", info.Uptime)
	fmt.Fprintf(w, "  Config:     %s\n", info.ConfigPath)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Power:      %s\n", info.State.ACState)
	fmt.Fprintf(w, "  Display:    %s\n", info.State.Display)
	fmt.Fprintf(w, "  Keyboard:   %s\n", formatPct(info.State.KbdPct))
	fmt.Fprintf(w, "  Inhibited:  %s\n", boolToYesNo(info.State.Inhibited))
	fmt.Fprintf(w, "  Suspended:  %s\n", boolToYesNo(info.State.Suspended))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Modules:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, m := range info.Modules {
		line := fmt.Sprintf("  %s\t%s\t%s", m.Name, m.State, m.Behavior)
		if m.Error != "" {
			line += "\t" + m.Error
		}
		fmt.Fprintln(tw, line)
	}
	tw.Flush()

	if verbose && info.Config != nil {
		fmt.Fprintln(w)
		printTimeouts(w, info.Config)
	}
	return nil
}

func printTimeouts(w io.Writer, cfg *types.Config) {
	fmt.Fprintln(w, "Timeouts (ac / battery):")
	fmt.Fprintf(w, "  dimmer:     %s  (dimmed to %s)\n", formatTimeouts(cfg.Dimmer.Timeouts, cfg.Dimmer.Disabled), formatPct(cfg.Dimmer.DimmedPct))
	fmt.Fprintf(w, "  dpms:       %s\n", formatTimeouts(cfg.Dpms.Timeouts, cfg.Dpms.Disabled))
	fmt.Fprintf(w, "  keyboard:   %s\n", formatTimeouts(cfg.Keyboard.Timeouts, cfg.Keyboard.Disabled))
}

func formatTimeouts(t types.Timeouts, disabled bool) string {
	if disabled {
		return "disabled"
	}
	return formatSeconds(t.OnAC) + " / " + formatSeconds(t.OnBattery)
}

func formatSeconds(s int) string {
	if s <= 0 {
		return "off"
	}
	return fmt.Sprintf("%ds", s)
}

func formatPct(pct float64) string {
	return fmt.Sprintf("%.0f%%", pct*100)
}

func boolToYesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
