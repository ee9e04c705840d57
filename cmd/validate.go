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
	"os"

	"github.com/spf13/cobra"
	"github.com/we-are-mono/lumo/state"
	"github.com/we-are-mono/lumo/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate the configuration without applying it",
	Long: `Checks the configuration file for syntax errors and invalid values, with
LUMO_* environment overrides applied the same way the daemon applies them.
Without an argument the file the daemon would load is checked.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	path := state.ConfigPath()
	if len(args) > 0 {
		path = args[0]
	}
	if err := executeValidate(cmd.OutOrStdout(), path); err != nil {
		exitWithError()
	}
}

// executeValidate checks the configuration at path and prints the result.
func executeValidate(w io.Writer, path string) error {
	fmt.Fprintf(w, "Validating %s...\n\n", path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(w, "⊘ %s: not found, built-in defaults apply\n", path)
	}

	cfg, err := state.LoadLumoConfigFrom(path)
	if err != nil {
		fmt.Fprintf(w, "❌ %v\n", err)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "❌ Validation failed - please fix the errors above")
		return err
	}

	fmt.Fprintf(w, "✓ syntax and values: valid\n")
	if cfg.HasFunctionalModule() {
		fmt.Fprintf(w, "✓ modules: %s\n", enabledModules(cfg))
	} else {
		fmt.Fprintln(w, "⊘ modules: dimmer, dpms and keyboard are all disabled, the daemon will exit")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "✓ Configuration is valid")
	return nil
}

func enabledModules(cfg *types.Config) string {
	var out string
	add := func(name string, disabled bool) {
		if disabled {
			return
		}
		if out != "" {
			out += ", "
		}
		out += name
	}
	add("dimmer", cfg.Dimmer.Disabled)
	add("dpms", cfg.Dpms.Disabled)
	add("keyboard", cfg.Keyboard.Disabled)
	return out
}
