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
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"github.com/we-are-mono/lumo/daemon"
)

var statsGraph bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show message bus statistics",
	Long:  `Displays per-topic publish counts, durable message accounting and the recent publish rate.`,
	Args:  cobra.NoArgs,
	Run:   runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVarP(&statsGraph, "graph", "g", false, "Plot the publish rate")
}

func runStats(cmd *cobra.Command, args []string) {
	if err := executeStats(cmd.OutOrStdout(), defaultClient, statsGraph); err != nil {
		cmd.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
		exitWithError()
	}
}

// executeStats executes the stats command with the given client.
func executeStats(w io.Writer, client ClientInterface, graph bool) error {
	resp, err := sendOK(client, daemon.Request{Command: "stats"})
	if err != nil {
		return err
	}

	var info daemon.StatsInfo
	if err := decodeData(resp, &info); err != nil {
		return err
	}

	fmt.Fprintf(w, "Published:        %d\n", info.Bus.TotalPublished)
	fmt.Fprintf(w, "Durable:          %d allocated, %d released\n", info.Bus.DurableAllocated, info.Bus.DurableReleased)
	fmt.Fprintf(w, "Max depth:        %d (%d exceeded)\n", info.Bus.MaxDepth, info.Bus.DepthExceeded)
	fmt.Fprintf(w, "Loop queue:       %d\n", info.Queue)
	fmt.Fprintln(w)

	topics := make([]string, 0, len(info.Bus.Published))
	for topic := range info.Bus.Published {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOPIC\tPUBLISHED\tDELIVERIES")
	for _, topic := range topics {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", topic, info.Bus.Published[topic], info.Bus.Deliveries[topic])
	}
	tw.Flush()

	if !graph {
		return nil
	}

	fmt.Fprintln(w)
	if len(info.Rate) < 2 {
		fmt.Fprintln(w, "Collecting data... the graph appears after two samples.")
		return nil
	}
	fmt.Fprintf(w, "Publish rate (msg/s), one sample every %s:\n", info.Interval)
	fmt.Fprintln(w, asciigraph.Plot(info.Rate,
		asciigraph.Height(8),
		asciigraph.Width(60),
		asciigraph.Caption("")))
	fmt.Fprintf(w, "Showing %d data points\n", len(info.Rate))
	return nil
}
