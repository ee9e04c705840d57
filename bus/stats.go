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

package bus

import "github.com/we-are-mono/lumo/types"

// Stats counts bus traffic since startup.
type Stats struct {
	Published        map[string]uint64 `json:"published"`  // per topic
	Deliveries       map[string]uint64 `json:"deliveries"` // per topic
	TotalPublished   uint64            `json:"total_published"`
	DurableAllocated uint64            `json:"durable_allocated"`
	DurableReleased  uint64            `json:"durable_released"`
	DepthExceeded    uint64            `json:"depth_exceeded"`
	MaxDepth         int               `json:"max_depth"`
}

func newStats() Stats {
	return Stats{
		Published:  make(map[string]uint64),
		Deliveries: make(map[string]uint64),
	}
}

func (s *Stats) record(topic types.Topic, subscribers int) {
	name := topic.String()
	s.Published[name]++
	s.Deliveries[name] += uint64(subscribers)
	s.TotalPublished++
}

// Stats returns a copy of the counters.
func (b *Bus) Stats() Stats {
	out := b.stats
	out.Published = make(map[string]uint64, len(b.stats.Published))
	for k, v := range b.stats.Published {
		out.Published[k] = v
	}
	out.Deliveries = make(map[string]uint64, len(b.stats.Deliveries))
	for k, v := range b.stats.Deliveries {
		out.Deliveries[k] = v
	}
	return out
}
