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
	"context"
	"time"
)

const (
	statsInterval = 5 * time.Second
	statsSamples  = 60
)

// rateHistory keeps the most recent publish rates. It lives on the
// dispatch loop.
type rateHistory struct {
	size    int
	samples []float64
	last    uint64
	primed  bool
}

func newRateHistory(size int) *rateHistory {
	return &rateHistory{size: size}
}

// add records the publish counter. The first call only primes the baseline.
func (h *rateHistory) add(total uint64, interval time.Duration) {
	if !h.primed {
		h.last = total
		h.primed = true
		return
	}
	rate := float64(total-h.last) / interval.Seconds()
	h.last = total

	h.samples = append(h.samples, rate)
	if len(h.samples) > h.size {
		h.samples = h.samples[len(h.samples)-h.size:]
	}
}

// Values returns a copy of the samples, oldest first.
func (h *rateHistory) Values() []float64 {
	return append([]float64(nil), h.samples...)
}

func (s *Server) sample(ctx context.Context) error {
	interval := s.opts.StatsInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.loop.Post(func() { s.history.add(s.bus.Stats().TotalPublished, interval) })
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.loop.Post(func() { s.history.add(s.bus.Stats().TotalPublished, interval) })
		}
	}
}
