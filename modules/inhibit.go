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

package modules

import (
	"github.com/we-are-mono/lumo/daemon/logger"
	"github.com/we-are-mono/lumo/module"
	"github.com/we-are-mono/lumo/system"
	"github.com/we-are-mono/lumo/types"
)

// refcount is a counter of outstanding requests for a boolean condition.
type refcount struct {
	n int
}

// apply folds one request into the counter and reports whether the
// condition holds afterwards.
func (r *refcount) apply(on, force bool) bool {
	switch {
	case on:
		r.n++
	case force:
		r.n = 0
	case r.n > 0:
		r.n--
	}
	return r.n > 0
}

// Inhibit owns State.Inhibited. Inhibitions come from ReqInhibit and, when
// enabled, from applications through org.freedesktop.ScreenSaver.
type Inhibit struct {
	conn     system.ExportConn
	m        *module.Module
	count    refcount
	unexport func()
}

// NewInhibit creates the inhibit module. conn may be nil.
func NewInhibit(conn system.ExportConn) *Inhibit {
	return &Inhibit{conn: conn}
}

func (i *Inhibit) Name() string                      { return "inhibit" }
func (i *Inhibit) Check() bool                       { return true }
func (i *Inhibit) Evaluate(ctx *module.Context) bool { return true }

func (i *Inhibit) Init(m *module.Module) error {
	i.m = m
	if err := subscribe(m, types.TopicReqInhibit); err != nil {
		return err
	}

	if m.Context().Config.Inhibit.ExportScreenSaver {
		i.exportScreenSaver()
	}
	return nil
}

func (i *Inhibit) exportScreenSaver() {
	if i.conn == nil {
		i.m.Log().Warn("No session bus, ScreenSaver interface not exported")
		return
	}
	ss := system.NewScreenSaver(i.m.Context().Post,
		func(cookie uint32, app, reason string) {
			i.m.Log().Info("Inhibited by application",
				logger.Field{Key: "app", Value: app},
				logger.Field{Key: "reason", Value: reason},
				logger.Field{Key: "cookie", Value: cookie})
			publish(i.m, types.NewInhibitRequest(true, false))
		},
		func(cookie uint32) {
			publish(i.m, types.NewInhibitRequest(false, false))
		})
	unexport, err := ss.Export(i.conn)
	if err != nil {
		i.m.Log().Warn("Failed to export ScreenSaver interface", logger.Err(err))
		return
	}
	i.unexport = unexport
}

func (i *Inhibit) Receive(msg *types.Message) {
	p, ok := types.PayloadAs[types.InhibitChange](msg)
	if !ok || msg.Topic() != types.TopicReqInhibit {
		return
	}

	st := i.m.Context().State
	inhibited := i.count.apply(p.New, p.Force)
	if inhibited == st.Inhibited {
		return
	}
	st.Inhibited = inhibited
	i.m.Log().Info("Inhibition changed", logger.Field{Key: "inhibited", Value: inhibited})
	publish(i.m, types.NewInhibitedUpdate(!inhibited, inhibited))
}

func (i *Inhibit) Destroy() {
	if i.unexport != nil {
		i.unexport()
	}
}

// Suspend owns State.Suspended. The system going to sleep counts as one
// suspend request; ReqSuspend adds more.
type Suspend struct {
	sleep  system.SleepWatcher
	m      *module.Module
	count  refcount
	cancel func()
}

// NewSuspend creates the suspend module. sleep may be nil.
func NewSuspend(sleep system.SleepWatcher) *Suspend {
	return &Suspend{sleep: sleep}
}

func (s *Suspend) Name() string                      { return "suspend" }
func (s *Suspend) Check() bool                       { return true }
func (s *Suspend) Evaluate(ctx *module.Context) bool { return true }

func (s *Suspend) Init(m *module.Module) error {
	s.m = m
	if err := subscribe(m, types.TopicReqSuspend); err != nil {
		return err
	}
	if s.sleep == nil {
		return nil
	}
	cancel, err := s.sleep.WatchPrepareForSleep(func(start bool) {
		m.Log().Debug("PrepareForSleep", logger.Field{Key: "start", Value: start})
		publish(m, types.NewSuspendRequest(start, false))
	})
	if err != nil {
		m.Log().Warn("System sleep will not be tracked", logger.Err(err))
		return nil
	}
	s.cancel = cancel
	return nil
}

func (s *Suspend) Receive(msg *types.Message) {
	p, ok := types.PayloadAs[types.SuspendChange](msg)
	if !ok || msg.Topic() != types.TopicReqSuspend {
		return
	}

	st := s.m.Context().State
	suspended := s.count.apply(p.New, p.Force)
	if suspended == st.Suspended {
		return
	}
	st.Suspended = suspended
	s.m.Log().Info("Suspend state changed", logger.Field{Key: "suspended", Value: suspended})
	publish(s.m, types.NewSuspendedUpdate(!suspended, suspended))
}

func (s *Suspend) Destroy() {
	if s.cancel != nil {
		s.cancel()
	}
}
