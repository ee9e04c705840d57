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

package validation

import (
	"errors"
	"fmt"
)

// Problem is one invalid value in a configuration.
type Problem struct {
	Section string // "dimmer", "logging", ...
	Key     string // empty when the problem is not tied to one key
	Err     error
}

func (p Problem) Error() string {
	if p.Key == "" {
		return fmt.Sprintf("%s: %v", p.Section, p.Err)
	}
	return fmt.Sprintf("%s: %s: %v", p.Section, p.Key, p.Err)
}

func (p Problem) Unwrap() error { return p.Err }

// Report gathers every problem of a configuration so a file with several
// mistakes is reported in one pass, in the order they were found.
type Report struct {
	problems []Problem
}

// Section returns a view of r that files problems under name.
func (r *Report) Section(name string) Section {
	return Section{report: r, name: name}
}

// Problems returns what was found so far.
func (r *Report) Problems() []Problem {
	return r.problems
}

// Err joins all problems, one per line, or returns nil.
func (r *Report) Err() error {
	if len(r.problems) == 0 {
		return nil
	}
	errs := make([]error, len(r.problems))
	for i, p := range r.problems {
		errs[i] = p
	}
	return errors.Join(errs...)
}

// Section files problems under one config section.
type Section struct {
	report *Report
	name   string
}

// Check records err, if any, against the section as a whole.
func (s Section) Check(err error) {
	s.Key("", err)
}

// Key records err, if any, against one key of the section.
func (s Section) Key(key string, err error) {
	if err == nil {
		return
	}
	s.report.problems = append(s.report.problems, Problem{Section: s.name, Key: key, Err: err})
}
