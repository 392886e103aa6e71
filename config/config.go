// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the declarative, non-behavioural part of a cyclic
// executive's schedule — frame length, quantum, frame list, and WCETs —
// from a TOML file, leaving the task functions themselves to be wired in by
// the host program. This mirrors the source's split between "offline
// schedulability analysis" (data the user supplies) and the dispatch engine
// (code that runs it): a config file can be regenerated by that offline
// analysis without touching the binary.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/tralluz/rtexec/rtexec"
)

// Task is one entry of the [[task]] array: its WCET in quanta, and an
// optional human-readable name used only in log lines.
type Task struct {
	Name string `toml:"name"`
	WCET uint   `toml:"wcet"`
}

// Aperiodic configures the optional aperiodic task's WCET; its function is
// still wired in code. Schedule.UtilizationCheck sums periodic WCETs only,
// so this WCET does not enter that check.
type Aperiodic struct {
	WCET uint `toml:"wcet"`
}

// File is the root of a schedule configuration file.
//
//	frame_length = 10
//	unit_ms = 10
//	frames = [[0, 1], [0], [1]]
//
//	[[task]]
//	name = "sensor"
//	wcet = 3
//
//	[[task]]
//	name = "control"
//	wcet = 4
//
//	[aperiodic]
//	wcet = 2
type File struct {
	FrameLength uint        `toml:"frame_length"`
	UnitMS      uint        `toml:"unit_ms"`
	Tasks       []Task      `toml:"task"`
	Aperiodic   *Aperiodic  `toml:"aperiodic"`
	Frames      [][]int     `toml:"frames"`
}

// Load parses path as a schedule configuration file.
func Load(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if f.FrameLength == 0 {
		return nil, fmt.Errorf("config: %s: frame_length must be > 0", path)
	}
	if f.UnitMS == 0 {
		return nil, fmt.Errorf("config: %s: unit_ms must be > 0", path)
	}
	if len(f.Tasks) == 0 {
		return nil, fmt.Errorf("config: %s: no [[task]] entries", path)
	}
	if len(f.Frames) == 0 {
		return nil, fmt.Errorf("config: %s: no frames", path)
	}
	return &f, nil
}

// NewExecutive allocates an *rtexec.Executive sized and framed per f, with
// every WCET set. The caller is still responsible for calling
// SetPeriodicTask and, if f.Aperiodic is set, SetAperiodicTask with the
// actual task functions before Start; NewExecutive only transfers the
// structural data a config file can express, and gives every task a no-op
// placeholder function until then.
func (f *File) NewExecutive() (*rtexec.Executive, error) {
	e, err := rtexec.New(len(f.Tasks), f.FrameLength, f.UnitMS)
	if err != nil {
		return nil, err
	}
	for id, t := range f.Tasks {
		if err := e.SetPeriodicTask(id, func() {}, t.WCET); err != nil {
			return nil, fmt.Errorf("config: task %d (%s): %w", id, t.Name, err)
		}
	}
	if f.Aperiodic != nil {
		if err := e.SetAperiodicTask(func() {}, f.Aperiodic.WCET); err != nil {
			return nil, fmt.Errorf("config: aperiodic: %w", err)
		}
	}
	for _, ids := range f.Frames {
		if err := e.AddFrame(ids); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	return e, nil
}

// TaskName returns the configured name for periodic task id, or a
// placeholder if the config did not name it.
func (f *File) TaskName(id int) string {
	if id < 0 || id >= len(f.Tasks) || f.Tasks[id].Name == "" {
		return fmt.Sprintf("task-%d", id)
	}
	return f.Tasks[id].Name
}
