// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schedule

import (
	"fmt"
	"time"
)

// Frame is one slot of the rotation: an ordered list of task ids to release,
// in the order they should complete within the frame.
type Frame []int

// Schedule is the immutable-after-Start configuration of a cyclic executive:
// the task table, the frame list, the frame length, and the quantum
// duration. It is safe for concurrent readers once frozen; nothing in this
// package mutates a Schedule after Freeze is called.
type Schedule struct {
	// FrameLength is F, the number of quanta per frame.
	FrameLength uint
	// Unit is U, the wall-clock duration of one quantum.
	Unit time.Duration

	tasks    []*Task
	frames   []Frame
	apTask   *Task
	apWCET   uint
	apSet    bool
	apAssign error

	frozen bool
}

// New allocates a schedule store for numTasks periodic tasks, a frame length
// of frameLength quanta, and a quantum of unitMS milliseconds.
func New(numTasks int, frameLength uint, unitMS uint) (*Schedule, error) {
	if numTasks < 0 {
		return nil, fmt.Errorf("schedule: numTasks must be >= 0, got %d", numTasks)
	}
	if frameLength == 0 {
		return nil, fmt.Errorf("schedule: frameLength must be > 0")
	}
	if unitMS == 0 {
		return nil, fmt.Errorf("schedule: unitMS must be > 0")
	}
	s := &Schedule{
		FrameLength: frameLength,
		Unit:        time.Duration(unitMS) * time.Millisecond,
		tasks:       make([]*Task, numTasks),
	}
	for i := range s.tasks {
		s.tasks[i] = &Task{}
	}
	return s, nil
}

// NumTasks returns the number of periodic task slots.
func (s *Schedule) NumTasks() int {
	return len(s.tasks)
}

// Task returns the periodic task descriptor for id. Panics if id is out of
// range; callers are expected to have validated ids at configuration time.
func (s *Schedule) Task(id int) *Task {
	return s.tasks[id]
}

// AperiodicTask returns the aperiodic task descriptor and whether one was
// configured.
func (s *Schedule) AperiodicTask() (*Task, bool) {
	return s.apTask, s.apSet
}

// SetPeriodicTask assigns the function and WCET for periodic task id. It is
// a configuration error, and fatal, to call this after Freeze or with an
// out-of-range id.
func (s *Schedule) SetPeriodicTask(id int, fn Func, wcet uint) error {
	if s.frozen {
		return fmt.Errorf("schedule: SetPeriodicTask(%d) called after Start", id)
	}
	if id < 0 || id >= len(s.tasks) {
		return fmt.Errorf("schedule: task id %d out of range [0,%d)", id, len(s.tasks))
	}
	if fn == nil {
		return fmt.Errorf("schedule: task %d given a nil function", id)
	}
	s.tasks[id].Fn = fn
	s.tasks[id].WCET = wcet
	return nil
}

// SetAperiodicTask configures the optional aperiodic task.
func (s *Schedule) SetAperiodicTask(fn Func, wcet uint) error {
	if s.frozen {
		return fmt.Errorf("schedule: SetAperiodicTask called after Start")
	}
	if fn == nil {
		return fmt.Errorf("schedule: aperiodic task given a nil function")
	}
	s.apTask = &Task{Fn: fn, WCET: wcet}
	s.apWCET = wcet
	s.apSet = true
	return nil
}

// AddFrame appends a frame to the rotation. Every id referenced must be
// < NumTasks(); the same id may appear in a frame more than once (not
// recommended, but not rejected, per the source's own loose invariant).
func (s *Schedule) AddFrame(ids []int) error {
	if s.frozen {
		return fmt.Errorf("schedule: AddFrame called after Start")
	}
	frame := make(Frame, len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(s.tasks) {
			return fmt.Errorf("schedule: frame references task id %d out of range [0,%d)", id, len(s.tasks))
		}
		frame[i] = id
	}
	s.frames = append(s.frames, frame)
	return nil
}

// Frames returns the configured frame list. Valid only after Freeze.
func (s *Schedule) Frames() []Frame {
	return s.frames
}

// Slack returns F minus the sum of WCETs of the tasks in frame k, the spare
// capacity available to the aperiodic task under the slack-stealing policy.
// It may be negative if the frame is over-subscribed; callers that rely on
// it for admission should treat a negative result as zero slack.
func (s *Schedule) Slack(frameIdx int) int {
	total := 0
	for _, id := range s.frames[frameIdx] {
		total += int(s.tasks[id].WCET)
	}
	return int(s.FrameLength) - total
}

// Freeze validates the configuration and marks the schedule immutable. It
// fails if any periodic slot lacks a function, or if there are no frames.
func (s *Schedule) Freeze() error {
	if s.frozen {
		return fmt.Errorf("schedule: already started")
	}
	for id, t := range s.tasks {
		if t.Fn == nil {
			return fmt.Errorf("schedule: task %d has no function assigned", id)
		}
	}
	if len(s.frames) == 0 {
		return fmt.Errorf("schedule: no frames configured")
	}
	s.frozen = true
	return nil
}

// UtilizationCheck reports every frame index whose sum of periodic WCETs
// exceeds the frame length. This is the "implementation-defined sanity
// check" mentioned in the source material's open questions: periodic WCETs
// are otherwise unused by the flag-based dispatch policy, but a schedule
// that is over-budget on paper is worth flagging before Start.
func (s *Schedule) UtilizationCheck() []int {
	var bad []int
	for k := range s.frames {
		if s.Slack(k) < 0 {
			bad = append(bad, k)
		}
	}
	return bad
}
