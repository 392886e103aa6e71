// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schedule_test

import (
	"testing"

	"github.com/tralluz/rtexec/schedule"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name                       string
		numTasks                   int
		frameLength, unitMS        uint
		wantErr                    bool
	}{
		{"valid", 3, 5, 10, false},
		{"negative tasks", -1, 5, 10, true},
		{"zero frame length", 3, 0, 10, true},
		{"zero unit", 3, 5, 0, true},
		{"zero tasks is allowed", 0, 5, 10, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := schedule.New(tc.numTasks, tc.frameLength, tc.unitMS)
			if (err != nil) != tc.wantErr {
				t.Errorf("New(%d, %d, %d) error = %v, wantErr %v", tc.numTasks, tc.frameLength, tc.unitMS, err, tc.wantErr)
			}
		})
	}
}

func TestSetPeriodicTaskValidation(t *testing.T) {
	s, err := schedule.New(2, 5, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.SetPeriodicTask(0, func() {}, 1); err != nil {
		t.Errorf("SetPeriodicTask(0, ...) = %v, want nil", err)
	}
	if err := s.SetPeriodicTask(5, func() {}, 1); err == nil {
		t.Errorf("SetPeriodicTask(5, ...) = nil, want out-of-range error")
	}
	if err := s.SetPeriodicTask(1, nil, 1); err == nil {
		t.Errorf("SetPeriodicTask(1, nil, ...) = nil, want nil-function error")
	}
}

func TestAddFrameValidation(t *testing.T) {
	s, err := schedule.New(2, 5, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.AddFrame([]int{0, 1}); err != nil {
		t.Errorf("AddFrame([0,1]) = %v, want nil", err)
	}
	if err := s.AddFrame([]int{0, 7}); err == nil {
		t.Errorf("AddFrame([0,7]) = nil, want out-of-range error")
	}
}

func TestFreezeRequiresEveryTaskAndAFrame(t *testing.T) {
	s, err := schedule.New(2, 5, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Freeze(); err == nil {
		t.Errorf("Freeze() with no tasks or frames = nil, want error")
	}

	s.SetPeriodicTask(0, func() {}, 1)
	s.SetPeriodicTask(1, func() {}, 1)
	if err := s.Freeze(); err == nil {
		t.Errorf("Freeze() with no frames = nil, want error")
	}

	s.AddFrame([]int{0, 1})
	if err := s.Freeze(); err != nil {
		t.Errorf("Freeze() = %v, want nil once every task and a frame are present", err)
	}

	if err := s.AddFrame([]int{0}); err == nil {
		t.Errorf("AddFrame after Freeze = nil, want error")
	}
}

func TestSlackAndUtilizationCheck(t *testing.T) {
	s, err := schedule.New(2, 5, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.SetPeriodicTask(0, func() {}, 2)
	s.SetPeriodicTask(1, func() {}, 2)
	s.AddFrame([]int{0, 1}) // slack = 5-4 = 1
	s.AddFrame([]int{0, 1, 1})
	_ = s

	if got := s.Slack(0); got != 1 {
		t.Errorf("Slack(0) = %d, want 1", got)
	}

	s2, _ := schedule.New(1, 3, 10)
	s2.SetPeriodicTask(0, func() {}, 10)
	s2.AddFrame([]int{0})
	if got := s2.Slack(0); got != -7 {
		t.Errorf("Slack(0) = %d, want -7", got)
	}
	bad := s2.UtilizationCheck()
	if len(bad) != 1 || bad[0] != 0 {
		t.Errorf("UtilizationCheck() = %v, want [0]", bad)
	}
}

func TestAperiodicTaskOptional(t *testing.T) {
	s, err := schedule.New(1, 5, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := s.AperiodicTask(); ok {
		t.Errorf("AperiodicTask() ok = true before SetAperiodicTask, want false")
	}
	if err := s.SetAperiodicTask(func() {}, 2); err != nil {
		t.Fatalf("SetAperiodicTask: %v", err)
	}
	task, ok := s.AperiodicTask()
	if !ok || task == nil {
		t.Fatalf("AperiodicTask() = %v, %v; want non-nil, true", task, ok)
	}
}
