// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package rt

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ThreadID identifies an OS thread by its Linux tid, as returned by
// gettid(2). The caller must have pinned the goroutine to that thread with
// runtime.LockOSThread before the tid is meaningful to subsequent calls.
type ThreadID int

// ThisThread returns the tid of the calling OS thread.
func ThisThread() ThreadID {
	return ThreadID(unix.Gettid())
}

type schedParam struct {
	Priority int32
}

// SetPriority requests SCHED_FIFO at the given real-time level for the
// thread identified by tid, or SCHED_OTHER if p is NotRT. It returns a
// *PermissionError if the kernel refuses, which happens when the process
// lacks CAP_SYS_NICE or an equivalent RLIMIT_RTPRIO allowance.
func SetPriority(tid ThreadID, p Priority) error {
	var param schedParam
	policy := unix.SCHED_OTHER
	if p.IsRT() {
		policy = unix.SCHED_FIFO
		param.Priority = int32(p)
	}
	_, _, errno := unix.Syscall(unix.SYS_SCHED_SETSCHEDULER,
		uintptr(tid), uintptr(policy), uintptr(unsafe.Pointer(&param)))
	if errno != 0 {
		return &PermissionError{Op: fmt.Sprintf("set_priority(%d, %v)", tid, p), Err: errno}
	}
	return nil
}

// GetPriority returns the current scheduling priority of tid, mapped back
// into the Priority domain; a thread not in SCHED_FIFO reports NotRT.
func GetPriority(tid ThreadID) (Priority, error) {
	var param schedParam
	policy, _, errno := unix.Syscall(unix.SYS_SCHED_GETSCHEDULER, uintptr(tid), 0, 0)
	if errno != 0 {
		return NotRT, &PermissionError{Op: fmt.Sprintf("get_priority(%d)", tid), Err: errno}
	}
	if int(policy) != unix.SCHED_FIFO {
		return NotRT, nil
	}
	if _, _, errno := unix.Syscall(unix.SYS_SCHED_GETPARAM,
		uintptr(tid), uintptr(unsafe.Pointer(&param)), 0); errno != 0 {
		return NotRT, &PermissionError{Op: fmt.Sprintf("get_priority(%d)", tid), Err: errno}
	}
	return Priority(param.Priority), nil
}

// SetAffinity pins tid to exactly the CPUs named in a.
func SetAffinity(tid ThreadID, a Affinity) error {
	var set unix.CPUSet
	set.Zero()
	for cpu := 0; cpu < 64; cpu++ {
		if a.Has(cpu) {
			set.Set(cpu)
		}
	}
	if err := unix.SchedSetaffinity(int(tid), &set); err != nil {
		return &PermissionError{Op: fmt.Sprintf("set_affinity(%d, %#x)", tid, uint64(a)), Err: err}
	}
	return nil
}

// GetAffinity returns the CPU set tid is currently permitted to run on.
func GetAffinity(tid ThreadID) (Affinity, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(int(tid), &set); err != nil {
		return 0, &PermissionError{Op: fmt.Sprintf("get_affinity(%d)", tid), Err: err}
	}
	var a Affinity
	for cpu := 0; cpu < 64; cpu++ {
		if set.IsSet(cpu) {
			a = a.With(cpu)
		}
	}
	return a, nil
}

// NumCPU returns the number of CPUs in the calling thread's affinity mask,
// or 1 if the mask cannot be read or is empty.
func NumCPU() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return 1
	}
	n := 0
	for cpu := 0; cpu < 64; cpu++ {
		if set.IsSet(cpu) {
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}
