// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package rt

import "errors"

// ThreadID is an opaque thread identifier on platforms without a pthread/tid
// style real-time scheduling API. Every operation degrades to best-effort:
// priority and affinity requests are reported as a PermissionError, and
// callers are expected to catch it, log it, and continue running with
// weaker timing guarantees, exactly as on a Linux box without CAP_SYS_NICE.
type ThreadID int

// ThisThread returns a placeholder identifier for the calling thread.
func ThisThread() ThreadID {
	return 0
}

var errUnsupported = errors.New("real-time scheduling is not supported on this platform")

// SetPriority always fails off Linux; there is no portable SCHED_FIFO.
func SetPriority(tid ThreadID, p Priority) error {
	return &PermissionError{Op: "set_priority", Err: errUnsupported}
}

// GetPriority always reports NotRT off Linux.
func GetPriority(tid ThreadID) (Priority, error) {
	return NotRT, nil
}

// SetAffinity always fails off Linux; there is no portable affinity mask.
func SetAffinity(tid ThreadID, a Affinity) error {
	return &PermissionError{Op: "set_affinity", Err: errUnsupported}
}

// GetAffinity reports the full mask off Linux, since every CPU is assumed
// reachable absent a real affinity API.
func GetAffinity(tid ThreadID) (Affinity, error) {
	return ^Affinity(0), nil
}

// NumCPU falls back to 1 off Linux, a safe assumption for the single-core
// pin this package exists to express.
func NumCPU() int {
	return 1
}
