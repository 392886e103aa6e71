// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package busywait implements a calibration-free spin-wait used by the
// example applications to model a task's worst-case execution time without
// depending on the scheduler to deliver a sleep on time. It is an external
// collaborator of the dispatch engine, not part of it: tasks use it, the
// executive never does.
package busywait

import "time"

// For busy-waits for the given duration by spinning on a monotonic clock
// read, rather than sleeping. This consumes the CPU for the full duration,
// which is the point: it approximates a task that is actually doing
// (CPU-bound) work for its WCET, so the executive's deadline-miss detection
// can be exercised deterministically.
func For(d time.Duration) {
	stop := time.Now().Add(d)
	for time.Now().Before(stop) {
	}
}

// Millis is a convenience wrapper around For for callers, like the example
// applications, that think in whole milliseconds.
func Millis(ms int) {
	For(time.Duration(ms) * time.Millisecond)
}
