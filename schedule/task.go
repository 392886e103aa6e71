// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package schedule holds the data model shared by the executive and its
// worker threads: task descriptors, frame lists, and the immutable schedule
// those frames describe.
package schedule

import (
	"github.com/tralluz/rtexec/nsync"
)

// State is a task's position in the release/run/completion cycle.
type State int

const (
	// Idle is the initial state of a task that has never been released.
	Idle State = iota
	// Ready means the executive has released the task but its worker has
	// not yet woken up to run it.
	Ready
	// Running means the worker is currently executing the task function.
	Running
	// Done means the task either completed naturally or was forced to
	// completion by the executive after a deadline miss.
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Done:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Func is the signature of a task body: no arguments, no return value,
// invoked once per release.
type Func func()

// Task is one descriptor, shared between the executive (which releases it
// and audits its deadline) and exactly one worker goroutine (which runs it).
//
// Mu guards State and the unexported fields below; the function and WCET
// are fixed before Start and read without synchronization afterward.
// CVRelease wakes the worker when the executive sets Ready; CVDone is
// broadcast whenever the state becomes Done (the executive in package
// rtexec does not wait on it: it reads the state after the frame boundary).
type Task struct {
	Mu        nsync.Mu
	CVRelease nsync.CV
	CVDone    nsync.CV

	Fn    Func
	WCET  uint // worst-case execution time, in quanta
	State State

	// runCount counts completed worker iterations, written with Mu held.
	// Nothing in this module reads it.
	runCount int

	// apPending is the aperiodic request flag. Only meaningful on the task
	// descriptor returned by Schedule.AperiodicTask; periodic descriptors
	// carry the field but never set it. Guarded by Mu, per the source's
	// "guarded by the aperiodic descriptor's mutex" requirement.
	apPending bool

	// osThreadID is the OS thread id the worker goroutine pinned itself to
	// via runtime.LockOSThread, recorded once at worker start and read by
	// the executive to retarget priority on release, demotion, or audit.
	// It is a plain int rather than an rt.ThreadID so this package does not
	// need to import the platform-specific rt package.
	osThreadID int

	// stopped is set by Stop and makes the worker loop in Run return
	// instead of blocking forever, so a test's call to the executive's
	// Wait can unblock deterministically instead of leaking the goroutine.
	stopped bool

	// OnRunStart, if set, is called with no lock held right after the
	// Ready->Running transition; OnRunDone, if set, is called with no lock
	// held right after the function returns, before the state is set to
	// Done. They exist
	// purely for instrumentation (see package timing) and must not block
	// or touch t.
	OnRunStart func()
	OnRunDone  func()
}

// Release transitions the task from {Idle,Done} to Ready and wakes its
// worker. It reports whether the release happened; a false result means the
// task's previous instance had not finished (state was Ready or Running),
// and the caller should treat this as a release conflict.
func (t *Task) Release() bool {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if t.State != Idle && t.State != Done {
		return false
	}
	t.State = Ready
	t.CVRelease.Broadcast()
	return true
}

// ForceDone force-transitions a task to Done regardless of its current
// state. Used by the executive on a deadline miss; it does not interrupt the
// worker, which is allowed to keep running and will perform its own
// (idempotent) Running->Done transition later.
func (t *Task) ForceDone() {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	t.State = Done
	t.CVDone.Broadcast()
}

// SnapshotState returns the task's current state under lock.
func (t *Task) SnapshotState() State {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	return t.State
}

// RequestRelease is ap_task_request: it arms apPending if the task is not
// already active, coalescing repeated requests within the same frame into
// a single release, per this source's mandated (as opposed to
// reject-on-conflict) policy. Safe to call from any goroutine, including
// concurrently from multiple periodic tasks.
func (t *Task) RequestRelease() {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if t.State == Idle || t.State == Done {
		t.apPending = true
	}
}

// ConsumeRequest reads and clears apPending atomically, for the executive's
// once-per-frame snapshot step.
func (t *Task) ConsumeRequest() bool {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	pending := t.apPending
	t.apPending = false
	return pending
}

// SetOSThreadID records the OS thread id the worker goroutine is pinned to.
// Called once by the worker itself before entering its release loop.
func (t *Task) SetOSThreadID(id int) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	t.osThreadID = id
}

// OSThreadID returns the worker's OS thread id, or 0 if the worker has not
// started yet.
func (t *Task) OSThreadID() int {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	return t.osThreadID
}

// Stop tells the worker loop to return instead of waiting for its next
// release. It does not interrupt a function currently executing in Run; it
// only takes effect the next time the loop would otherwise block.
func (t *Task) Stop() {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	t.stopped = true
	t.CVRelease.Broadcast()
}

// Run is the worker loop body. It blocks until released, runs fn with no
// lock held, then marks itself done. It loops until Stop is called and is
// meant to run on its own goroutine.
//
// The second Running->Done transition performed after a deadline-miss
// ForceDone is a deliberate no-op: State is already Done, or Ready again if
// the executive released the next instance meanwhile, in which case it stays
// Ready and the loop runs that instance next. The redundant
// CVDone.Broadcast is harmless because a waiter on a CV re-checks its
// predicate after every wakeup.
func (t *Task) Run() {
	for {
		t.Mu.Lock()
		for t.State != Ready && !t.stopped {
			t.CVRelease.Wait(&t.Mu)
		}
		if t.stopped {
			t.Mu.Unlock()
			return
		}
		t.State = Running
		t.Mu.Unlock()

		if t.OnRunStart != nil {
			t.OnRunStart()
		}

		t.Fn()

		if t.OnRunDone != nil {
			t.OnRunDone()
		}

		t.Mu.Lock()
		if t.State == Running {
			t.State = Done
		}
		t.runCount++
		t.CVDone.Broadcast()
		t.Mu.Unlock()
	}
}
