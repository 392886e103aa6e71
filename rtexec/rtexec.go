// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rtexec implements the lifecycle façade and executive loop of a
// cyclic-executive real-time dispatch engine: a master goroutine that
// releases a fixed rotation of periodic tasks at frame boundaries, services
// an optional aperiodic task by flag, audits deadlines, and demotes workers
// that overrun.
//
// The executive and its workers are ordinary goroutines pinned to a single
// OS thread each via runtime.LockOSThread, so that the rt package's
// SCHED_FIFO priority and CPU affinity calls target a stable kernel thread
// for the lifetime of the process.
package rtexec

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/tralluz/rtexec/rt"
	"github.com/tralluz/rtexec/schedule"
	"github.com/tralluz/rtexec/timing"
	"github.com/tralluz/rtexec/uniqueid"
	"github.com/tralluz/rtexec/vlog"
)

// Executive binds a schedule.Schedule to a running set of worker goroutines
// and the master executive goroutine. It is the "new/set_*/add_frame/start/
// wait/ap_task_request" façade.
type Executive struct {
	sched *schedule.Schedule
	runID uniqueid.ID

	timerMu sync.Mutex
	timer   *timing.FullTimer

	stopCh    chan struct{}
	stopOnce  sync.Once
	doneCh    chan struct{}
	startOnce sync.Once

	// Observe, if set before Start, is called by the executive goroutine at
	// the top of every iteration with the hyperperiod cycle number and the
	// frame index about to be released. It exists for tests that need to
	// observe invariant 6 (cyclic frame cursor) without scraping stdout.
	Observe func(cycle, frameID int)
}

// New allocates an Executive with numTasks periodic task slots, a frame
// length of frameLength quanta, and a quantum of unitMS milliseconds. No
// goroutines are started; see schedule.New for argument validation.
func New(numTasks int, frameLength uint, unitMS uint) (*Executive, error) {
	sched, err := schedule.New(numTasks, frameLength, unitMS)
	if err != nil {
		return nil, err
	}
	id, err := uniqueid.Random()
	if err != nil {
		return nil, fmt.Errorf("rtexec: generating run id: %w", err)
	}
	return &Executive{
		sched:  sched,
		runID:  id,
		timer:  timing.NewFullTimer("run"),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// RunID returns the identifier generated for this Executive, suitable for
// correlating its log lines across a fleet of runs.
func (e *Executive) RunID() uniqueid.ID {
	return e.runID
}

// Timer returns the hierarchical timing tree accumulated for this run. It is
// safe to call at any point, including while the executive is running, but
// a tree read concurrently with an open interval will see that interval
// without an EndTime.
func (e *Executive) Timer() *timing.FullTimer {
	return e.timer
}

// SetPeriodicTask assigns the function and WCET for periodic task id.
func (e *Executive) SetPeriodicTask(id int, fn schedule.Func, wcet uint) error {
	return e.sched.SetPeriodicTask(id, fn, wcet)
}

// SetAperiodicTask configures the optional aperiodic task.
func (e *Executive) SetAperiodicTask(fn schedule.Func, wcet uint) error {
	return e.sched.SetAperiodicTask(fn, wcet)
}

// AddFrame appends a frame to the rotation.
func (e *Executive) AddFrame(ids []int) error {
	return e.sched.AddFrame(ids)
}

// Schedule exposes the underlying schedule store, mostly so tests and the
// example binaries can inspect Slack and UtilizationCheck before Start.
func (e *Executive) Schedule() *schedule.Schedule {
	return e.sched
}

// APTaskRequest is ap_task_request: callable from any worker goroutine
// (typically a periodic task wanting on-demand service). It is a no-op if
// no aperiodic task was configured.
func (e *Executive) APTaskRequest() {
	t, ok := e.sched.AperiodicTask()
	if !ok {
		return
	}
	t.RequestRelease()
}

// Start freezes the schedule, spawns one worker goroutine per task plus the
// executive goroutine, and returns. It is an error to call Start twice or
// before every periodic slot has a function; see schedule.Schedule.Freeze.
func (e *Executive) Start() error {
	var startErr error
	e.startOnce.Do(func() {
		if err := e.sched.Freeze(); err != nil {
			startErr = err
			return
		}
		if bad := e.sched.UtilizationCheck(); len(bad) > 0 {
			vlog.Log.Infof("rtexec[%x]: frame(s) over budget (sum of WCET exceeds frame length): %v", e.runID, bad)
		}
		apTask, apSet := e.sched.AperiodicTask()
		vlog.Log.Infof("rtexec[%x]: starting, %d periodic task(s), aperiodic=%v, %d frame(s)",
			e.runID, e.sched.NumTasks(), apSet, len(e.sched.Frames()))

		for id := 0; id < e.sched.NumTasks(); id++ {
			t := e.sched.Task(id)
			e.instrument(t, fmt.Sprintf("task-%d", id))
			go e.runWorker(t, fmt.Sprintf("task %d", id))
		}
		if apSet {
			e.instrument(apTask, "aperiodic")
			go e.runWorker(apTask, "aperiodic")
		}
		go e.runExecutive()
	})
	return startErr
}

// instrument wires a task's OnRunStart/OnRunDone hooks to push and pop a
// named interval on the run's timing tree. Pushes and pops race across
// concurrently running workers, so they go through timerMu; the user
// function itself still runs with no rtexec lock held.
func (e *Executive) instrument(t *schedule.Task, label string) {
	t.OnRunStart = func() {
		e.timerMu.Lock()
		e.timer.Push(label)
		e.timerMu.Unlock()
	}
	t.OnRunDone = func() {
		e.timerMu.Lock()
		e.timer.Pop()
		e.timerMu.Unlock()
	}
}

// Wait blocks until the executive goroutine returns, which happens only
// after Stop is called (or never, for a process left to run forever and
// terminated externally, per the source's "wait is an intentional run
// forever anchor" design note).
func (e *Executive) Wait() {
	<-e.doneCh
}

// Stop requests cooperative shutdown: the executive goroutine returns at
// its next frame-boundary sleep or at the top of its next iteration,
// whichever it reaches first (at once if it is already sleeping), without
// releasing another frame, and every worker
// goroutine returns the next time it would otherwise wait for a release.
// Safe to call more than once and safe to call before Start.
func (e *Executive) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
	})
	for id := 0; id < e.sched.NumTasks(); id++ {
		e.sched.Task(id).Stop()
	}
	if apTask, ok := e.sched.AperiodicTask(); ok {
		apTask.Stop()
	}
}

// runWorker pins the calling goroutine to its own OS thread, records that
// thread's id on the descriptor so the executive can retarget its priority,
// requests CPU 0 affinity, and then runs the release loop until the task is
// stopped.
func (e *Executive) runWorker(t *schedule.Task, label string) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tid := rt.ThisThread()
	t.SetOSThreadID(int(tid))
	if err := rt.SetAffinity(tid, rt.CPU0); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] set_affinity %s: %v\n", label, err)
	}
	t.Run()
}

// setPriority retargets a task's OS thread, logging in the exact
// "[ERROR] set_priority ...: <reason>" form the diagnostic contract
// requires when the kernel refuses.
func (e *Executive) setPriority(t *schedule.Task, p rt.Priority, label string) {
	tid := rt.ThreadID(t.OSThreadID())
	if tid == 0 {
		// Worker has not recorded a thread id yet; nothing to retarget.
		return
	}
	if err := rt.SetPriority(tid, p); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] set_priority %s: %v\n", label, err)
	}
}

// sleepUntil blocks until t or until stopCh is closed, whichever comes
// first, and reports whether it returned because of a stop request.
func sleepUntil(t time.Time, stopCh <-chan struct{}) (stopped bool) {
	d := time.Until(t)
	if d <= 0 {
		select {
		case <-stopCh:
			return true
		default:
			return false
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return false
	case <-stopCh:
		return true
	}
}

// runExecutive is the master loop: pin to CPU 0 at rt_max, then run the
// seven-step per-frame algorithm until Stop is called. It never returns on
// its own, matching the source's "wait is an intentional run forever
// anchor"; only Stop unblocks it.
func (e *Executive) runExecutive() {
	defer close(e.doneCh)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tid := rt.ThisThread()
	if err := rt.SetAffinity(tid, rt.CPU0); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] set_affinity executive: %v\n", err)
	}
	if err := rt.SetPriority(tid, rt.RTMax); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] set_priority executive: %v\n", err)
	}

	frames := e.sched.Frames()
	nFrames := len(frames)
	apTask, apSet := e.sched.AperiodicTask()

	frameLen := time.Duration(e.sched.FrameLength) * e.sched.Unit
	nextFrameTime := time.Now()

	for iteration := 0; ; iteration++ {
		select {
		case <-e.stopCh:
			return
		default:
		}

		k := iteration % nFrames
		cycle := iteration / nFrames
		header := fmt.Sprintf("*** Frame %d.%d", cycle, k)
		if k == 0 {
			header += " ******"
		}
		fmt.Fprintln(os.Stdout, header)
		if e.Observe != nil {
			e.Observe(cycle, k)
		}

		// Step 1+2: snapshot and clear the aperiodic request, then either
		// release it or report a collision with a still-active instance.
		// Priorities descend from rt_max-1 in release order, so the
		// aperiodic (released first in the flag-based variant) sits above
		// the frame's periodic tasks.
		prio := rt.RTMax.Dec()
		if apSet && apTask.ConsumeRequest() {
			switch apTask.SnapshotState() {
			case schedule.Ready, schedule.Running:
				fmt.Fprintln(os.Stderr, "[DEADLINE MISS] Aperiodic")
				e.setPriority(apTask, rt.RTMin, "aperiodic")
				apTask.ForceDone()
			default:
				e.setPriority(apTask, prio, "aperiodic")
				apTask.Release()
				prio = prio.Dec()
			}
		}

		// Step 3: release the frame's periodic tasks in order, descending
		// priority, so the single-core RT scheduler serialises them in
		// list order even though every worker is woken at once.
		for _, id := range frames[k] {
			t := e.sched.Task(id)
			switch t.SnapshotState() {
			case schedule.Idle, schedule.Done:
				e.setPriority(t, prio, fmt.Sprintf("task %d", id))
				t.Release()
				prio = prio.Dec()
			default:
				fmt.Fprintf(os.Stderr, "[WARN] Task %d in state %s at release\n", id, t.SnapshotState())
			}
		}

		// Step 4: sleep to the next absolute frame boundary. Using
		// absolute rather than relative time prevents cumulative drift
		// from the cost of steps 1-3, 5-7.
		nextFrameTime = nextFrameTime.Add(frameLen)
		if sleepUntil(nextFrameTime, e.stopCh) {
			return
		}

		// Step 5: deadline audit of the frame just ending.
		for _, id := range frames[k] {
			t := e.sched.Task(id)
			if t.SnapshotState() != schedule.Done {
				fmt.Fprintf(os.Stderr, "[DEADLINE MISS] Task %d\n", id)
				e.setPriority(t, rt.RTMin, fmt.Sprintf("task %d", id))
				t.ForceDone()
			}
		}

		// Step 6: aperiodic deadline audit, treating it as having a
		// one-frame relative deadline regardless of which frame released
		// it.
		if apSet {
			switch apTask.SnapshotState() {
			case schedule.Ready, schedule.Running:
				fmt.Fprintln(os.Stderr, "[DEADLINE MISS] Aperiodic")
				e.setPriority(apTask, rt.RTMin, "aperiodic")
				apTask.ForceDone()
			}
		}

		// Step 7: the cursor advances implicitly via (iteration+1) % nFrames
		// at the top of the next loop.
	}
}
