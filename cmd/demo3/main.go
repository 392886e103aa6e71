// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Binary demo3 extends demo2 with an aperiodic task: every fifth
// invocation, periodic task 4 calls APTaskRequest partway through its own
// busy-wait, exercising the coalescing contract between a periodic task's
// on-demand request and the executive's once-per-frame aperiodic service.
package main

import (
	"fmt"
	"os"

	"github.com/tralluz/rtexec/buildinfo"
	"github.com/tralluz/rtexec/busywait"
	"github.com/tralluz/rtexec/host"
	"github.com/tralluz/rtexec/rtexec"
)

func task(id int, ms int) func() {
	return func() {
		fmt.Printf("task %d running\n", id)
		busywait.Millis(ms)
	}
}

func printBanner() {
	arch, err := host.Arch()
	if err != nil {
		arch = "unknown"
	}
	fmt.Printf("demo3: arch=%s build=%s\n", arch, buildinfo.Info())
}

func periodicTask4(exec *rtexec.Executive) func() {
	count := 0
	return func() {
		count++
		fmt.Println("task 4 running")
		if count%5 == 0 {
			busywait.Millis(5)
			exec.APTaskRequest()
			busywait.Millis(7)
		} else {
			busywait.Millis(28)
		}
	}
}

func aperiodicTask() {
	fmt.Println("aperiodic task released")
	busywait.Millis(42)
	fmt.Println("aperiodic task finished")
}

func main() {
	printBanner()

	exec, err := rtexec.New(6, 5, 10)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	type spec struct {
		fn   func()
		wcet uint
	}
	tasks := []spec{
		{task(0, 15), 2},
		{task(1, 6), 1},
		{task(2, 18), 2},
		{task(3, 17), 2},
		{periodicTask4(exec), 3},
		{task(5, 8), 1},
	}
	for id, t := range tasks {
		if err := exec.SetPeriodicTask(id, t.fn, t.wcet); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if err := exec.SetAperiodicTask(aperiodicTask, 5); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	frames := [][]int{
		{0, 1, 2},
		{3, 4},
		{0, 3},
		{1, 4, 5},
		{0, 2},
		{1, 5, 2},
	}
	for _, f := range frames {
		if err := exec.AddFrame(f); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	if err := exec.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	exec.Wait()
}
