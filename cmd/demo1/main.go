// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Binary demo1 runs a five-task, five-frame schedule with no aperiodic
// task, all five periodic tasks busy-waiting comfortably inside their
// frame's budget.
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
	fmt.Printf("demo1: arch=%s build=%s\n", arch, buildinfo.Info())
}

func main() {
	printBanner()

	exec, err := rtexec.New(5, 4, 100)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	wcets := []uint{1, 2, 1, 3, 1}
	durations := []int{90, 185, 88, 270, 80}
	for id := range wcets {
		if err := exec.SetPeriodicTask(id, task(id, durations[id]), wcets[id]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	frames := [][]int{
		{0, 1, 2},
		{0, 3},
		{0, 1},
		{0, 1},
		{0, 1, 4},
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
