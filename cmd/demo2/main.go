// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Binary demo2 runs a six-task, six-frame schedule where one task's busy
// wait varies by invocation count, to exercise a schedule whose frame
// utilization is occasionally tight rather than uniformly comfortable.
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
	fmt.Printf("demo2: arch=%s build=%s\n", arch, buildinfo.Info())
}

func periodicTask4() func() {
	count := 0
	return func() {
		count++
		fmt.Println("task 4 running")
		if count%5 == 0 {
			busywait.Millis(31)
		} else {
			busywait.Millis(28)
		}
	}
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
		{periodicTask4(), 3},
		{task(5, 8), 1},
	}
	for id, t := range tasks {
		if err := exec.SetPeriodicTask(id, t.fn, t.wcet); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
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
