// Copyright 2016 The Vanadium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rt

// Affinity is a finite bitset indexed by CPU number, mirroring a POSIX
// cpu_set_t truncated to 64 entries, which is ample for the single-core pin
// this package exists to express.
type Affinity uint64

// CPU0 is the affinity mask that pins execution to CPU 0 deterministically;
// the only mask the dispatch engine actually uses.
const CPU0 Affinity = 1 << 0

// With returns a mask with cpu added.
func (a Affinity) With(cpu int) Affinity {
	if cpu < 0 || cpu >= 64 {
		return a
	}
	return a | (1 << uint(cpu))
}

// Has reports whether cpu is set in the mask.
func (a Affinity) Has(cpu int) bool {
	if cpu < 0 || cpu >= 64 {
		return false
	}
	return a&(1<<uint(cpu)) != 0
}
