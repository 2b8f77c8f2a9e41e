// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package cache implements the process-wide registry of bounded in-memory
// caches and the generic LRU cache registered with it.
package cache

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Footprint is an amount of process memory and shared memory in bytes.
type Footprint struct {
	Memory uint64
	Shared uint64
}

// Add returns f + o.
func (f Footprint) Add(o Footprint) Footprint {
	return Footprint{Memory: f.Memory + o.Memory, Shared: f.Shared + o.Shared}
}

// Sub returns f - o, saturating at zero.
func (f Footprint) Sub(o Footprint) Footprint {
	return Footprint{Memory: saturatingSub(f.Memory, o.Memory), Shared: saturatingSub(f.Shared, o.Shared)}
}

// Exceeds reports whether f is over capacity in either kind of memory. A
// zero component of capacity means unlimited.
func (f Footprint) Exceeds(capacity Footprint) bool {
	return !f.Excess(capacity).IsZero()
}

// Excess returns how far f is over capacity, per kind of memory.
func (f Footprint) Excess(capacity Footprint) Footprint {
	var e Footprint
	if capacity.Memory > 0 {
		e.Memory = saturatingSub(f.Memory, capacity.Memory)
	}
	if capacity.Shared > 0 {
		e.Shared = saturatingSub(f.Shared, capacity.Shared)
	}
	return e
}

// IsZero reports whether f is empty.
func (f Footprint) IsZero() bool {
	return f.Memory == 0 && f.Shared == 0
}

// ShortOf reports whether f is below target in a kind of memory that held
// still has.
func (f Footprint) ShortOf(target, held Footprint) bool {
	return (f.Memory < target.Memory && held.Memory > 0) || (f.Shared < target.Shared && held.Shared > 0)
}

func (f Footprint) String() string {
	return fmt.Sprintf("memory=%s shared=%s", humanize.IBytes(f.Memory), humanize.IBytes(f.Shared))
}

func saturatingSub(a, b uint64) uint64 {
	if a < b {
		return 0
	}
	return a - b
}

func divCeil(a uint64, n int) uint64 {
	if a == 0 {
		return 0
	}
	return (a + uint64(n) - 1) / uint64(n)
}
