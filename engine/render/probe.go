// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package render implements the top-level slice/sub-cube renderer
// that drives an engine/volume.VolumeManager, plus the camera math
// and performance-probe harness used to exercise it.
package render

import (
	"time"

	"github.com/gviegas/voleon/linear"
)

// Fixed camera parameters used by Probe, per spec.
var (
	ProbeEye    = linear.V3{0, 0, -0.5}
	ProbeCenter = linear.V3{0, 0, 0}
	ProbeUp     = linear.V3{0, 1, 0}
	ProbeYFOV   = float32(45 * (3.14159265 / 180))
	ProbeNear   = float32(0.1)
	ProbeFar    = float32(10)
)

// Probe is a synchronous performance-measurement harness: it times
// each of a set of render callbacks, running every callback up to
// MaxRuns times or until MaxTime has elapsed overall, whichever comes
// first.
type Probe struct {
	MaxRuns int
	MaxTime time.Duration
}

// Run executes setup (if non-nil), then times each callback in cbs up
// to p.MaxRuns times (or until p.MaxTime has elapsed across the whole
// probe), then executes teardown (if non-nil). It returns, for each
// callback, the average wall-clock duration of its runs.
func (p *Probe) Run(setup, teardown func(), cbs []func()) []time.Duration {
	if setup != nil {
		setup()
	}
	defer func() {
		if teardown != nil {
			teardown()
		}
	}()

	avgs := make([]time.Duration, len(cbs))
	start := time.Now()
	for i, cb := range cbs {
		if cb == nil {
			continue
		}
		var total time.Duration
		runs := 0
		for runs < p.MaxRuns {
			if p.MaxTime > 0 && time.Since(start) >= p.MaxTime {
				break
			}
			t0 := time.Now()
			cb()
			total += time.Since(t0)
			runs++
		}
		if runs > 0 {
			avgs[i] = total / time.Duration(runs)
		}
	}
	return avgs
}
