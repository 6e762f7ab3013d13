// Package friends builds the per-particle compact neighbor list that the
// density solver and post-pass kernels read exclusively: C concentric
// circles (distance shells) of up to M neighbors each, found by walking
// the uniform grid's 3×3×3 cell neighborhood. Caching neighbors once per
// substep amortizes the grid walk across the solver's N iterations.
package friends

import (
	"math"
	"sync/atomic"

	"github.com/pthm-cable/pbfsim/pbf/grid"
	"github.com/pthm-cable/pbfsim/pbf/params"
	"github.com/pthm-cable/pbfsim/pbf/state"
)

// List is the friends-list buffer. The C counters per particle and the
// C*M neighbor indices per particle live in two separate flat arrays
// rather than interleaved; stride records the interleaved per-particle
// width C + C*M, which no accessor here uses.
type List struct {
	Circles   uint32
	PerCircle uint32
	stride    uint32
	counters  []int32 // [P*C]
	neighbors []int32 // [P*C*M]
}

// NewList allocates a friends list for p particles with the given circle
// geometry.
func NewList(p uint32, circles, perCircle uint32) *List {
	return &List{
		Circles:   circles,
		PerCircle: perCircle,
		stride:    circles + circles*perCircle,
		counters:  make([]int32, uint64(p)*uint64(circles)),
		neighbors: make([]int32, uint64(p)*uint64(circles)*uint64(perCircle)),
	}
}

// Reset clears all circle counters. Neighbor slots are not cleared —
// only entries within [0, counter) for a circle are meaningful, matching
// the atomic-increment-then-conditional-write discipline in Build.
func (l *List) Reset() {
	for i := range l.counters {
		l.counters[i] = 0
	}
}

// Counter returns the number of neighbors recorded in particle i's k-th
// circle. The raw atomic counter overshoots PerCircle when a circle
// overflows (the losing increments never write a slot), so the result is
// clamped to the number of slots actually populated.
func (l *List) Counter(i int, k uint32) int32 {
	n := l.counters[uint32(i)*l.Circles+k]
	if n > int32(l.PerCircle) {
		return int32(l.PerCircle)
	}
	return n
}

// Neighbor returns the j-th recorded neighbor of particle i's k-th
// circle. j must be < Counter(i, k).
func (l *List) Neighbor(i int, k uint32, j int32) int32 {
	base := (uint32(i)*l.Circles + k) * l.PerCircle
	return l.neighbors[base+uint32(j)]
}

// ForEach invokes fn for every recorded neighbor of particle i across
// all circles. Insertion order within a circle is unspecified; callers
// must not depend on it.
func (l *List) ForEach(i int, fn func(j int32)) {
	for k := uint32(0); k < l.Circles; k++ {
		n := l.Counter(i, k)
		for j := int32(0); j < n; j++ {
			fn(l.Neighbor(i, k, j))
		}
	}
}

// Build walks the 3×3×3 cell neighborhood around particle i's predicted
// cell and buckets every candidate j ≠ i with |pⱼ−pᵢ| < h into the shell
// floor(|Δ|/h · C), clamped to C-1. When a circle is full additional
// candidates are silently dropped; the density kernel is empirically
// insensitive to dropped far-field neighbors. Safe to dispatch
// concurrently for distinct i.
func Build(l *List, g *grid.Grid, predicted []state.Vec4, p *params.Params, i int) {
	self := predicted[i]
	h := p.H
	circles := l.Circles

	g.Walk3x3x3(self, func(j int32) {
		if int(j) == i {
			return
		}
		dx := self.X - predicted[j].X
		dy := self.Y - predicted[j].Y
		dz := self.Z - predicted[j].Z
		d2 := dx*dx + dy*dy + dz*dz
		if d2 >= h*h {
			return
		}

		d := sqrt32(d2)
		k := uint32(d / h * float32(circles))
		if k >= circles {
			k = circles - 1
		}

		idx := uint32(i)*l.Circles + k
		prior := atomic.AddInt32(&l.counters[idx], 1) - 1
		if prior < int32(l.PerCircle) {
			base := idx * l.PerCircle
			l.neighbors[base+uint32(prior)] = j
		}
		// else: circle full, candidate dropped.
	})
}

func sqrt32(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
