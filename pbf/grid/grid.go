// Package grid implements the uniform-grid neighborhood acceleration
// structure: a head/next linked-list per cubic cell, built from the
// particles' predicted positions each substep. The flat head/next array
// pair lets the friends-list builder walk cells without any per-cell
// allocation.
package grid

import (
	"sync/atomic"

	"github.com/pthm-cable/pbfsim/pbf/params"
	"github.com/pthm-cable/pbfsim/pbf/state"
)

// EndOfCellList is the sentinel written to exhausted list heads/links.
const EndOfCellList int32 = -1

// Grid is the G×G×G cell lattice plus the per-particle next-in-cell index.
type Grid struct {
	Res      int32
	CellSize float32
	Min      [3]float32

	Cells []int32 // [Res^3] — per-cell head index or EndOfCellList
	Next  []int32 // [P] — per-particle next-in-cell index or EndOfCellList
}

// New allocates a grid sized from the parameter block's derived
// resolution. Cell arrays are not populated until Reset+Insert run.
func New(p *params.Params) *Grid {
	g := &Grid{
		Res:      int32(p.GridRes),
		CellSize: p.CellSize,
		Min:      [3]float32{p.XMin, p.YMin, p.ZMin},
	}
	g.Cells = make([]int32, g.Res*g.Res*g.Res)
	return g
}

// Reset sets all cell heads and all next entries to EndOfCellList. The
// work range spans max(P, G³) items in the device model; here that's
// just two independent full-array resets.
func (g *Grid) Reset(particleCount int) {
	for i := range g.Cells {
		g.Cells[i] = EndOfCellList
	}
	if cap(g.Next) < particleCount {
		g.Next = make([]int32, particleCount)
	}
	g.Next = g.Next[:particleCount]
	for i := range g.Next {
		g.Next[i] = EndOfCellList
	}
}

// CellIndex computes the linearized cell index for a predicted position,
// clamping each axis to [0, Res-1].
func (g *Grid) CellIndex(pos state.Vec4) int32 {
	cx := g.axisIndex(pos.X - g.Min[0])
	cy := g.axisIndex(pos.Y - g.Min[1])
	cz := g.axisIndex(pos.Z - g.Min[2])
	return cx + cy*g.Res + cz*g.Res*g.Res
}

func (g *Grid) axisIndex(rel float32) int32 {
	idx := int32(rel / g.CellSize)
	if idx < 0 {
		idx = 0
	}
	if idx > g.Res-1 {
		idx = g.Res - 1
	}
	return idx
}

// Insert atomically splices particle i at the head of its predicted
// cell's linked list using a compare-and-swap loop. The final list for
// each cell contains every particle mapped to it, in nondeterministic
// order; downstream kernels must not depend on the order. Insert is safe
// to call concurrently for distinct i from multiple goroutines — package
// device dispatches it across a worker pool standing in for the GPU's
// data-parallel grid of work items.
func (g *Grid) Insert(i int32, predicted []state.Vec4) {
	c := g.CellIndex(predicted[i])
	head := (*int32)(&g.Cells[c])
	for {
		old := atomic.LoadInt32(head)
		g.Next[i] = old
		if atomic.CompareAndSwapInt32(head, old, i) {
			break
		}
	}
}

// Walk3x3x3 invokes fn for every particle index found in the 3×3×3 cell
// neighborhood centered on the cell containing pos. Each particle is
// visited at most once: its Next entry lives in exactly one cell's list,
// and no cell is walked twice.
func (g *Grid) Walk3x3x3(pos state.Vec4, fn func(candidate int32)) {
	cx := g.axisIndex(pos.X - g.Min[0])
	cy := g.axisIndex(pos.Y - g.Min[1])
	cz := g.axisIndex(pos.Z - g.Min[2])

	for dz := int32(-1); dz <= 1; dz++ {
		z := cz + dz
		if z < 0 || z >= g.Res {
			continue
		}
		for dy := int32(-1); dy <= 1; dy++ {
			y := cy + dy
			if y < 0 || y >= g.Res {
				continue
			}
			for dx := int32(-1); dx <= 1; dx++ {
				x := cx + dx
				if x < 0 || x >= g.Res {
					continue
				}
				c := x + y*g.Res + z*g.Res*g.Res
				for j := atomic.LoadInt32(&g.Cells[c]); j != EndOfCellList; j = g.Next[j] {
					fn(j)
				}
			}
		}
	}
}
