package grid

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/pbfsim/pbf/params"
	"github.com/pthm-cable/pbfsim/pbf/state"
)

func testGrid(t *testing.T) (*Grid, []state.Vec4) {
	t.Helper()
	p := &params.Params{XMin: 0, XMax: 1, YMin: 0, YMax: 1, ZMin: 0, ZMax: 1, H: 0.1}
	blk := params.New(*p)
	blk.Upload()
	g := New(&blk.Params)

	rng := rand.New(rand.NewSource(1))
	n := 500
	positions := make([]state.Vec4, n)
	for i := range positions {
		positions[i] = state.Vec4{
			X: rng.Float32(), Y: rng.Float32(), Z: rng.Float32(),
		}
	}
	return g, positions
}

// After insert, every cell's linked list contains exactly the particles
// whose predicted position hashes to it, each appearing exactly once.
func TestInsertProducesExactCellMembership(t *testing.T) {
	g, positions := testGrid(t)
	g.Reset(len(positions))

	want := make(map[int32][]int32)
	for i := range positions {
		c := g.CellIndex(positions[i])
		want[c] = append(want[c], int32(i))
	}

	for i := range positions {
		g.Insert(int32(i), positions)
	}

	seen := make(map[int32]bool)
	for c, head := range g.Cells {
		got := map[int32]bool{}
		for j := head; j != EndOfCellList; j = g.Next[j] {
			if got[j] {
				t.Fatalf("cell %d: particle %d listed twice", c, j)
			}
			got[j] = true
			seen[j] = true
			wantCell := g.CellIndex(positions[j])
			if wantCell != int32(c) {
				t.Fatalf("particle %d in cell %d, expected cell %d", j, c, wantCell)
			}
		}
		if len(got) != len(want[int32(c)]) {
			t.Fatalf("cell %d: got %d particles, want %d", c, len(got), len(want[int32(c)]))
		}
	}

	if len(seen) != len(positions) {
		t.Fatalf("expected every particle to appear exactly once, got %d of %d", len(seen), len(positions))
	}
}

func TestWalk3x3x3VisitsSelfCellAndNeighbors(t *testing.T) {
	g, positions := testGrid(t)
	g.Reset(len(positions))
	for i := range positions {
		g.Insert(int32(i), positions)
	}

	visited := map[int32]bool{}
	g.Walk3x3x3(positions[0], func(c int32) { visited[c] = true })

	if !visited[0] {
		t.Fatal("expected particle 0 to be visited from its own cell")
	}

	// Every particle within h of particle 0 lies in a neighboring cell,
	// since the cell edge is >= h.
	h := float32(0.1)
	for j := range positions {
		dx := positions[j].X - positions[0].X
		dy := positions[j].Y - positions[0].Y
		dz := positions[j].Z - positions[0].Z
		if dx*dx+dy*dy+dz*dz < h*h && !visited[int32(j)] {
			t.Fatalf("particle %d within h of particle 0 was not visited", j)
		}
	}
}
