package state

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/pbfsim/pbf/params"
)

func testParams() *params.Params {
	return &params.Params{
		XMin: 0, XMax: 1, YMin: 0, YMax: 1, ZMin: 0, ZMax: 1,
		H: 0.05, SetupSpacing: 2.0,
	}
}

func TestAllocateRejectsOverMax(t *testing.T) {
	b := NewBuffers(10)
	if err := b.Allocate(11, testParams(), rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("expected AllocError for over-max particle count")
	}
}

func TestAllocateZeroesVelocityMassSlot(t *testing.T) {
	b := NewBuffers(100)
	if err := b.Allocate(50, testParams(), rand.New(rand.NewSource(1))); err != nil {
		t.Fatal(err)
	}
	for i, v := range b.Velocities {
		if v.X != 0 || v.Y != 0 || v.Z != 0 || v.W != 1 {
			t.Fatalf("velocity[%d] = %+v, want zero velocity with mass slot 1", i, v)
		}
	}
}

func TestAllocateStaysAboveDomainMin(t *testing.T) {
	pr := testParams()
	b := NewBuffers(1000)
	if err := b.Allocate(729, pr, rand.New(rand.NewSource(7))); err != nil {
		t.Fatal(err)
	}
	for i, p := range b.Positions {
		if p.X < pr.XMin || p.Y < pr.YMin || p.Z < pr.ZMin {
			t.Fatalf("position[%d] = %+v below domain min", i, p)
		}
	}
}

func TestAllocateIsDeterministicForFixedSeed(t *testing.T) {
	pr := testParams()
	a := NewBuffers(200)
	b := NewBuffers(200)

	if err := a.Allocate(125, pr, rand.New(rand.NewSource(42))); err != nil {
		t.Fatal(err)
	}
	if err := b.Allocate(125, pr, rand.New(rand.NewSource(42))); err != nil {
		t.Fatal(err)
	}

	for i := range a.Positions {
		if a.Positions[i] != b.Positions[i] {
			t.Fatalf("position[%d] differs across identical-seed allocations: %+v vs %+v", i, a.Positions[i], b.Positions[i])
		}
	}
}
