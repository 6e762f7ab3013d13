package postpass

import (
	"testing"

	"github.com/pthm-cable/pbfsim/pbf/friends"
	"github.com/pthm-cable/pbfsim/pbf/params"
	"github.com/pthm-cable/pbfsim/pbf/state"
)

func TestUpdateVelocityMatchesPositionDelta(t *testing.T) {
	b := &state.Buffers{
		Positions:  []state.Vec4{{X: 0, Y: 0, Z: 0}},
		Predicted:  []state.Vec4{{X: 0.01, Y: 0, Z: 0}},
		Velocities: []state.Vec4{{}},
	}
	d := &params.DeviceBlock{TimeStep: 0.01}

	UpdateVelocity(b, d, 0)

	if got, want := b.Velocities[0].X, float32(1.0); got != want {
		t.Errorf("velocity.X = %v, want %v", got, want)
	}
}

// A lone particle with no neighbors picks up exactly -g*dt of vertical
// velocity per committed substep.
func TestGravityAccumulatesWithNoNeighbors(t *testing.T) {
	b := &state.Buffers{
		Positions:  []state.Vec4{{X: 0.5, Y: 0.9, Z: 0.5}},
		Predicted:  []state.Vec4{{X: 0.5, Y: 0.9, Z: 0.5}},
		Velocities: []state.Vec4{{W: 1}},
		Delta:      []state.Vec3{{}},
		Omega:      []state.Vec3{{}},
	}
	pr := params.Params{FriendsCircles: 1, ParticlesPerCircle: 1, Gravity: 9.81}
	blk := params.New(pr)
	d := blk.Upload()
	d.TimeStep = 0.01

	fl := friends.NewList(1, 1, 1)
	fl.Reset()

	Vorticity(b, fl, &d, 0)
	ApplyForces(b, fl, &d, 0)
	Commit(b, 0)

	want := float32(-9.81 * 0.01)
	if got := b.Velocities[0].Y; abs32(got-want) > 1e-5 {
		t.Errorf("velocity.Y = %v, want %v", got, want)
	}
}

// ApplyForces only stages δv into the Delta buffer; positions and
// velocities must not move until Commit reads it back.
func TestApplyForcesStagesDeltaVUntilCommit(t *testing.T) {
	b := &state.Buffers{
		Positions:  []state.Vec4{{X: 0, Y: 1, Z: 0}},
		Predicted:  []state.Vec4{{X: 0, Y: 0.5, Z: 0}},
		Velocities: []state.Vec4{{W: 1}},
		Delta:      []state.Vec3{{}},
		Omega:      []state.Vec3{{}},
	}
	pr := params.Params{FriendsCircles: 1, ParticlesPerCircle: 1, Gravity: 9.81, TimeStep: 0.01}
	blk := params.New(pr)
	d := blk.Upload()

	fl := friends.NewList(1, 1, 1)
	fl.Reset()

	before := b.Positions[0]
	beforeVel := b.Velocities[0]

	Vorticity(b, fl, &d, 0)
	ApplyForces(b, fl, &d, 0)

	if b.Positions[0] != before {
		t.Errorf("position changed before commit: %+v -> %+v", before, b.Positions[0])
	}
	if b.Velocities[0] != beforeVel {
		t.Errorf("velocity changed before commit: %+v -> %+v", beforeVel, b.Velocities[0])
	}
	if b.Delta[0].Y >= 0 {
		t.Errorf("staged delta-v.Y = %v, want < 0 under gravity", b.Delta[0].Y)
	}

	Commit(b, 0)

	if b.Positions[0] != b.Predicted[0] {
		t.Errorf("commit did not adopt predicted position: %+v vs %+v", b.Positions[0], b.Predicted[0])
	}
	if b.Velocities[0].Y != beforeVel.Y+b.Delta[0].Y {
		t.Errorf("commit did not apply staged delta-v: %v", b.Velocities[0].Y)
	}
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
