// Package postpass turns the density solver's corrected predicted
// positions back into physically plausible velocities: velocity
// reconstruction, vorticity confinement, XSPH viscosity, gravity, and
// the final position/velocity commit for the substep.
package postpass

import (
	"math"

	"github.com/pthm-cable/pbfsim/pbf/friends"
	"github.com/pthm-cable/pbfsim/pbf/params"
	"github.com/pthm-cable/pbfsim/pbf/solver"
	"github.com/pthm-cable/pbfsim/pbf/state"
)

// UpdateVelocity recomputes vᵢ from the position delta over the substep:
// vᵢ ← (pᵢ,predicted − pᵢ,prev) / Δt. The mass slot (W) is left untouched.
func UpdateVelocity(b *state.Buffers, d *params.DeviceBlock, i int) {
	dt := d.TimeStep
	b.Velocities[i].X = (b.Predicted[i].X - b.Positions[i].X) / dt
	b.Velocities[i].Y = (b.Predicted[i].Y - b.Positions[i].Y) / dt
	b.Velocities[i].Z = (b.Predicted[i].Z - b.Positions[i].Z) / dt
}

// Vorticity computes ωᵢ = Σⱼ (vⱼ − vᵢ) × ∇W_spiky(pᵢ−pⱼ, h) and stores it
// in b.Omega[i].
func Vorticity(b *state.Buffers, fl *friends.List, d *params.DeviceBlock, i int) {
	self := b.Predicted[i]
	vi := b.Velocities[i]

	var omega state.Vec3
	fl.ForEach(i, func(j int32) {
		other := b.Predicted[j]
		delta := solver.Vec3{X: self.X - other.X, Y: self.Y - other.Y, Z: self.Z - other.Z}
		r := sqrtf(delta.X*delta.X + delta.Y*delta.Y + delta.Z*delta.Z)
		grad := solver.SpikyGradient(delta, r, d.H, d.GradSpikyFactor)

		vj := b.Velocities[j]
		dv := state.Vec3{X: vj.X - vi.X, Y: vj.Y - vi.Y, Z: vj.Z - vi.Z}

		cx, cy, cz := cross(dv, grad)
		omega.X += cx
		omega.Y += cy
		omega.Z += cz
	})
	b.Omega[i] = omega
}

// ApplyForces accumulates particle i's velocity correction δvᵢ —
// vorticity confinement, XSPH viscosity, and gravity — into b.Delta[i].
// Δp is dead once the solver's last update-predicted has run, so the
// same buffer doubles as the δv staging area; Commit reads it back.
//
// Staging through Delta keeps this kernel free of read/write hazards: it
// reads friends' velocities and ω while writing only b.Delta[i], so it
// is safe under arbitrary work-item interleaving. It must run after
// every particle's Vorticity has been written — it reads friends' ω, so
// fusing it into the Vorticity pass would read partially-updated values
// depending on dispatch order.
func ApplyForces(b *state.Buffers, fl *friends.List, d *params.DeviceBlock, i int) {
	self := b.Predicted[i]
	vi := b.Velocities[i]
	omegaI := b.Omega[i]

	var eta state.Vec3
	var xsph state.Vec3

	fl.ForEach(i, func(j int32) {
		other := b.Predicted[j]
		delta := solver.Vec3{X: self.X - other.X, Y: self.Y - other.Y, Z: self.Z - other.Z}
		r2 := delta.X*delta.X + delta.Y*delta.Y + delta.Z*delta.Z
		r := sqrtf(r2)
		grad := solver.SpikyGradient(delta, r, d.H, d.GradSpikyFactor)

		omegaJ := b.Omega[j]
		omegaJMag := magnitude(omegaJ)
		eta.X += omegaJMag * grad.X
		eta.Y += omegaJMag * grad.Y
		eta.Z += omegaJMag * grad.Z

		vj := b.Velocities[j]
		poly := solver.Poly6(r2, d.H2, d.Poly6Factor)
		xsph.X += (vj.X - vi.X) * poly
		xsph.Y += (vj.Y - vi.Y) * poly
		xsph.Z += (vj.Z - vi.Z) * poly
	})

	var dv state.Vec3

	// Vorticity confinement: δv += Δt · ν · (N × ωᵢ), N = η/|η|.
	etaMag := magnitude(eta)
	if etaMag > 1e-6 {
		n := state.Vec3{X: eta.X / etaMag, Y: eta.Y / etaMag, Z: eta.Z / etaMag}
		cx, cy, cz := cross(n, omegaI)
		dv.X += d.TimeStep * d.VorticityFactor * cx
		dv.Y += d.TimeStep * d.VorticityFactor * cy
		dv.Z += d.TimeStep * d.VorticityFactor * cz
	}

	// XSPH viscosity.
	dv.X += d.ViscosityFactor * xsph.X
	dv.Y += d.ViscosityFactor * xsph.Y
	dv.Z += d.ViscosityFactor * xsph.Z

	// Gravity.
	dv.Y += -d.Gravity * d.TimeStep

	b.Delta[i] = dv
}

// Commit advances particle i for the substep: pᵢ,prev ← pᵢ,predicted and
// vᵢ ← vᵢ + δvᵢ, with δv read back from the staging buffer ApplyForces
// filled. The orchestrator skips the whole post-pass while paused, so
// positions and velocities stay bit-identical across paused frames.
func Commit(b *state.Buffers, i int) {
	b.Positions[i] = b.Predicted[i]
	b.Velocities[i].X += b.Delta[i].X
	b.Velocities[i].Y += b.Delta[i].Y
	b.Velocities[i].Z += b.Delta[i].Z
}

func cross(a, b state.Vec3) (x, y, z float32) {
	return a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X
}

func magnitude(v state.Vec3) float32 {
	return sqrtf(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func sqrtf(x float32) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(x)))
}
