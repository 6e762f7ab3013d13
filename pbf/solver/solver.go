package solver

import (
	"math"

	"github.com/pthm-cable/pbfsim/pbf/friends"
	"github.com/pthm-cable/pbfsim/pbf/params"
	"github.com/pthm-cable/pbfsim/pbf/state"
)

// Scaling computes particle i's Lagrange multiplier λᵢ from its friends
// list. ρᵢ is the Poly6-weighted density sum including the self term;
// Cᵢ is the density constraint; the denominator accumulates
// both the cross gradient terms (∇pⱼ C) and the self gradient term
// (∇pᵢ C = Σⱼ ∇W_spiky), which is the standard PBF formulation and avoids
// λ blowing up for particles with few neighbors (e.g. near a boundary).
func Scaling(b *state.Buffers, fl *friends.List, d *params.DeviceBlock, i int) float32 {
	self := b.Predicted[i]

	density := Poly6(0, d.H2, d.Poly6Factor)
	var gradSelf Vec3
	var denomCross float32

	fl.ForEach(i, func(j int32) {
		other := b.Predicted[j]
		delta := sub3(self, other)
		r2 := dot3(delta)
		density += Poly6(r2, d.H2, d.Poly6Factor)

		r := sqrtf(r2)
		grad := SpikyGradient(delta, r, d.H, d.GradSpikyFactor)

		gradSelf.X += grad.X
		gradSelf.Y += grad.Y
		gradSelf.Z += grad.Z

		// ∇pⱼ C = -(1/ρ0) grad
		scaled := Vec3{X: grad.X / d.RestDensity, Y: grad.Y / d.RestDensity, Z: grad.Z / d.RestDensity}
		denomCross += dot3(scaled)
	})

	c := density/d.RestDensity - 1

	gradSelfScaled := Vec3{X: gradSelf.X / d.RestDensity, Y: gradSelf.Y / d.RestDensity, Z: gradSelf.Z / d.RestDensity}
	denom := denomCross + dot3(gradSelfScaled) + d.Epsilon

	return -c / denom
}

// Delta accumulates particle i's positional correction Δpᵢ from the
// scaling factors and friends list: the SPH pressure correction with
// surface-tension tensile correction (sCorr), the wave-generator body
// force, and boundary response. wavePos is the current wave-plunger
// displacement along +x from xMin.
func Delta(b *state.Buffers, fl *friends.List, d *params.DeviceBlock, i int, wavePos float32) Vec3 {
	self := b.Predicted[i]
	lambdaI := b.Lambda[i]

	wk := Poly6(d.SurfaceTensionDist*d.SurfaceTensionDist*d.H*d.H, d.H2, d.Poly6Factor)

	var delta Vec3
	fl.ForEach(i, func(j int32) {
		other := b.Predicted[j]
		sub := sub3(self, other)
		r2 := dot3(sub)
		r := sqrtf(r2)

		grad := SpikyGradient(sub, r, d.H, d.GradSpikyFactor)

		var sCorr float32
		if wk > 0 {
			wq := Poly6(r2, d.H2, d.Poly6Factor)
			ratio := wq / wk
			ratio2 := ratio * ratio
			sCorr = -d.SurfaceTensionK * ratio2 * ratio2
		}

		coeff := (lambdaI + b.Lambda[j] + sCorr) / d.RestDensity
		delta.X += coeff * grad.X
		delta.Y += coeff * grad.Y
		delta.Z += coeff * grad.Z
	})

	delta = applyWaveForce(delta, self, d, wavePos)
	delta = applyBoundaryResponse(delta, self, d)

	return delta
}

// applyWaveForce pushes particles within a near-x-min slab defined by
// the current wave position outward, proportional to wave displacement.
// The push is applied here, in position space, rather than as a
// velocity body force; the velocity update derives the matching
// momentum from the corrected position.
func applyWaveForce(delta Vec3, self state.Vec4, d *params.DeviceBlock, wavePos float32) Vec3 {
	if wavePos <= 0 {
		return delta
	}
	distFromWall := self.X - d.XMin
	if distFromWall < wavePos {
		delta.X += wavePos - distFromWall
	}
	return delta
}

// applyBoundaryResponse reflects a predicted position that would exit the
// AABB back inside with epsilon padding, with a gentle spring toward the
// interior to damp sticking.
func applyBoundaryResponse(delta Vec3, self state.Vec4, d *params.DeviceBlock) Vec3 {
	const eps = 1e-4
	const spring = 0.01

	next := state.Vec3{X: self.X + delta.X, Y: self.Y + delta.Y, Z: self.Z + delta.Z}

	if v := d.XMin + eps - next.X; v > 0 {
		delta.X += v + spring*v
	} else if v := next.X - (d.XMax - eps); v > 0 {
		delta.X -= v + spring*v
	}
	if v := d.YMin + eps - next.Y; v > 0 {
		delta.Y += v + spring*v
	} else if v := next.Y - (d.YMax - eps); v > 0 {
		delta.Y -= v + spring*v
	}
	if v := d.ZMin + eps - next.Z; v > 0 {
		delta.Z += v + spring*v
	} else if v := next.Z - (d.ZMax - eps); v > 0 {
		delta.Z -= v + spring*v
	}

	return delta
}

// UpdatePredicted fuses read(Δp) + write(predicted): pᵢ ← pᵢ + Δpᵢ. It
// must run only after Δp has been fully computed for every particle in
// the current iteration — Δp living in its own buffer is what makes
// double-buffering the predicted positions unnecessary.
func UpdatePredicted(b *state.Buffers, i int) {
	b.Predicted[i].X += b.Delta[i].X
	b.Predicted[i].Y += b.Delta[i].Y
	b.Predicted[i].Z += b.Delta[i].Z
}

func sqrtf(x float32) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(x)))
}
