// Package solver implements the constrained density solver: the scaling
// factor λ, the positional correction Δp, and the update-predicted
// kernel, iterated N times per substep. The Poly6/spiky smoothing
// kernels use the standard SPH constants 315/(64π·h⁹) and 45/(π·h⁶),
// precomputed once per parameter upload (see pbf/params).
package solver

import "github.com/pthm-cable/pbfsim/pbf/state"

// Vec3 is a local alias of state.Vec3 so solver math reads without a
// package-qualifier on every line; both names denote the same type.
type Vec3 = state.Vec3

func sub3(a, b state.Vec4) Vec3 {
	return Vec3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

func dot3(a Vec3) float32 {
	return a.X*a.X + a.Y*a.Y + a.Z*a.Z
}

// Poly6 evaluates the Poly6 density kernel at squared distance r2,
// given h2 = h*h and the precomputed factor 315/(64π h^9). Returns 0
// when r2 is outside the kernel support; r² < h² is the in-range test,
// so no sqrt is needed for density sums.
func Poly6(r2, h2, factor float32) float32 {
	if r2 >= h2 {
		return 0
	}
	d := h2 - r2
	return factor * d * d * d
}

// SpikyGradient returns ∇W_spiky(pᵢ−pⱼ, h) for the displacement vector
// delta = pᵢ−pⱼ, its magnitude r (precomputed by the caller to avoid a
// redundant sqrt), h and the precomputed factor 45/(π h^6). The zero
// vector is returned for r == 0 (self term / degenerate coincident
// particles) to avoid dividing by zero.
func SpikyGradient(delta Vec3, r, h, factor float32) Vec3 {
	if r <= 0 || r >= h {
		return Vec3{}
	}
	coeff := -factor * (h - r) * (h - r) / r
	return Vec3{X: coeff * delta.X, Y: coeff * delta.Y, Z: coeff * delta.Z}
}
